// Package export assembles replay artifacts by merging buffered chunks into
// a single recording.
package export
