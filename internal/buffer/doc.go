// Package buffer tracks the rolling window of recorded chunks and owns the
// lifetime of their backing files.
package buffer
