// Package catalog persists exported replay metadata in SQLite so finished
// artifacts remain listable across daemon restarts.
package catalog
