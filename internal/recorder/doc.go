// Package recorder runs the perpetual capture loop that fills the rolling
// buffer with fixed-length chunks.
package recorder
