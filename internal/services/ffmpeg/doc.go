// Package ffmpeg launches and supervises the external ffmpeg encoder used
// for screen capture and for losslessly merging captured chunks.
package ffmpeg
