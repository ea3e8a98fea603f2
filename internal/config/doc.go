// Package config loads, normalizes, and validates hindsight configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// HINDSIGHT_FFMPEG. The Config type centralizes every knob the daemon and CLI
// need, from buffer retention windows to the ffmpeg grab parameters, so the
// capture loop and export path share one source of truth.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
