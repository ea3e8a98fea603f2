// Package services defines shared utilities consumed by the capture loop and
// external tool integrations.
//
// Key responsibilities:
//   - Context helpers that stamp session and correlation identifiers for
//     logging and tracing.
//   - Structured error markers plus the Wrap helper that keep failure
//     classification consistent across components.
//
// Use these helpers when wiring new logic so operational behaviour (error
// handling, observability) stays uniform across the daemon.
package services
