// Package preflight provides readiness checks for the directories and
// external binaries hindsight depends on.
//
// The daemon runs RunAll at startup and logs failures without refusing to
// boot, so a misconfigured recordings directory surfaces immediately instead
// of at the first export. The CLI "hindsight status" command reuses the same
// checks to render directory and dependency health while the daemon is down.
package preflight
