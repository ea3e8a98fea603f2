// Package daemon coordinates the long-running hindsight process.
//
// It wires the recording controller, the recordings catalog, and the
// single-instance flock into one lifecycle. The daemon exposes the
// operations the IPC layer serves: start and stop the rolling capture,
// export a replay, list and remove catalogued recordings, and report a
// status snapshot.
//
// Keep orchestration logic here: capture mechanics live in the recorder and
// export packages while the daemon focuses on startup, shutdown, and
// delegation.
package daemon
