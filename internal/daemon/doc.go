// Package daemon coordinates the long-running docflow process.
//
// It wires configuration, the workflow store, the engine, and the event bus
// into a single lifecycle with flock-based locking to prevent multiple
// instances. Event subscribers (ntfy notifications and the export packager)
// and the overdue review monitor run for as long as the HTTP API serves.
//
// Keep orchestration logic here: workflow rules live in internal/workflow
// and internal/engine while the daemon focuses on startup, shutdown, and
// high level coordination.
package daemon
