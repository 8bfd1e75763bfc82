// Package workflow models the per-episode production workflow: five phases
// (research, archive, script, voiceover, assembly) that each end with a human
// review gate.
//
// A Workflow is a plain value. Advance validates a requested status change
// against the active phase and the legal transition table, and returns a new
// snapshot plus the events the change produced; the input snapshot is never
// modified, so a rejected call leaves state untouched. Approving a phase
// starts the next one automatically, and approving assembly completes the
// workflow.
//
// The package owns no storage and no locking. Callers that share a workflow
// across goroutines or processes must serialize Advance themselves; the
// engine package does that on top of the SQLite store.
package workflow
