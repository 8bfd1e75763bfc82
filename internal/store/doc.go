// Package store persists projects, episodes, and their workflows in SQLite.
//
// The Store owns schema creation, busy-retry handling, and the atomic
// read-validate-write cycle used by workflow advances. UpdateWorkflow runs the
// caller's transform inside a single transaction and guards the write with
// an optimistic version check so concurrent writers from other processes
// sharing the database surface as ErrConflict instead of double-applying a
// transition. Every successful change is appended to the transition history.
//
// Callers should use the workflow engine rather than UpdateWorkflow directly
// so per-episode serialization and event publication stay consistent.
package store
