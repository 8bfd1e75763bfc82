// Package logs reads the JSON activity log written by docflow processes.
//
// Tail returns the most recent entries or follows the file from a byte
// offset, keeping only entries that match a Filter on the structured
// episode, component, and level fields.
package logs
