package store

import (
	"errors"
	"fmt"

	"docflow/internal/services"
)

var (
	// ErrNotFound reports a missing project, episode, or workflow.
	ErrNotFound = fmt.Errorf("store: %w", services.ErrNotFound)
	// ErrConflict reports that the workflow version changed between read
	// and write.
	ErrConflict = fmt.Errorf("store: workflow version changed: %w", services.ErrConflict)
	// ErrSchemaMismatch indicates the database schema version doesn't match the expected version.
	ErrSchemaMismatch = errors.New("schema version mismatch")
)
