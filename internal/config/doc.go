// Package config loads, normalizes, and validates docflow configuration.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and applies DOCFLOW_* environment overrides
// on top of file values. The Config type centralizes every knob the daemon
// and CLI need so data, log, and export directories plus the review SLA
// windows are discovered in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
