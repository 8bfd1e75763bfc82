// Package services defines shared utilities consumed by the workflow engine,
// the HTTP API, and the notification collaborators.
//
// Key responsibilities:
//   - Context helpers that stamp episode IDs, phase names, and correlation
//     identifiers for logging and tracing.
//   - Structured error markers plus the Wrap and Classify helpers that let
//     transports translate failures into consistent responses.
package services
