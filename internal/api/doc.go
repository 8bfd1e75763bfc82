// Package api defines wire-format types, the service facade, and the HTTP
// handler for docflow. It translates store and workflow models into
// transport-friendly DTOs that the CLI and HTTP clients render without
// coupling to internal types.
//
// # Key Types
//
// Project, Episode: descriptive records with RFC3339 timestamps.
//
// Workflow/Phase: the phase state of one episode, with the active phase and
// a status summary keyed by phase name.
//
// Transition: one row of an episode's status history.
//
// Report: per-phase status counts and overdue reviews.
//
// # Service
//
// Service validates requests with go-playground/validator and delegates
// workflow mutations to the engine and record CRUD to the store. Both the
// HTTP handler and the CLI call it.
//
// # HTTP
//
// NewHandler mounts the routes on a ServeMux using method patterns. Errors
// are mapped by services.Classify: malformed requests are 400, workflow rule
// violations and version conflicts are 409, missing records are 404.
//
// # Design Notes
//
// DTOs use camelCase JSON tags. Phase and status enums are exposed as their
// lowercase identifiers; the CLI renders labels.
package api
