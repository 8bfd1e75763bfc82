// Package preflight provides readiness checks for the filesystem paths and
// services docflow depends on.
//
// These checks run in two contexts:
//   - The daemon calls RunAll at startup and refuses to start when a
//     directory check fails.
//   - The CLI "docflow status" command uses the individual checks to display
//     health.
//
// Optional integrations are skipped when they are not configured.
package preflight
