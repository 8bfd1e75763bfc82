// Command docflow manages documentary episodes and their production
// workflows.
//
// Commands operate on the local SQLite store directly, so they work whether
// or not docflowd is running. Workflow events raised by a command (ntfy
// notifications, export manifests) are delivered before the command exits.
package main
