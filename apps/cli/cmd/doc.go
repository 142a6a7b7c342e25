// Package cmd implements the reqprobe CLI commands using Cobra.
//
// Available commands:
//   - send: Submit a single HTTP request through the execution pipeline
//   - batch: Submit a request collection in bounded concurrent windows
//   - history: Inspect and manage the request history log
//   - version: Show reqprobe version information
//
// The CLI supports flags for output formatting, timeouts, batch window
// sizing, and watch mode for development workflows.
package cmd
