// Package ui renders terminal output for the puara CLI.
//
// Static output (banner, key/value blocks, errors with troubleshooting
// hints) goes through a Printer styled with lipgloss. `puara run --monitor`
// uses MonitorModel, a Bubble Tea program that polls the connectivity
// manager and shows station and AP state with the last scan results.
package ui
