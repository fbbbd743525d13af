package main

// Default limits for CLI commands.
const (
	DefaultSearchLimit  = 10
	DefaultHistoryLimit = 20
)

// Valid export formats.
var validFormats = []string{"json", "csv", "markdown"}
