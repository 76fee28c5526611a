// Package logging assembles structured slog loggers and formatting helpers used
// across cmd360.
//
// It owns the console and JSON handlers, centralizes level and output
// plumbing, and tags every line of one command invocation with a session_id
// so interleaved runs against the same device can be told apart. Logs go to
// stderr by default; stdout is left to command output such as listings.
//
// The package also provides a no-op logger for tests and wiring code that
// cannot fail.
package logging
