// Package logging assembles structured slog loggers and formatting helpers used
// across the OAP daemon and CLI.
//
// It owns the console and JSON handlers, routes daemon output to both the
// terminal and the rotating log file, and exposes context helpers so request
// handlers can tag every line with provision IDs, stages, and correlation IDs.
// NewNop supplies a discard logger for tests and wiring code that cannot fail.
package logging
