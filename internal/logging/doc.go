// Package logging builds the slog loggers used by agent-roster binaries.
package logging
