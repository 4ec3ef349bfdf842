// Package logging assembles structured slog loggers shared by the Recital
// daemon and CLI.
//
// It owns the console/JSON handler selection, level and output plumbing, and
// attribute helpers so components emit log lines with consistent keys. Prefer
// these constructors over hand-rolled slog setup.
package logging
