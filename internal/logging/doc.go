// Package logging assembles structured slog loggers and formatting helpers used
// across the ctbb launcher.
//
// It owns the configurable console/JSON handlers, centralizes level and output
// plumbing, and defines the standard field keys commit and lock code tag their
// records with. The package also provides a no-op logger for tests and wiring
// code that cannot fail.
//
// Prefer these constructors over hand-rolled slog setup so every component
// emits records with the same shape.
package logging
