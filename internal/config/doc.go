// Package config loads, normalizes, and validates ctbb launcher configuration.
//
// It supplies repository defaults (including the dose, slice thickness, and
// kernel sets used when a run does not specify them), expands user paths,
// reads TOML files, and honours environment fallbacks for the case list and
// library locations. The Config type centralizes every knob the launcher
// needs so the queue commit path receives already-validated input.
package config
