// Package logs reads the daemon log file for the CLI: the last N lines, then
// optionally everything appended afterwards until the context ends.
package logs
