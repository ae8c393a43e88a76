// Package jobs enumerates pipeline jobs and defines their queue line format.
//
// A ParameterSet expands into the cross-product of case, dose, slice
// thickness, and reconstruction kernel. Each Entry renders as one
// comma-separated queue line in the fixed field order the consumer daemon
// parses: case, dose, kernel, thickness.
package jobs
