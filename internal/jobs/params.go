package jobs

import (
	"fmt"
	"iter"
	"slices"
	"strings"
)

// ParameterSet holds the cross-product inputs for one commit.
type ParameterSet struct {
	Cases       []string
	Doses       []int
	Thicknesses []float64
	Kernels     []int
}

// Entries yields the cross-product in case, dose, thickness, kernel nesting
// order. Blank case identifiers are skipped. The sequence is lazy and can be
// ranged over any number of times.
func (p ParameterSet) Entries() iter.Seq[Entry] {
	return func(yield func(Entry) bool) {
		for _, c := range p.Cases {
			if isBlank(c) {
				continue
			}
			for _, dose := range p.Doses {
				for _, thickness := range p.Thicknesses {
					for _, kernel := range p.Kernels {
						if !yield(Entry{Case: c, Dose: dose, Kernel: kernel, Thickness: thickness}) {
							return
						}
					}
				}
			}
		}
	}
}

// Collect materializes Entries.
func (p ParameterSet) Collect() []Entry {
	return slices.Collect(p.Entries())
}

// Count returns how many entries Entries yields without enumerating them.
func (p ParameterSet) Count() int {
	cases := 0
	for _, c := range p.Cases {
		if !isBlank(c) {
			cases++
		}
	}
	return cases * len(p.Doses) * len(p.Thicknesses) * len(p.Kernels)
}

// Validate rejects case identifiers that cannot be written as a single queue
// field.
func (p ParameterSet) Validate() error {
	for i, c := range p.Cases {
		if isBlank(c) {
			continue
		}
		if strings.ContainsAny(c, ",\r\n") {
			return fmt.Errorf("case %d (%q) contains a comma or line break", i, c)
		}
	}
	return nil
}

func isBlank(c string) bool {
	return strings.TrimSpace(c) == ""
}
