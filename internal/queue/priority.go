package queue

import "strings"

// Priority decides where new entries land relative to the existing backlog.
type Priority string

const (
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
)

// ParsePriority accepts "normal" or "high" in any case, ignoring surrounding
// whitespace.
func ParsePriority(raw string) (Priority, error) {
	switch p := Priority(strings.ToLower(strings.TrimSpace(raw))); p {
	case PriorityNormal, PriorityHigh:
		return p, nil
	default:
		return "", &ConfigurationError{Field: "priority", Value: raw, Msg: "must be normal or high"}
	}
}

func (p Priority) String() string { return string(p) }
