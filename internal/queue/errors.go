package queue

import (
	"errors"
	"fmt"
)

// ErrorClassifier allows errors to declare their classification so callers
// can map failures to exit codes and log hints without string matching.
type ErrorClassifier interface {
	ErrorKind() string
}

// ErrConfiguration matches any *ConfigurationError via errors.Is.
var ErrConfiguration = errors.New("invalid configuration")

// ConfigurationError reports a caller-supplied value the queue cannot act on,
// such as an unknown priority. Nothing is written when it is returned.
type ConfigurationError struct {
	Field string
	Value string
	Msg   string
}

func (e *ConfigurationError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Msg)
	}
	return fmt.Sprintf("%s %q: %s", e.Field, e.Value, e.Msg)
}

func (e *ConfigurationError) Is(target error) bool {
	return target == ErrConfiguration
}

func (e *ConfigurationError) ErrorKind() string { return "configuration" }

// IOError wraps a filesystem failure while reading or writing the queue.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("queue %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

func (e *IOError) ErrorKind() string { return "io" }

func ioErr(op, path string, err error) error {
	if err == nil {
		return nil
	}
	return &IOError{Op: op, Path: path, Err: err}
}

// Kind returns the ErrorKind of the first classified error in err's chain,
// or "" when none is present.
func Kind(err error) string {
	var classifier ErrorClassifier
	if errors.As(err, &classifier) {
		return classifier.ErrorKind()
	}
	return ""
}
