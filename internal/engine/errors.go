package engine

import "fmt"

// ConfigError means the criteria are inconsistent even after clamping.
// It aborts only the affected computation.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string { return "engine config: " + e.Reason }

func configErrorf(format string, a ...interface{}) *ConfigError {
	return &ConfigError{Reason: fmt.Sprintf(format, a...)}
}

// InputError means a day's interval series is unusable (empty, unordered,
// non-contiguous, or mixed durations). Sibling days proceed independently.
type InputError struct {
	Date   string
	Reason string
}

func (e *InputError) Error() string {
	if e.Date == "" {
		return "engine input: " + e.Reason
	}
	return fmt.Sprintf("engine input [%s]: %s", e.Date, e.Reason)
}

func inputErrorf(date, format string, a ...interface{}) *InputError {
	return &InputError{Date: date, Reason: fmt.Sprintf(format, a...)}
}
