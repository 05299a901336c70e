package payroll

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrConfiguration is wrapped by every *ConfigurationError.
	ErrConfiguration = errors.New("invalid payroll configuration")

	// ErrHoursMismatch is returned when the total hours handed to the
	// earnings calculator do not match the day buckets it was given.
	ErrHoursMismatch = errors.New("total hours do not match day buckets")
)

// =============================================================================
// STRUCTURED ERRORS
// =============================================================================

// ConfigurationError reports a settings field the engine cannot work with.
// No partial result accompanies it.
type ConfigurationError struct {
	Field  string
	Value  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("payroll configuration: %s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("payroll configuration: %s=%q: %s", e.Field, e.Value, e.Reason)
}

func (e *ConfigurationError) Unwrap() error { return ErrConfiguration }

func configErr(field, value, reason string) error {
	return &ConfigurationError{Field: field, Value: value, Reason: reason}
}

// IsConfigurationError reports whether err is (or wraps) a configuration error.
func IsConfigurationError(err error) bool {
	return errors.Is(err, ErrConfiguration)
}
