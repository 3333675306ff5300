package meter

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingInput matches any *MissingInputError.
	ErrMissingInput = errors.New("missing input")
	// ErrConfig matches any *ConfigError.
	ErrConfig = errors.New("invalid meter configuration")
	// ErrDegenerate matches any *DegenerateError.
	ErrDegenerate = errors.New("degenerate statistic")
	// ErrNoData is returned when a meter has no periods to work with.
	ErrNoData = errors.New("no consumption periods")
	// ErrNoOutput is returned by Result accessors for absent keys.
	ErrNoOutput = errors.New("no such output")
)

// MissingInputError names a required input absent from an evaluation call.
type MissingInputError struct {
	Meter string
	Key   Key
}

func (e *MissingInputError) Error() string {
	return fmt.Sprintf("%s: missing required input %q", e.Meter, e.Key)
}

func (e *MissingInputError) Is(target error) bool { return target == ErrMissingInput }

// ConfigError is returned by constructors for invalid construction parameters.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config %s: %s", e.Field, e.Reason)
}

func (e *ConfigError) Is(target error) bool { return target == ErrConfig }

// DegenerateError reports a statistic whose denominator vanished, e.g. zero
// degrees of freedom in CVRMSE.
type DegenerateError struct {
	Statistic string
	Reason    string
}

func (e *DegenerateError) Error() string {
	return fmt.Sprintf("%s undefined: %s", e.Statistic, e.Reason)
}

func (e *DegenerateError) Is(target error) bool { return target == ErrDegenerate }
