package meter

import (
	"fmt"
	"strings"
)

// Comparison selects the operator used by threshold-counting meters.
type Comparison int

const (
	LessThan Comparison = iota + 1
	LessOrEqual
	GreaterThan
	GreaterOrEqual
)

// ParseComparison accepts "lt", "lte", "gt" and "gte".
func ParseComparison(s string) (Comparison, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "lt":
		return LessThan, nil
	case "lte":
		return LessOrEqual, nil
	case "gt":
		return GreaterThan, nil
	case "gte":
		return GreaterOrEqual, nil
	default:
		return 0, &ConfigError{Field: "operation", Reason: fmt.Sprintf("unknown comparison %q (want lt, lte, gt or gte)", s)}
	}
}

func (c Comparison) String() string {
	switch c {
	case LessThan:
		return "lt"
	case LessOrEqual:
		return "lte"
	case GreaterThan:
		return "gt"
	case GreaterOrEqual:
		return "gte"
	default:
		return fmt.Sprintf("Comparison(%d)", int(c))
	}
}

// fn resolves the operator once so evaluation does no string dispatch.
func (c Comparison) fn() (func(a, b float64) bool, error) {
	switch c {
	case LessThan:
		return func(a, b float64) bool { return a < b }, nil
	case LessOrEqual:
		return func(a, b float64) bool { return a <= b }, nil
	case GreaterThan:
		return func(a, b float64) bool { return a > b }, nil
	case GreaterOrEqual:
		return func(a, b float64) bool { return a >= b }, nil
	default:
		return nil, &ConfigError{Field: "operation", Reason: fmt.Sprintf("unknown comparison %d", int(c))}
	}
}
