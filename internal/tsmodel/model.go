// Package tsmodel provides temperature-sensitivity models: a constant
// baseline and heating/cooling balance-point models fit by weighted least
// squares.
package tsmodel

import (
	"errors"
	"fmt"
	"strings"

	"eemeter/internal/meter"
	"eemeter/internal/model"
	"eemeter/internal/stats"
)

// Kind names a model family.
type Kind string

const (
	KindConstant Kind = "constant"
	KindHDD      Kind = "hdd"
	KindCDD      Kind = "cdd"
	KindHDDCDD   Kind = "hdd_cdd"
)

// Kinds lists the supported model families.
func Kinds() []Kind { return []Kind{KindConstant, KindHDD, KindCDD, KindHDDCDD} }

// ErrNoUsage is returned when no period has both a usage and a temperature.
var ErrNoUsage = errors.New("no usable periods to fit")

// ParseKind accepts the names returned by Kinds, case-insensitively.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Kinds() {
		if k == known {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown model %q", s)
}

// New returns a model of the given kind with default balance-point search
// ranges for unit.
func New(kind Kind, unit model.TempUnit) (meter.Model, error) {
	switch kind {
	case KindConstant:
		return Constant{}, nil
	case KindHDD:
		return NewBalancePoint(Config{Heating: DefaultHeatingRange(unit), Step: DefaultStep(unit)})
	case KindCDD:
		return NewBalancePoint(Config{Cooling: DefaultCoolingRange(unit), Step: DefaultStep(unit)})
	case KindHDDCDD:
		return NewBalancePoint(Config{Heating: DefaultHeatingRange(unit), Cooling: DefaultCoolingRange(unit), Step: DefaultStep(unit)})
	default:
		return nil, fmt.Errorf("unknown model %q", kind)
	}
}

// ParamNames labels the parameter vector a model of kind produces.
func ParamNames(kind Kind) []string {
	switch kind {
	case KindConstant:
		return []string{"base_daily_usage"}
	case KindHDD:
		return []string{"base_daily_usage", "heating_slope", "heating_balance_temp"}
	case KindCDD:
		return []string{"base_daily_usage", "cooling_slope", "cooling_balance_temp"}
	case KindHDDCDD:
		return []string{"base_daily_usage", "heating_slope", "heating_balance_temp", "cooling_slope", "cooling_balance_temp"}
	default:
		return nil
	}
}

// Constant models usage as a fixed amount per day, independent of weather.
// Its single parameter is the day-weighted mean daily usage.
type Constant struct{}

func (Constant) ParameterOptimization(usages []stats.Obs, temps [][]stats.Obs, weights []float64) (model.Params, error) {
	if err := checkLengths(usages, temps, weights); err != nil {
		return nil, err
	}
	base, ok := stats.WeightedMean(usages, weights)
	if !ok {
		return nil, ErrNoUsage
	}
	return model.Params{base}, nil
}

func (Constant) ComputeUsageEstimates(params model.Params, temps [][]stats.Obs) ([]stats.Obs, error) {
	if params.Len() != 1 {
		return nil, fmt.Errorf("constant model takes 1 parameter, got %d", params.Len())
	}
	out := make([]stats.Obs, len(temps))
	for i, series := range temps {
		out[i] = stats.Present(params[0] * float64(len(series)))
	}
	return out, nil
}

func checkLengths(usages []stats.Obs, temps [][]stats.Obs, weights []float64) error {
	if len(usages) != len(temps) || len(usages) != len(weights) {
		return fmt.Errorf("length mismatch: %d usages, %d temperature series, %d weights", len(usages), len(temps), len(weights))
	}
	return nil
}
