// Package meter evaluates energy-efficiency metrics over consumption
// histories. Every computational unit is a Meter: it maps a typed set of
// named Inputs to a Result. Meters compose by delegation (a meter builds and
// calls another), by fan-out over fuel types (ForEachFuelType) and by
// sequencing (Sequence).
//
// Meters are stateless apart from construction-time configuration, so
// distinct instances may be evaluated concurrently. The weather sources and
// models they call must themselves be safe for concurrent reads; that is the
// caller's obligation.
package meter

import (
	"fmt"

	"eemeter/internal/model"
	"eemeter/internal/stats"
)

// Meter is the common contract of every computational unit.
type Meter interface {
	Name() string
	Evaluate(in Inputs) (Result, error)
}

// Key names an input slot.
type Key string

const (
	KeyFuelType      Key = "fuel_type"
	KeyHistory       Key = "consumption_history"
	KeyHistoryPost   Key = "consumption_history_post"
	KeyWeather       Key = "weather_source"
	KeyWeatherNormal Key = "weather_normal_source"
	KeyParams        Key = "temp_sensitivity_params"
	KeyParamsPre     Key = "temp_sensitivity_params_pre"
	KeyParamsPost    Key = "temp_sensitivity_params_post"
	KeyThreshold     Key = "threshold"
)

// Inputs is the typed evaluation context passed to meters. Unset fields are
// absent inputs. Meters never mutate the histories or sources referenced here.
type Inputs struct {
	FuelType      model.FuelType
	History       *model.ConsumptionHistory
	HistoryPost   *model.ConsumptionHistory
	Weather       WeatherSource
	WeatherNormal WeatherNormalSource
	Params        model.Params
	ParamsPre     model.Params
	ParamsPost    model.Params
	// Threshold is the per-day degree-day threshold compared by the
	// threshold-counting meters.
	Threshold stats.Obs
}

// Has reports whether the slot named by k is populated.
func (in Inputs) Has(k Key) bool {
	switch k {
	case KeyFuelType:
		return in.FuelType != ""
	case KeyHistory:
		return in.History != nil
	case KeyHistoryPost:
		return in.HistoryPost != nil
	case KeyWeather:
		return in.Weather != nil
	case KeyWeatherNormal:
		return in.WeatherNormal != nil
	case KeyParams:
		return in.Params != nil
	case KeyParamsPre:
		return in.ParamsPre != nil
	case KeyParamsPost:
		return in.ParamsPost != nil
	case KeyThreshold:
		return in.Threshold.OK
	default:
		return false
	}
}

// Require fails with a *MissingInputError for the first absent key.
func (in Inputs) Require(meter string, keys ...Key) error {
	for _, k := range keys {
		if !in.Has(k) {
			return &MissingInputError{Meter: meter, Key: k}
		}
	}
	return nil
}

// Set stores v in the slot named by k. Only parameter and threshold slots
// can be filled from meter outputs.
func (in *Inputs) Set(k Key, v Value) error {
	switch k {
	case KeyParams, KeyParamsPre, KeyParamsPost:
		p, ok := v.Params()
		if !ok {
			return fmt.Errorf("input %q needs params, got %s", k, v.Kind())
		}
		switch k {
		case KeyParams:
			in.Params = p
		case KeyParamsPre:
			in.ParamsPre = p
		default:
			in.ParamsPost = p
		}
		return nil
	case KeyThreshold:
		f, ok := v.Float()
		if !ok {
			return fmt.Errorf("input %q needs a number, got %s", k, v.Kind())
		}
		in.Threshold = stats.Present(f)
		return nil
	default:
		return fmt.Errorf("input %q cannot be bound from a meter output", k)
	}
}

// WithFuelType returns a copy of in with FuelType set.
func (in Inputs) WithFuelType(ft model.FuelType) Inputs {
	in.FuelType = ft
	return in
}

// resolveFuelType prefers the configured fuel type and falls back to the
// fuel_type input.
func resolveFuelType(meter string, configured model.FuelType, in Inputs) (model.FuelType, error) {
	if configured != "" {
		return configured, nil
	}
	if err := in.Require(meter, KeyFuelType); err != nil {
		return "", err
	}
	return in.FuelType, nil
}

// resolveFuelUnit returns the unit usages of ft are read in. With no unit
// configured every period must share one recorded unit; mixed units are a
// config error rather than an average across kWh and Wh.
func resolveFuelUnit(meter string, configured model.FuelUnit, ft model.FuelType, histories ...*model.ConsumptionHistory) (model.FuelUnit, error) {
	if configured != "" {
		return configured, nil
	}
	var units []model.FuelUnit
	seen := map[model.FuelUnit]bool{}
	for _, h := range histories {
		for _, u := range h.Units(ft) {
			if !seen[u] {
				seen[u] = true
				units = append(units, u)
			}
		}
	}
	if len(units) > 1 {
		return "", &ConfigError{Field: "fuel_unit", Reason: fmt.Sprintf("%s: %s periods are recorded in %v; set a fuel unit to convert them", meter, ft, units)}
	}
	return "", nil
}

// WeatherSource supplies observed temperatures and degree days for spans.
// Every method returns one entry per span, in order.
type WeatherSource interface {
	DailyTemperatures(spans []model.Span, unit model.TempUnit) ([][]stats.Obs, error)
	HDD(spans []model.Span, unit model.TempUnit, base float64) ([]float64, error)
	CDD(spans []model.Span, unit model.TempUnit, base float64) ([]float64, error)
	HDDPerDay(spans []model.Span, unit model.TempUnit, base float64) ([]stats.Obs, error)
	CDDPerDay(spans []model.Span, unit model.TempUnit, base float64) ([]stats.Obs, error)
}

// WeatherNormalSource is a long-run average year. It answers the same span
// queries as a WeatherSource for synthetic single-day spans.
type WeatherNormalSource interface {
	WeatherSource
	// AnnualDailyTemperatures returns 365 daily values, Jan 1 first.
	AnnualDailyTemperatures(unit model.TempUnit) ([]stats.Obs, error)
}

// Model is a temperature-sensitivity model.
//
// ParameterOptimization fits parameters to average daily usages, one per
// period, given each period's daily temperatures and weight.
// ComputeUsageEstimates returns the usage each period accumulates over its
// days under params.
type Model interface {
	ParameterOptimization(usages []stats.Obs, temps [][]stats.Obs, weights []float64) (model.Params, error)
	ComputeUsageEstimates(params model.Params, temps [][]stats.Obs) ([]stats.Obs, error)
}
