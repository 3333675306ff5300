package meter

import (
	"fmt"
	"math"

	"eemeter/internal/model"
	"eemeter/internal/stats"
)

// DegreeDay selects heating or cooling degree days.
type DegreeDay string

const (
	Heating DegreeDay = "hdd"
	Cooling DegreeDay = "cdd"
)

func (d DegreeDay) valid() bool { return d == Heating || d == Cooling }

func (d DegreeDay) totals(src WeatherSource, spans []model.Span, unit model.TempUnit, base float64) ([]float64, error) {
	if d == Heating {
		return src.HDD(spans, unit, base)
	}
	return src.CDD(spans, unit, base)
}

func (d DegreeDay) perDay(src WeatherSource, spans []model.Span, unit model.TempUnit, base float64) ([]stats.Obs, error) {
	if d == Heating {
		return src.HDDPerDay(spans, unit, base)
	}
	return src.CDDPerDay(spans, unit, base)
}

// DegreeDayConfig configures the degree-day meters.
type DegreeDayConfig struct {
	Kind     DegreeDay
	Base     float64
	TempUnit model.TempUnit
	// FuelType, when empty, is taken from the fuel_type input.
	FuelType model.FuelType
}

func (c DegreeDayConfig) validate() error {
	if !c.Kind.valid() {
		return &ConfigError{Field: "kind", Reason: fmt.Sprintf("unknown degree-day kind %q", c.Kind)}
	}
	if c.TempUnit != model.DegF && c.TempUnit != model.DegC {
		return &ConfigError{Field: "temperature_unit", Reason: fmt.Sprintf("unsupported unit %q", c.TempUnit)}
	}
	return nil
}

// TotalDegreeDays sums per-period heating or cooling degree days over one
// fuel type's history. Output: total_hdd or total_cdd.
type TotalDegreeDays struct {
	cfg DegreeDayConfig
}

func NewTotalDegreeDays(cfg DegreeDayConfig) (*TotalDegreeDays, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &TotalDegreeDays{cfg: cfg}, nil
}

func (m *TotalDegreeDays) Name() string { return "total_" + string(m.cfg.Kind) }

func (m *TotalDegreeDays) Evaluate(in Inputs) (Result, error) {
	if err := in.Require(m.Name(), KeyHistory, KeyWeather); err != nil {
		return nil, err
	}
	ft, err := resolveFuelType(m.Name(), m.cfg.FuelType, in)
	if err != nil {
		return nil, err
	}
	dd, err := m.cfg.Kind.totals(in.Weather, model.Spans(in.History.Get(ft)), m.cfg.TempUnit, m.cfg.Base)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", m.Name(), err)
	}
	return Result{m.Name(): Number(sumFloats(dd))}, nil
}

// NormalAnnualDegreeDays sums degree days over the 365 synthetic days of a
// weather-normal year. Output: normal_annual_hdd or normal_annual_cdd.
type NormalAnnualDegreeDays struct {
	cfg DegreeDayConfig
}

func NewNormalAnnualDegreeDays(cfg DegreeDayConfig) (*NormalAnnualDegreeDays, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &NormalAnnualDegreeDays{cfg: cfg}, nil
}

func (m *NormalAnnualDegreeDays) Name() string { return "normal_annual_" + string(m.cfg.Kind) }

func (m *NormalAnnualDegreeDays) Evaluate(in Inputs) (Result, error) {
	if err := in.Require(m.Name(), KeyWeatherNormal); err != nil {
		return nil, err
	}
	dd, err := m.cfg.Kind.totals(in.WeatherNormal, model.SyntheticYear(), m.cfg.TempUnit, m.cfg.Base)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", m.Name(), err)
	}
	return Result{m.Name(): Number(sumFloats(dd))}, nil
}

// ThresholdConfig configures NPeriodsMeetingThreshold.
type ThresholdConfig struct {
	DegreeDayConfig
	Operation Comparison
	// Proportion scales the threshold input. It is used as given: the
	// usual value is 1, and 0 compares every rate against zero.
	Proportion float64
}

// NPeriodsMeetingThreshold counts periods whose per-day degree-day rate
// compares true against Proportion * threshold. Periods without a rate never
// count. Output: n_periods.
type NPeriodsMeetingThreshold struct {
	cfg     ThresholdConfig
	compare func(a, b float64) bool
}

func NewNPeriodsMeetingThreshold(cfg ThresholdConfig) (*NPeriodsMeetingThreshold, error) {
	if err := cfg.DegreeDayConfig.validate(); err != nil {
		return nil, err
	}
	cmp, err := cfg.Operation.fn()
	if err != nil {
		return nil, err
	}
	if cfg.Proportion < 0 || math.IsNaN(cfg.Proportion) || math.IsInf(cfg.Proportion, 0) {
		return nil, &ConfigError{Field: "proportion", Reason: fmt.Sprintf("must be a finite non-negative number, got %v", cfg.Proportion)}
	}
	return &NPeriodsMeetingThreshold{cfg: cfg, compare: cmp}, nil
}

func (m *NPeriodsMeetingThreshold) Name() string {
	return "n_periods_" + string(m.cfg.Kind) + "_per_day_" + m.cfg.Operation.String()
}

func (m *NPeriodsMeetingThreshold) Evaluate(in Inputs) (Result, error) {
	if err := in.Require(m.Name(), KeyHistory, KeyWeather, KeyThreshold); err != nil {
		return nil, err
	}
	ft, err := resolveFuelType(m.Name(), m.cfg.FuelType, in)
	if err != nil {
		return nil, err
	}
	rates, err := m.cfg.Kind.perDay(in.Weather, model.Spans(in.History.Get(ft)), m.cfg.TempUnit, m.cfg.Base)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", m.Name(), err)
	}
	limit := m.cfg.Proportion * in.Threshold.Value
	n := 0
	for _, r := range rates {
		if v, ok := r.Get(); ok && m.compare(v, limit) {
			n++
		}
	}
	return Result{"n_periods": Number(float64(n))}, nil
}

func sumFloats(vals []float64) float64 {
	return stats.Sum(stats.FromFloats(vals))
}
