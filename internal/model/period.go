package model

import (
	"errors"
	"fmt"
	"time"

	"eemeter/internal/stats"
)

// Span is a half-open time interval [Start, End).
type Span struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Duration returns End - Start.
func (s Span) Duration() time.Duration {
	return s.End.Sub(s.Start)
}

// Days returns the whole number of days in the span, rounding down.
// This is the weight a period carries in fitting and savings arithmetic.
func (s Span) Days() int {
	d := s.Duration()
	if d <= 0 {
		return 0
	}
	return int(d / (24 * time.Hour))
}

// Dates returns each whole day in the span as a UTC midnight carrying the
// calendar date of the span's own time zone.
func (s Span) Dates() []time.Time {
	n := s.Days()
	first := CalendarDate(s.Start)
	out := make([]time.Time, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, first.AddDate(0, 0, i))
	}
	return out
}

// CalendarDate returns UTC midnight of t's calendar date in t's location.
// 2014-01-01T00:00:00+02:00 is 2014-01-01, not 2013-12-31.
func CalendarDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ReferenceYear is the non-leap year used to lay out synthetic annual periods.
const ReferenceYear = 2013

// SyntheticYear returns 365 consecutive single-day spans covering the
// reference year, used to evaluate weather-normal quantities.
func SyntheticYear() []Span {
	start := time.Date(ReferenceYear, time.January, 1, 0, 0, 0, 0, time.UTC)
	out := make([]Span, 365)
	for i := range out {
		out[i] = Span{Start: start.AddDate(0, 0, i), End: start.AddDate(0, 0, i+1)}
	}
	return out
}

// ConsumptionPeriod is one metered interval of fuel usage.
// Usage is missing when the reading is unusable; the period still counts
// toward period and weight totals.
type ConsumptionPeriod struct {
	Span
	FuelType FuelType  `json:"fuel_type"`
	Usage    stats.Obs `json:"usage"`
	Unit     FuelUnit  `json:"unit"`
}

// NewConsumptionPeriod validates and builds a period.
func NewConsumptionPeriod(start, end time.Time, fuel FuelType, usage stats.Obs, unit FuelUnit) (ConsumptionPeriod, error) {
	p := ConsumptionPeriod{
		Span:     Span{Start: start, End: end},
		FuelType: fuel,
		Usage:    usage,
		Unit:     unit,
	}
	if err := p.Validate(); err != nil {
		return ConsumptionPeriod{}, err
	}
	return p, nil
}

func (p ConsumptionPeriod) Validate() error {
	if p.FuelType == "" {
		return errors.New("fuel_type is required")
	}
	if !p.Start.Before(p.End) {
		return fmt.Errorf("period start %s must be before end %s", p.Start.Format(time.RFC3339), p.End.Format(time.RFC3339))
	}
	if p.Days() < 1 {
		return fmt.Errorf("period %s..%s is shorter than one day", p.Start.Format(time.RFC3339), p.End.Format(time.RFC3339))
	}
	if _, ok := fuelUnitFactors[p.Unit]; !ok {
		return fmt.Errorf("unknown fuel unit %q", p.Unit)
	}
	return nil
}

// To returns the usage converted to unit. An empty unit leaves it as recorded.
func (p ConsumptionPeriod) To(unit FuelUnit) stats.Obs {
	v, ok := p.Usage.Get()
	if !ok {
		return stats.Missing()
	}
	conv, err := ConvertFuel(v, p.Unit, unit)
	if err != nil {
		return stats.Missing()
	}
	return stats.Present(conv)
}

// AverageDailyUsage is usage in unit divided by the period length in days.
func (p ConsumptionPeriod) AverageDailyUsage(unit FuelUnit) stats.Obs {
	days := p.Days()
	if days == 0 {
		return stats.Missing()
	}
	return p.To(unit).Map(func(v float64) float64 { return v / float64(days) })
}

// Spans returns the time spans of periods, in order.
func Spans(periods []ConsumptionPeriod) []Span {
	out := make([]Span, len(periods))
	for i, p := range periods {
		out[i] = p.Span
	}
	return out
}

// Params is a fitted temperature-sensitivity parameter vector. Meters treat
// it as opaque and only read its length as the fitted-parameter count.
type Params []float64

// Len returns the number of fitted parameters.
func (p Params) Len() int { return len(p) }
