// Package weather provides temperature data for meter evaluation: observed
// daily series, long-run normals, CSV loading and an Open-Meteo archive
// client.
package weather

import (
	"math"
	"time"

	"eemeter/internal/model"
	"eemeter/internal/stats"
)

const dateLayout = "2006-01-02"

// dateKey is the calendar date of t in its own location.
func dateKey(t time.Time) string { return t.Format(dateLayout) }

// source answers span queries from a per-day lookup in a native unit.
// Series and Normal embed it.
type source struct {
	native model.TempUnit
	lookup func(day time.Time) stats.Obs
}

// DailyTemperatures returns one observation per whole day of each span,
// converted to unit. Days without data are missing.
func (s source) DailyTemperatures(spans []model.Span, unit model.TempUnit) ([][]stats.Obs, error) {
	out := make([][]stats.Obs, len(spans))
	for i, sp := range spans {
		days := sp.Dates()
		series := make([]stats.Obs, len(days))
		for j, d := range days {
			series[j] = s.lookup(d).Map(func(v float64) float64 {
				return model.ConvertTemp(v, s.native, unit)
			})
		}
		out[i] = series
	}
	return out, nil
}

// HDD sums max(base - T, 0) over the days of each span that have data.
// A span with no data yields NaN.
func (s source) HDD(spans []model.Span, unit model.TempUnit, base float64) ([]float64, error) {
	return s.degreeDays(spans, unit, func(t float64) float64 { return base - t })
}

// CDD sums max(T - base, 0) over the days of each span that have data.
// A span with no data yields NaN.
func (s source) CDD(spans []model.Span, unit model.TempUnit, base float64) ([]float64, error) {
	return s.degreeDays(spans, unit, func(t float64) float64 { return t - base })
}

// HDDPerDay is HDD divided by the number of days with data.
func (s source) HDDPerDay(spans []model.Span, unit model.TempUnit, base float64) ([]stats.Obs, error) {
	return s.degreeDaysPerDay(spans, unit, func(t float64) float64 { return base - t })
}

// CDDPerDay is CDD divided by the number of days with data.
func (s source) CDDPerDay(spans []model.Span, unit model.TempUnit, base float64) ([]stats.Obs, error) {
	return s.degreeDaysPerDay(spans, unit, func(t float64) float64 { return t - base })
}

func (s source) degreeDays(spans []model.Span, unit model.TempUnit, excess func(float64) float64) ([]float64, error) {
	totals, counts, err := s.accumulate(spans, unit, excess)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(spans))
	for i := range out {
		if counts[i] == 0 {
			out[i] = math.NaN()
			continue
		}
		out[i] = totals[i]
	}
	return out, nil
}

func (s source) degreeDaysPerDay(spans []model.Span, unit model.TempUnit, excess func(float64) float64) ([]stats.Obs, error) {
	totals, counts, err := s.accumulate(spans, unit, excess)
	if err != nil {
		return nil, err
	}
	out := make([]stats.Obs, len(spans))
	for i := range out {
		if counts[i] == 0 {
			out[i] = stats.Missing()
			continue
		}
		out[i] = stats.Present(totals[i] / float64(counts[i]))
	}
	return out, nil
}

// accumulate returns per-span degree-day totals and the number of days with
// data that contributed.
func (s source) accumulate(spans []model.Span, unit model.TempUnit, excess func(float64) float64) ([]float64, []int, error) {
	temps, err := s.DailyTemperatures(spans, unit)
	if err != nil {
		return nil, nil, err
	}
	totals := make([]float64, len(spans))
	counts := make([]int, len(spans))
	for i, series := range temps {
		for _, o := range series {
			if v, ok := o.Get(); ok {
				totals[i] += math.Max(excess(v), 0)
				counts[i]++
			}
		}
	}
	return totals, counts, nil
}
