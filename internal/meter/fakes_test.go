package meter

import (
	"testing"
	"time"

	"eemeter/internal/model"
	"eemeter/internal/stats"
)

// fakeWeather returns a constant daily temperature and canned degree days.
type fakeWeather struct {
	temp      float64
	hdd, cdd  []float64
	hddRate   []stats.Obs
	cddRate   []stats.Obs
	annual    []stats.Obs
	err       error
	lastUnit  model.TempUnit
	lastBase  float64
	lastSpans []model.Span
}

func (w *fakeWeather) DailyTemperatures(spans []model.Span, unit model.TempUnit) ([][]stats.Obs, error) {
	if w.err != nil {
		return nil, w.err
	}
	w.lastUnit = unit
	w.lastSpans = spans
	out := make([][]stats.Obs, len(spans))
	for i, s := range spans {
		series := make([]stats.Obs, s.Days())
		for d := range series {
			series[d] = stats.Present(w.temp)
		}
		out[i] = series
	}
	return out, nil
}

func (w *fakeWeather) HDD(spans []model.Span, unit model.TempUnit, base float64) ([]float64, error) {
	w.lastSpans, w.lastUnit, w.lastBase = spans, unit, base
	return w.hdd, w.err
}

func (w *fakeWeather) CDD(spans []model.Span, unit model.TempUnit, base float64) ([]float64, error) {
	w.lastSpans, w.lastUnit, w.lastBase = spans, unit, base
	return w.cdd, w.err
}

func (w *fakeWeather) HDDPerDay(spans []model.Span, unit model.TempUnit, base float64) ([]stats.Obs, error) {
	w.lastSpans, w.lastUnit, w.lastBase = spans, unit, base
	return w.hddRate, w.err
}

func (w *fakeWeather) CDDPerDay(spans []model.Span, unit model.TempUnit, base float64) ([]stats.Obs, error) {
	w.lastSpans, w.lastUnit, w.lastBase = spans, unit, base
	return w.cddRate, w.err
}

func (w *fakeWeather) AnnualDailyTemperatures(unit model.TempUnit) ([]stats.Obs, error) {
	w.lastUnit = unit
	return w.annual, w.err
}

// constantModel estimates param[0] per day. When fixed is set, optimization
// returns it instead of fitting. extra pads the parameter vector to exercise
// degrees-of-freedom bookkeeping.
type constantModel struct {
	fixed *float64
	extra int
}

func (m constantModel) ParameterOptimization(usages []stats.Obs, temps [][]stats.Obs, weights []float64) (model.Params, error) {
	var c float64
	if m.fixed != nil {
		c = *m.fixed
	} else {
		c, _ = stats.WeightedMean(usages, weights)
	}
	p := model.Params{c}
	for i := 0; i < m.extra; i++ {
		p = append(p, 0)
	}
	return p, nil
}

func (m constantModel) ComputeUsageEstimates(params model.Params, temps [][]stats.Obs) ([]stats.Obs, error) {
	out := make([]stats.Obs, len(temps))
	for i, series := range temps {
		out[i] = stats.Present(params[0] * float64(len(series)))
	}
	return out, nil
}

// linearModel estimates params[0] + params[1]*T per day; it does not fit.
type linearModel struct{}

func (linearModel) ParameterOptimization(usages []stats.Obs, temps [][]stats.Obs, weights []float64) (model.Params, error) {
	return model.Params{1, 0.5}, nil
}

func (linearModel) ComputeUsageEstimates(params model.Params, temps [][]stats.Obs) ([]stats.Obs, error) {
	out := make([]stats.Obs, len(temps))
	for i, series := range temps {
		total := 0.0
		for _, t := range series {
			total += params[0] + params[1]*t.Value
		}
		out[i] = stats.Present(total)
	}
	return out, nil
}

func ptr(v float64) *float64 { return &v }

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

type periodSpec struct {
	start, end time.Time
	fuel       model.FuelType
	usage      stats.Obs
}

func newHistory(t *testing.T, specs ...periodSpec) *model.ConsumptionHistory {
	t.Helper()
	periods := make([]model.ConsumptionPeriod, 0, len(specs))
	for _, s := range specs {
		fuel := s.fuel
		if fuel == "" {
			fuel = model.FuelElectricity
		}
		p, err := model.NewConsumptionPeriod(s.start, s.end, fuel, s.usage, model.UnitKWh)
		if err != nil {
			t.Fatalf("period: %v", err)
		}
		periods = append(periods, p)
	}
	h, err := model.NewConsumptionHistory(periods)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	return h
}

// twoMonths is 30 days of 900 kWh followed by 31 days of 950 kWh.
func twoMonths(t *testing.T) *model.ConsumptionHistory {
	return newHistory(t,
		periodSpec{start: day(2014, 4, 1), end: day(2014, 5, 1), usage: stats.Present(900)},
		periodSpec{start: day(2014, 5, 1), end: day(2014, 6, 1), usage: stats.Present(950)},
	)
}

func mustFloat(t *testing.T, r Result, key string) float64 {
	t.Helper()
	v, err := r.Float(key)
	if err != nil {
		t.Fatalf("%s: %v", key, err)
	}
	return v
}
