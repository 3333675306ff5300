package meter

import (
	"errors"
	"math"
	"testing"
	"time"

	"eemeter/internal/model"
	"eemeter/internal/stats"
)

func TestTotalDegreeDays(t *testing.T) {
	m, err := NewTotalDegreeDays(DegreeDayConfig{Kind: Heating, Base: 65, TempUnit: model.DegF, FuelType: model.FuelElectricity})
	if err != nil {
		t.Fatal(err)
	}
	w := &fakeWeather{hdd: []float64{12, 8}}
	res, err := m.Evaluate(Inputs{History: twoMonths(t), Weather: w})
	if err != nil {
		t.Fatal(err)
	}
	if got := mustFloat(t, res, "total_hdd"); got != 20 {
		t.Fatalf("total_hdd = %v, want 20", got)
	}
	if w.lastBase != 65 || w.lastUnit != model.DegF || len(w.lastSpans) != 2 {
		t.Fatalf("weather queried with base=%v unit=%s spans=%d", w.lastBase, w.lastUnit, len(w.lastSpans))
	}
}

func TestTotalCoolingDegreeDaysSkipsNaN(t *testing.T) {
	m, err := NewTotalDegreeDays(DegreeDayConfig{Kind: Cooling, Base: 18, TempUnit: model.DegC})
	if err != nil {
		t.Fatal(err)
	}
	res, err := m.Evaluate(Inputs{History: twoMonths(t), Weather: &fakeWeather{cdd: []float64{5, math.NaN()}}, FuelType: model.FuelElectricity})
	if err != nil {
		t.Fatal(err)
	}
	if got := mustFloat(t, res, "total_cdd"); got != 5 {
		t.Fatalf("total_cdd = %v, want 5", got)
	}
}

func TestNormalAnnualDegreeDays(t *testing.T) {
	m, err := NewNormalAnnualDegreeDays(DegreeDayConfig{Kind: Heating, Base: 65, TempUnit: model.DegF})
	if err != nil {
		t.Fatal(err)
	}
	dd := make([]float64, 365)
	for i := range dd {
		dd[i] = 2
	}
	w := &fakeWeather{hdd: dd}
	res, err := m.Evaluate(Inputs{WeatherNormal: w})
	if err != nil {
		t.Fatal(err)
	}
	if got := mustFloat(t, res, "normal_annual_hdd"); got != 730 {
		t.Fatalf("normal_annual_hdd = %v, want 730", got)
	}
	if len(w.lastSpans) != 365 || w.lastSpans[0].Days() != 1 {
		t.Fatalf("expected 365 single-day spans, got %d", len(w.lastSpans))
	}
}

func TestNPeriodsMeetingThreshold(t *testing.T) {
	h := newHistory(t,
		periodSpec{start: day(2014, 1, 1), end: day(2014, 2, 1), usage: stats.Present(1)},
		periodSpec{start: day(2014, 2, 1), end: day(2014, 3, 1), usage: stats.Present(1)},
		periodSpec{start: day(2014, 3, 1), end: day(2014, 4, 1), usage: stats.Present(1)},
		periodSpec{start: day(2014, 4, 1), end: day(2014, 5, 1), usage: stats.Present(1)},
	)
	rates := []stats.Obs{stats.Present(4), stats.Present(6), stats.Present(8), stats.Missing()}

	tests := []struct {
		op         string
		proportion float64
		threshold  float64
		want       float64
	}{
		{"gte", 1, 5, 2},
		{"gte", 0, 5, 3},
		{"gt", 1, 6, 1},
		{"lt", 1, 6, 1},
		{"lte", 1, 6, 2},
		{"gte", 0.5, 12, 2},
	}
	for _, tc := range tests {
		op, err := ParseComparison(tc.op)
		if err != nil {
			t.Fatal(err)
		}
		m, err := NewNPeriodsMeetingThreshold(ThresholdConfig{
			DegreeDayConfig: DegreeDayConfig{Kind: Heating, Base: 65, TempUnit: model.DegF, FuelType: model.FuelElectricity},
			Operation:       op,
			Proportion:      tc.proportion,
		})
		if err != nil {
			t.Fatal(err)
		}
		res, err := m.Evaluate(Inputs{History: h, Weather: &fakeWeather{hddRate: rates}, Threshold: stats.Present(tc.threshold)})
		if err != nil {
			t.Fatal(err)
		}
		if got := mustFloat(t, res, "n_periods"); got != tc.want {
			t.Errorf("%s %v*%v: n_periods = %v, want %v", tc.op, tc.proportion, tc.threshold, got, tc.want)
		}
	}
}

func TestNPeriodsMeetingThresholdNeedsThreshold(t *testing.T) {
	m, err := NewNPeriodsMeetingThreshold(ThresholdConfig{
		DegreeDayConfig: DegreeDayConfig{Kind: Cooling, TempUnit: model.DegF},
		Operation:       GreaterThan,
	})
	if err != nil {
		t.Fatal(err)
	}
	if m.Name() != "n_periods_cdd_per_day_gt" {
		t.Fatalf("name = %q", m.Name())
	}
	_, err = m.Evaluate(Inputs{History: twoMonths(t), Weather: &fakeWeather{}})
	var missing *MissingInputError
	if !errors.As(err, &missing) || missing.Key != KeyThreshold {
		t.Fatalf("err = %v, want missing threshold", err)
	}
}

func TestDegreeDayConfigErrors(t *testing.T) {
	if _, err := ParseComparison("approx"); !errors.Is(err, ErrConfig) {
		t.Fatalf("err = %v, want ErrConfig", err)
	}
	if _, err := NewTotalDegreeDays(DegreeDayConfig{Kind: "xdd", TempUnit: model.DegF}); !errors.Is(err, ErrConfig) {
		t.Fatalf("err = %v, want ErrConfig", err)
	}
	if _, err := NewNPeriodsMeetingThreshold(ThresholdConfig{DegreeDayConfig: DegreeDayConfig{Kind: Heating, TempUnit: model.DegF}}); !errors.Is(err, ErrConfig) {
		t.Fatalf("zero operation: err = %v, want ErrConfig", err)
	}
	negative := ThresholdConfig{DegreeDayConfig: DegreeDayConfig{Kind: Heating, TempUnit: model.DegF}, Operation: GreaterThan, Proportion: -1}
	if _, err := NewNPeriodsMeetingThreshold(negative); !errors.Is(err, ErrConfig) {
		t.Fatalf("negative proportion: err = %v, want ErrConfig", err)
	}
}

func TestFuelTypePresence(t *testing.T) {
	m, err := NewFuelTypePresence([]model.FuelType{model.FuelElectricity, model.FuelNaturalGas})
	if err != nil {
		t.Fatal(err)
	}
	res, err := m.Evaluate(Inputs{History: twoMonths(t)})
	if err != nil {
		t.Fatal(err)
	}
	if ok, _ := res.Bool("electricity_presence"); !ok {
		t.Fatal("electricity should be present")
	}
	if ok, _ := res.Bool("natural_gas_presence"); ok {
		t.Fatal("natural gas should be absent")
	}
}

func TestTimeSpanCountsOverlapOnce(t *testing.T) {
	h := newHistory(t,
		periodSpec{start: day(2014, 1, 1), end: day(2014, 1, 11), usage: stats.Present(1)},
		periodSpec{start: day(2014, 1, 6), end: day(2014, 1, 16), usage: stats.Present(1)},
	)
	res, err := NewTimeSpan(model.FuelElectricity).Evaluate(Inputs{History: h})
	if err != nil {
		t.Fatal(err)
	}
	if got := mustFloat(t, res, "time_span"); got != 15 {
		t.Fatalf("time_span = %v, want 15", got)
	}
}

func TestRecentReading(t *testing.T) {
	since := time.Date(2014, 6, 30, 0, 0, 0, 0, time.UTC)
	h := twoMonths(t) // ends 2014-06-01

	tests := []struct {
		days int
		want bool
	}{
		{360, true},
		{30, true},
		{29, false},
		{7, false},
	}
	for _, tc := range tests {
		m, err := NewRecentReading(tc.days, since, model.FuelElectricity)
		if err != nil {
			t.Fatal(err)
		}
		res, err := m.Evaluate(Inputs{History: h})
		if err != nil {
			t.Fatal(err)
		}
		if got, _ := res.Bool("recent_reading"); got != tc.want {
			t.Errorf("%d days: recent_reading = %v, want %v (cutoff %s)", tc.days, got, tc.want, m.Cutoff())
		}
	}

	if _, err := NewRecentReading(-1, since, ""); !errors.Is(err, ErrConfig) {
		t.Fatalf("err = %v, want ErrConfig", err)
	}
}
