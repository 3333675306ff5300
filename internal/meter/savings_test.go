package meter

import (
	"errors"
	"math"
	"testing"

	"eemeter/internal/model"
	"eemeter/internal/stats"
)

func normalYear(temp float64) *fakeWeather {
	annual := make([]stats.Obs, 365)
	for i := range annual {
		annual[i] = stats.Present(temp)
	}
	return &fakeWeather{annual: annual}
}

func TestGrossSavingsSkipsMissingPeriods(t *testing.T) {
	post := newHistory(t,
		periodSpec{start: day(2015, 1, 1), end: day(2015, 1, 11), usage: stats.Present(100)},
		periodSpec{start: day(2015, 1, 11), end: day(2015, 1, 21), usage: stats.Missing()},
		periodSpec{start: day(2015, 1, 21), end: day(2015, 1, 31), usage: stats.Present(300)},
	)
	m, err := NewGrossSavings(GrossSavingsConfig{Model: constantModel{}, FuelType: model.FuelElectricity, FuelUnit: model.UnitKWh, TempUnit: model.DegF})
	if err != nil {
		t.Fatal(err)
	}
	res, err := m.Evaluate(Inputs{ParamsPre: model.Params{12}, HistoryPost: post, Weather: &fakeWeather{}})
	if err != nil {
		t.Fatal(err)
	}
	// Counterfactual is 120 per period.
	if got := mustFloat(t, res, "gross_savings"); got != (120-100)+(120-300) {
		t.Fatalf("gross_savings = %v", got)
	}
}

func TestGrossSavingsRequiresPreParams(t *testing.T) {
	m, _ := NewGrossSavings(GrossSavingsConfig{Model: constantModel{}, FuelType: model.FuelElectricity, TempUnit: model.DegF})
	_, err := m.Evaluate(Inputs{HistoryPost: twoMonths(t), Weather: &fakeWeather{}})
	var missing *MissingInputError
	if !errors.As(err, &missing) || missing.Key != KeyParamsPre {
		t.Fatalf("err = %v, want missing %s", err, KeyParamsPre)
	}
	if !errors.Is(err, ErrMissingInput) {
		t.Fatal("MissingInputError should match ErrMissingInput")
	}
}

func TestAnnualizedUsage(t *testing.T) {
	m, err := NewAnnualizedUsage(linearModel{}, model.DegF)
	if err != nil {
		t.Fatal(err)
	}
	in := Inputs{Params: model.Params{1, 0.5}, WeatherNormal: normalYear(50)}
	a, err := m.Evaluate(in)
	if err != nil {
		t.Fatal(err)
	}
	if got := mustFloat(t, a, "annualized_usage"); math.Abs(got-26*365) > 1e-9 {
		t.Fatalf("annualized_usage = %v, want %v", got, 26*365)
	}
	b, err := m.Evaluate(in)
	if err != nil {
		t.Fatal(err)
	}
	if mustFloat(t, a, "annualized_usage") != mustFloat(t, b, "annualized_usage") {
		t.Fatal("repeated evaluation differs")
	}
}

func TestAnnualizedUsageRejectsShortNormal(t *testing.T) {
	m, _ := NewAnnualizedUsage(linearModel{}, model.DegF)
	w := &fakeWeather{annual: make([]stats.Obs, 366)}
	if _, err := m.Evaluate(Inputs{Params: model.Params{1, 0}, WeatherNormal: w}); err == nil {
		t.Fatal("expected error for 366-day normal")
	}
}

func TestAnnualizedGrossSavings(t *testing.T) {
	post := newHistory(t,
		periodSpec{start: day(2015, 1, 1), end: day(2016, 1, 1), usage: stats.Present(1)},
		periodSpec{start: day(2016, 1, 1), end: day(2016, 12, 31), usage: stats.Present(1)},
	)
	m, err := NewAnnualizedGrossSavings(linearModel{}, model.FuelElectricity, model.DegF)
	if err != nil {
		t.Fatal(err)
	}
	normal := normalYear(50)
	res, err := m.Evaluate(Inputs{
		ParamsPre:     model.Params{2, 0.5},
		ParamsPost:    model.Params{1, 0.5},
		HistoryPost:   post,
		WeatherNormal: normal,
	})
	if err != nil {
		t.Fatal(err)
	}
	// 730 post days is two years; the daily gap is 1.
	if got := mustFloat(t, res, "annualized_gross_savings"); math.Abs(got-2*365) > 1e-9 {
		t.Fatalf("annualized_gross_savings = %v, want %v", got, 2*365)
	}

	// The delegated figures match a direct AnnualizedUsage evaluation.
	direct, _ := NewAnnualizedUsage(linearModel{}, model.DegF)
	pre, err := direct.Evaluate(Inputs{Params: model.Params{2, 0.5}, WeatherNormal: normal})
	if err != nil {
		t.Fatal(err)
	}
	if mustFloat(t, res, "annualized_usage_pre") != mustFloat(t, pre, "annualized_usage") {
		t.Fatal("annualized_usage_pre does not match direct evaluation")
	}
}

func TestSavingsConstructorsValidate(t *testing.T) {
	if _, err := NewGrossSavings(GrossSavingsConfig{TempUnit: model.DegF}); !errors.Is(err, ErrConfig) {
		t.Fatalf("err = %v, want ErrConfig", err)
	}
	if _, err := NewAnnualizedUsage(linearModel{}, ""); !errors.Is(err, ErrConfig) {
		t.Fatalf("err = %v, want ErrConfig", err)
	}
	if _, err := NewAnnualizedGrossSavings(nil, model.FuelElectricity, model.DegF); !errors.Is(err, ErrConfig) {
		t.Fatalf("err = %v, want ErrConfig", err)
	}
}
