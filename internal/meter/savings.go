package meter

import (
	"fmt"

	"eemeter/internal/model"
	"eemeter/internal/stats"
)

// GrossSavingsConfig configures GrossSavings.
type GrossSavingsConfig struct {
	Model    Model
	FuelType model.FuelType
	// FuelUnit must match the unit the pre-retrofit parameters were fit in.
	FuelUnit model.FuelUnit
	TempUnit model.TempUnit
}

// GrossSavings compares the pre-retrofit model's counterfactual usage under
// post-retrofit temperatures with actual post-retrofit usage:
//
//	gross_savings = sum(counterfactual_i - actual_i)
//
// over periods where both are present.
type GrossSavings struct {
	cfg GrossSavingsConfig
}

func NewGrossSavings(cfg GrossSavingsConfig) (*GrossSavings, error) {
	if err := (FitConfig{Model: cfg.Model, TempUnit: cfg.TempUnit}).validate(); err != nil {
		return nil, err
	}
	return &GrossSavings{cfg: cfg}, nil
}

func (m *GrossSavings) Name() string { return "gross_savings" }

func (m *GrossSavings) Evaluate(in Inputs) (Result, error) {
	if err := in.Require(m.Name(), KeyParamsPre, KeyHistoryPost, KeyWeather); err != nil {
		return nil, err
	}
	ft, err := resolveFuelType(m.Name(), m.cfg.FuelType, in)
	if err != nil {
		return nil, err
	}
	periods := in.HistoryPost.Get(ft)

	temps, err := in.Weather.DailyTemperatures(model.Spans(periods), m.cfg.TempUnit)
	if err != nil {
		return nil, fmt.Errorf("%s: daily temperatures: %w", m.Name(), err)
	}
	counterfactual, err := m.cfg.Model.ComputeUsageEstimates(in.ParamsPre, temps)
	if err != nil {
		return nil, fmt.Errorf("%s: usage estimates: %w", m.Name(), err)
	}
	if len(counterfactual) != len(periods) {
		return nil, fmt.Errorf("%s: model returned %d estimates for %d periods", m.Name(), len(counterfactual), len(periods))
	}

	unit, err := resolveFuelUnit(m.Name(), m.cfg.FuelUnit, ft, in.History, in.HistoryPost)
	if err != nil {
		return nil, err
	}
	actual := make([]stats.Obs, len(periods))
	for i, p := range periods {
		actual[i] = p.To(unit)
	}
	return Result{"gross_savings": Number(stats.Sum(stats.Residuals(counterfactual, actual)))}, nil
}

// AnnualizedUsage evaluates a parameter set against a weather-normal year:
// one single-day estimate per normal day, summed.
type AnnualizedUsage struct {
	model    Model
	tempUnit model.TempUnit
}

func NewAnnualizedUsage(m Model, tempUnit model.TempUnit) (*AnnualizedUsage, error) {
	if err := (FitConfig{Model: m, TempUnit: tempUnit}).validate(); err != nil {
		return nil, err
	}
	return &AnnualizedUsage{model: m, tempUnit: tempUnit}, nil
}

func (m *AnnualizedUsage) Name() string { return "annualized_usage" }

func (m *AnnualizedUsage) Evaluate(in Inputs) (Result, error) {
	if err := in.Require(m.Name(), KeyParams, KeyWeatherNormal); err != nil {
		return nil, err
	}
	daily, err := in.WeatherNormal.AnnualDailyTemperatures(m.tempUnit)
	if err != nil {
		return nil, fmt.Errorf("%s: normal temperatures: %w", m.Name(), err)
	}
	if len(daily) != 365 {
		return nil, fmt.Errorf("%s: weather normal returned %d days, want 365", m.Name(), len(daily))
	}
	temps := make([][]stats.Obs, len(daily))
	for i, t := range daily {
		temps[i] = []stats.Obs{t}
	}
	estimates, err := m.model.ComputeUsageEstimates(in.Params, temps)
	if err != nil {
		return nil, fmt.Errorf("%s: usage estimates: %w", m.Name(), err)
	}
	return Result{"annualized_usage": Number(stats.Sum(estimates))}, nil
}

// AnnualizedGrossSavings projects the annualized savings rate (pre minus post
// annualized usage) over the years covered by the post-retrofit history.
// It delegates both annualized-usage figures to an AnnualizedUsage meter and
// re-exports them as annualized_usage_pre and annualized_usage_post.
type AnnualizedGrossSavings struct {
	annual   *AnnualizedUsage
	fuelType model.FuelType
}

func NewAnnualizedGrossSavings(m Model, fuelType model.FuelType, tempUnit model.TempUnit) (*AnnualizedGrossSavings, error) {
	annual, err := NewAnnualizedUsage(m, tempUnit)
	if err != nil {
		return nil, err
	}
	return &AnnualizedGrossSavings{annual: annual, fuelType: fuelType}, nil
}

func (m *AnnualizedGrossSavings) Name() string { return "annualized_gross_savings" }

func (m *AnnualizedGrossSavings) Evaluate(in Inputs) (Result, error) {
	if err := in.Require(m.Name(), KeyParamsPre, KeyParamsPost, KeyHistoryPost, KeyWeatherNormal); err != nil {
		return nil, err
	}
	ft, err := resolveFuelType(m.Name(), m.fuelType, in)
	if err != nil {
		return nil, err
	}

	pre, err := m.annualize(in.ParamsPre, in.WeatherNormal)
	if err != nil {
		return nil, err
	}
	post, err := m.annualize(in.ParamsPost, in.WeatherNormal)
	if err != nil {
		return nil, err
	}

	days := 0
	for _, p := range in.HistoryPost.Get(ft) {
		days += p.Days()
	}
	nYears := float64(days) / 365

	return Result{
		"annualized_gross_savings": Number(nYears * (pre - post)),
		"annualized_usage_pre":     Number(pre),
		"annualized_usage_post":    Number(post),
	}, nil
}

func (m *AnnualizedGrossSavings) annualize(params model.Params, normal WeatherNormalSource) (float64, error) {
	res, err := m.annual.Evaluate(Inputs{Params: params, WeatherNormal: normal})
	if err != nil {
		return 0, fmt.Errorf("%s: %w", m.Name(), err)
	}
	return res.Float("annualized_usage")
}
