package meter

import (
	"fmt"
	"math"

	"eemeter/internal/model"
	"eemeter/internal/stats"
)

// FitConfig configures the meters that fit a temperature-sensitivity model
// to one fuel type's history.
type FitConfig struct {
	Model Model
	// FuelType, when empty, is taken from the fuel_type input.
	FuelType model.FuelType
	// FuelUnit is the unit usages are converted to. Empty keeps the
	// recorded unit, which must then be the same for every period.
	FuelUnit model.FuelUnit
	TempUnit model.TempUnit
}

func (c FitConfig) validate() error {
	if c.Model == nil {
		return &ConfigError{Field: "model", Reason: "model is required"}
	}
	if c.TempUnit != model.DegF && c.TempUnit != model.DegC {
		return &ConfigError{Field: "temperature_unit", Reason: fmt.Sprintf("unsupported unit %q", c.TempUnit)}
	}
	return nil
}

// fit is the outcome of a weighted fit over a history.
type fit struct {
	params    model.Params
	observed  []stats.Obs // average daily usage per period
	estimated []stats.Obs // estimated daily usage per period
	nPeriods  int
}

func (c FitConfig) fitHistory(meter string, in Inputs) (*fit, error) {
	if err := in.Require(meter, KeyHistory, KeyWeather); err != nil {
		return nil, err
	}
	ft, err := resolveFuelType(meter, c.FuelType, in)
	if err != nil {
		return nil, err
	}
	periods := in.History.Get(ft)
	if len(periods) == 0 {
		return nil, fmt.Errorf("%s: %w for %s", meter, ErrNoData, ft)
	}

	unit, err := resolveFuelUnit(meter, c.FuelUnit, ft, in.History)
	if err != nil {
		return nil, err
	}

	observed := make([]stats.Obs, len(periods))
	weights := make([]float64, len(periods))
	for i, p := range periods {
		observed[i] = p.AverageDailyUsage(unit)
		weights[i] = float64(p.Days())
	}

	temps, err := in.Weather.DailyTemperatures(model.Spans(periods), c.TempUnit)
	if err != nil {
		return nil, fmt.Errorf("%s: daily temperatures: %w", meter, err)
	}
	if len(temps) != len(periods) {
		return nil, fmt.Errorf("%s: weather returned %d series for %d periods", meter, len(temps), len(periods))
	}

	params, err := c.Model.ParameterOptimization(observed, temps, weights)
	if err != nil {
		return nil, fmt.Errorf("%s: parameter optimization: %w", meter, err)
	}
	totals, err := c.Model.ComputeUsageEstimates(params, temps)
	if err != nil {
		return nil, fmt.Errorf("%s: usage estimates: %w", meter, err)
	}
	if len(totals) != len(periods) {
		return nil, fmt.Errorf("%s: model returned %d estimates for %d periods", meter, len(totals), len(periods))
	}

	// The model estimates cumulative usage over each period; dividing by the
	// number of temperature observations yields a daily figure comparable to
	// the observed average.
	estimated := make([]stats.Obs, len(totals))
	for i, est := range totals {
		n := len(temps[i])
		if n == 0 {
			estimated[i] = stats.Missing()
			continue
		}
		estimated[i] = est.Map(func(v float64) float64 { return v / float64(n) })
	}

	return &fit{
		params:    params,
		observed:  observed,
		estimated: estimated,
		nPeriods:  len(periods),
	}, nil
}

// TemperatureSensitivityFit optimizes model parameters against a history and
// reports fit quality.
//
// Outputs: temp_sensitivity_params, daily_standard_error, R_squared.
type TemperatureSensitivityFit struct {
	cfg FitConfig
}

func NewTemperatureSensitivityFit(cfg FitConfig) (*TemperatureSensitivityFit, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &TemperatureSensitivityFit{cfg: cfg}, nil
}

func (m *TemperatureSensitivityFit) Name() string { return "temperature_sensitivity_fit" }

func (m *TemperatureSensitivityFit) Evaluate(in Inputs) (Result, error) {
	f, err := m.cfg.fitHistory(m.Name(), in)
	if err != nil {
		return nil, err
	}
	residuals := stats.Residuals(f.estimated, f.observed)

	// Missing periods drop out of the error sums but still count in sqrt(n).
	dse := stats.SumAbs(residuals) / math.Sqrt(float64(f.nPeriods))

	return Result{
		"temp_sensitivity_params": ParamsValue(f.params),
		"daily_standard_error":    Number(dse),
		"R_squared":               rSquared(f.observed, residuals),
	}, nil
}

// rSquared is 1 - SS_res/SS_tot. It is undefined when the observed series has
// no present values or no variance.
func rSquared(observed, residuals []stats.Obs) Value {
	mean, ok := stats.Mean(observed)
	if !ok {
		return Undefined("no observed usage")
	}
	ssTot := stats.SumSquares(stats.Deviations(observed, mean))
	if ssTot == 0 {
		return Undefined("observed usage has zero variance")
	}
	return Number(1 - stats.SumSquares(residuals)/ssTot)
}

// CVRMSE fits the model and reports the coefficient of variation of the
// root-mean-square error, in percent:
//
//	100 * sqrt(SS_res / (n - p)) / mean(observed)
//
// It fails with a *DegenerateError when n <= p or the observed mean is zero.
type CVRMSE struct {
	cfg FitConfig
}

func NewCVRMSE(cfg FitConfig) (*CVRMSE, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &CVRMSE{cfg: cfg}, nil
}

func (m *CVRMSE) Name() string { return "cvrmse" }

func (m *CVRMSE) Evaluate(in Inputs) (Result, error) {
	f, err := m.cfg.fitHistory(m.Name(), in)
	if err != nil {
		return nil, err
	}
	n, p := f.nPeriods, f.params.Len()
	if n <= p {
		return nil, &DegenerateError{
			Statistic: "cvrmse",
			Reason:    fmt.Sprintf("%d periods leave no degrees of freedom for %d parameters", n, p),
		}
	}
	mean, ok := stats.Mean(f.observed)
	if !ok {
		return nil, &DegenerateError{Statistic: "cvrmse", Reason: "no observed usage"}
	}
	if mean == 0 {
		return nil, &DegenerateError{Statistic: "cvrmse", Reason: "observed mean usage is zero"}
	}
	ssRes := stats.SumSquares(stats.Residuals(f.estimated, f.observed))
	cvrmse := 100 * math.Sqrt(ssRes/float64(n-p)) / mean
	return Result{"cvrmse": Number(cvrmse)}, nil
}
