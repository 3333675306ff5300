// Package pipeline assembles the savings evaluation described by a config
// file out of the meters in package meter.
package pipeline

import (
	"errors"
	"strconv"
	"time"

	"eemeter/internal/config"
	"eemeter/internal/meter"
	"eemeter/internal/model"
	"eemeter/internal/report"
	"eemeter/internal/stats"
	"eemeter/internal/tsmodel"
)

// Pipeline evaluates pre/post-retrofit savings for every configured fuel
// type present in a history.
type Pipeline struct {
	cfg           *config.Config
	model         meter.Model
	retrofitStart time.Time
	retrofitEnd   time.Time
	perFuel       meter.Meter
	presence      meter.Meter
	now           func() time.Time
}

// Outcome is the product of one evaluation.
type Outcome struct {
	Result meter.Result
	// Evaluated lists fuel types with pre and post data, in config order.
	Evaluated []model.FuelType
	// Skipped maps fuel types that could not be evaluated to the reason.
	Skipped map[model.FuelType]string
	// Pre and Post are the split histories.
	Pre, Post *model.ConsumptionHistory
}

// Option customizes Build.
type Option func(*Pipeline)

// WithNow fixes the clock the recent-reading check measures from.
func WithNow(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

// Build validates cfg and constructs the meter graph.
func Build(cfg *config.Config, opts ...Option) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	start, end, err := cfg.Retrofit.Window()
	if err != nil {
		return nil, err
	}
	m, err := BuildModel(cfg)
	if err != nil {
		return nil, err
	}
	p := &Pipeline{cfg: cfg, model: m, retrofitStart: start, retrofitEnd: end, now: time.Now}
	for _, opt := range opts {
		opt(p)
	}
	if p.perFuel, err = p.buildPerFuel(); err != nil {
		return nil, err
	}
	if p.presence, err = meter.NewFuelTypePresence(cfg.FuelTypes); err != nil {
		return nil, err
	}
	return p, nil
}

// BuildModel returns the temperature-sensitivity model named by cfg.Model.
func BuildModel(cfg *config.Config) (meter.Model, error) {
	kind, err := tsmodel.ParseKind(cfg.Model.Kind)
	if err != nil {
		return nil, err
	}
	unit := cfg.TemperatureUnit
	if kind == tsmodel.KindConstant {
		return tsmodel.Constant{}, nil
	}
	bp := tsmodel.Config{Step: cfg.Model.Step}
	if kind == tsmodel.KindHDD || kind == tsmodel.KindHDDCDD {
		bp.Heating = cfg.Model.Heating
		if bp.Heating == (tsmodel.Range{}) {
			bp.Heating = tsmodel.DefaultHeatingRange(unit)
		}
	}
	if kind == tsmodel.KindCDD || kind == tsmodel.KindHDDCDD {
		bp.Cooling = cfg.Model.Cooling
		if bp.Cooling == (tsmodel.Range{}) {
			bp.Cooling = tsmodel.DefaultCoolingRange(unit)
		}
	}
	if bp.Step == 0 {
		bp.Step = tsmodel.DefaultStep(unit)
	}
	return tsmodel.NewBalancePoint(bp)
}

// Config returns the configuration the pipeline was built from.
func (p *Pipeline) Config() *config.Config { return p.cfg }

// Retrofit returns the retrofit window.
func (p *Pipeline) Retrofit() (start, end time.Time) { return p.retrofitStart, p.retrofitEnd }

// buildPerFuel chains the per-fuel meters. Fuel type, unit and weather are
// supplied at evaluation time.
func (p *Pipeline) buildPerFuel() (meter.Meter, error) {
	unit := p.cfg.TemperatureUnit
	fitPre, err := meter.NewTemperatureSensitivityFit(meter.FitConfig{Model: p.model, TempUnit: unit})
	if err != nil {
		return nil, err
	}
	cvrmse, err := meter.NewCVRMSE(meter.FitConfig{Model: p.model, TempUnit: unit})
	if err != nil {
		return nil, err
	}
	gross, err := meter.NewGrossSavings(meter.GrossSavingsConfig{Model: p.model, TempUnit: unit})
	if err != nil {
		return nil, err
	}
	annual, err := meter.NewAnnualizedGrossSavings(p.model, "", unit)
	if err != nil {
		return nil, err
	}

	steps := []meter.Step{
		{Meter: fitPre, Bind: map[string]meter.Key{"temp_sensitivity_params": meter.KeyParamsPre}, Suffix: "_pre"},
		{Meter: fitPre, Adapt: meter.UsePostHistory, Bind: map[string]meter.Key{"temp_sensitivity_params": meter.KeyParamsPost}, Suffix: "_post"},
		{Meter: tolerateDegenerate(cvrmse, "cvrmse"), Suffix: "_pre"},
		{Meter: gross},
		{Meter: annual},
	}

	for _, kind := range []meter.DegreeDay{meter.Heating, meter.Cooling} {
		ddCfg := meter.DegreeDayConfig{Kind: kind, Base: p.base(kind), TempUnit: unit}
		total, err := meter.NewTotalDegreeDays(ddCfg)
		if err != nil {
			return nil, err
		}
		normal, err := meter.NewNormalAnnualDegreeDays(ddCfg)
		if err != nil {
			return nil, err
		}
		steps = append(steps,
			meter.Step{Meter: total, Suffix: "_pre"},
			meter.Step{Meter: total, Adapt: meter.UsePostHistory, Suffix: "_post"},
			meter.Step{Meter: normal},
		)
	}

	span := meter.NewTimeSpan("")
	recent, err := meter.NewRecentReading(p.cfg.RecentReadingDays, p.now(), "")
	if err != nil {
		return nil, err
	}
	steps = append(steps,
		meter.Step{Meter: span, Suffix: "_pre"},
		meter.Step{Meter: span, Adapt: meter.UsePostHistory, Suffix: "_post"},
		meter.Step{Meter: recent, Adapt: meter.UsePostHistory},
	)

	for _, th := range p.cfg.Thresholds {
		step, err := p.thresholdStep(th)
		if err != nil {
			return nil, err
		}
		steps = append(steps, step)
	}

	return meter.NewSequence("savings", steps...)
}

func (p *Pipeline) base(kind meter.DegreeDay) float64 {
	heating, cooling := p.cfg.DegreeDays.Bases(p.cfg.TemperatureUnit)
	if kind == meter.Heating {
		return heating
	}
	return cooling
}

func (p *Pipeline) thresholdStep(th config.ThresholdConfig) (meter.Step, error) {
	op, err := meter.ParseComparison(th.Operation)
	if err != nil {
		return meter.Step{}, err
	}
	kind := meter.DegreeDay(th.Kind)
	m, err := meter.NewNPeriodsMeetingThreshold(meter.ThresholdConfig{
		DegreeDayConfig: meter.DegreeDayConfig{Kind: kind, Base: p.base(kind), TempUnit: p.cfg.TemperatureUnit},
		Operation:       op,
		Proportion:      th.Scale(),
	})
	if err != nil {
		return meter.Step{}, err
	}
	value := th.Value
	suffix := "_" + th.Kind + "_per_day_" + op.String() + "_" + strconv.FormatFloat(value, 'g', -1, 64)
	return meter.Step{
		Meter: m,
		Adapt: func(in meter.Inputs) meter.Inputs {
			in.Threshold = stats.Present(value)
			return in
		},
		Suffix: suffix,
	}, nil
}

// Evaluate splits history at the retrofit window and evaluates each
// configured fuel type that has both pre and post periods. Fuel units from
// the config are applied before fitting.
func (p *Pipeline) Evaluate(history *model.ConsumptionHistory, ws meter.WeatherSource, normal meter.WeatherNormalSource) (*Outcome, error) {
	if history == nil {
		return nil, &meter.MissingInputError{Meter: "pipeline", Key: meter.KeyHistory}
	}
	converted, err := p.convert(history)
	if err != nil {
		return nil, err
	}
	pre, post := converted.SplitAt(p.retrofitStart, p.retrofitEnd)
	out := &Outcome{Result: meter.Result{}, Skipped: map[model.FuelType]string{}, Pre: pre, Post: post}

	presence, err := p.presence.Evaluate(meter.Inputs{History: converted})
	if err != nil {
		return nil, err
	}
	for k, v := range presence {
		out.Result[k] = v
	}

	for _, ft := range p.cfg.FuelTypes {
		switch {
		case len(converted.Get(ft)) == 0:
			out.Skipped[ft] = "no consumption data"
		case len(pre.Get(ft)) == 0:
			out.Skipped[ft] = "no periods before the retrofit"
		case len(post.Get(ft)) == 0:
			out.Skipped[ft] = "no periods after the retrofit"
		default:
			out.Evaluated = append(out.Evaluated, ft)
		}
	}
	if len(out.Evaluated) == 0 {
		return out, nil
	}

	fan, err := meter.NewForEachFuelType(out.Evaluated, p.perFuel)
	if err != nil {
		return nil, err
	}
	res, err := fan.Evaluate(meter.Inputs{
		History:       pre,
		HistoryPost:   post,
		Weather:       ws,
		WeatherNormal: normal,
	})
	if err != nil {
		return nil, err
	}
	for k, v := range res {
		out.Result[k] = v
	}
	return out, nil
}

// convert rewrites usages into the configured or default unit of each fuel
// type. Fuel types with neither are left as recorded.
func (p *Pipeline) convert(h *model.ConsumptionHistory) (*model.ConsumptionHistory, error) {
	periods := h.All()
	for i := range periods {
		unit := p.cfg.FuelUnit(periods[i].FuelType)
		if unit == "" || unit == periods[i].Unit {
			continue
		}
		periods[i].Usage = periods[i].To(unit)
		periods[i].Unit = unit
	}
	return model.NewConsumptionHistory(periods)
}

// degenerateTolerant reports a degenerate statistic as an undefined output
// instead of failing the whole evaluation.
type degenerateTolerant struct {
	inner meter.Meter
	key   string
}

func tolerateDegenerate(m meter.Meter, key string) meter.Meter {
	return &degenerateTolerant{inner: m, key: key}
}

func (d *degenerateTolerant) Name() string { return d.inner.Name() }

func (d *degenerateTolerant) Evaluate(in meter.Inputs) (meter.Result, error) {
	res, err := d.inner.Evaluate(in)
	if errors.Is(err, meter.ErrDegenerate) {
		return meter.Result{d.key: meter.Undefined(err.Error())}, nil
	}
	return res, err
}

// Ledger lists every pre and post period of each evaluated fuel type next
// to its counterfactual under the fitted pre-retrofit parameters.
func (p *Pipeline) Ledger(out *Outcome, ws meter.WeatherSource) ([]report.LedgerRow, error) {
	var rows []report.LedgerRow
	for _, ft := range out.Evaluated {
		params, err := out.Result.Params("temp_sensitivity_params_pre_" + string(ft))
		if err != nil {
			return nil, err
		}
		fuelRows, err := report.Ledger(p.model, params, ws, p.cfg.TemperatureUnit, ft, out.Pre, out.Post)
		if err != nil {
			return nil, err
		}
		for _, r := range fuelRows {
			r.Index = len(rows)
			rows = append(rows, r)
		}
	}
	return rows, nil
}

// Summary packages out for reporting and storage.
func (p *Pipeline) Summary(out *Outcome) report.Summary {
	return report.NewSummary(p.cfg.Name, out.Evaluated, out.Skipped, out.Result)
}
