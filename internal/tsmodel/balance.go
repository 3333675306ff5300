package tsmodel

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"

	"eemeter/internal/model"
	"eemeter/internal/stats"
)

// Range bounds a balance-point temperature search. The zero Range disables
// the corresponding term.
type Range struct {
	Min float64 `yaml:"min" json:"min"`
	Max float64 `yaml:"max" json:"max"`
}

func (r Range) enabled() bool { return r != Range{} }

func (r Range) clamp(v float64) float64 { return math.Max(r.Min, math.Min(r.Max, v)) }

// DefaultHeatingRange is 55-70 degF expressed in unit.
func DefaultHeatingRange(unit model.TempUnit) Range {
	return Range{Min: model.ConvertTemp(55, model.DegF, unit), Max: model.ConvertTemp(70, model.DegF, unit)}
}

// DefaultCoolingRange is 60-80 degF expressed in unit.
func DefaultCoolingRange(unit model.TempUnit) Range {
	return Range{Min: model.ConvertTemp(60, model.DegF, unit), Max: model.ConvertTemp(80, model.DegF, unit)}
}

// DefaultStep is the balance-point grid spacing used for unit.
func DefaultStep(unit model.TempUnit) float64 {
	if unit == model.DegC {
		return 0.5
	}
	return 1
}

// Config selects the terms of a balance-point model.
type Config struct {
	Heating Range
	Cooling Range
	// Step is the grid spacing of the balance-point search. Zero means 1.
	Step float64
	// MaxIterations caps the Nelder-Mead refinement. Zero means 1000.
	MaxIterations int
}

// BalancePoint models daily usage as
//
//	base + hs*max(th - T, 0) + cs*max(T - tc, 0)
//
// with either degree-day term optional. Parameters are laid out as
// [base, hs, th, cs, tc], omitting disabled terms. Slopes are non-negative
// and balance points stay within their configured ranges.
//
// Fitting grid-searches the balance points, solving the remaining linear
// parameters by weighted least squares at each grid point, then refines
// the best candidate with Nelder-Mead.
type BalancePoint struct {
	cfg Config
}

func NewBalancePoint(cfg Config) (*BalancePoint, error) {
	if !cfg.Heating.enabled() && !cfg.Cooling.enabled() {
		return nil, fmt.Errorf("balance-point model needs a heating or cooling range")
	}
	if r := cfg.Heating; r.enabled() && r.Min > r.Max {
		return nil, fmt.Errorf("heating range min %v exceeds max %v", r.Min, r.Max)
	}
	if r := cfg.Cooling; r.enabled() && r.Min > r.Max {
		return nil, fmt.Errorf("cooling range min %v exceeds max %v", r.Min, r.Max)
	}
	if cfg.Step < 0 {
		return nil, fmt.Errorf("step must be positive, got %v", cfg.Step)
	}
	if cfg.Step == 0 {
		cfg.Step = 1
	}
	if cfg.MaxIterations == 0 {
		cfg.MaxIterations = 1000
	}
	return &BalancePoint{cfg: cfg}, nil
}

func (m *BalancePoint) nParams() int {
	n := 1
	if m.cfg.Heating.enabled() {
		n += 2
	}
	if m.cfg.Cooling.enabled() {
		n += 2
	}
	return n
}

// terms unpacks a parameter vector.
type terms struct {
	base             float64
	hs, th, cs, tc   float64
	heating, cooling bool
}

func (m *BalancePoint) unpack(p []float64) terms {
	t := terms{base: p[0], heating: m.cfg.Heating.enabled(), cooling: m.cfg.Cooling.enabled()}
	i := 1
	if t.heating {
		t.hs, t.th = p[i], p[i+1]
		i += 2
	}
	if t.cooling {
		t.cs, t.tc = p[i], p[i+1]
	}
	return t
}

func (t terms) daily(temp float64) float64 {
	u := t.base
	if t.heating {
		u += t.hs * math.Max(t.th-temp, 0)
	}
	if t.cooling {
		u += t.cs * math.Max(temp-t.tc, 0)
	}
	return u
}

// meanDaily averages the daily estimate over present temperatures.
func (t terms) meanDaily(series []stats.Obs) stats.Obs {
	total, n := 0.0, 0
	for _, o := range series {
		if v, ok := o.Get(); ok {
			total += t.daily(v)
			n++
		}
	}
	if n == 0 {
		return stats.Missing()
	}
	return stats.Present(total / float64(n))
}

// clampParams projects p into the feasible region in place.
func (m *BalancePoint) clampParams(p []float64) {
	i := 1
	if m.cfg.Heating.enabled() {
		p[i] = math.Max(p[i], 0)
		p[i+1] = m.cfg.Heating.clamp(p[i+1])
		i += 2
	}
	if m.cfg.Cooling.enabled() {
		p[i] = math.Max(p[i], 0)
		p[i+1] = m.cfg.Cooling.clamp(p[i+1])
	}
	if m.cfg.Heating.enabled() && m.cfg.Cooling.enabled() && p[2] > p[4] {
		p[2] = p[4]
	}
}

func (m *BalancePoint) ComputeUsageEstimates(params model.Params, temps [][]stats.Obs) ([]stats.Obs, error) {
	if params.Len() != m.nParams() {
		return nil, fmt.Errorf("balance-point model takes %d parameters, got %d", m.nParams(), params.Len())
	}
	t := m.unpack(params)
	out := make([]stats.Obs, len(temps))
	for i, series := range temps {
		n := float64(len(series))
		out[i] = t.meanDaily(series).Map(func(v float64) float64 { return v * n })
	}
	return out, nil
}

// sample is one fitting row: a period's average daily usage, its weight and
// its present daily temperatures.
type sample struct {
	usage  float64
	weight float64
	temps  []float64
}

func (m *BalancePoint) ParameterOptimization(usages []stats.Obs, temps [][]stats.Obs, weights []float64) (model.Params, error) {
	if err := checkLengths(usages, temps, weights); err != nil {
		return nil, err
	}
	var rows []sample
	for i, u := range usages {
		v, ok := u.Get()
		if !ok || weights[i] <= 0 {
			continue
		}
		ts := stats.Values(temps[i])
		if len(ts) == 0 {
			continue
		}
		rows = append(rows, sample{usage: v, weight: weights[i], temps: ts})
	}
	if len(rows) == 0 {
		return nil, ErrNoUsage
	}

	best, bestCost := m.gridSearch(rows)
	if best == nil {
		return nil, fmt.Errorf("no feasible balance points: heating range %v lies above cooling range %v", m.cfg.Heating, m.cfg.Cooling)
	}
	refined := m.refine(rows, best)
	if c := m.cost(rows, refined); c < bestCost {
		best = refined
	}
	return model.Params(best), nil
}

// cost is the weighted sum of squared daily residuals.
func (m *BalancePoint) cost(rows []sample, p []float64) float64 {
	t := m.unpack(p)
	total := 0.0
	for _, r := range rows {
		est := 0.0
		for _, temp := range r.temps {
			est += t.daily(temp)
		}
		d := est/float64(len(r.temps)) - r.usage
		total += r.weight * d * d
	}
	return total
}

func grid(r Range, step float64) []float64 {
	if !r.enabled() {
		return []float64{0}
	}
	var out []float64
	for v := r.Min; v <= r.Max+1e-9; v += step {
		out = append(out, v)
	}
	return out
}

func (m *BalancePoint) gridSearch(rows []sample) ([]float64, float64) {
	var best []float64
	bestCost := math.Inf(1)
	for _, th := range grid(m.cfg.Heating, m.cfg.Step) {
		for _, tc := range grid(m.cfg.Cooling, m.cfg.Step) {
			if m.cfg.Heating.enabled() && m.cfg.Cooling.enabled() && th > tc {
				continue
			}
			p := m.linearFit(rows, th, tc)
			if c := m.cost(rows, p); c < bestCost {
				best, bestCost = p, c
			}
		}
	}
	return best, bestCost
}

// linearFit solves base and slopes by weighted least squares at fixed
// balance points. Negative slopes are dropped and the fit repeated without
// that term.
func (m *BalancePoint) linearFit(rows []sample, th, tc float64) []float64 {
	useH, useC := m.cfg.Heating.enabled(), m.cfg.Cooling.enabled()
	for {
		coef := solveWLS(rows, th, tc, useH, useC)
		hs, cs := 0.0, 0.0
		i := 1
		if useH {
			hs = coef[i]
			i++
		}
		if useC {
			cs = coef[i]
		}
		switch {
		case useH && hs < 0:
			useH = false
			continue
		case useC && cs < 0:
			useC = false
			continue
		}
		p := []float64{coef[0]}
		if m.cfg.Heating.enabled() {
			p = append(p, hs, th)
		}
		if m.cfg.Cooling.enabled() {
			p = append(p, cs, tc)
		}
		return p
	}
}

// solveWLS regresses daily usage on average daily HDD and CDD. It falls back
// to the weighted mean when the system is singular.
func solveWLS(rows []sample, th, tc float64, useH, useC bool) []float64 {
	k := 1
	if useH {
		k++
	}
	if useC {
		k++
	}
	usage := make([]float64, len(rows))
	weights := make([]float64, len(rows))
	x := mat.NewDense(len(rows), k, nil)
	y := mat.NewVecDense(len(rows), nil)
	for i, r := range rows {
		sw := math.Sqrt(r.weight)
		usage[i], weights[i] = r.usage, r.weight
		x.Set(i, 0, sw)
		j := 1
		if useH {
			x.Set(i, j, sw*meanDegreeDays(r.temps, func(t float64) float64 { return th - t }))
			j++
		}
		if useC {
			x.Set(i, j, sw*meanDegreeDays(r.temps, func(t float64) float64 { return t - tc }))
		}
		y.SetVec(i, sw*r.usage)
	}

	fallback := func() []float64 {
		out := make([]float64, k)
		out[0] = floats.Dot(usage, weights) / floats.Sum(weights)
		return out
	}
	if len(rows) < k {
		return fallback()
	}
	var beta mat.VecDense
	if err := beta.SolveVec(x, y); err != nil {
		return fallback()
	}
	out := make([]float64, k)
	for i := range out {
		out[i] = beta.AtVec(i)
		if math.IsNaN(out[i]) || math.IsInf(out[i], 0) {
			return fallback()
		}
	}
	return out
}

func meanDegreeDays(temps []float64, excess func(float64) float64) float64 {
	total := 0.0
	for _, t := range temps {
		total += math.Max(excess(t), 0)
	}
	return total / float64(len(temps))
}

// refine polishes a grid solution with Nelder-Mead over the projected
// parameter space.
func (m *BalancePoint) refine(rows []sample, start []float64) []float64 {
	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			p := append([]float64(nil), x...)
			m.clampParams(p)
			return m.cost(rows, p)
		},
	}
	settings := &optimize.Settings{
		MajorIterations: m.cfg.MaxIterations,
		Converger: &optimize.FunctionConverge{
			Absolute:   1e-10,
			Iterations: 50,
		},
	}
	result, err := optimize.Minimize(problem, start, settings, &optimize.NelderMead{})
	if result == nil || (err != nil && len(result.X) == 0) {
		return start
	}
	p := append([]float64(nil), result.X...)
	m.clampParams(p)
	return p
}
