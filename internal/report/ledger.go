// Package report renders evaluation outcomes as CSV and JSON artifacts.
package report

import (
	"fmt"
	"time"

	"eemeter/internal/meter"
	"eemeter/internal/model"
	"eemeter/internal/stats"
)

// Phase places a period relative to the retrofit.
type Phase string

const (
	PhasePre  Phase = "pre"
	PhasePost Phase = "post"
)

// LedgerRow is one period of a savings ledger: what was used, and what the
// pre-retrofit model says would have been used under the same weather.
type LedgerRow struct {
	Index int

	Phase    Phase
	Start    time.Time
	End      time.Time
	Days     int
	FuelType model.FuelType
	Unit     model.FuelUnit

	Usage          stats.Obs
	Counterfactual stats.Obs
	// Savings is Counterfactual - Usage; missing when either is.
	Savings    stats.Obs
	CumSavings float64
}

// Ledger estimates every pre and post period of ft with the pre-retrofit
// params. CumSavings accumulates over post periods only.
func Ledger(m meter.Model, params model.Params, ws meter.WeatherSource, unit model.TempUnit, ft model.FuelType, pre, post *model.ConsumptionHistory) ([]LedgerRow, error) {
	var rows []LedgerRow
	cum := 0.0
	for _, part := range []struct {
		phase Phase
		h     *model.ConsumptionHistory
	}{{PhasePre, pre}, {PhasePost, post}} {
		periods := part.h.Get(ft)
		if len(periods) == 0 {
			continue
		}
		temps, err := ws.DailyTemperatures(model.Spans(periods), unit)
		if err != nil {
			return nil, fmt.Errorf("%s %s temperatures: %w", part.phase, ft, err)
		}
		est, err := m.ComputeUsageEstimates(params, temps)
		if err != nil {
			return nil, fmt.Errorf("%s %s estimates: %w", part.phase, ft, err)
		}
		if len(est) != len(periods) {
			return nil, fmt.Errorf("%s %s: model returned %d estimates for %d periods", part.phase, ft, len(est), len(periods))
		}
		for i, p := range periods {
			savings := est[i].Sub(p.Usage)
			if v, ok := savings.Get(); ok && part.phase == PhasePost {
				cum += v
			}
			rows = append(rows, LedgerRow{
				Index:          len(rows),
				Phase:          part.phase,
				Start:          p.Start,
				End:            p.End,
				Days:           p.Days(),
				FuelType:       ft,
				Unit:           p.Unit,
				Usage:          p.Usage,
				Counterfactual: est[i],
				Savings:        savings,
				CumSavings:     cum,
			})
		}
	}
	return rows, nil
}
