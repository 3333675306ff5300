package weather

import (
	"fmt"
	"time"

	"eemeter/internal/model"
	"eemeter/internal/stats"
)

// Normal is a 365-day long-run temperature profile. Any date maps onto it by
// month and day; Feb 29 reads Feb 28.
type Normal struct {
	source
	days [365]stats.Obs
}

// NewNormal builds a normal from 365 daily values, Jan 1 first.
func NewNormal(unit model.TempUnit, daily []stats.Obs) (*Normal, error) {
	if unit != model.DegF && unit != model.DegC {
		return nil, fmt.Errorf("unsupported temperature unit %q", unit)
	}
	if len(daily) != 365 {
		return nil, fmt.Errorf("weather normal needs 365 days, got %d", len(daily))
	}
	n := &Normal{}
	copy(n.days[:], daily)
	n.source = source{native: unit, lookup: n.at}
	return n, nil
}

// NormalFromSeries averages a multi-year series by calendar day. Days the
// series never covers are missing in the normal.
func NormalFromSeries(s *Series) (*Normal, error) {
	var sums [365]float64
	var counts [365]int
	for _, p := range s.Points() {
		v, ok := p.Temp.Get()
		if !ok {
			continue
		}
		i := dayOfYear(p.Date)
		sums[i] += v
		counts[i]++
	}
	daily := make([]stats.Obs, 365)
	for i := range daily {
		if counts[i] > 0 {
			daily[i] = stats.Present(sums[i] / float64(counts[i]))
		}
	}
	return NewNormal(s.Unit(), daily)
}

// dayOfYear indexes a date into a non-leap year, folding Feb 29 into Feb 28.
func dayOfYear(t time.Time) int {
	t = model.CalendarDate(t)
	month, day := t.Month(), t.Day()
	if month == time.February && day == 29 {
		day = 28
	}
	ref := time.Date(model.ReferenceYear, month, day, 0, 0, 0, 0, time.UTC)
	return ref.YearDay() - 1
}

func (n *Normal) at(day time.Time) stats.Obs { return n.days[dayOfYear(day)] }

// Unit returns the unit the profile is stored in.
func (n *Normal) Unit() model.TempUnit { return n.native }

// AnnualDailyTemperatures returns the 365-day profile in unit.
func (n *Normal) AnnualDailyTemperatures(unit model.TempUnit) ([]stats.Obs, error) {
	out := make([]stats.Obs, 365)
	for i, o := range n.days {
		out[i] = o.Map(func(v float64) float64 { return model.ConvertTemp(v, n.native, unit) })
	}
	return out, nil
}

// Coverage returns how many of the 365 days have a value.
func (n *Normal) Coverage() int { return stats.CountPresent(n.days[:]) }
