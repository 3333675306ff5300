package weather

import (
	"fmt"
	"sort"
	"time"

	"eemeter/internal/model"
	"eemeter/internal/stats"
)

// Point is one day's mean temperature.
type Point struct {
	Date time.Time `json:"date"`
	Temp stats.Obs `json:"temp"`
}

// Series holds observed daily mean temperatures in one unit. It is safe for
// concurrent reads once built.
type Series struct {
	source
	temps map[string]float64
}

// NewSeries builds a series from points. Missing points are skipped; a later
// point for the same day replaces an earlier one.
func NewSeries(unit model.TempUnit, points []Point) (*Series, error) {
	if unit != model.DegF && unit != model.DegC {
		return nil, fmt.Errorf("unsupported temperature unit %q", unit)
	}
	s := &Series{temps: make(map[string]float64, len(points))}
	s.source = source{native: unit, lookup: s.at}
	for _, p := range points {
		if v, ok := p.Temp.Get(); ok {
			s.temps[dateKey(p.Date)] = v
		}
	}
	return s, nil
}

func (s *Series) at(day time.Time) stats.Obs {
	v, ok := s.temps[dateKey(day)]
	if !ok {
		return stats.Missing()
	}
	return stats.Present(v)
}

// Unit returns the unit temperatures are stored in.
func (s *Series) Unit() model.TempUnit { return s.native }

// Len returns the number of days with data.
func (s *Series) Len() int { return len(s.temps) }

// Points returns the stored days in date order.
func (s *Series) Points() []Point {
	keys := make([]string, 0, len(s.temps))
	for k := range s.temps {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]Point, len(keys))
	for i, k := range keys {
		d, _ := time.Parse(dateLayout, k)
		out[i] = Point{Date: d, Temp: stats.Present(s.temps[k])}
	}
	return out
}

// Range returns the first and last dates with data.
func (s *Series) Range() (first, last time.Time, ok bool) {
	pts := s.Points()
	if len(pts) == 0 {
		return time.Time{}, time.Time{}, false
	}
	return pts[0].Date, pts[len(pts)-1].Date, true
}

// Merge returns a new series holding the days of s and other, with other
// winning on overlap. other is converted to s's unit.
func (s *Series) Merge(other *Series) *Series {
	out := &Series{temps: make(map[string]float64, len(s.temps)+len(other.temps))}
	out.source = source{native: s.native, lookup: out.at}
	for k, v := range s.temps {
		out.temps[k] = v
	}
	for k, v := range other.temps {
		out.temps[k] = model.ConvertTemp(v, other.native, s.native)
	}
	return out
}
