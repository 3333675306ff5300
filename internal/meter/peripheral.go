package meter

import (
	"time"

	"eemeter/internal/model"
)

// FuelTypePresence reports, per fuel type, whether the history has any
// periods. Output keys are "<fuel_type>_presence".
type FuelTypePresence struct {
	fuelTypes []model.FuelType
}

func NewFuelTypePresence(fuelTypes []model.FuelType) (*FuelTypePresence, error) {
	if len(fuelTypes) == 0 {
		return nil, &ConfigError{Field: "fuel_types", Reason: "at least one fuel type is required"}
	}
	fts := make([]model.FuelType, len(fuelTypes))
	copy(fts, fuelTypes)
	return &FuelTypePresence{fuelTypes: fts}, nil
}

func (m *FuelTypePresence) Name() string { return "fuel_type_presence" }

func (m *FuelTypePresence) Evaluate(in Inputs) (Result, error) {
	if err := in.Require(m.Name(), KeyHistory); err != nil {
		return nil, err
	}
	out := Result{}
	for _, ft := range m.fuelTypes {
		out[string(ft)+"_presence"] = Bool(len(in.History.Get(ft)) > 0)
	}
	return out, nil
}

// TimeSpan counts the distinct calendar days covered by one fuel type's
// periods. Overlapping periods count shared days once. Output: time_span.
type TimeSpan struct {
	fuelType model.FuelType
}

// NewTimeSpan builds a TimeSpan. An empty fuel type reads the fuel_type input.
func NewTimeSpan(fuelType model.FuelType) *TimeSpan {
	return &TimeSpan{fuelType: fuelType}
}

func (m *TimeSpan) Name() string { return "time_span" }

func (m *TimeSpan) Evaluate(in Inputs) (Result, error) {
	if err := in.Require(m.Name(), KeyHistory); err != nil {
		return nil, err
	}
	ft, err := resolveFuelType(m.Name(), m.fuelType, in)
	if err != nil {
		return nil, err
	}
	days := map[string]struct{}{}
	for _, p := range in.History.Get(ft) {
		for _, d := range p.Dates() {
			days[d.Format("2006-01-02")] = struct{}{}
		}
	}
	return Result{"time_span": Number(float64(len(days)))}, nil
}

// RecentReading reports whether any period ends after a cutoff of NDays
// before Since. Output: recent_reading.
type RecentReading struct {
	cutoff   time.Time
	fuelType model.FuelType
}

// NewRecentReading fixes the cutoff at construction. A zero since means now.
func NewRecentReading(nDays int, since time.Time, fuelType model.FuelType) (*RecentReading, error) {
	if nDays < 0 {
		return nil, &ConfigError{Field: "n_days", Reason: "must be >= 0"}
	}
	if since.IsZero() {
		since = time.Now()
	}
	return &RecentReading{cutoff: since.AddDate(0, 0, -nDays), fuelType: fuelType}, nil
}

func (m *RecentReading) Name() string { return "recent_reading" }

// Cutoff returns the instant a period must end after to count as recent.
func (m *RecentReading) Cutoff() time.Time { return m.cutoff }

func (m *RecentReading) Evaluate(in Inputs) (Result, error) {
	if err := in.Require(m.Name(), KeyHistory); err != nil {
		return nil, err
	}
	ft, err := resolveFuelType(m.Name(), m.fuelType, in)
	if err != nil {
		return nil, err
	}
	recent := false
	for _, p := range in.History.Get(ft) {
		if p.End.After(m.cutoff) {
			recent = true
			break
		}
	}
	return Result{"recent_reading": Bool(recent)}, nil
}
