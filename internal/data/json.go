package data

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"eemeter/internal/model"
	"eemeter/internal/stats"
)

// PeriodRecord is the wire shape of one consumption period. Usage is null
// for an unusable reading.
type PeriodRecord struct {
	Start    string    `json:"start" binding:"required"`
	End      string    `json:"end" binding:"required"`
	FuelType string    `json:"fuel_type" binding:"required"`
	Usage    stats.Obs `json:"usage"`
	Unit     string    `json:"unit"`
}

// HistoryFile is the on-disk JSON shape of a consumption history.
type HistoryFile struct {
	Periods []PeriodRecord `json:"periods"`
}

func LoadHistoryJSON(path string) (*model.ConsumptionHistory, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadHistoryJSON(f)
}

// ReadHistoryJSON accepts either {"periods": [...]} or a bare array.
func ReadHistoryJSON(r io.Reader) (*model.ConsumptionHistory, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	var records []PeriodRecord
	if err := json.Unmarshal(raw, &records); err != nil {
		var file HistoryFile
		if err2 := json.Unmarshal(raw, &file); err2 != nil {
			return nil, fmt.Errorf("decode history: %w", err2)
		}
		records = file.Periods
	}
	return HistoryFromRecords(records)
}

// HistoryFromRecords validates records and builds a history ordered by start
// time within each fuel type.
func HistoryFromRecords(records []PeriodRecord) (*model.ConsumptionHistory, error) {
	periods := make([]model.ConsumptionPeriod, 0, len(records))
	for i, rec := range records {
		p, err := rec.Period()
		if err != nil {
			return nil, fmt.Errorf("period %d: %w", i, err)
		}
		periods = append(periods, p)
	}
	h, err := model.NewConsumptionHistory(periods)
	if err != nil {
		return nil, err
	}
	return h.SortByStart(), nil
}

// Period converts the record. An empty unit means kWh.
func (rec PeriodRecord) Period() (model.ConsumptionPeriod, error) {
	start, err := ParseTime(rec.Start)
	if err != nil {
		return model.ConsumptionPeriod{}, fmt.Errorf("start: %w", err)
	}
	end, err := ParseTime(rec.End)
	if err != nil {
		return model.ConsumptionPeriod{}, fmt.Errorf("end: %w", err)
	}
	unit, err := model.ParseFuelUnit(rec.Unit)
	if err != nil {
		return model.ConsumptionPeriod{}, err
	}
	if unit == "" {
		unit = model.UnitKWh
	}
	return model.NewConsumptionPeriod(start, end, model.FuelType(rec.FuelType), rec.Usage, unit)
}

// RecordsFromHistory is the inverse of HistoryFromRecords.
func RecordsFromHistory(h *model.ConsumptionHistory) []PeriodRecord {
	all := h.All()
	out := make([]PeriodRecord, len(all))
	for i, p := range all {
		out[i] = PeriodRecord{
			Start:    p.Start.Format(time.RFC3339),
			End:      p.End.Format(time.RFC3339),
			FuelType: string(p.FuelType),
			Usage:    p.Usage,
			Unit:     string(p.Unit),
		}
	}
	return out
}

// ParseTime accepts RFC3339 timestamps and bare YYYY-MM-DD dates (UTC).
func ParseTime(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("invalid time %q (want RFC3339 or YYYY-MM-DD)", s)
}
