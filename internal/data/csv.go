package data

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"eemeter/internal/model"
	"eemeter/internal/stats"
)

var requiredHistoryColumns = []string{"start", "end", "fuel_type", "usage"}

func LoadHistoryCSV(path string) (*model.ConsumptionHistory, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadHistoryCSV(f)
}

// ReadHistoryCSV reads start,end,fuel_type,usage[,unit] rows. A blank usage
// is a missing reading; any other non-numeric usage is an error.
func ReadHistoryCSV(r io.Reader) (*model.ConsumptionHistory, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	headers, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	cols := make(map[string]int)
	for i, h := range headers {
		cols[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, req := range requiredHistoryColumns {
		if _, ok := cols[req]; !ok {
			return nil, fmt.Errorf("missing required csv header: %s", req)
		}
	}

	var records []PeriodRecord
	line := 1
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		get := func(col string) string {
			if idx, ok := cols[col]; ok && idx < len(row) {
				return strings.TrimSpace(row[idx])
			}
			return ""
		}
		usage, err := parseUsage(get("usage"))
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		records = append(records, PeriodRecord{
			Start:    get("start"),
			End:      get("end"),
			FuelType: get("fuel_type"),
			Usage:    usage,
			Unit:     get("unit"),
		})
	}
	return HistoryFromRecords(records)
}

// parseUsage reads a usage cell. Blank and NaN cells are missing readings;
// anything else must parse as a number.
func parseUsage(raw string) (stats.Obs, error) {
	if raw == "" {
		return stats.Missing(), nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return stats.Obs{}, fmt.Errorf("usage %q is not a number", raw)
	}
	if math.IsNaN(v) {
		return stats.Missing(), nil
	}
	return stats.Present(v), nil
}

// LoadHistory picks the reader by file extension.
func LoadHistory(path string) (*model.ConsumptionHistory, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return LoadHistoryCSV(path)
	case ".json":
		return LoadHistoryJSON(path)
	default:
		return nil, fmt.Errorf("unsupported history file %q (want .csv or .json)", path)
	}
}
