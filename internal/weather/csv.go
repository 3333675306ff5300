package weather

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"eemeter/internal/model"
	"eemeter/internal/stats"
)

// LoadSeriesCSV reads a daily temperature file with a "date" column
// (YYYY-MM-DD or RFC3339) and a "temp" or "temperature" column. Blank and
// non-numeric temperatures are treated as missing days.
func LoadSeriesCSV(path string, unit model.TempUnit) (*Series, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadSeriesCSV(f, unit)
}

func ReadSeriesCSV(r io.Reader, unit model.TempUnit) (*Series, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	headers, err := reader.Read()
	if err != nil {
		if err == io.EOF {
			return NewSeries(unit, nil)
		}
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	cols := make(map[string]int)
	for i, h := range headers {
		cols[strings.ToLower(strings.TrimSpace(h))] = i
	}
	dateCol, ok := cols["date"]
	if !ok {
		return nil, fmt.Errorf("missing required csv header: date")
	}
	tempCol, ok := cols["temp"]
	if !ok {
		if tempCol, ok = cols["temperature"]; !ok {
			return nil, fmt.Errorf("missing required csv header: temp")
		}
	}

	var points []Point
	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if dateCol >= len(record) {
			return nil, fmt.Errorf("line %d: missing date", line)
		}
		d, err := parseDate(record[dateCol])
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		temp := stats.Missing()
		if tempCol < len(record) {
			if v, err := strconv.ParseFloat(strings.TrimSpace(record[tempCol]), 64); err == nil {
				temp = stats.Present(v)
			}
		}
		points = append(points, Point{Date: d, Temp: temp})
	}
	return NewSeries(unit, points)
}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(dateLayout, s); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	return time.Time{}, fmt.Errorf("invalid date %q", s)
}

// WriteSeriesCSV writes the series' days in date order as date,temp rows.
func WriteSeriesCSV(w io.Writer, s *Series) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"date", "temp"}); err != nil {
		return err
	}
	for _, p := range s.Points() {
		if err := cw.Write([]string{p.Date.Format(dateLayout), strconv.FormatFloat(p.Temp.Value, 'f', 2, 64)}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteNormalCSV writes the 365-day profile as day,month,day_of_month,temp
// rows. Days without a value have an empty temp.
func WriteNormalCSV(w io.Writer, n *Normal) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"day", "month", "day_of_month", "temp"}); err != nil {
		return err
	}
	start := time.Date(model.ReferenceYear, time.January, 1, 0, 0, 0, 0, time.UTC)
	for i, o := range n.days {
		d := start.AddDate(0, 0, i)
		temp := ""
		if v, ok := o.Get(); ok {
			temp = strconv.FormatFloat(v, 'f', 2, 64)
		}
		row := []string{strconv.Itoa(i + 1), strconv.Itoa(int(d.Month())), strconv.Itoa(d.Day()), temp}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
