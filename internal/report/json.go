package report

import (
	"encoding/json"
	"io"
	"os"
	"sort"
	"time"

	"eemeter/internal/meter"
	"eemeter/internal/model"
)

// Summary is the JSON document written for one evaluation.
type Summary struct {
	RunID       string                    `json:"run_id,omitempty"`
	Name        string                    `json:"name"`
	GeneratedAt time.Time                 `json:"generated_at"`
	Evaluated   []model.FuelType          `json:"evaluated"`
	Skipped     map[model.FuelType]string `json:"skipped,omitempty"`
	Results     meter.Result              `json:"results"`
	// Undefined explains every output whose value is null.
	Undefined map[string]string `json:"undefined,omitempty"`
}

// NewSummary collects the undefined reasons out of res.
func NewSummary(name string, evaluated []model.FuelType, skipped map[model.FuelType]string, res meter.Result) Summary {
	s := Summary{
		Name:        name,
		GeneratedAt: time.Now().UTC(),
		Evaluated:   evaluated,
		Skipped:     skipped,
		Results:     res,
	}
	for k, v := range res {
		if v.Kind() == meter.KindUndefined {
			if s.Undefined == nil {
				s.Undefined = map[string]string{}
			}
			s.Undefined[k] = v.Reason()
		}
	}
	if s.Evaluated == nil {
		s.Evaluated = []model.FuelType{}
	}
	return s
}

// FuelTypes returns the evaluated and skipped fuel types, sorted.
func (s Summary) FuelTypes() []model.FuelType {
	out := append([]model.FuelType{}, s.Evaluated...)
	for ft := range s.Skipped {
		out = append(out, ft)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func WriteSummaryJSON(path string, s Summary) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return EncodeSummaryJSON(f, s)
}

func EncodeSummaryJSON(w io.Writer, s Summary) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(s)
}

// UnmarshalJSON restores the reasons of undefined results.
func (s *Summary) UnmarshalJSON(b []byte) error {
	type plain Summary
	var p plain
	if err := json.Unmarshal(b, &p); err != nil {
		return err
	}
	for k, reason := range p.Undefined {
		if _, ok := p.Results[k]; ok {
			p.Results[k] = meter.Undefined(reason)
		}
	}
	*s = Summary(p)
	return nil
}
