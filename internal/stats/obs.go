package stats

import (
	"encoding/json"
	"math"
	"strconv"
)

// Obs is a single observation that may be missing.
// Aggregations in this package skip missing entries by contract, so a period
// with an unusable reading never leaks NaN into whole-history statistics.
type Obs struct {
	Value float64
	OK    bool
}

// Present returns an observation holding v.
// Non-finite values are treated as missing.
func Present(v float64) Obs {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Obs{}
	}
	return Obs{Value: v, OK: true}
}

// Missing returns an empty observation.
func Missing() Obs { return Obs{} }

// Get returns the value and whether it is present.
func (o Obs) Get() (float64, bool) { return o.Value, o.OK }

// Or returns the value, or def when missing.
func (o Obs) Or(def float64) float64 {
	if !o.OK {
		return def
	}
	return o.Value
}

// Map applies f to a present value; missing stays missing.
func (o Obs) Map(f func(float64) float64) Obs {
	if !o.OK {
		return o
	}
	return Present(f(o.Value))
}

// Sub returns o - other, missing if either side is missing.
func (o Obs) Sub(other Obs) Obs {
	if !o.OK || !other.OK {
		return Obs{}
	}
	return Present(o.Value - other.Value)
}

func (o Obs) String() string {
	if !o.OK {
		return "missing"
	}
	return strconv.FormatFloat(o.Value, 'g', -1, 64)
}

// MarshalJSON encodes a missing observation as null.
func (o Obs) MarshalJSON() ([]byte, error) {
	if !o.OK {
		return []byte("null"), nil
	}
	return json.Marshal(o.Value)
}

// UnmarshalJSON decodes null as missing.
func (o *Obs) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*o = Obs{}
		return nil
	}
	var v float64
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*o = Present(v)
	return nil
}

// FromFloats wraps a float slice, mapping NaN and Inf to missing.
func FromFloats(vals []float64) []Obs {
	out := make([]Obs, len(vals))
	for i, v := range vals {
		out[i] = Present(v)
	}
	return out
}
