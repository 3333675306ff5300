package stats

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Values returns the present values in order.
func Values(obs []Obs) []float64 {
	out := make([]float64, 0, len(obs))
	for _, o := range obs {
		if o.OK {
			out = append(out, o.Value)
		}
	}
	return out
}

// CountPresent returns how many observations are present.
func CountPresent(obs []Obs) int {
	n := 0
	for _, o := range obs {
		if o.OK {
			n++
		}
	}
	return n
}

// Sum adds present observations. An empty or all-missing slice sums to 0.
func Sum(obs []Obs) float64 {
	vals := Values(obs)
	if len(vals) == 0 {
		return 0
	}
	return floats.Sum(vals)
}

// SumAbs adds |x| over present observations.
func SumAbs(obs []Obs) float64 {
	total := 0.0
	for _, o := range obs {
		if o.OK {
			total += math.Abs(o.Value)
		}
	}
	return total
}

// SumSquares adds x*x over present observations.
func SumSquares(obs []Obs) float64 {
	total := 0.0
	for _, o := range obs {
		if o.OK {
			total += o.Value * o.Value
		}
	}
	return total
}

// Mean is the mean of present observations; ok is false when none are present.
func Mean(obs []Obs) (mean float64, ok bool) {
	vals := Values(obs)
	if len(vals) == 0 {
		return 0, false
	}
	return stat.Mean(vals, nil), true
}

// WeightedMean is the weighted mean of present observations, with weights
// aligned index-for-index with obs. ok is false when the total weight of the
// present entries is not positive.
func WeightedMean(obs []Obs, weights []float64) (mean float64, ok bool) {
	vals := make([]float64, 0, len(obs))
	ws := make([]float64, 0, len(obs))
	for i, o := range obs {
		if !o.OK || i >= len(weights) {
			continue
		}
		vals = append(vals, o.Value)
		ws = append(ws, weights[i])
	}
	if len(vals) == 0 || floats.Sum(ws) <= 0 {
		return 0, false
	}
	return stat.Mean(vals, ws), true
}

// Residuals returns estimated[i] - observed[i], missing where either is missing.
// The slices must have the same length.
func Residuals(estimated, observed []Obs) []Obs {
	out := make([]Obs, len(observed))
	for i := range observed {
		if i < len(estimated) {
			out[i] = estimated[i].Sub(observed[i])
		}
	}
	return out
}

// Deviations returns obs[i] - center, missing entries stay missing.
func Deviations(obs []Obs, center float64) []Obs {
	out := make([]Obs, len(obs))
	for i, o := range obs {
		out[i] = o.Map(func(v float64) float64 { return v - center })
	}
	return out
}
