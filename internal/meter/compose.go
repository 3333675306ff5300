package meter

import (
	"fmt"

	"eemeter/internal/model"
)

// ForEachFuelType evaluates an inner meter once per fuel type, injecting the
// fuel type into its inputs, and merges the outputs with every key renamed to
// "<key>_<fuel_type>".
type ForEachFuelType struct {
	fuelTypes []model.FuelType
	inner     Meter
}

func NewForEachFuelType(fuelTypes []model.FuelType, inner Meter) (*ForEachFuelType, error) {
	if len(fuelTypes) == 0 {
		return nil, &ConfigError{Field: "fuel_types", Reason: "at least one fuel type is required"}
	}
	if inner == nil {
		return nil, &ConfigError{Field: "meter", Reason: "inner meter is required"}
	}
	seen := map[model.FuelType]bool{}
	for _, ft := range fuelTypes {
		if ft == "" {
			return nil, &ConfigError{Field: "fuel_types", Reason: "empty fuel type"}
		}
		if seen[ft] {
			return nil, &ConfigError{Field: "fuel_types", Reason: fmt.Sprintf("duplicate fuel type %q", ft)}
		}
		seen[ft] = true
	}
	fts := make([]model.FuelType, len(fuelTypes))
	copy(fts, fuelTypes)
	return &ForEachFuelType{fuelTypes: fts, inner: inner}, nil
}

func (m *ForEachFuelType) Name() string { return "for_each_fuel_type(" + m.inner.Name() + ")" }

func (m *ForEachFuelType) Evaluate(in Inputs) (Result, error) {
	out := Result{}
	for _, ft := range m.fuelTypes {
		res, err := m.inner.Evaluate(in.WithFuelType(ft))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", ft, err)
		}
		for k, v := range res {
			out[k+"_"+string(ft)] = v
		}
	}
	return out, nil
}

// Step is one stage of a Sequence.
type Step struct {
	Meter Meter
	// Adapt, when set, rewrites the inputs this step sees. Later steps are
	// unaffected.
	Adapt func(Inputs) Inputs
	// Bind routes this step's outputs (by original key) into input slots
	// visible to later steps.
	Bind map[string]Key
	// Suffix is appended to every key this step contributes to the result.
	Suffix string
	// Hidden steps feed later steps through Bind but contribute no outputs.
	Hidden bool
}

// Sequence evaluates steps in order. Outputs merge into one result; a later
// step overwrites an earlier step's key of the same name.
type Sequence struct {
	name  string
	steps []Step
}

func NewSequence(name string, steps ...Step) (*Sequence, error) {
	if len(steps) == 0 {
		return nil, &ConfigError{Field: "steps", Reason: "at least one step is required"}
	}
	for i, s := range steps {
		if s.Meter == nil {
			return nil, &ConfigError{Field: fmt.Sprintf("steps[%d]", i), Reason: "meter is required"}
		}
	}
	if name == "" {
		name = "sequence"
	}
	cp := make([]Step, len(steps))
	copy(cp, steps)
	return &Sequence{name: name, steps: cp}, nil
}

func (s *Sequence) Name() string { return s.name }

func (s *Sequence) Evaluate(in Inputs) (Result, error) {
	out := Result{}
	for i, step := range s.steps {
		stepIn := in
		if step.Adapt != nil {
			stepIn = step.Adapt(in)
		}
		res, err := step.Meter.Evaluate(stepIn)
		if err != nil {
			return nil, fmt.Errorf("step %d (%s): %w", i, step.Meter.Name(), err)
		}
		for key, slot := range step.Bind {
			v, ok := res[key]
			if !ok {
				return nil, fmt.Errorf("step %d (%s): %w: %q", i, step.Meter.Name(), ErrNoOutput, key)
			}
			if err := in.Set(slot, v); err != nil {
				return nil, fmt.Errorf("step %d (%s): %w", i, step.Meter.Name(), err)
			}
		}
		if step.Hidden {
			continue
		}
		for k, v := range res {
			out[k+step.Suffix] = v
		}
	}
	return out, nil
}

// UsePostHistory is an Adapt function that lets a history-based meter run
// over the post-retrofit history.
func UsePostHistory(in Inputs) Inputs {
	in.History = in.HistoryPost
	return in
}
