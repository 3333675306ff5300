package meter

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"

	"eemeter/internal/model"
)

// Kind tags the variant held by a Value.
type Kind int

const (
	KindNumber Kind = iota + 1
	KindBool
	KindParams
	// KindUndefined marks a statistic that could not be computed, e.g. R² of
	// a zero-variance series. Reason says why.
	KindUndefined
)

func (k Kind) String() string {
	switch k {
	case KindNumber:
		return "number"
	case KindBool:
		return "bool"
	case KindParams:
		return "params"
	case KindUndefined:
		return "undefined"
	default:
		return "invalid"
	}
}

// Value is one meter output.
type Value struct {
	kind   Kind
	num    float64
	b      bool
	params model.Params
	reason string
}

func Number(v float64) Value { return Value{kind: KindNumber, num: v} }

func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// ParamsValue wraps fitted parameters. The slice is copied.
func ParamsValue(p model.Params) Value {
	cp := make(model.Params, len(p))
	copy(cp, p)
	return Value{kind: KindParams, params: cp}
}

func Undefined(reason string) Value { return Value{kind: KindUndefined, reason: reason} }

func (v Value) Kind() Kind { return v.kind }

// Float returns the number held, ok=false for any other kind.
func (v Value) Float() (float64, bool) {
	if v.kind != KindNumber {
		return 0, false
	}
	return v.num, true
}

func (v Value) BoolValue() (bool, bool) {
	if v.kind != KindBool {
		return false, false
	}
	return v.b, true
}

func (v Value) Params() (model.Params, bool) {
	if v.kind != KindParams {
		return nil, false
	}
	cp := make(model.Params, len(v.params))
	copy(cp, v.params)
	return cp, true
}

// Reason is set for undefined values.
func (v Value) Reason() string { return v.reason }

func (v Value) String() string {
	switch v.kind {
	case KindNumber:
		return strconv.FormatFloat(v.num, 'g', -1, 64)
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindParams:
		return fmt.Sprint([]float64(v.params))
	case KindUndefined:
		return "undefined"
	default:
		return ""
	}
}

// MarshalJSON encodes undefined and non-finite numbers as null.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindNumber:
		if math.IsNaN(v.num) || math.IsInf(v.num, 0) {
			return []byte("null"), nil
		}
		return json.Marshal(v.num)
	case KindBool:
		return json.Marshal(v.b)
	case KindParams:
		return json.Marshal([]float64(v.params))
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON reverses MarshalJSON. null decodes as an undefined value
// without a reason.
func (v *Value) UnmarshalJSON(b []byte) error {
	var raw any
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	switch x := raw.(type) {
	case nil:
		*v = Undefined("")
	case float64:
		*v = Number(x)
	case bool:
		*v = Bool(x)
	case []any:
		p := make(model.Params, len(x))
		for i, e := range x {
			f, ok := e.(float64)
			if !ok {
				return fmt.Errorf("params element %d is %T, not a number", i, e)
			}
			p[i] = f
		}
		*v = Value{kind: KindParams, params: p}
	default:
		return fmt.Errorf("cannot decode %T as a meter value", raw)
	}
	return nil
}

// Result maps output keys to values. It is the only shape meters exchange.
type Result map[string]Value

// Keys returns the output keys in sorted order.
func (r Result) Keys() []string {
	keys := make([]string, 0, len(r))
	for k := range r {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (r Result) lookup(key string) (Value, error) {
	v, ok := r[key]
	if !ok {
		return Value{}, fmt.Errorf("%w: %q", ErrNoOutput, key)
	}
	return v, nil
}

// Float returns a numeric output.
func (r Result) Float(key string) (float64, error) {
	v, err := r.lookup(key)
	if err != nil {
		return 0, err
	}
	f, ok := v.Float()
	if !ok {
		return 0, fmt.Errorf("output %q is %s, not a number", key, v.Kind())
	}
	return f, nil
}

// Bool returns a boolean output.
func (r Result) Bool(key string) (bool, error) {
	v, err := r.lookup(key)
	if err != nil {
		return false, err
	}
	b, ok := v.BoolValue()
	if !ok {
		return false, fmt.Errorf("output %q is %s, not a bool", key, v.Kind())
	}
	return b, nil
}

// Params returns a fitted-parameter output.
func (r Result) Params(key string) (model.Params, error) {
	v, err := r.lookup(key)
	if err != nil {
		return nil, err
	}
	p, ok := v.Params()
	if !ok {
		return nil, fmt.Errorf("output %q is %s, not params", key, v.Kind())
	}
	return p, nil
}
