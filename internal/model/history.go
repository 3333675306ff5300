package model

import (
	"fmt"
	"sort"
	"time"
)

// ConsumptionHistory groups periods by fuel type, preserving insertion order
// within each fuel type. It is read-only once handed to a meter.
type ConsumptionHistory struct {
	byFuel map[FuelType][]ConsumptionPeriod
	order  []FuelType
}

// NewConsumptionHistory builds a history from periods, in the given order.
func NewConsumptionHistory(periods []ConsumptionPeriod) (*ConsumptionHistory, error) {
	h := &ConsumptionHistory{byFuel: map[FuelType][]ConsumptionPeriod{}}
	for i, p := range periods {
		if err := p.Validate(); err != nil {
			return nil, fmt.Errorf("period %d: %w", i, err)
		}
		h.add(p)
	}
	return h, nil
}

func (h *ConsumptionHistory) add(p ConsumptionPeriod) {
	if _, ok := h.byFuel[p.FuelType]; !ok {
		h.order = append(h.order, p.FuelType)
	}
	h.byFuel[p.FuelType] = append(h.byFuel[p.FuelType], p)
}

// Get returns a copy of the periods recorded for fuel, or nil.
func (h *ConsumptionHistory) Get(fuel FuelType) []ConsumptionPeriod {
	if h == nil {
		return nil
	}
	ps := h.byFuel[fuel]
	if len(ps) == 0 {
		return nil
	}
	out := make([]ConsumptionPeriod, len(ps))
	copy(out, ps)
	return out
}

// Units returns the distinct units fuel is recorded in, in first-seen order.
func (h *ConsumptionHistory) Units(fuel FuelType) []FuelUnit {
	if h == nil {
		return nil
	}
	var out []FuelUnit
	seen := map[FuelUnit]bool{}
	for _, p := range h.byFuel[fuel] {
		if !seen[p.Unit] {
			seen[p.Unit] = true
			out = append(out, p.Unit)
		}
	}
	return out
}

// FuelTypes returns fuel types in first-seen order.
func (h *ConsumptionHistory) FuelTypes() []FuelType {
	if h == nil {
		return nil
	}
	out := make([]FuelType, len(h.order))
	copy(out, h.order)
	return out
}

// Len returns the total number of periods across fuel types.
func (h *ConsumptionHistory) Len() int {
	if h == nil {
		return 0
	}
	n := 0
	for _, ps := range h.byFuel {
		n += len(ps)
	}
	return n
}

// All returns every period, grouped by fuel type in first-seen order.
func (h *ConsumptionHistory) All() []ConsumptionPeriod {
	var out []ConsumptionPeriod
	for _, ft := range h.FuelTypes() {
		out = append(out, h.byFuel[ft]...)
	}
	return out
}

// SplitAt partitions the history around a retrofit window. Periods ending on
// or before retrofitStart go to pre, periods starting on or after
// retrofitEnd go to post; periods overlapping the window are dropped.
func (h *ConsumptionHistory) SplitAt(retrofitStart, retrofitEnd time.Time) (pre, post *ConsumptionHistory) {
	pre = &ConsumptionHistory{byFuel: map[FuelType][]ConsumptionPeriod{}}
	post = &ConsumptionHistory{byFuel: map[FuelType][]ConsumptionPeriod{}}
	for _, p := range h.All() {
		switch {
		case !p.End.After(retrofitStart):
			pre.add(p)
		case !p.Start.Before(retrofitEnd):
			post.add(p)
		}
	}
	return pre, post
}

// SortByStart returns a new history with each fuel type's periods ordered by
// start time.
func (h *ConsumptionHistory) SortByStart() *ConsumptionHistory {
	out := &ConsumptionHistory{byFuel: map[FuelType][]ConsumptionPeriod{}}
	for _, ft := range h.FuelTypes() {
		ps := h.Get(ft)
		sort.SliceStable(ps, func(i, j int) bool { return ps[i].Start.Before(ps[j].Start) })
		for _, p := range ps {
			out.add(p)
		}
	}
	return out
}
