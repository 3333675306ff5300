package model

import (
	"fmt"
	"strings"
)

// FuelType is a consumption category, e.g. "electricity" or "natural_gas".
type FuelType string

const (
	FuelElectricity FuelType = "electricity"
	FuelNaturalGas  FuelType = "natural_gas"
)

// FuelUnit is the unit a usage quantity is recorded in.
// The empty unit means "as recorded" wherever a target unit is requested.
type FuelUnit string

const (
	UnitKWh   FuelUnit = "kWh"
	UnitWh    FuelUnit = "Wh"
	UnitTherm FuelUnit = "therms"
)

// kWh per unit.
var fuelUnitFactors = map[FuelUnit]float64{
	UnitKWh:   1,
	UnitWh:    0.001,
	UnitTherm: 29.3071,
}

// ParseFuelUnit normalizes common spellings ("kwh", "therm") to a FuelUnit.
func ParseFuelUnit(s string) (FuelUnit, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return "", nil
	case "kwh":
		return UnitKWh, nil
	case "wh":
		return UnitWh, nil
	case "therm", "therms", "thm":
		return UnitTherm, nil
	default:
		return "", fmt.Errorf("unknown fuel unit %q", s)
	}
}

// DefaultFuelUnit is the unit ft is reported in when none is configured:
// kWh for electricity, therms for natural gas and "" for anything else.
func DefaultFuelUnit(ft FuelType) FuelUnit {
	switch ft {
	case FuelElectricity:
		return UnitKWh
	case FuelNaturalGas:
		return UnitTherm
	default:
		return ""
	}
}

// ConvertFuel converts v from one fuel unit to another.
// An empty target returns v unchanged.
func ConvertFuel(v float64, from, to FuelUnit) (float64, error) {
	if to == "" || from == to {
		return v, nil
	}
	ff, ok := fuelUnitFactors[from]
	if !ok {
		return 0, fmt.Errorf("unknown fuel unit %q", from)
	}
	tf, ok := fuelUnitFactors[to]
	if !ok {
		return 0, fmt.Errorf("unknown fuel unit %q", to)
	}
	return v * ff / tf, nil
}

// TempUnit is a temperature unit.
type TempUnit string

const (
	DegF TempUnit = "degF"
	DegC TempUnit = "degC"
)

// ParseTempUnit accepts "degF", "F", "fahrenheit" and the Celsius equivalents.
func ParseTempUnit(s string) (TempUnit, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "degf", "f", "fahrenheit":
		return DegF, nil
	case "degc", "c", "celsius":
		return DegC, nil
	default:
		return "", fmt.Errorf("unknown temperature unit %q", s)
	}
}

// ConvertTemp converts an absolute temperature between units.
func ConvertTemp(v float64, from, to TempUnit) float64 {
	switch {
	case from == to:
		return v
	case from == DegC && to == DegF:
		return v*9/5 + 32
	case from == DegF && to == DegC:
		return (v - 32) * 5 / 9
	default:
		return v
	}
}

// ConvertTempDelta converts a temperature difference (e.g. a degree-day
// quantity) between units.
func ConvertTempDelta(v float64, from, to TempUnit) float64 {
	switch {
	case from == to:
		return v
	case from == DegC && to == DegF:
		return v * 9 / 5
	case from == DegF && to == DegC:
		return v * 5 / 9
	default:
		return v
	}
}
