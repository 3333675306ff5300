package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"eemeter/internal/meter"
	"eemeter/internal/model"
	"eemeter/internal/tsmodel"
	"eemeter/internal/weather"
)

var validate = validator.New()

// Config is the on-disk pipeline configuration (YAML).
type Config struct {
	Name string `yaml:"name" json:"name"`
	// FuelTypes evaluated per fuel type. Defaults to electricity and natural_gas.
	FuelTypes []model.FuelType `yaml:"fuel_types" json:"fuel_types" validate:"omitempty,unique,dive,required"`
	// FuelUnits maps a fuel type to the unit usages are converted to before
	// fitting. Fuel types not listed keep their recorded unit.
	FuelUnits       map[model.FuelType]model.FuelUnit `yaml:"fuel_units" json:"fuel_units"`
	TemperatureUnit model.TempUnit                    `yaml:"temperature_unit" json:"temperature_unit" validate:"omitempty,oneof=degF degC"`
	Model           ModelConfig                       `yaml:"model" json:"model"`
	Retrofit        RetrofitConfig                    `yaml:"retrofit" json:"retrofit"`
	DegreeDays      DegreeDayConfig                   `yaml:"degree_days" json:"degree_days"`
	Thresholds      []ThresholdConfig                 `yaml:"thresholds" json:"thresholds" validate:"dive"`
	// RecentReadingDays is the look-back window of the recent_reading check.
	RecentReadingDays int           `yaml:"recent_reading_days" json:"recent_reading_days" validate:"gte=0"`
	Weather           WeatherConfig `yaml:"weather" json:"weather"`
}

type ModelConfig struct {
	Kind    string        `yaml:"kind" json:"kind" validate:"omitempty,oneof=constant hdd cdd hdd_cdd"`
	Heating tsmodel.Range `yaml:"heating" json:"heating"`
	Cooling tsmodel.Range `yaml:"cooling" json:"cooling"`
	Step    float64       `yaml:"step" json:"step" validate:"gte=0"`
}

// RetrofitConfig bounds the retrofit window. Periods overlapping it are
// excluded from both pre and post histories. End defaults to Start.
type RetrofitConfig struct {
	Start string `yaml:"start" json:"start" validate:"required"`
	End   string `yaml:"end" json:"end"`
}

// DegreeDayConfig holds the degree-day base temperatures in the config's
// temperature unit. A nil base is unset and defaults to 65 degF; 0 is a
// real base.
type DegreeDayConfig struct {
	HeatingBase *float64 `yaml:"heating_base" json:"heating_base"`
	CoolingBase *float64 `yaml:"cooling_base" json:"cooling_base"`
}

// Bases returns the heating and cooling bases, filling unset ones with the
// default for unit.
func (d DegreeDayConfig) Bases(unit model.TempUnit) (heating, cooling float64) {
	heating, cooling = defaultBase(unit), defaultBase(unit)
	if d.HeatingBase != nil {
		heating = *d.HeatingBase
	}
	if d.CoolingBase != nil {
		cooling = *d.CoolingBase
	}
	return heating, cooling
}

// ThresholdConfig counts periods whose per-day degree days compare against
// Proportion * Value. A nil Proportion is unset and means 1.
type ThresholdConfig struct {
	Kind       string   `yaml:"kind" json:"kind" validate:"required,oneof=hdd cdd"`
	Operation  string   `yaml:"operation" json:"operation" validate:"required,oneof=lt lte gt gte"`
	Proportion *float64 `yaml:"proportion" json:"proportion" validate:"omitempty,gte=0"`
	Value      float64  `yaml:"value" json:"value"`
}

// Scale returns Proportion, or 1 when it is unset.
func (t ThresholdConfig) Scale() float64 {
	if t.Proportion == nil {
		return 1
	}
	return *t.Proportion
}

// WeatherConfig selects the observed and normal weather sources. Source
// "csv" reads Path; "openmeteo" fetches by Location; "inline" means the
// caller supplies the series with the request.
type WeatherConfig struct {
	Source      string           `yaml:"source" json:"source" validate:"omitempty,oneof=csv openmeteo inline"`
	Path        string           `yaml:"path" json:"path" validate:"required_if=Source csv"`
	NormalPath  string           `yaml:"normal_path" json:"normal_path"`
	Location    weather.Location `yaml:"location" json:"location"`
	NormalYears int              `yaml:"normal_years" json:"normal_years" validate:"gte=0,lte=30"`
}

func Load(path string) (*Config, error) {
	c, err := LoadUnchecked(path)
	if err != nil {
		return nil, err
	}
	c.ApplyDefaults()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// LoadUnchecked reads the YAML file without defaults or validation. Relative
// weather paths are resolved against the config file's directory when the
// file exists there.
func LoadUnchecked(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c Config
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return nil, err
	}
	c.Weather.Path = resolveRelative(path, c.Weather.Path)
	c.Weather.NormalPath = resolveRelative(path, c.Weather.NormalPath)
	return &c, nil
}

func resolveRelative(configPath, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	cand := filepath.Join(filepath.Dir(configPath), p)
	if _, err := os.Stat(cand); err == nil {
		return cand
	}
	return p
}

// ApplyDefaults fills unset fields.
func (c *Config) ApplyDefaults() {
	if len(c.FuelTypes) == 0 {
		c.FuelTypes = []model.FuelType{model.FuelElectricity, model.FuelNaturalGas}
	}
	if c.TemperatureUnit == "" {
		c.TemperatureUnit = model.DegF
	}
	if c.Model.Kind == "" {
		c.Model.Kind = string(tsmodel.KindHDDCDD)
	}
	heating, cooling := c.DegreeDays.Bases(c.TemperatureUnit)
	c.DegreeDays.HeatingBase, c.DegreeDays.CoolingBase = &heating, &cooling
	if c.RecentReadingDays == 0 {
		c.RecentReadingDays = 360
	}
	if c.Weather.Source == "" {
		c.Weather.Source = "csv"
	}
	if c.Weather.NormalYears == 0 {
		c.Weather.NormalYears = 10
	}
	if c.Retrofit.End == "" {
		c.Retrofit.End = c.Retrofit.Start
	}
}

// defaultBase is 65 degF in unit.
func defaultBase(unit model.TempUnit) float64 {
	return model.ConvertTemp(65, model.DegF, unit)
}

func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("config invalid: %w", err)
	}
	for ft, unit := range c.FuelUnits {
		if _, err := model.ParseFuelUnit(string(unit)); err != nil {
			return fmt.Errorf("fuel_units.%s: %w", ft, err)
		}
	}
	start, end, err := c.Retrofit.Window()
	if err != nil {
		return err
	}
	if end.Before(start) {
		return fmt.Errorf("retrofit.end %s is before retrofit.start %s", c.Retrofit.End, c.Retrofit.Start)
	}
	for i, th := range c.Thresholds {
		if _, err := meter.ParseComparison(th.Operation); err != nil {
			return fmt.Errorf("thresholds[%d]: %w", i, err)
		}
	}
	if c.Weather.Source == "openmeteo" && c.Weather.Location == (weather.Location{}) {
		return errors.New("weather.location is required for the openmeteo source")
	}
	return nil
}

// Window parses the retrofit dates.
func (r RetrofitConfig) Window() (start, end time.Time, err error) {
	start, err = parseDate(r.Start)
	if err != nil {
		return start, end, fmt.Errorf("retrofit.start: %w", err)
	}
	endStr := r.End
	if endStr == "" {
		endStr = r.Start
	}
	end, err = parseDate(endStr)
	if err != nil {
		return start, end, fmt.Errorf("retrofit.end: %w", err)
	}
	return start, end, nil
}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", s)
}

// FuelUnit returns the configured target unit for ft, falling back to
// model.DefaultFuelUnit. "" keeps each period's recorded unit.
func (c *Config) FuelUnit(ft model.FuelType) model.FuelUnit {
	u, err := model.ParseFuelUnit(string(c.FuelUnits[ft]))
	if err != nil || u == "" {
		return model.DefaultFuelUnit(ft)
	}
	return u
}
