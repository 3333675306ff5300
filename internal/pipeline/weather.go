package pipeline

import (
	"context"
	"fmt"
	"log"
	"time"

	"eemeter/internal/config"
	"eemeter/internal/model"
	"eemeter/internal/weather"
)

// Weather is the observed and normal weather an evaluation runs against.
type Weather struct {
	Observed *weather.Series
	Normal   *weather.Normal
}

// LoadWeather resolves the weather sources named by cfg.Weather. For the
// csv source the normal is read from normal_path, or derived from the
// observed series when no normal file is configured. For openmeteo the
// observed series covers start through end and the normal averages the
// configured number of years before end.
func LoadWeather(ctx context.Context, cfg *config.Config, client *weather.OpenMeteo, start, end time.Time) (*Weather, error) {
	unit := cfg.TemperatureUnit
	switch cfg.Weather.Source {
	case "", "csv":
		observed, err := weather.LoadSeriesCSV(cfg.Weather.Path, unit)
		if err != nil {
			return nil, fmt.Errorf("weather: %w", err)
		}
		normalSeries := observed
		if cfg.Weather.NormalPath != "" {
			if normalSeries, err = weather.LoadSeriesCSV(cfg.Weather.NormalPath, unit); err != nil {
				return nil, fmt.Errorf("weather normal: %w", err)
			}
		}
		normal, err := weather.NormalFromSeries(normalSeries)
		if err != nil {
			return nil, fmt.Errorf("weather normal: %w", err)
		}
		log.Printf("[pipeline] weather from %s: %d days, normal coverage %d/365", cfg.Weather.Path, observed.Len(), normal.Coverage())
		return &Weather{Observed: observed, Normal: normal}, nil

	case "openmeteo":
		if client == nil {
			return nil, fmt.Errorf("weather: openmeteo source needs a client")
		}
		observed, err := client.Daily(ctx, cfg.Weather.Location, start, end, unit)
		if err != nil {
			return nil, fmt.Errorf("weather: %w", err)
		}
		normal, err := client.Normal(ctx, cfg.Weather.Location, cfg.Weather.NormalYears, end, unit)
		if err != nil {
			return nil, fmt.Errorf("weather normal: %w", err)
		}
		return &Weather{Observed: observed, Normal: normal}, nil

	case "inline":
		return nil, fmt.Errorf("weather: inline weather must be supplied with the request")

	default:
		return nil, fmt.Errorf("unknown weather source %q", cfg.Weather.Source)
	}
}

// HistoryBounds returns the first start and last end across all periods.
func HistoryBounds(h *model.ConsumptionHistory) (start, end time.Time, ok bool) {
	for _, p := range h.All() {
		if !ok || p.Start.Before(start) {
			start = p.Start
		}
		if !ok || p.End.After(end) {
			end = p.End
		}
		ok = true
	}
	return start, end, ok
}

// Run loads weather for history and evaluates it.
func (p *Pipeline) Run(ctx context.Context, history *model.ConsumptionHistory, client *weather.OpenMeteo) (*Outcome, error) {
	start, end, ok := HistoryBounds(history)
	if !ok {
		return nil, fmt.Errorf("consumption history is empty")
	}
	w, err := LoadWeather(ctx, p.cfg, client, start, end)
	if err != nil {
		return nil, err
	}
	t0 := time.Now()
	out, err := p.Evaluate(history, w.Observed, w.Normal)
	if err != nil {
		return nil, err
	}
	log.Printf("[pipeline] %s: evaluated %v in %s", p.cfg.Name, out.Evaluated, time.Since(t0).Round(time.Millisecond))
	return out, nil
}
