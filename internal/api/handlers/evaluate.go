package handlers

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"

	"eemeter/internal/api/models"
	"eemeter/internal/data"
	"eemeter/internal/meter"
	"eemeter/internal/model"
	"eemeter/internal/pipeline"
	"eemeter/internal/report"
	"eemeter/internal/store"
	"eemeter/internal/weather"

	"github.com/gin-gonic/gin"
)

// EvaluateHandler handles savings evaluation requests
type EvaluateHandler struct {
	store   store.Store
	weather *weather.OpenMeteo
}

// NewEvaluateHandler creates a new evaluate handler. A nil store disables
// saving runs; a nil client rejects the openmeteo weather source.
func NewEvaluateHandler(st store.Store, client *weather.OpenMeteo) *EvaluateHandler {
	return &EvaluateHandler{store: st, weather: client}
}

// Evaluate handles POST /api/v1/evaluate
func (h *EvaluateHandler) Evaluate(c *gin.Context) {
	var req models.EvaluateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", err)
		return
	}

	cfg := req.Config
	cfg.ApplyDefaults()
	if cfg.Weather.Source == "csv" {
		writeError(c, http.StatusBadRequest, "INVALID_CONFIG", errors.New("weather source csv is not available over the API; use inline or openmeteo"))
		return
	}
	p, err := pipeline.Build(&cfg)
	if err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_CONFIG", err)
		return
	}

	history, err := data.HistoryFromRecords(req.Periods)
	if err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_HISTORY", err)
		return
	}

	w, err := h.resolveWeather(c.Request.Context(), p, &req, history)
	if err != nil {
		status, code := weatherStatus(err)
		writeError(c, status, code, err)
		return
	}

	out, err := p.Evaluate(history, w.Observed, w.Normal)
	if err != nil {
		writeError(c, http.StatusUnprocessableEntity, "EVALUATION_ERROR", err)
		return
	}

	summary := p.Summary(out)
	resp := models.EvaluateResponse{
		Name:      summary.Name,
		Evaluated: summary.Evaluated,
		Skipped:   summary.Skipped,
		Results:   summary.Results,
		Undefined: summary.Undefined,
	}

	if req.Options.IncludeLedger {
		rows, err := p.Ledger(out, w.Observed)
		if err != nil {
			writeError(c, http.StatusUnprocessableEntity, "EVALUATION_ERROR", err)
			return
		}
		resp.Ledger = toLedgerRows(rows)
	}

	if req.Options.Save {
		if h.store == nil {
			writeError(c, http.StatusServiceUnavailable, "STORE_UNAVAILABLE", errors.New("run storage is not configured"))
			return
		}
		run, err := h.store.SaveRun(c.Request.Context(), summary)
		if err != nil {
			writeError(c, http.StatusInternalServerError, "STORE_ERROR", err)
			return
		}
		resp.RunID = run.ID
		log.Printf("[api] saved run %s (%s)", run.ID, run.Name)
	}

	c.JSON(http.StatusOK, resp)
}

// errWeatherRequest marks weather problems caused by the request itself.
var errWeatherRequest = errors.New("invalid weather")

func (h *EvaluateHandler) resolveWeather(ctx context.Context, p *pipeline.Pipeline, req *models.EvaluateRequest, history *model.ConsumptionHistory) (*pipeline.Weather, error) {
	cfg := p.Config()
	if cfg.Weather.Source != "inline" {
		start, end, ok := pipeline.HistoryBounds(history)
		if !ok {
			return nil, fmt.Errorf("%w: consumption history is empty", errWeatherRequest)
		}
		if h.weather == nil && cfg.Weather.Source == "openmeteo" {
			return nil, fmt.Errorf("%w: openmeteo is not enabled on this server", errWeatherRequest)
		}
		return pipeline.LoadWeather(ctx, cfg, h.weather, start, end)
	}

	if len(req.Weather) == 0 {
		return nil, fmt.Errorf("%w: inline source needs a weather series", errWeatherRequest)
	}
	observed, err := seriesFromPoints(cfg.TemperatureUnit, req.Weather)
	if err != nil {
		return nil, err
	}
	normalSeries := observed
	if len(req.NormalWeather) > 0 {
		if normalSeries, err = seriesFromPoints(cfg.TemperatureUnit, req.NormalWeather); err != nil {
			return nil, err
		}
	}
	normal, err := weather.NormalFromSeries(normalSeries)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errWeatherRequest, err)
	}
	return &pipeline.Weather{Observed: observed, Normal: normal}, nil
}

func seriesFromPoints(unit model.TempUnit, in []models.WeatherPoint) (*weather.Series, error) {
	points := make([]weather.Point, 0, len(in))
	for i, wp := range in {
		d, err := data.ParseTime(wp.Date)
		if err != nil {
			return nil, fmt.Errorf("%w: weather[%d]: %v", errWeatherRequest, i, err)
		}
		points = append(points, weather.Point{Date: d, Temp: wp.Temp})
	}
	s, err := weather.NewSeries(unit, points)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errWeatherRequest, err)
	}
	return s, nil
}

func weatherStatus(err error) (int, string) {
	switch {
	case errors.Is(err, errWeatherRequest):
		return http.StatusBadRequest, "INVALID_WEATHER"
	case errors.Is(err, weather.ErrRateLimited):
		return http.StatusTooManyRequests, "WEATHER_RATE_LIMITED"
	case errors.Is(err, weather.ErrCircuitOpen):
		return http.StatusServiceUnavailable, "WEATHER_UNAVAILABLE"
	default:
		return http.StatusBadGateway, "WEATHER_FETCH_ERROR"
	}
}

func toLedgerRows(rows []report.LedgerRow) []models.LedgerRow {
	out := make([]models.LedgerRow, len(rows))
	for i, r := range rows {
		out[i] = models.LedgerRow{
			Index:          r.Index,
			Phase:          string(r.Phase),
			Start:          r.Start,
			End:            r.End,
			Days:           r.Days,
			FuelType:       string(r.FuelType),
			Unit:           string(r.Unit),
			Usage:          obsPtr(r.Usage.Get()),
			Counterfactual: obsPtr(r.Counterfactual.Get()),
			Savings:        obsPtr(r.Savings.Get()),
			CumSavings:     r.CumSavings,
		}
	}
	return out
}

func obsPtr(v float64, ok bool) *float64 {
	if !ok {
		return nil
	}
	return &v
}

func writeError(c *gin.Context, status int, code string, err error) {
	detail := models.ErrorDetail{Code: code, Message: err.Error()}
	var missing *meter.MissingInputError
	var cfgErr *meter.ConfigError
	switch {
	case errors.As(err, &missing):
		detail.Details = map[string]interface{}{"meter": missing.Meter, "input": string(missing.Key)}
	case errors.As(err, &cfgErr):
		detail.Details = map[string]interface{}{"field": cfgErr.Field}
	}
	_ = c.Error(err)
	c.JSON(status, models.ErrorResponse{Error: detail})
}
