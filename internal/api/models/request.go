package models

import (
	"eemeter/internal/config"
	"eemeter/internal/data"
	"eemeter/internal/stats"
)

// EvaluateRequest represents the request body for a savings evaluation
type EvaluateRequest struct {
	Config  config.Config       `json:"config" binding:"required"`
	Periods []data.PeriodRecord `json:"periods" binding:"required,min=1,dive"`
	// Weather carries daily temperatures when config.weather.source is "inline"
	Weather       []WeatherPoint  `json:"weather,omitempty" binding:"omitempty,dive"`
	NormalWeather []WeatherPoint  `json:"normal_weather,omitempty" binding:"omitempty,dive"`
	Options       EvaluateOptions `json:"options,omitempty"`
}

// WeatherPoint is one day's mean temperature, date as YYYY-MM-DD
type WeatherPoint struct {
	Date string    `json:"date" binding:"required"`
	Temp stats.Obs `json:"temp"`
}

// EvaluateOptions contains optional evaluation parameters
type EvaluateOptions struct {
	Save          bool `json:"save,omitempty"`           // persist the run
	IncludeLedger bool `json:"include_ledger,omitempty"` // default: false
}
