package models

import (
	"time"

	"eemeter/internal/meter"
	"eemeter/internal/model"
)

// EvaluateResponse represents the response from an evaluation
type EvaluateResponse struct {
	RunID     string                    `json:"run_id,omitempty"`
	Name      string                    `json:"name"`
	Evaluated []model.FuelType          `json:"evaluated"`
	Skipped   map[model.FuelType]string `json:"skipped,omitempty"`
	Results   meter.Result              `json:"results"`
	Undefined map[string]string         `json:"undefined,omitempty"`
	Ledger    []LedgerRow               `json:"ledger,omitempty"`
}

// LedgerRow represents one period in the savings ledger
type LedgerRow struct {
	Index          int       `json:"index"`
	Phase          string    `json:"phase"` // "pre" or "post"
	Start          time.Time `json:"start"`
	End            time.Time `json:"end"`
	Days           int       `json:"days"`
	FuelType       string    `json:"fuel_type"`
	Unit           string    `json:"unit"`
	Usage          *float64  `json:"usage"`
	Counterfactual *float64  `json:"counterfactual"`
	Savings        *float64  `json:"savings"`
	CumSavings     float64   `json:"cum_savings"`
}

// RunInfo summarizes a stored run
type RunInfo struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	Evaluated []string  `json:"evaluated"`
}

// RunsResponse lists stored runs, newest first
type RunsResponse struct {
	Runs []RunInfo `json:"runs"`
}

// MeterInfo describes a meter and the outputs it contributes
type MeterInfo struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Outputs     []string `json:"outputs"`
}

// ModelInfo describes a temperature-sensitivity model
type ModelInfo struct {
	Kind       string   `json:"kind"`
	Parameters []string `json:"parameters"`
}

// MetersResponse lists the available meters and models
type MetersResponse struct {
	Meters []MeterInfo `json:"meters"`
	Models []ModelInfo `json:"models"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains error information
type ErrorDetail struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}
