package handlers

import (
	"net/http"

	"eemeter/internal/api/models"
	"eemeter/internal/tsmodel"

	"github.com/gin-gonic/gin"
)

// ListMeters handles GET /api/v1/meters
func ListMeters(c *gin.Context) {
	resp := models.MetersResponse{
		Meters: []models.MeterInfo{
			{
				Name:        "temperature_sensitivity_fit",
				Description: "Fits the configured model to the pre and post histories.",
				Outputs:     []string{"temp_sensitivity_params", "daily_standard_error", "R_squared"},
			},
			{
				Name:        "cvrmse",
				Description: "Coefficient of variation of the root-mean-square error of the pre-retrofit fit, in percent.",
				Outputs:     []string{"cvrmse"},
			},
			{
				Name:        "gross_savings",
				Description: "Pre-retrofit counterfactual minus actual usage over post-retrofit periods.",
				Outputs:     []string{"gross_savings"},
			},
			{
				Name:        "annualized_gross_savings",
				Description: "Difference of pre and post usage under normal weather, scaled by post-retrofit years.",
				Outputs:     []string{"annualized_gross_savings", "annualized_usage_pre", "annualized_usage_post"},
			},
			{
				Name:        "total_degree_days",
				Description: "Heating or cooling degree days summed over each period.",
				Outputs:     []string{"total_hdd", "total_cdd"},
			},
			{
				Name:        "normal_annual_degree_days",
				Description: "Heating or cooling degree days of the normal year.",
				Outputs:     []string{"normal_annual_hdd", "normal_annual_cdd"},
			},
			{
				Name:        "n_periods_meeting_threshold",
				Description: "Periods whose per-day degree days compare true against a threshold.",
				Outputs:     []string{"n_periods"},
			},
			{
				Name:        "fuel_type_presence",
				Description: "Whether the history has periods of each fuel type.",
				Outputs:     []string{"<fuel_type>_presence"},
			},
			{
				Name:        "time_span",
				Description: "Distinct calendar days covered by a history.",
				Outputs:     []string{"time_span"},
			},
			{
				Name:        "recent_reading",
				Description: "Whether any period ends within the look-back window.",
				Outputs:     []string{"recent_reading"},
			},
		},
	}
	for _, k := range tsmodel.Kinds() {
		resp.Models = append(resp.Models, models.ModelInfo{Kind: string(k), Parameters: tsmodel.ParamNames(k)})
	}
	c.JSON(http.StatusOK, resp)
}
