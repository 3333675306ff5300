package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"eemeter/internal/data"
	"eemeter/internal/meter"
	"eemeter/internal/model"
	"eemeter/internal/tsmodel"
	"eemeter/internal/weather"
)

func fitCmd() *cobra.Command {
	var (
		historyPath string
		weatherPath string
		fuel        string
		kindName    string
		unitName    string
	)

	cmd := &cobra.Command{
		Use:   "fit",
		Short: "Fit a temperature-sensitivity model to one fuel type and report fit quality",
		RunE: func(_ *cobra.Command, _ []string) error {
			unit, err := model.ParseTempUnit(unitName)
			if err != nil {
				return err
			}
			kind, err := tsmodel.ParseKind(kindName)
			if err != nil {
				return err
			}
			m, err := tsmodel.New(kind, unit)
			if err != nil {
				return err
			}
			history, err := data.LoadHistory(historyPath)
			if err != nil {
				return err
			}
			ws, err := weather.LoadSeriesCSV(weatherPath, unit)
			if err != nil {
				return err
			}

			ft := model.FuelType(fuel)
			cfg := meter.FitConfig{Model: m, FuelType: ft, TempUnit: unit}
			fit, err := meter.NewTemperatureSensitivityFit(cfg)
			if err != nil {
				return err
			}
			cvrmse, err := meter.NewCVRMSE(cfg)
			if err != nil {
				return err
			}
			in := meter.Inputs{History: history, Weather: ws}
			res, err := fit.Evaluate(in)
			if err != nil {
				return err
			}
			params, err := res.Params("temp_sensitivity_params")
			if err != nil {
				return err
			}

			fmt.Printf("%s %s model over %d periods\n", ft, kind, len(history.Get(ft)))
			for i, name := range tsmodel.ParamNames(kind) {
				if i < len(params) {
					fmt.Printf("  %-22s %12.4f\n", name, params[i])
				}
			}
			fmt.Printf("  %-22s %12s\n", "daily_standard_error", res["daily_standard_error"])
			fmt.Printf("  %-22s %12s\n", "R_squared", res["R_squared"])

			cv, err := cvrmse.Evaluate(in)
			switch {
			case errors.Is(err, meter.ErrDegenerate):
				fmt.Printf("  %-22s %12s (%v)\n", "cvrmse", "undefined", err)
			case err != nil:
				return err
			default:
				fmt.Printf("  %-22s %12s\n", "cvrmse", cv["cvrmse"])
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&historyPath, "history", "", "Consumption history (.csv or .json)")
	cmd.Flags().StringVar(&weatherPath, "weather", "", "Daily temperature CSV (date,temp)")
	cmd.Flags().StringVar(&fuel, "fuel", string(model.FuelElectricity), "Fuel type to fit")
	cmd.Flags().StringVar(&kindName, "model", string(tsmodel.KindHDDCDD), "Model: constant, hdd, cdd or hdd_cdd")
	cmd.Flags().StringVar(&unitName, "unit", string(model.DegF), "Temperature unit: degF or degC")
	_ = cmd.MarkFlagRequired("history")
	_ = cmd.MarkFlagRequired("weather")
	return cmd
}
