package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"eemeter/internal/data"
	"eemeter/internal/model"
	"eemeter/internal/weather"
)

func locationFlags(cmd *cobra.Command, loc *weather.Location, unitName *string) {
	cmd.Flags().Float64Var(&loc.Lat, "lat", 0, "Latitude in decimal degrees")
	cmd.Flags().Float64Var(&loc.Lon, "lon", 0, "Longitude in decimal degrees")
	cmd.Flags().StringVar(unitName, "unit", string(model.DegF), "Temperature unit: degF or degC")
	_ = cmd.MarkFlagRequired("lat")
	_ = cmd.MarkFlagRequired("lon")
}

func weatherCmd() *cobra.Command {
	var (
		loc      weather.Location
		unitName string
		from     string
		to       string
		outPath  string
	)

	cmd := &cobra.Command{
		Use:   "weather",
		Short: "Download daily mean temperatures from Open-Meteo to CSV",
		RunE: func(cmd *cobra.Command, _ []string) error {
			unit, err := model.ParseTempUnit(unitName)
			if err != nil {
				return err
			}
			start, err := data.ParseTime(from)
			if err != nil {
				return fmt.Errorf("--from: %w", err)
			}
			end, err := data.ParseTime(to)
			if err != nil {
				return fmt.Errorf("--to: %w", err)
			}
			s, err := weather.NewOpenMeteo(nil).Daily(cmd.Context(), loc, start, end, unit)
			if err != nil {
				return err
			}
			if err := ensureDir(outPath); err != nil {
				return err
			}
			f, err := os.Create(outPath)
			if err != nil {
				return err
			}
			defer f.Close()
			if err := weather.WriteSeriesCSV(f, s); err != nil {
				return err
			}
			fmt.Printf("Wrote %d days to %s\n", s.Len(), outPath)
			return nil
		},
	}

	locationFlags(cmd, &loc, &unitName)
	cmd.Flags().StringVar(&from, "from", "", "First day (YYYY-MM-DD)")
	cmd.Flags().StringVar(&to, "to", "", "Last day, inclusive (YYYY-MM-DD)")
	cmd.Flags().StringVarP(&outPath, "out", "o", "results/weather.csv", "Output CSV path")
	_ = cmd.MarkFlagRequired("from")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}

func normalsCmd() *cobra.Command {
	var (
		loc      weather.Location
		unitName string
		years    int
		asOf     string
		outPath  string
	)

	cmd := &cobra.Command{
		Use:   "normals",
		Short: "Average several years of Open-Meteo temperatures into a 365-day normal",
		RunE: func(cmd *cobra.Command, _ []string) error {
			unit, err := model.ParseTempUnit(unitName)
			if err != nil {
				return err
			}
			at := time.Now()
			if asOf != "" {
				if at, err = data.ParseTime(asOf); err != nil {
					return fmt.Errorf("--as-of: %w", err)
				}
			}
			n, err := weather.NewOpenMeteo(nil).Normal(cmd.Context(), loc, years, at, unit)
			if err != nil {
				return err
			}
			if err := ensureDir(outPath); err != nil {
				return err
			}
			f, err := os.Create(outPath)
			if err != nil {
				return err
			}
			defer f.Close()
			if err := weather.WriteNormalCSV(f, n); err != nil {
				return err
			}
			fmt.Printf("Wrote %d-year normal (%d/365 days covered) to %s\n", years, n.Coverage(), outPath)
			return nil
		},
	}

	locationFlags(cmd, &loc, &unitName)
	cmd.Flags().IntVar(&years, "years", 10, "Number of whole years to average")
	cmd.Flags().StringVar(&asOf, "as-of", "", "Average the years before this day (default today)")
	cmd.Flags().StringVarP(&outPath, "out", "o", "results/normal.csv", "Output CSV path")
	return cmd
}
