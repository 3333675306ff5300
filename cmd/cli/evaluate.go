package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"eemeter/internal/config"
	"eemeter/internal/data"
	"eemeter/internal/meter"
	"eemeter/internal/pipeline"
	"eemeter/internal/report"
	"eemeter/internal/store"
	"eemeter/internal/weather"
)

func evaluateCmd() *cobra.Command {
	var (
		cfgPath     string
		historyPath string
		outPath     string
		resultsPath string
		ledgerPath  string
		dbPath      string
	)

	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Fit pre/post models and compute savings for a consumption history",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cfgPath)
			if err != nil {
				return err
			}
			history, err := data.LoadHistory(historyPath)
			if err != nil {
				return err
			}
			p, err := pipeline.Build(cfg)
			if err != nil {
				return err
			}

			start, end, ok := pipeline.HistoryBounds(history)
			if !ok {
				return fmt.Errorf("%s has no periods", historyPath)
			}
			client := weather.NewOpenMeteo(nil, weather.WithCache(weather.CacheFromEnv()))
			w, err := pipeline.LoadWeather(cmd.Context(), cfg, client, start, end)
			if err != nil {
				return err
			}
			out, err := p.Evaluate(history, w.Observed, w.Normal)
			if err != nil {
				return err
			}
			summary := p.Summary(out)

			if dbPath != "" {
				if summary, err = saveRun(cmd.Context(), dbPath, summary); err != nil {
					return err
				}
			}

			printOutcome(summary, out.Result)

			if outPath != "" {
				if err := ensureDir(outPath); err != nil {
					return err
				}
				if err := report.WriteSummaryJSON(outPath, summary); err != nil {
					return err
				}
				fmt.Printf("Wrote summary to %s\n", outPath)
			}
			if resultsPath != "" {
				if err := ensureDir(resultsPath); err != nil {
					return err
				}
				if err := report.WriteResultCSV(resultsPath, out.Result); err != nil {
					return err
				}
				fmt.Printf("Wrote %d results to %s\n", len(out.Result), resultsPath)
			}
			if ledgerPath != "" {
				rows, err := p.Ledger(out, w.Observed)
				if err != nil {
					return err
				}
				if err := ensureDir(ledgerPath); err != nil {
					return err
				}
				if err := report.WriteLedgerCSV(ledgerPath, rows); err != nil {
					return err
				}
				fmt.Printf("Wrote %d ledger rows to %s\n", len(rows), ledgerPath)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&cfgPath, "config", "c", "", "Path to YAML pipeline config")
	cmd.Flags().StringVar(&historyPath, "history", "", "Consumption history (.csv or .json)")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "Optional: write the JSON summary here")
	cmd.Flags().StringVar(&resultsPath, "results", "", "Optional: write key,kind,value CSV here")
	cmd.Flags().StringVar(&ledgerPath, "ledger", "", "Optional: write the per-period savings ledger CSV here")
	cmd.Flags().StringVar(&dbPath, "db", "", "Optional: save the run to this SQLite database")
	_ = cmd.MarkFlagRequired("config")
	_ = cmd.MarkFlagRequired("history")
	return cmd
}

func saveRun(ctx context.Context, dbPath string, summary report.Summary) (report.Summary, error) {
	st, err := store.NewSQLite(dbPath)
	if err != nil {
		return summary, err
	}
	defer st.Close()
	run, err := st.SaveRun(ctx, summary)
	if err != nil {
		return summary, err
	}
	fmt.Printf("Saved run %s to %s\n", run.ID, dbPath)
	return run.Summary, nil
}

func printOutcome(s report.Summary, res meter.Result) {
	fmt.Printf("%s: evaluated %v\n", s.Name, s.Evaluated)
	for ft, reason := range s.Skipped {
		fmt.Printf("  skipped %-14s %s\n", ft, reason)
	}
	fmt.Printf("%-48s %-10s %s\n", "output", "kind", "value")
	for _, k := range res.Keys() {
		v := res[k]
		value := v.String()
		if v.Kind() == meter.KindUndefined {
			value = "(" + v.Reason() + ")"
		}
		fmt.Printf("%-48s %-10s %s\n", k, v.Kind(), value)
	}
}
