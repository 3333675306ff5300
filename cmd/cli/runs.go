package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"eemeter/internal/report"
	"eemeter/internal/store"
)

func runsCmd() *cobra.Command {
	var dbPath string

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Inspect evaluation runs saved with evaluate --db",
	}
	cmd.PersistentFlags().StringVar(&dbPath, "db", "eemeter.db", "SQLite database path")

	var limit int
	list := &cobra.Command{
		Use:   "list",
		Short: "List saved runs, newest first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, err := store.NewSQLite(dbPath)
			if err != nil {
				return err
			}
			defer st.Close()
			runs, err := st.ListRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}
			fmt.Printf("%-36s %-20s %-20s %s\n", "id", "created", "name", "evaluated")
			for _, r := range runs {
				fmt.Printf("%-36s %-20s %-20s %s\n", r.ID, r.CreatedAt.Format("2006-01-02 15:04:05"), r.Name, strings.Join(r.Evaluated, ","))
			}
			return nil
		},
	}
	list.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum runs to list")

	show := &cobra.Command{
		Use:   "show [run-id]",
		Short: "Print a saved run as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := store.NewSQLite(dbPath)
			if err != nil {
				return err
			}
			defer st.Close()
			run, err := st.GetRun(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return report.EncodeSummaryJSON(cmd.OutOrStdout(), run.Summary)
		},
	}

	del := &cobra.Command{
		Use:   "delete [run-id]",
		Short: "Delete a saved run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := store.NewSQLite(dbPath)
			if err != nil {
				return err
			}
			defer st.Close()
			if err := st.DeleteRun(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Printf("Deleted run %s\n", args[0])
			return nil
		},
	}

	cmd.AddCommand(list, show, del)
	return cmd
}
