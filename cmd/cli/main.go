package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "eemeter",
		Short:         "Weather-normalized energy savings for building consumption histories",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(evaluateCmd())
	rootCmd.AddCommand(fitCmd())
	rootCmd.AddCommand(weatherCmd())
	rootCmd.AddCommand(normalsCmd())
	rootCmd.AddCommand(runsCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// ensureDir creates the parent directory of path.
func ensureDir(path string) error {
	return os.MkdirAll(filepath.Dir(path), 0o755)
}
