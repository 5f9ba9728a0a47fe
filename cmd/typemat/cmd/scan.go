package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/typemat/typemat"
)

var scanOutput string

var scanCmd = &cobra.Command{
	Use:   "scan [patterns...]",
	Short: "Scan packages and write the materialized declarations",
	Long: `Discover the packages matching the given patterns (or the ones from
the config file), materialize every declaration and write the result as JSON.

Patterns follow the package-path spelling, plus /** for recursion and a
leading ! for exclusion.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := GetConfig()
		if len(args) > 0 {
			cfg.Packages = args
		}

		now := time.Now()
		reg, err := typemat.Scan(cfg)
		if err != nil {
			return fmt.Errorf("scan failed: %w", err)
		}
		defer reg.Close()

		var out []any
		for d := range reg.AllClasses() {
			out = append(out, d.Serialize())
		}

		data, err := json.MarshalIndent(out, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode result: %w", err)
		}
		if err := os.WriteFile(scanOutput, data, 0644); err != nil {
			return fmt.Errorf("failed to write %s: %w", scanOutput, err)
		}

		fmt.Printf("Scan complete!\n")
		fmt.Printf("  Libraries:    %d\n", len(reg.Libraries()))
		fmt.Printf("  Declarations: %d\n", len(out))
		fmt.Printf("  Duration:     %s\n", time.Since(now).Round(time.Millisecond))
		fmt.Printf("  Output:       %s\n", scanOutput)
		return nil
	},
}

func init() {
	scanCmd.Flags().StringVarP(&scanOutput, "output", "o", "output.json", "output file")
	rootCmd.AddCommand(scanCmd)
}
