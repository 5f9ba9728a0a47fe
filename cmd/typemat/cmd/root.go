package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/typemat/typemat/registry"
)

var (
	cfgFile string
	cfg     *registry.Config
)

var rootCmd = &cobra.Command{
	Use:   "typemat",
	Short: "typemat - materialize type declarations from Go packages",
	Long: `typemat scans Go packages and materializes full declarations for
classes, enums, mixins, functions and records: supertype links, generic
parameters, members and annotations, resolved cycle-safely and cached.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = registry.LoadConfig(cfgFile)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		return nil
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./typemat.yaml)")
}

func GetConfig() *registry.Config {
	return cfg
}
