package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/adfharrison1/wqdb/pkg/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration as YAML",
	Long: `Config prints the configuration wqdb serve would run with, after defaults,
the config file, WQDB_* environment variables and flags are applied. The
output can be saved as wqdb.yaml.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(settings)
		if err != nil {
			return err
		}
		out, err := cfg.YAML()
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), out)
		return nil
	},
}

func init() {
	addServerFlags(configCmd.Flags())
	rootCmd.AddCommand(configCmd)
}
