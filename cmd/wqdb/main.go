// Package main is the entry point for the wqdb CLI.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/adfharrison1/wqdb/pkg/config"
)

// version is set at build time via ldflags.
var version = "dev"

// settings holds the configuration sources for the running command
var settings *viper.Viper

// flagKeys maps command line flags to configuration keys
var flagKeys = map[string]string{
	"port":             "port",
	"data-file":        "data_file",
	"data-dir":         "data_dir",
	"max-memory":       "max_memory_mb",
	"background-save":  "background_save",
	"transaction-save": "transaction_save",
	"index-workers":    "index_workers",
	"shutdown-timeout": "shutdown_timeout",
}

// rootCmd is the base command for the wqdb CLI.
var rootCmd = &cobra.Command{
	Use:   "wqdb",
	Short: "Document database serving WorkQueue views",
	Long: `wqdb is an in-memory document database with optional persistence. It keeps
CouchDB-style views up to date as documents change, including the WorkQueue
jobStatusByRequest view that reports the job count of every work queue element
keyed by request name and status.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfgFile, _ := cmd.Flags().GetString("config")
		settings = config.New(cfgFile)
		if err := config.ReadFile(settings, cfgFile != ""); err != nil {
			return err
		}
		if used := settings.ConfigFileUsed(); used != "" {
			fmt.Fprintln(os.Stderr, "Using config file:", used)
		}
		return bindFlags(cmd.Flags())
	},
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "config file (default: ./wqdb.yaml or ~/.config/wqdb/wqdb.yaml)")
}

// addServerFlags defines the flags that override configuration settings
func addServerFlags(flags *pflag.FlagSet) {
	flags.String("port", "8080", "Server port")
	flags.String("data-file", "wqdb_data.wqdb", "Snapshot file, relative to the data directory")
	flags.String("data-dir", ".", "Data directory for storage")
	flags.Int("max-memory", 1024, "Maximum memory usage in MB")
	flags.Duration("background-save", 0, "Background save interval (e.g., 5m, 30s). Set to 0 to disable.")
	flags.Bool("transaction-save", false, "Save a collection after every write")
	flags.Int("index-workers", 0, "Goroutines used to build a view (0 means one per CPU)")
	flags.Duration("shutdown-timeout", 0, "Time allowed for requests to finish on shutdown (default 30s)")
}

// bindFlags lets flags the user set override the config file and environment
func bindFlags(flags *pflag.FlagSet) error {
	for name, key := range flagKeys {
		flag := flags.Lookup(name)
		if flag == nil || !flag.Changed {
			continue
		}
		if err := settings.BindPFlag(key, flag); err != nil {
			return fmt.Errorf("failed to bind flag %s: %w", name, err)
		}
	}
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
