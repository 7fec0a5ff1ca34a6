// Command tracker-cli queries and imports transactions from a terminal.
package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	applog "expensetracker/internal/log"
)

var (
	cfgFile string
	cli     = &app{}
)

var rootCmd = &cobra.Command{
	Use:           "tracker-cli",
	Short:         "Query, chart and import personal transactions",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		if err := initConfig(cmd); err != nil {
			return err
		}
		setupLogger(viper.GetString("log-level"))
		return nil
	},
	PersistentPostRunE: func(*cobra.Command, []string) error {
		return cli.close()
	},
	RunE: func(cmd *cobra.Command, _ []string) error {
		return cmd.Help()
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&cfgFile, "config", "c", "", "Config file (default is ./tracker.yaml)")
	flags.StringP("user", "u", "", "User whose transactions are read (required)")
	flags.String("backend", "sqlite", "Storage backend: sqlite or memory")
	flags.String("db", "data/tracker.db", "SQLite database path")
	flags.String("data-dir", "data", "Directory with category seed files")
	flags.String("week-start", "monday", "First day of the week for insights")
	flags.Bool("raw", false, "Dump results as Go structs instead of tables")
	flags.String("log-level", "warn", "Log level: debug, info, warn or error")

	// --data_dir and --data-dir are the same flag.
	rootCmd.SetGlobalNormalizationFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	rootCmd.AddCommand(listCmd, summaryCmd, insightsCmd, ticksCmd, importCmd, chartCmd)
}

// initConfig layers flags over TRACKER_* env vars over the config file.
func initConfig(cmd *cobra.Command) error {
	viper.SetEnvPrefix("TRACKER")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("tracker")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
	}
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return fmt.Errorf("read config: %w", err)
		}
	}
	return nil
}

// setupLogger sends slog records through a charmbracelet handler on stderr
// so tables on stdout stay clean.
func setupLogger(level string) {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		lvl = log.WarnLevel
	}
	handler := log.NewWithOptions(os.Stderr, log.Options{
		Prefix:          "tracker-cli",
		Level:           lvl,
		ReportTimestamp: lvl == log.DebugLevel,
	})

	cfg := applog.DefaultConfig()
	cfg.Component = applog.ComponentApp
	cfg.Handler = handler
	applog.SetDefault(applog.New(cfg))
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
