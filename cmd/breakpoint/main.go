// Command breakpoint detects structural breaks in a daily price series,
// correlates them with dated events, and republishes the results.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/rustyeddy/breakpoint/config"
)

var (
	cfgPath string
	cfg     *config.Config
	logger  zerolog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "breakpoint",
	Short: "Bayesian change point analysis of a price series",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		if cfgPath != "" {
			cfg, err = config.LoadFromFile(cfgPath)
			if err != nil {
				return err
			}
		} else {
			cfg = config.Default()
		}
		logger = newLogger(cfg.Log)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "path to YAML/JSON config file")
	rootCmd.AddCommand(analyzeCmd, serveCmd, journalCmd)
}

func newLogger(lc config.LogConfig) zerolog.Logger {
	level, err := zerolog.ParseLevel(lc.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}

	var out = os.Stderr
	w := zerolog.New(out)
	if lc.Format == "console" {
		w = zerolog.New(zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339})
	}
	return w.Level(level).With().Timestamp().Logger()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
