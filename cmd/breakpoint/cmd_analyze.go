package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/breakpoint/changepoint"
	"github.com/rustyeddy/breakpoint/journal"
	"github.com/rustyeddy/breakpoint/pipeline"
	"github.com/rustyeddy/breakpoint/series"
)

var analyzeFlags struct {
	seed         int64
	chains       int
	draws        int
	warmup       int
	outDir       string
	dbPath       string
	fallbackOnly bool
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Run the change point analysis and persist the results",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		if d := cfg.SamplerTimeout(); d > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, d)
			defer cancel()
		}

		from, to, err := cfg.Window()
		if err != nil {
			return err
		}

		loaded, err := series.LoadCSV(cfg.Data.PricesFile)
		if err != nil {
			return err
		}
		s := loaded.Series.Window(from, to)
		logger.Info().
			Int("observations", len(s)).
			Int("dropped_dates", loaded.DroppedDates).
			Int("interpolated", loaded.Interpolated).
			Msg("series loaded")

		var events []series.Event
		if cfg.Data.EventsFile != "" {
			if events, err = series.LoadEvents(cfg.Data.EventsFile); err != nil {
				return err
			}
		}

		var journals []journal.Journal
		cpsPath, impsPath := cfg.Output.ChangePointsFile, cfg.Output.ImpactsFile
		if analyzeFlags.outDir != "" {
			cpsPath = filepath.Join(analyzeFlags.outDir, "change_points.csv")
			impsPath = filepath.Join(analyzeFlags.outDir, "event_impacts.csv")
		}
		dbPath := cfg.Output.DBPath
		if analyzeFlags.dbPath != "" {
			dbPath = analyzeFlags.dbPath
		}

		csvj, err := journal.NewCSV(cpsPath, impsPath)
		if err != nil {
			return fmt.Errorf("open csv artifacts: %w", err)
		}
		journals = append(journals, csvj)
		if dbPath != "" {
			dbj, err := journal.NewSQLite(dbPath)
			if err != nil {
				return fmt.Errorf("open run journal: %w", err)
			}
			journals = append(journals, dbj)
		}
		defer func() {
			for _, j := range journals {
				_ = j.Close()
			}
		}()

		sc := changepoint.DefaultConfig()
		sc.Chains = cfg.Sampler.Chains
		sc.Warmup = cfg.Sampler.Warmup
		sc.Draws = cfg.Sampler.Draws
		sc.Seed = cfg.Sampler.Seed
		sc.MinRetain = cfg.Sampler.MinRetain
		applyAnalyzeFlags(&sc)

		runner := &pipeline.Runner{
			Series:       s,
			Events:       events,
			Sampler:      sc,
			FallbackOnly: cfg.Sampler.FallbackOnly || analyzeFlags.fallbackOnly,
			Journals:     journals,
			WindowFrom:   from,
			WindowTo:     to,
			Log:          logger,
		}

		res, err := runner.Run(ctx)
		if err != nil {
			return err
		}

		fmt.Printf("run %s (%s)\n", res.RunID, res.Method)
		fmt.Println("top change points:")
		for _, cp := range res.ChangePoints {
			if cp.Count > 0 {
				fmt.Printf("  %s  (%d draws)\n", cp.Date.Format(journal.DateFormat), cp.Count)
			} else {
				fmt.Printf("  %s\n", cp.Date.Format(journal.DateFormat))
			}
		}
		for _, im := range res.Impacts {
			fmt.Printf("  %s -> %q (%d days)\n", im.ChangePoint.Format(journal.DateFormat), im.Event.Description, im.DaysDiff)
		}
		return nil
	},
}

func init() {
	analyzeCmd.Flags().Int64Var(&analyzeFlags.seed, "seed", 0, "override sampler seed")
	analyzeCmd.Flags().IntVar(&analyzeFlags.chains, "chains", 0, "override chain count")
	analyzeCmd.Flags().IntVar(&analyzeFlags.draws, "draws", 0, "override retained draws per chain")
	analyzeCmd.Flags().IntVar(&analyzeFlags.warmup, "warmup", 0, "override warmup iterations per chain")
	analyzeCmd.Flags().StringVar(&analyzeFlags.outDir, "out-dir", "", "override directory for the CSV artifacts")
	analyzeCmd.Flags().StringVar(&analyzeFlags.dbPath, "db", "", "override the SQLite run journal path")
	analyzeCmd.Flags().BoolVar(&analyzeFlags.fallbackOnly, "fallback-only", false, "skip the sampler, use the rolling-statistics detector")
}

func applyAnalyzeFlags(sc *changepoint.Config) {
	if analyzeFlags.seed != 0 {
		sc.Seed = analyzeFlags.seed
	}
	if analyzeFlags.chains > 0 {
		sc.Chains = analyzeFlags.chains
	}
	if analyzeFlags.draws > 0 {
		sc.Draws = analyzeFlags.draws
	}
	if analyzeFlags.warmup > 0 {
		sc.Warmup = analyzeFlags.warmup
	}
}
