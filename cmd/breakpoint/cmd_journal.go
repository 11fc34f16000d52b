package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/breakpoint/journal"
)

var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "Inspect the SQLite run journal",
}

var journalLatestCmd = &cobra.Command{
	Use:   "latest",
	Short: "Show the most recent run",
	RunE: func(cmd *cobra.Command, args []string) error {
		j, err := journal.NewSQLite(cfg.Output.DBPath)
		if err != nil {
			return fmt.Errorf("open run journal: %w", err)
		}
		defer j.Close()

		run, err := j.LatestRun()
		if err != nil {
			return err
		}
		return printRun(j, run)
	},
}

var journalRunCmd = &cobra.Command{
	Use:   "run <run_id>",
	Short: "Show a run by ID",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		j, err := journal.NewSQLite(cfg.Output.DBPath)
		if err != nil {
			return fmt.Errorf("open run journal: %w", err)
		}
		defer j.Close()

		run, err := j.GetRun(args[0])
		if err != nil {
			return err
		}
		return printRun(j, run)
	},
}

func init() {
	journalCmd.AddCommand(journalLatestCmd, journalRunCmd)
}

func printRun(j *journal.SQLite, run journal.RunRecord) error {
	fmt.Printf("run %s\n", run.RunID)
	fmt.Printf("  method:   %s", run.Method)
	if run.FallbackReason != "" {
		fmt.Printf(" (%s)", run.FallbackReason)
	}
	fmt.Println()
	fmt.Printf("  window:   %s .. %s (%d observations)\n",
		run.WindowFrom.Format(journal.DateFormat), run.WindowTo.Format(journal.DateFormat), run.Observations)
	fmt.Printf("  seed:     %d\n", run.Seed)
	if run.PartialTrace {
		fmt.Println("  trace:    partial (run was cancelled)")
	}

	cps, err := j.ListChangePoints(run.RunID)
	if err != nil {
		return err
	}
	fmt.Println("  change points:")
	for _, cp := range cps {
		if cp.DrawCount > 0 {
			fmt.Printf("    %s  (%d draws)\n", cp.Date.Format(journal.DateFormat), cp.DrawCount)
		} else {
			fmt.Printf("    %s\n", cp.Date.Format(journal.DateFormat))
		}
	}

	impacts, err := j.ListImpacts(run.RunID)
	if err != nil {
		return err
	}
	for _, im := range impacts {
		fmt.Printf("  impact: %s -> %q (%d days", im.ChangePoint.Format(journal.DateFormat), im.Event, im.DaysDiff)
		if im.PriceDefined {
			fmt.Printf(", price %+.2f%%", im.PriceChangePct)
		}
		if im.VolDefined {
			fmt.Printf(", vol %+.2f%%", im.VolChangePct)
		}
		fmt.Println(")")
	}
	return nil
}
