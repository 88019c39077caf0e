package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/nedpals/opentaxjs/pkg/opentax"
	"github.com/nedpals/opentaxjs/pkg/schedule"
)

var scheduleFlags struct {
	rule      string
	from      string
	to        string
	liability float64
}

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Show a rule's filing schedule for a period",
	Long: `Show the filing periods, due dates, and prorated liabilities a rule's
filing schedules imply for a date range.

Examples:
  # Full-year schedule
  opentax schedule --rule income_tax.json --from 2026-01-01 --to 2026-12-31 --liability 62500

  # Partial-year coverage with proration
  opentax schedule --rule income_tax.json --from 2026-02-15 --to 2026-08-31 --liability 40000`,
	RunE: runSchedule,
}

func init() {
	rootCmd.AddCommand(scheduleCmd)

	scheduleCmd.Flags().StringVarP(&scheduleFlags.rule, "rule", "r", "", "rule file (required)")
	scheduleCmd.Flags().StringVar(&scheduleFlags.from, "from", "", "range start, YYYY-MM-DD (required)")
	scheduleCmd.Flags().StringVar(&scheduleFlags.to, "to", "", "range end, YYYY-MM-DD (required)")
	scheduleCmd.Flags().Float64Var(&scheduleFlags.liability, "liability", 0, "liability to prorate across periods")
	_ = scheduleCmd.MarkFlagRequired("rule")
	_ = scheduleCmd.MarkFlagRequired("from")
	_ = scheduleCmd.MarkFlagRequired("to")
}

func runSchedule(cmd *cobra.Command, args []string) error {
	r, err := opentax.LoadRuleFile(scheduleFlags.rule)
	if err != nil {
		return fmt.Errorf("failed to load rule: %w", err)
	}
	if len(r.FilingSchedules) == 0 {
		return fmt.Errorf("rule %q declares no filing schedules", r.Name)
	}

	from, err := time.Parse(time.DateOnly, scheduleFlags.from)
	if err != nil {
		return fmt.Errorf("invalid --from date: %w", err)
	}
	to, err := time.Parse(time.DateOnly, scheduleFlags.to)
	if err != nil {
		return fmt.Errorf("invalid --to date: %w", err)
	}

	for _, fs := range r.FilingSchedules {
		periods, err := schedule.Periods(fs, from, to)
		if err != nil {
			return err
		}
		amounts := schedule.Prorate(scheduleFlags.liability, periods)

		fmt.Printf("%s filing schedule (due %d days after period end):\n", fs.Frequency, fs.DeadlineDays)
		for _, amount := range amounts {
			p := amount.Period
			fmt.Printf("  %-8s %s to %s  due %s",
				p.Label,
				p.Start.Format(time.DateOnly),
				p.End.Format(time.DateOnly),
				p.DueDate.Format(time.DateOnly),
			)
			if scheduleFlags.liability > 0 {
				fmt.Printf("  amount %.2f", amount.Value)
			}
			if len(p.Forms) > 0 {
				fmt.Printf("  forms %v", p.Forms)
			}
			fmt.Println()
		}
	}
	return nil
}
