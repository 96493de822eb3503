package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"bankwatch/internal/app"
)

var (
	backfillFrom    string
	backfillTo      string
	backfillDryRun  bool
	backfillWorkers int
)

var backfillCmd = &cobra.Command{
	Use:   "backfill",
	Short: "Run the daily pass over a historical range of days",
	RunE: func(cmd *cobra.Command, args []string) error {
		if backfillFrom == "" || backfillTo == "" {
			return fmt.Errorf("--from and --to must be provided")
		}

		from, err := parseDayFlag("from", backfillFrom)
		if err != nil {
			return err
		}
		to, err := parseDayFlag("to", backfillTo)
		if err != nil {
			return err
		}
		if from.After(*to) {
			return fmt.Errorf("--from must not be after --to")
		}
		if backfillWorkers < 1 {
			return fmt.Errorf("--workers must be at least 1")
		}

		opts := app.BackfillOptions{
			From:    *from,
			To:      *to,
			DryRun:  backfillDryRun,
			Workers: backfillWorkers,
		}

		return getApp().Backfill(cmd.Context(), opts)
	},
}

func init() {
	backfillCmd.Flags().StringVar(&backfillFrom, "from", "", "First day (YYYY-MM-DD, inclusive)")
	backfillCmd.Flags().StringVar(&backfillTo, "to", "", "Last day (YYYY-MM-DD, inclusive)")
	backfillCmd.Flags().BoolVar(&backfillDryRun, "dry-run", false, "Run without writing to storage or sending alerts")
	backfillCmd.Flags().IntVar(&backfillWorkers, "workers", 2, "Number of concurrent workers")
}
