package app

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"bankwatch/internal/panel"
	"bankwatch/internal/storage"
)

// HistoryOptions configure the history command.
type HistoryOptions struct {
	Limit int
}

// History prints the most recent persisted alerts and the stored panel size.
func (a *App) History(ctx context.Context, opts HistoryOptions) error {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return fmt.Errorf("history: %w", storage.ErrNotConfigured)
	}
	defer closeStore()

	count, err := store.CountRecords(ctx)
	if err != nil {
		return err
	}
	alerts, err := store.ListRecentAlerts(ctx, opts.Limit)
	if err != nil {
		return err
	}
	return writeHistory(a.Out, count, alerts)
}

func writeHistory(w io.Writer, count int64, alerts []storage.AlertRecord) error {
	fmt.Fprintf(w, "%d stored records\n", count)
	if len(alerts) == 0 {
		fmt.Fprintln(w, "no alerts recorded")
		return nil
	}

	writer := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Day\tBank\tMetric\tChange%\tValue\tThreshold%\tChannels")
	for _, rec := range alerts {
		fmt.Fprintf(
			writer,
			"%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			panel.FormatDay(rec.Day),
			rec.Bank,
			rec.Metric,
			rec.PercentChange.StringFixed(2),
			rec.Value.String(),
			rec.ThresholdPct.StringFixed(2),
			strings.Join(rec.Channels, ","),
		)
	}
	return writer.Flush()
}
