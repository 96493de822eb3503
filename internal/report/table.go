package report

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/shopspring/decimal"

	"bankwatch/internal/panel"
	"bankwatch/internal/scanner"
)

// WriteText renders the dashboard as aligned terminal tables.
func WriteText(w io.Writer, d Dashboard) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	fmt.Fprintf(tw, "View %s .. %s  banks: %s  threshold: %s%%\n\n",
		panel.FormatDay(d.View.From),
		panel.FormatDay(d.View.To),
		strings.Join(d.View.Banks, ","),
		decimal.NewFromFloat(d.View.Threshold).StringFixed(1),
	)

	fmt.Fprintf(tw, "KPIs %s\n", panel.FormatDay(d.View.To))
	fmt.Fprintln(tw, "Bank\tSavings yield\tLoan rate\tMaintenance fee\tPromo score")
	for _, rec := range d.KPIs {
		fmt.Fprintf(tw, "%s\t%s%%\t%s%%\t$ %s\t%s\n",
			rec.Bank,
			fixed(rec.SavingsYield, 2),
			fixed(rec.LoanRate, 2),
			thousands(rec.MaintenanceFee),
			fixed(rec.PromoScore, 1),
		)
	}

	fmt.Fprintln(tw, "\nRanking by maintenance fee")
	fmt.Fprintln(tw, "#\tBank\tMaintenance fee")
	for i, rec := range d.Ranking {
		fmt.Fprintf(tw, "%d\t%s\t$ %s\n", i+1, rec.Bank, thousands(rec.MaintenanceFee))
	}

	fmt.Fprintln(tw, "\nVariation alerts")
	writeAlertRows(tw, d.Alerts)

	return tw.Flush()
}

// WriteAlertsText renders only the alert table.
func WriteAlertsText(w io.Writer, alerts []scanner.Alert) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	writeAlertRows(tw, alerts)
	return tw.Flush()
}

func writeAlertRows(w io.Writer, alerts []scanner.Alert) {
	if len(alerts) == 0 {
		fmt.Fprintln(w, "No variations met the selected threshold.")
		return
	}
	fmt.Fprintln(w, "Date\tBank\tMetric\tChange%\tValue\tDirection")
	for _, a := range alerts {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			panel.FormatDay(a.Date),
			a.Bank,
			a.Metric,
			fixed(a.PercentChange, 2),
			formatValue(a.Metric, a.Value),
			colorDirection(a.Direction()),
		)
	}
}

// colorDirection is a no-op when output is not a terminal.
func colorDirection(dir string) string {
	switch dir {
	case "up":
		return color.GreenString(dir)
	case "down":
		return color.RedString(dir)
	default:
		return dir
	}
}

func fixed(v float64, places int32) string {
	return decimal.NewFromFloat(v).StringFixed(places)
}

func formatValue(m panel.Metric, v float64) string {
	switch m {
	case panel.MaintenanceFee:
		return fixed(v, 0)
	case panel.PromoScore:
		return fixed(v, 1)
	default:
		return fixed(v, 2)
	}
}

// thousands formats a currency amount with comma separators and no decimals.
func thousands(v float64) string {
	digits := decimal.NewFromFloat(v).Round(0).Abs().String()
	var b strings.Builder
	if v < 0 && digits != "0" {
		b.WriteByte('-')
	}
	for i, r := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	return b.String()
}
