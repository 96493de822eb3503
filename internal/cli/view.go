package cli

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"

	"bankwatch/internal/app"
	"bankwatch/internal/panel"
)

// viewFlags are shared by the commands that render a dashboard view.
type viewFlags struct {
	from      string
	to        string
	banks     []string
	threshold float64
}

func (f *viewFlags) register(fs *pflag.FlagSet) {
	fs.StringVar(&f.from, "from", "", "First day of the view (YYYY-MM-DD, default one window before --to)")
	fs.StringVar(&f.to, "to", "", "Last day of the view (YYYY-MM-DD, default last day of the panel)")
	fs.StringSliceVar(&f.banks, "banks", nil, "Comma separated banks to include (default all)")
	fs.Float64Var(&f.threshold, "threshold", -1, "Alert threshold in percent (default alerting.threshold_pct)")
}

func (f *viewFlags) options() (app.ViewOptions, error) {
	opts := app.ViewOptions{Banks: f.banks, Threshold: f.threshold}
	var err error
	if opts.From, err = parseDayFlag("from", f.from); err != nil {
		return app.ViewOptions{}, err
	}
	if opts.To, err = parseDayFlag("to", f.to); err != nil {
		return app.ViewOptions{}, err
	}
	return opts, nil
}

func parseDayFlag(name, value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	day, err := panel.ParseDay(value)
	if err != nil {
		return nil, fmt.Errorf("invalid --%s value: %w", name, err)
	}
	return &day, nil
}
