package cli

import (
	"context"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"bankwatch/internal/app"
	"bankwatch/internal/config"
	"bankwatch/internal/logging"
)

var (
	cfgFile   string
	logLevel  string
	noColor   bool
	appHandle *app.App
)

var rootCmd = &cobra.Command{
	Use:           "bankwatch",
	Short:         "Track bank rates, fees and promotions and alert on daily variations",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if appHandle != nil {
			return nil
		}
		return setup(cmd)
	},
}

func setup(cmd *cobra.Command) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}

	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	if noColor {
		cfg.Logging.NoColor = true
		color.NoColor = true
	}

	appHandle = app.NewApp(cfg, logging.NewLogger(cfg.Logging))
	appHandle.Out = cmd.OutOrStdout()
	return nil
}

// Execute runs the command tree under ctx. The caller owns the exit code.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "Path to configuration file")
	flags.StringVar(&logLevel, "log-level", "", "Override log level defined in config")
	flags.BoolVar(&noColor, "no-color", false, "Disable coloured tables and console logs")

	rootCmd.AddCommand(
		runCmd,
		showCmd,
		scanCmd,
		exportCmd,
		backfillCmd,
		serveCmd,
		migrateCmd,
		historyCmd,
		simulateCmd,
		versionCmd,
	)
}

func getApp() *app.App {
	if appHandle == nil {
		panic("cli: app used before PersistentPreRunE")
	}
	return appHandle
}
