package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"bankwatch/internal/generator"
	"bankwatch/internal/logging"
	"bankwatch/internal/panel"
)

// Source kinds.
const (
	SourceSynthetic = "synthetic"
	SourceFeed      = "feed"
	SourceDatabase  = "database"
)

// Config materialises application configuration.
type Config struct {
	App       AppConfig               `mapstructure:"app"`
	Logging   logging.Config          `mapstructure:"logging"`
	Generator GeneratorConfig         `mapstructure:"generator"`
	Banks     []generator.BankProfile `mapstructure:"banks"`
	Walk      WalkConfig              `mapstructure:"walk"`
	Source    SourceConfig            `mapstructure:"source"`
	Database  DatabaseConfig          `mapstructure:"database"`
	Scheduler SchedulerConfig         `mapstructure:"scheduler"`
	Alerting  AlertingConfig          `mapstructure:"alerting"`
	View      ViewConfig              `mapstructure:"view"`
	Export    ExportConfig            `mapstructure:"export"`
	Server    ServerConfig            `mapstructure:"server"`
}

// AppConfig general metadata.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
}

// GeneratorConfig selects the synthetic panel.
type GeneratorConfig struct {
	Seed int64 `mapstructure:"seed"`
	Days int   `mapstructure:"days"`
	// EndDate pins the last generated day (YYYY-MM-DD). Empty means today.
	EndDate   string `mapstructure:"end_date"`
	CacheSize int    `mapstructure:"cache_size"`
}

// WalkConfig tunes the random walks.
type WalkConfig struct {
	YieldSigma float64 `mapstructure:"yield_sigma"`
	LoanSpread float64 `mapstructure:"loan_spread"`
	LoanSigma  float64 `mapstructure:"loan_sigma"`
	FeeSigma   float64 `mapstructure:"fee_sigma"`
	FeeFloor   float64 `mapstructure:"fee_floor"`
	PromoSigma float64 `mapstructure:"promo_sigma"`
}

// SourceConfig picks where panels come from.
type SourceConfig struct {
	Kind string     `mapstructure:"kind"`
	Feed FeedConfig `mapstructure:"feed"`
}

// FeedConfig covers the external rates feed.
type FeedConfig struct {
	BaseURL        string        `mapstructure:"base_url"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	UserAgent      string        `mapstructure:"user_agent"`
}

// DatabaseConfig encapsulates PostgreSQL connectivity.
type DatabaseConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	MigrationsPath  string        `mapstructure:"migrations_path"`
}

// SchedulerConfig governs the monitoring cadence.
type SchedulerConfig struct {
	Interval        time.Duration `mapstructure:"interval"`
	AlignToBucket   bool          `mapstructure:"align_to_bucket"`
	Offset          time.Duration `mapstructure:"offset"`
	AdvisoryLockKey int64         `mapstructure:"advisory_lock_key"`
	StartupDelay    time.Duration `mapstructure:"startup_delay"`
}

// AlertingConfig defines alert thresholds and routing.
type AlertingConfig struct {
	Enabled      bool    `mapstructure:"enabled"`
	ThresholdPct float64 `mapstructure:"threshold_pct"`
	LookbackDays int     `mapstructure:"lookback_days"`
	// RetentionDays prunes stored alerts older than this many days; 0 keeps all.
	RetentionDays int            `mapstructure:"retention_days"`
	Banks         []string       `mapstructure:"banks"`
	Channels      []string       `mapstructure:"channels"`
	Telegram      TelegramConfig `mapstructure:"telegram"`
}

// TelegramConfig describes the Telegram channel.
type TelegramConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	BotToken string `mapstructure:"bot_token"`
	ChatID   string `mapstructure:"chat_id"`
	APIBase  string `mapstructure:"api_base"`
}

// ViewConfig sets the default dashboard window.
type ViewConfig struct {
	WindowMonths int `mapstructure:"window_months"`
}

// ExportConfig sets chart export behaviour.
type ExportConfig struct {
	ChartWidth  int `mapstructure:"chart_width"`
	ChartHeight int `mapstructure:"chart_height"`
}

// ServerConfig configures the JSON API.
type ServerConfig struct {
	Addr         string        `mapstructure:"addr"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// Load builds configuration from file, environment, and defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("BANKWATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := readConfig(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, decodeHook()); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.applyBankDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func readConfig(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "bankwatch")
	v.SetDefault("app.environment", "development")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("generator.seed", 228)
	v.SetDefault("generator.days", 120)
	v.SetDefault("generator.end_date", "")
	v.SetDefault("generator.cache_size", 16)

	banks := make([]map[string]any, 0)
	for _, b := range generator.DefaultBanks() {
		banks = append(banks, map[string]any{
			"name":       b.Name,
			"base_yield": b.BaseYield,
			"base_fee":   b.BaseFee,
			"base_promo": b.BasePromo,
		})
	}
	v.SetDefault("banks", banks)

	walk := generator.DefaultOptions()
	v.SetDefault("walk.yield_sigma", walk.YieldSigma)
	v.SetDefault("walk.loan_spread", walk.LoanSpread)
	v.SetDefault("walk.loan_sigma", walk.LoanSigma)
	v.SetDefault("walk.fee_sigma", walk.FeeSigma)
	v.SetDefault("walk.fee_floor", walk.FeeFloor)
	v.SetDefault("walk.promo_sigma", walk.PromoSigma)

	v.SetDefault("source.kind", SourceSynthetic)
	v.SetDefault("source.feed.request_timeout", "10s")
	v.SetDefault("source.feed.user_agent", "bankwatch/1.0")

	v.SetDefault("scheduler.interval", "24h")
	v.SetDefault("scheduler.align_to_bucket", true)
	v.SetDefault("scheduler.advisory_lock_key", int64(0x62616e6b))
	v.SetDefault("scheduler.startup_delay", "0s")
	v.SetDefault("scheduler.offset", "0s")

	v.SetDefault("alerting.enabled", false)
	v.SetDefault("alerting.threshold_pct", 3.0)
	v.SetDefault("alerting.lookback_days", 1)
	v.SetDefault("alerting.retention_days", 0)
	v.SetDefault("alerting.channels", []string{"telegram"})
	v.SetDefault("alerting.telegram.enabled", false)
	v.SetDefault("alerting.telegram.api_base", "https://api.telegram.org")

	v.SetDefault("view.window_months", 1)

	v.SetDefault("export.chart_width", 1280)
	v.SetDefault("export.chart_height", 720)

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.read_timeout", "10s")
	v.SetDefault("server.write_timeout", "30s")

	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("database.migrations_path", "migrations")
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}

// applyBankDefaults fills zero base fee and promo values of configured banks.
func (c *Config) applyBankDefaults() {
	def := generator.DefaultBanks()[0]
	for i := range c.Banks {
		if c.Banks[i].BaseFee == 0 {
			c.Banks[i].BaseFee = def.BaseFee
		}
		if c.Banks[i].BasePromo == 0 {
			c.Banks[i].BasePromo = def.BasePromo
		}
	}
}

// Validate performs basic sanity checks on the configuration values.
func (c *Config) Validate() error {
	if c.Generator.Days < 1 {
		return fmt.Errorf("generator.days must be at least 1")
	}
	if c.Generator.EndDate != "" {
		if _, err := panel.ParseDay(c.Generator.EndDate); err != nil {
			return fmt.Errorf("generator.end_date: %w", err)
		}
	}
	if len(c.Banks) == 0 {
		return fmt.Errorf("banks must list at least one bank")
	}
	seen := make(map[string]struct{}, len(c.Banks))
	for _, b := range c.Banks {
		if strings.TrimSpace(b.Name) == "" {
			return fmt.Errorf("banks: name is required")
		}
		if _, dup := seen[b.Name]; dup {
			return fmt.Errorf("banks: duplicate bank %q", b.Name)
		}
		seen[b.Name] = struct{}{}
	}
	if c.Walk.FeeFloor < 0 {
		return fmt.Errorf("walk.fee_floor cannot be negative")
	}
	switch c.Source.Kind {
	case SourceSynthetic, SourceDatabase:
	case SourceFeed:
		if c.Source.Feed.BaseURL == "" {
			return fmt.Errorf("source.feed.base_url is required for the feed source")
		}
	default:
		return fmt.Errorf("source.kind %q is not one of synthetic, feed, database", c.Source.Kind)
	}
	if c.Source.Kind == SourceDatabase && c.Database.DSN == "" {
		return fmt.Errorf("database.dsn is required for the database source")
	}
	if c.Scheduler.Interval <= 0 {
		return fmt.Errorf("scheduler.interval must be greater than zero")
	}
	if c.Scheduler.Offset < 0 || c.Scheduler.Offset >= c.Scheduler.Interval {
		return fmt.Errorf("scheduler.offset must be within [0, scheduler.interval)")
	}
	if c.Alerting.ThresholdPct < 0 {
		return fmt.Errorf("alerting.threshold_pct cannot be negative")
	}
	if c.Alerting.LookbackDays < 1 {
		return fmt.Errorf("alerting.lookback_days must be at least 1")
	}
	if c.Alerting.RetentionDays < 0 {
		return fmt.Errorf("alerting.retention_days cannot be negative")
	}
	if c.Alerting.Telegram.Enabled {
		if c.Alerting.Telegram.BotToken == "" {
			return fmt.Errorf("alerting.telegram.bot_token is required")
		}
		if c.Alerting.Telegram.ChatID == "" {
			return fmt.Errorf("alerting.telegram.chat_id is required")
		}
	}
	if c.View.WindowMonths < 0 {
		return fmt.Errorf("view.window_months cannot be negative")
	}
	if c.Export.ChartWidth <= 0 || c.Export.ChartHeight <= 0 {
		return fmt.Errorf("export.chart_width and export.chart_height must be greater than zero")
	}
	return nil
}

// GeneratorOptions assembles generator options from the banks and walk sections.
func (c *Config) GeneratorOptions() generator.Options {
	return generator.Options{
		Banks:      c.Banks,
		YieldSigma: c.Walk.YieldSigma,
		LoanSpread: c.Walk.LoanSpread,
		LoanSigma:  c.Walk.LoanSigma,
		FeeSigma:   c.Walk.FeeSigma,
		FeeFloor:   c.Walk.FeeFloor,
		PromoSigma: c.Walk.PromoSigma,
	}
}

// BankNames lists configured bank names in order.
func (c *Config) BankNames() []string {
	names := make([]string, len(c.Banks))
	for i, b := range c.Banks {
		names[i] = b.Name
	}
	return names
}

// AlertBanks returns the banks the monitor scans; all configured banks when
// alerting.banks is empty.
func (c *Config) AlertBanks() []string {
	if len(c.Alerting.Banks) > 0 {
		return c.Alerting.Banks
	}
	return c.BankNames()
}

// ResolveEndDate returns generator.end_date, or today when it is unset.
func (c *Config) ResolveEndDate() time.Time {
	if c.Generator.EndDate != "" {
		if day, err := panel.ParseDay(c.Generator.EndDate); err == nil {
			return day
		}
	}
	return panel.Today()
}

// ResolveThreshold returns the CLI override when non-negative, else the
// configured threshold.
func (c *Config) ResolveThreshold(override float64) float64 {
	if override >= 0 {
		return override
	}
	return c.Alerting.ThresholdPct
}
