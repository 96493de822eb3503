package generator

import (
	"fmt"
	"hash/fnv"
	"math"
	"math/rand/v2"
	"strings"
	"time"

	"bankwatch/internal/panel"
)

// BankProfile holds the starting point of a bank's random walks.
type BankProfile struct {
	Name      string  `mapstructure:"name"`
	BaseYield float64 `mapstructure:"base_yield"`
	BaseFee   float64 `mapstructure:"base_fee"`
	BasePromo float64 `mapstructure:"base_promo"`
}

// Options parameterise the synthetic panel.
type Options struct {
	Banks      []BankProfile
	YieldSigma float64
	LoanSpread float64
	LoanSigma  float64
	FeeSigma   float64
	FeeFloor   float64
	PromoSigma float64
}

// DefaultBanks is the competitor set shown by the dashboard.
func DefaultBanks() []BankProfile {
	return []BankProfile{
		{Name: "Galicia", BaseYield: 74, BaseFee: 18000, BasePromo: 50},
		{Name: "Nación", BaseYield: 72, BaseFee: 18000, BasePromo: 50},
		{Name: "Santander", BaseYield: 73.5, BaseFee: 18000, BasePromo: 50},
		{Name: "BBVA", BaseYield: 73, BaseFee: 18000, BasePromo: 50},
	}
}

// DefaultOptions returns the default bank set and walk parameters.
func DefaultOptions() Options {
	return Options{
		Banks:      DefaultBanks(),
		YieldSigma: 0.06,
		LoanSpread: 20,
		LoanSigma:  0.05,
		FeeSigma:   40,
		FeeFloor:   12000,
		PromoSigma: 0.4,
	}
}

// Generator produces deterministic synthetic panels.
type Generator struct {
	opts Options
}

// New builds a generator. Options are validated on every Generate call.
func New(opts Options) *Generator {
	opts.Banks = append([]BankProfile(nil), opts.Banks...)
	return &Generator{opts: opts}
}

// Generate returns dayCount daily records per bank for the range ending at
// endDate (inclusive), grouped by bank in configured order and ascending by
// date. Identical arguments always yield identical output.
func (g *Generator) Generate(seed int64, dayCount int, endDate time.Time) ([]panel.MetricRecord, error) {
	if dayCount < 1 {
		return nil, fmt.Errorf("%w: day count must be at least 1, got %d", panel.ErrInvalidArgument, dayCount)
	}
	if err := g.validateBanks(); err != nil {
		return nil, err
	}

	end := panel.Day(endDate)
	start := end.AddDate(0, 0, -(dayCount - 1))

	records := make([]panel.MetricRecord, 0, dayCount*len(g.opts.Banks))
	for _, bank := range g.opts.Banks {
		records = append(records, g.bankSeries(seed, bank, start, dayCount)...)
	}
	return records, nil
}

func (g *Generator) validateBanks() error {
	if len(g.opts.Banks) == 0 {
		return fmt.Errorf("%w: bank set is empty", panel.ErrInvalidArgument)
	}
	seen := make(map[string]struct{}, len(g.opts.Banks))
	for _, bank := range g.opts.Banks {
		if strings.TrimSpace(bank.Name) == "" {
			return fmt.Errorf("%w: bank name is empty", panel.ErrInvalidArgument)
		}
		if _, dup := seen[bank.Name]; dup {
			return fmt.Errorf("%w: duplicate bank %q", panel.ErrInvalidArgument, bank.Name)
		}
		seen[bank.Name] = struct{}{}
	}
	return nil
}

func (g *Generator) bankSeries(seed int64, bank BankProfile, start time.Time, days int) []panel.MetricRecord {
	yieldWalk := walk(newSource(seed, bank.Name, panel.SavingsYield), bank.BaseYield, g.opts.YieldSigma, days)
	loanNoise := newSource(seed, bank.Name, panel.LoanRate)
	feeWalk := walk(newSource(seed, bank.Name, panel.MaintenanceFee), bank.BaseFee, g.opts.FeeSigma, days)
	promoWalk := walk(newSource(seed, bank.Name, panel.PromoScore), bank.BasePromo, g.opts.PromoSigma, days)

	out := make([]panel.MetricRecord, days)
	for i := 0; i < days; i++ {
		loan := yieldWalk[i] + g.opts.LoanSpread + loanNoise.NormFloat64()*g.opts.LoanSigma
		out[i] = panel.MetricRecord{
			Date:           start.AddDate(0, 0, i),
			Bank:           bank.Name,
			SavingsYield:   panel.Round(yieldWalk[i], 2),
			LoanRate:       panel.Round(loan, 2),
			MaintenanceFee: panel.Round(math.Max(feeWalk[i], g.opts.FeeFloor), 0),
			PromoScore:     panel.Round(clamp(promoWalk[i], 0, 100), 1),
		}
	}
	return out
}

// walk returns base plus the running sum of n normal increments.
func walk(src *rand.Rand, base, sigma float64, n int) []float64 {
	out := make([]float64, n)
	level := base
	for i := range out {
		level += src.NormFloat64() * sigma
		out[i] = level
	}
	return out
}

// newSource gives every (seed, bank, metric) its own PCG stream so that one
// bank's series does not depend on which other banks are configured.
func newSource(seed int64, bank string, m panel.Metric) *rand.Rand {
	h := fnv.New64a()
	_, _ = h.Write([]byte(bank))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte(m))
	return rand.New(rand.NewPCG(uint64(seed), h.Sum64()))
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(math.Max(v, lo), hi)
}
