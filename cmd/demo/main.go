package main

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"os"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"

	"storage-cycles/internal/backtest"
	"storage-cycles/internal/config"
	"storage-cycles/internal/cycles"
	"storage-cycles/internal/logging"
	"storage-cycles/internal/model"
	"storage-cycles/internal/report"
	"storage-cycles/internal/strategy"
)

// Demo:
// - Synthesize a year of 15-minute factory load
// - Run a one-charge/one-discharge TOU schedule over it
// - Print the monthly cycles and profit, optionally writing the reports
func main() {
	year := pflag.Int("year", 2024, "Calendar year to synthesize")
	days := pflag.Int("days", 365, "Number of days to simulate")
	capacity := pflag.Float64("capacity", 1000, "Storage capacity in kWh")
	cfgPath := pflag.String("config", "", "Optional scenario YAML; its storage and strategy replace the defaults")
	outDir := pflag.String("out", "", "Optional directory for the zipped debug report")
	ledger := pflag.String("ledger", "", "Optional path to write the 15-minute ledger CSV")
	seed := pflag.Int64("seed", 1, "Random seed for the synthetic load")
	pflag.Parse()

	logger := logging.Setup("info", true)
	ctx := logger.WithContext(context.Background())

	in := cycles.Input{
		Series:  synthLoad(*year, *days, *seed),
		Storage: model.StorageConfig{CapacityKWh: *capacity, Efficiency: 0.92, DepthOfDischarge: 0.9},
		Prices:  demoPrices(),
	}

	// Defaults (can be overridden via --config).
	row, err := strategy.ExpandWindows(strategy.ScheduleParams{
		ChargeStart:    "00:00",
		ChargeEnd:      "07:00",
		DischargeStart: "18:00",
		DischargeEnd:   "22:00",
		Tiers: []strategy.TierWindow{
			{Tier: model.TierValley, Start: "00:00", End: "08:00"},
			{Tier: model.TierPeak, Start: "08:00", End: "11:00"},
			{Tier: model.TierPeak, Start: "18:00", End: "22:00"},
			{Tier: model.TierTip, Start: "19:00", End: "21:00"},
		},
	})
	if err != nil {
		log.Fatal().Err(err).Msg("bad demo schedule")
	}
	in.Table = make(model.StrategyTable, 12)
	for m := range in.Table {
		in.Table[m] = row
	}

	if *cfgPath != "" {
		cfg, err := config.Load(*cfgPath)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to load scenario")
		}
		if in.Table, err = cfg.Table(); err != nil {
			log.Fatal().Err(err).Msg("bad strategy")
		}
		in.Storage = cfg.Storage
		in.Rules = cfg.Rules()
		if len(cfg.Prices) > 0 {
			in.Prices = cfg.MonthlyPrices()
		}
	}

	res, err := cycles.Run(ctx, in)
	if err != nil {
		log.Fatal().Err(err).Msg("cycles run failed")
	}

	fmt.Printf("Simulated %d points, %d days (capacity %.0f kWh)\n", len(res.Records), len(res.Days), res.Storage.CapacityKWh)
	for _, m := range res.Months {
		p := 0.0
		if m.Profit != nil {
			p = m.Profit.Main.Profit
		}
		fmt.Printf("%s cycles=%6.2f valid_days=%2d profit=%10.2f\n", m.YearMonth, m.Cycles, m.ValidDays, p)
	}
	if res.TipSummary != nil {
		fmt.Printf("tip coverage ratio=%.2f (%s)\n", res.TipSummary.Ratio, res.TipSummary.Note)
	}
	lp := res.QC.LoadProfile
	fmt.Printf("load min/mean/max=%.1f/%.1f/%.1f kW load factor=%.2f\n", lp.MinKW, lp.MeanKW, lp.MaxKW, lp.LoadFactor)

	if *ledger != "" {
		if err := backtest.WriteLedgerCSV(*ledger, res.Records, res.Formula); err != nil {
			log.Fatal().Err(err).Msg("failed to write ledger")
		}
		fmt.Printf("\nWrote CSV: %s\n", *ledger)
	}
	if *outDir != "" {
		path, err := report.WriteCyclesZip(*outDir, res, report.ModeDebug)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to write report")
		}
		fmt.Printf("Wrote report: %s\n", path)
	}

	yearProfit := 0.0
	if res.Year.Profit != nil {
		yearProfit = res.Year.Profit.Main.Profit
	}
	fmt.Printf("\nDone. Year cycles=%.2f profit=%.2f\n", res.Year.Cycles, yearProfit)
	if len(res.QC.Notes) > 0 {
		fmt.Fprintf(os.Stderr, "%d QC notes, see the debug report\n", len(res.QC.Notes))
	}
}

// synthLoad is a factory-like profile: a night base, a daytime shift
// plateau, lighter weekends, a summer cooling bump and some noise.
func synthLoad(year, days int, seed int64) model.LoadSeries {
	rng := rand.New(rand.NewSource(seed))
	start := time.Date(year, 1, 1, 0, 0, 0, 0, time.Local)
	series := make(model.LoadSeries, 0, days*96)
	for i := 0; i < days*96; i++ {
		ts := start.Add(time.Duration(i) * 15 * time.Minute)
		h := float64(ts.Hour()) + float64(ts.Minute())/60

		load := 300.0
		if h >= 8 && h < 20 {
			load += 500 * math.Sin(math.Pi*(h-8)/12)
		}
		if wd := ts.Weekday(); wd == time.Saturday || wd == time.Sunday {
			load *= 0.6
		}
		if m := ts.Month(); m >= time.June && m <= time.September {
			load *= 1.2
		}
		load += rng.NormFloat64() * 20
		series = append(series, model.LoadPoint{Timestamp: ts, LoadKW: math.Max(load, 0)})
	}
	return series
}

func demoPrices() model.MonthlyPrices {
	prices := make(model.MonthlyPrices, 12)
	for m := range prices {
		tip, peak, flat, valley := 1.35, 1.05, 0.65, 0.28
		if m >= 5 && m <= 8 {
			tip *= 1.2
			peak *= 1.1
		}
		prices[m] = map[model.Tier]*float64{
			model.TierTip:    &tip,
			model.TierPeak:   &peak,
			model.TierFlat:   &flat,
			model.TierValley: &valley,
		}
	}
	return prices
}
