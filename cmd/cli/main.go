package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"

	"storage-cycles/internal/analysis"
	"storage-cycles/internal/backtest"
	"storage-cycles/internal/config"
	"storage-cycles/internal/cycles"
	"storage-cycles/internal/data"
	"storage-cycles/internal/economics"
	"storage-cycles/internal/logging"
	"storage-cycles/internal/model"
	"storage-cycles/internal/report"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	switch os.Args[1] {
	case "cycles":
		cmdCycles(os.Args[2:])
	case "curves":
		cmdCurves(os.Args[2:])
	case "economics":
		cmdEconomics(os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Println("usage:")
	fmt.Println("  cli cycles    --config examples/scenario.yaml --data load.csv [--out outputs] [--mode debug] [--ledger results/step15.csv] [--top 5]")
	fmt.Println("  cli curves    --config examples/scenario.yaml --data load.csv --date 2024-08-01")
	fmt.Println("  cli economics --config examples/scenario.yaml [--data load.csv] [--out outputs]")
	fmt.Println("")
	fmt.Println("notes:")
	fmt.Println("  - --data accepts a CSV (timestamp or date+time columns) or a JSON point list")
	fmt.Println("  - economics takes first-year revenue and energy from a cycles run when --data is given")
}

type common struct {
	cfgPath  string
	dataPath string
	logLevel string
}

func (c *common) register(fs *pflag.FlagSet) {
	fs.StringVarP(&c.cfgPath, "config", "c", "", "Path to scenario YAML")
	fs.StringVarP(&c.dataPath, "data", "d", "", "Path to load data (.csv or .json)")
	fs.StringVar(&c.logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")
}

func (c *common) setup() (context.Context, *config.Config) {
	logger := logging.Setup(c.logLevel, true)
	ctx := logger.WithContext(context.Background())

	if c.cfgPath == "" {
		fmt.Println("--config is required")
		os.Exit(2)
	}
	cfg, err := config.Load(c.cfgPath)
	if err != nil {
		log.Fatal().Err(err).Str("config", c.cfgPath).Msg("failed to load scenario")
	}
	return ctx, cfg
}

func (c *common) input(cfg *config.Config) cycles.Input {
	if c.dataPath == "" {
		fmt.Println("--data is required")
		os.Exit(2)
	}
	loc, err := cfg.Location()
	if err != nil {
		log.Fatal().Err(err).Msg("bad timezone")
	}
	series, err := loadSeries(c.dataPath, loc)
	if err != nil {
		log.Fatal().Err(err).Str("data", c.dataPath).Msg("failed to load data")
	}
	table, err := cfg.Table()
	if err != nil {
		log.Fatal().Err(err).Msg("bad strategy")
	}
	return cycles.Input{
		Series:  series,
		Storage: cfg.Storage,
		Table:   table,
		Rules:   cfg.Rules(),
		Prices:  cfg.MonthlyPrices(),
	}
}

func cmdCycles(args []string) {
	fs := pflag.NewFlagSet("cycles", pflag.ExitOnError)
	var c common
	c.register(fs)
	outDir := fs.StringP("out", "o", "", "Optional: directory for the zipped CSV report")
	mode := fs.String("mode", "debug", "Report mode: business or debug")
	ledgerPath := fs.String("ledger", "", "Optional: path to write the 15-minute ledger CSV")
	top := fs.Int("top", 5, "Number of best days to list (0 = none)")
	_ = fs.Parse(args)

	ctx, cfg := c.setup()
	res, err := cycles.Run(ctx, c.input(cfg))
	if err != nil {
		log.Fatal().Err(err).Msg("cycles run failed")
	}

	fmt.Printf("Run %s (%s formula)\n", res.RunID, res.Formula)
	fmt.Printf("%-8s %8s %6s %12s %12s\n", "month", "cycles", "days", "profit", "equiv.")
	for _, m := range res.Months {
		p := 0.0
		if m.Profit != nil {
			p = m.Profit.Main.Profit
		}
		fmt.Printf("%-8s %8.3f %6d %12.2f %12.2f\n", m.YearMonth, m.Cycles, m.ValidDays, p, m.EquivalentProfit)
	}
	yearProfit := 0.0
	if res.Year.Profit != nil {
		yearProfit = res.Year.Profit.Main.Profit
	}
	fmt.Printf("Year: cycles=%.3f valid_days=%d profit=%.2f\n", res.Year.Cycles, res.Year.ValidDays, yearProfit)
	for _, n := range res.QC.Notes {
		fmt.Printf("note: %s\n", n)
	}

	if *top > 0 {
		ranked := analysis.RankDaysByProfit(res.Profit)
		fmt.Printf("\n%-4s %-10s %10s %10s %10s\n", "rank", "date", "profit", "charge", "discharge")
		for i, d := range ranked {
			if i >= *top {
				break
			}
			fmt.Printf("%-4d %-10s %10.2f %10.1f %10.1f\n", i+1, d.Date, d.Entry.Profit, d.Entry.ChargeKWh, d.Entry.DischargeKWh)
		}
	}

	if *ledgerPath != "" {
		if err := os.MkdirAll(filepath.Dir(*ledgerPath), 0o755); err != nil {
			log.Fatal().Err(err).Msg("failed to create ledger dir")
		}
		if err := backtest.WriteLedgerCSV(*ledgerPath, res.Records, res.Formula); err != nil {
			log.Fatal().Err(err).Msg("failed to write ledger")
		}
		fmt.Printf("Wrote %d rows to %s\n", len(res.Records), *ledgerPath)
	}
	if *outDir != "" {
		path, err := report.WriteCyclesZip(*outDir, res, report.ParseMode(*mode))
		if err != nil {
			log.Fatal().Err(err).Msg("failed to write report")
		}
		fmt.Printf("Wrote report %s\n", path)
	}
}

func cmdCurves(args []string) {
	fs := pflag.NewFlagSet("curves", pflag.ExitOnError)
	var c common
	c.register(fs)
	date := fs.String("date", "", "Date to simulate (YYYY-MM-DD)")
	_ = fs.Parse(args)

	ctx, cfg := c.setup()
	curves, err := cycles.Curves(ctx, c.input(cfg), *date)
	if err != nil {
		log.Fatal().Err(err).Msg("curves failed")
	}

	s := curves.Summary
	fmt.Printf("%s max demand %.1f -> %.1f kW (-%.1f kW, %.1f%%)\n",
		curves.Date, s.MaxDemandOriginalKW, s.MaxDemandNewKW, s.MaxDemandReductionKW, s.MaxDemandReductionRatio*100)
	for i, p := range curves.PointsOriginal {
		fmt.Printf("%s %9.2f %9.2f\n", p.Timestamp.Format("15:04"), p.LoadKW, curves.PointsWithStorage[i].LoadKW)
	}
	if s.ProfitDayMain != nil {
		fmt.Printf("profit=%.2f\n", s.ProfitDayMain.Profit)
	}
}

func cmdEconomics(args []string) {
	fs := pflag.NewFlagSet("economics", pflag.ExitOnError)
	var c common
	c.register(fs)
	outDir := fs.StringP("out", "o", "", "Optional: directory for the zipped cash-flow report")
	_ = fs.Parse(args)

	ctx, cfg := c.setup()
	if cfg.Economics == nil {
		log.Fatal().Msg("scenario has no economics section")
	}
	in := cfg.Economics.ToInput()

	if c.dataPath != "" {
		res, err := cycles.Run(ctx, c.input(cfg))
		if err != nil {
			log.Fatal().Err(err).Msg("cycles run failed")
		}
		if res.Year.Profit != nil {
			if in.FirstYearRevenue == 0 {
				in.FirstYearRevenue = res.Year.Profit.Main.Profit
			}
			if in.FirstYearEnergyKWh == nil {
				e := res.Year.Profit.Main.DischargeKWh
				in.FirstYearEnergyKWh = &e
			}
		}
	}

	res, err := economics.Compute(in)
	if err != nil {
		log.Fatal().Err(err).Msg("economics failed")
	}

	fmt.Printf("CAPEX=%.2f  IRR=%s  payback=%s  final cumulative=%.2f\n",
		res.CapexTotal, optPercent(res.IRR), optYears(res.StaticPaybackYears), res.FinalCumulativeNet)
	fmt.Printf("%-5s %12s %10s %10s %12s %14s\n", "year", "revenue", "o&m", "replace", "net", "cumulative")
	for _, y := range res.YearlyCashflows {
		fmt.Printf("%-5d %12.2f %10.2f %10.2f %12.2f %14.2f\n",
			y.YearIndex, y.YearRevenue, y.AnnualOMCost, y.ReplacementCost, y.NetCashflow, y.CumulativeNet)
	}
	m := res.StaticMetrics
	fmt.Printf("LCOE=%.4f revenue/kWh=%.4f ratio=%.2f (threshold %.1f) -> %s\n",
		m.StaticLCOE, m.RevenuePerKWh, m.LCOERatio, m.PassThreshold, m.Screening)

	if *outDir != "" {
		var energy []float64
		if in.FirstYearEnergyKWh != nil {
			energy = economics.YearlyEnergy(*in.FirstYearEnergyKWh, in.ProjectYears, in.FirstYearDecayRate, in.SubsequentDecayRate, in.ReplacementYear)
		}
		path, err := report.WriteEconomicsZip(*outDir, res, cfg.Economics.UserSharePercent, energy)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to write report")
		}
		fmt.Printf("Wrote report %s\n", path)
	}
}

func loadSeries(path string, loc *time.Location) (model.LoadSeries, error) {
	if strings.EqualFold(filepath.Ext(path), ".csv") {
		return data.LoadCSVFile(path, loc)
	}
	return data.LoadPointsJSON(path, loc)
}

func optPercent(v *float64) string {
	if v == nil {
		return "n/a"
	}
	return fmt.Sprintf("%.2f%%", *v*100)
}

func optYears(v *float64) string {
	if v == nil {
		return "beyond project life"
	}
	return fmt.Sprintf("%.2f years", *v)
}
