package cycles

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"storage-cycles/internal/analysis"
	"storage-cycles/internal/backtest"
	"storage-cycles/internal/limit"
	"storage-cycles/internal/model"
	"storage-cycles/internal/profit"
	"storage-cycles/internal/strategy"
	"storage-cycles/internal/window"
)

var (
	ErrEmptySeries    = errors.New("load series is empty")
	ErrInvalidDate    = errors.New("date must be YYYY-MM-DD")
	ErrInvalidStorage = errors.New("invalid storage config")
)

// Input is everything a cycles run needs. Storage is completed with
// defaults before validation.
type Input struct {
	Series  model.LoadSeries
	Storage model.StorageConfig
	Table   model.StrategyTable
	Rules   []model.DateRule
	Prices  model.MonthlyPrices
}

type Day struct {
	Date       string      `json:"date"`
	Cycles     float64     `json:"cycles"`
	IsValid    bool        `json:"is_valid"`
	PointCount int         `json:"point_count"`
	Profit     *profit.Set `json:"profit"`
}

type Month struct {
	YearMonth string      `json:"year_month"`
	Cycles    float64     `json:"cycles"`
	ValidDays int         `json:"valid_days"`
	Profit    *profit.Set `json:"profit"`
	// EquivalentProfit is the main profit scaled from the valid days to the
	// whole calendar month.
	EquivalentProfit float64 `json:"equivalent_profit"`
}

type Year struct {
	Year      int         `json:"year"`
	Cycles    float64     `json:"cycles"`
	ValidDays int         `json:"valid_days"`
	Profit    *profit.Set `json:"profit"`
}

// QC collects the data-quality signals of a run.
type QC struct {
	Notes              []string             `json:"notes"`
	LimitMode          model.MeteringMode   `json:"limit_mode"`
	TransformerLimitKW *float64             `json:"transformer_limit_kw"`
	MonthlyDemandMax   []limit.MonthMax     `json:"monthly_demand_max"`
	MergedSegments     int                  `json:"merged_segments"`
	MissingPrices      int                  `json:"missing_prices"`
	MissingPriceCells  int                  `json:"missing_price_cells"`
	BadPriceMonths     []int                `json:"bad_price_months,omitempty"`
	LoadProfile        analysis.LoadProfile `json:"load_profile"`
}

// Result is the outcome of Run. The fields hidden from JSON are the intermediate
// tables kept for exporters and the ledger endpoint.
type Result struct {
	RunID              string                 `json:"run_id"`
	Formula            model.Formula          `json:"energy_formula"`
	Year               Year                   `json:"year"`
	Months             []Month                `json:"months"`
	Days               []Day                  `json:"days"`
	QC                 QC                     `json:"qc"`
	WindowMonthSummary []analysis.WindowMonth `json:"window_month_summary"`
	TipSummary         *analysis.TipSummary   `json:"tip_discharge_summary"`

	Storage    model.StorageConfig `json:"-"`
	Records    []backtest.Record   `json:"-"`
	WindowRows []window.DebugRow   `json:"-"`
	Trace      []window.RunTrace   `json:"-"`
	Daily      strategy.DailyOps   `json:"-"`
	Masks      window.Masks        `json:"-"`
	Profit     profit.Summary      `json:"-"`
}

type stages struct {
	cfg        model.StorageConfig
	limits     limit.Info
	daily      strategy.DailyOps
	prices     []strategy.PricePoint
	missing    int
	masks      window.Masks
	merged     int
	trace      []window.RunTrace
	days       []window.DayCycles
	windowRows []window.DebugRow
}

func prepare(ctx context.Context, in Input) (*stages, error) {
	if len(in.Series) == 0 {
		return nil, ErrEmptySeries
	}
	cfg := in.Storage.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidStorage, err)
	}
	logger := zerolog.Ctx(ctx)

	s := &stages{cfg: cfg}
	s.limits = limit.ForStorage(in.Series, cfg)
	logger.Debug().
		Str("limit_mode", string(s.limits.Mode)).
		Int("months", len(s.limits.MonthlyDemandMax)).
		Msg("limit resolved")

	s.daily = strategy.BuildDailyOps(in.Series, in.Table, in.Rules)
	s.prices, s.missing = strategy.PriceSeries(in.Series, s.daily, in.Prices)
	s.masks, s.merged, s.trace = window.Extract(s.daily, cfg.MergeThresholdMinutes, true)
	s.days, s.windowRows = window.Average(in.Series, s.masks, cfg, s.limits)
	logger.Debug().
		Int("dates", len(s.daily)).
		Int("missing_prices", s.missing).
		Int("merged_segments", s.merged).
		Int("window_rows", len(s.windowRows)).
		Msg("windows prepared")

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *stages) simulate(series model.LoadSeries, filterDate string) (*backtest.Result, error) {
	return backtest.New().Run(backtest.Input{
		Series:     series,
		Daily:      s.daily,
		Prices:     s.prices,
		Limits:     s.limits,
		Storage:    s.cfg,
		WindowRows: s.windowRows,
		FilterDate: filterDate,
	})
}

// Run computes cycles, the 15-minute trajectory, profit and the summaries.
// It fails only for an empty series or an invalid storage config; degraded
// inputs are reported through QC notes.
func Run(ctx context.Context, in Input) (*Result, error) {
	s, err := prepare(ctx, in)
	if err != nil {
		return nil, err
	}
	logger := zerolog.Ctx(ctx)
	cfg := s.cfg

	sim, err := s.simulate(in.Series, "")
	if err != nil {
		return nil, fmt.Errorf("simulate: %w", err)
	}
	sum := profit.Aggregate(sim.Records, cfg, cfg.DischargeStrategy)

	res := &Result{
		RunID:      uuid.NewString(),
		Formula:    cfg.EnergyFormula,
		Storage:    cfg,
		Records:    sim.Records,
		WindowRows: s.windowRows,
		Trace:      s.trace,
		Daily:      s.daily,
		Masks:      s.masks,
		Profit:     sum,
	}

	monthCycles := map[string]float64{}
	monthValid := map[string]int{}
	years := map[int]bool{}
	var monthOrder []string
	for _, d := range s.days {
		day := Day{Date: d.Date, Cycles: d.Cycles, IsValid: d.IsValid, PointCount: d.PointCount}
		if set, ok := sum.Days[d.Date]; ok {
			day.Profit = &set
		}
		res.Days = append(res.Days, day)

		ym := d.Date[:7]
		if _, ok := monthCycles[ym]; !ok {
			monthOrder = append(monthOrder, ym)
		}
		monthCycles[ym] += d.Cycles
		if d.IsValid {
			monthValid[ym]++
			res.Year.ValidDays++
		}
		if y, err := strconv.Atoi(d.Date[:4]); err == nil {
			years[y] = true
		}
	}

	for _, ym := range monthOrder {
		m := Month{YearMonth: ym, Cycles: monthCycles[ym], ValidDays: monthValid[ym]}
		if set, ok := sum.Months[ym]; ok {
			m.Profit = &set
			m.EquivalentProfit = analysis.MonthlyEquivalentProfit(set.Main.Profit, m.ValidDays, ym)
		}
		res.Months = append(res.Months, m)
		res.Year.Cycles += m.Cycles
	}
	if len(years) == 1 {
		for y := range years {
			res.Year.Year = y
		}
	}
	if len(sum.Days) > 0 {
		year := sum.Year
		res.Year.Profit = &year
	}

	missingCells, badMonths := strategy.CountMissingPrices(in.Prices)
	res.QC = QC{
		Notes:              append([]string{}, s.limits.Notes...),
		LimitMode:          s.limits.Mode,
		TransformerLimitKW: s.limits.TransformerLimitKW,
		MonthlyDemandMax:   s.limits.MonthlyDemandMax,
		MergedSegments:     s.merged,
		MissingPrices:      s.missing,
		MissingPriceCells:  missingCells,
		BadPriceMonths:     badMonths,
		LoadProfile:        analysis.ComputeLoadProfile(in.Series),
	}
	if s.missing > 0 {
		res.QC.Notes = append(res.QC.Notes, fmt.Sprintf("TOU price missing for %d 15-minute points; they settle at 0", s.missing))
	}

	res.WindowMonthSummary = analysis.WindowMonthSummary(s.windowRows, cfg.EnergyFormula)
	res.TipSummary = analysis.TipDischarge(sim.Records, s.masks, cfg.CapacityKWh)

	logger.Info().
		Str("run_id", res.RunID).
		Int("days", len(res.Days)).
		Int("months", len(res.Months)).
		Float64("year_cycles", res.Year.Cycles).
		Float64("year_profit", sum.Year.Main.Profit).
		Msg("cycles run done")
	return res, nil
}

// Curves simulates a single date with the same windows and targets as Run
// and compares the load with and without storage.
func Curves(ctx context.Context, in Input, date string) (*analysis.Curves, error) {
	if _, err := time.Parse(model.DateLayout, date); err != nil {
		return nil, ErrInvalidDate
	}
	s, err := prepare(ctx, in)
	if err != nil {
		return nil, err
	}
	sim, err := s.simulate(in.Series, date)
	if err != nil {
		if errors.Is(err, backtest.ErrNoData) {
			return nil, fmt.Errorf("no data for date=%s: %w", date, err)
		}
		return nil, fmt.Errorf("simulate: %w", err)
	}
	c := analysis.BuildCurves(date, sim.Records, s.cfg)
	zerolog.Ctx(ctx).Debug().
		Str("date", date).
		Int("points", len(sim.Records)).
		Float64("max_demand_reduction_kw", c.Summary.MaxDemandReductionKW).
		Msg("curves built")
	return &c, nil
}
