package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"storage-cycles/internal/api/models"
	"storage-cycles/internal/backtest"
	"storage-cycles/internal/config"
	"storage-cycles/internal/cycles"
	"storage-cycles/internal/data"
	"storage-cycles/internal/report"
)

// CyclesHandler handles cycle runs, curves and ledger retrieval
type CyclesHandler struct {
	cache     *data.ResultCache[*cycles.Result]
	presets   *StorageHandler
	exportDir string
}

// NewCyclesHandler creates a new cycles handler. Runs are kept in cache so
// that the ledger can be fetched afterwards.
func NewCyclesHandler(cache *data.ResultCache[*cycles.Result], presets *StorageHandler, exportDir string) *CyclesHandler {
	return &CyclesHandler{cache: cache, presets: presets, exportDir: exportDir}
}

// RunCycles handles POST /api/v1/storage/cycles
func (h *CyclesHandler) RunCycles(c *gin.Context) {
	var req models.CyclesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", err)
		return
	}

	in, code, err := h.buildInput(req.Payload)
	if err != nil {
		respondError(c, http.StatusBadRequest, code, err)
		return
	}

	ctx := c.Request.Context()
	res, err := cycles.Run(ctx, in)
	if err != nil {
		status, code := runErrorStatus(err)
		respondError(c, status, code, err)
		return
	}
	h.cache.Set(res.RunID, res)

	resp := models.CyclesResponse{Result: res}
	if req.ExportExcel {
		path, err := report.WriteCyclesZip(h.exportDir, res, report.ParseMode(req.ExportMode))
		if err != nil {
			respondError(c, http.StatusInternalServerError, "EXPORT_ERROR", err)
			return
		}
		// Clients prefix the export mount themselves.
		resp.ExcelPath = filepath.Base(path)
	}

	zerolog.Ctx(ctx).Info().
		Str("run_id", res.RunID).
		Int("points", len(in.Series)).
		Bool("export", req.ExportExcel).
		Msg("cycles computed")
	c.JSON(http.StatusOK, resp)
}

// RunCurves handles POST /api/v1/storage/cycles/curves
func (h *CyclesHandler) RunCurves(c *gin.Context) {
	var req models.CurvesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", err)
		return
	}

	in, code, err := h.buildInput(req.Payload)
	if err != nil {
		respondError(c, http.StatusBadRequest, code, err)
		return
	}

	curves, err := cycles.Curves(c.Request.Context(), in, req.Date)
	if err != nil {
		status, code := runErrorStatus(err)
		respondError(c, status, code, err)
		return
	}
	c.JSON(http.StatusOK, curves)
}

// GetLedger handles GET /api/v1/storage/cycles/:id/ledger
func (h *CyclesHandler) GetLedger(c *gin.Context) {
	id := c.Param("id")
	var q models.LedgerQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", err)
		return
	}

	res, ok := h.cache.Get(id)
	if !ok {
		c.JSON(http.StatusNotFound, models.ErrorResponse{
			Error: models.ErrorDetail{
				Code:    "NO_DATA",
				Message: "run not found or expired",
				Details: map[string]interface{}{"run_id": id},
			},
		})
		return
	}

	records := res.Records
	if q.Date != "" {
		records = make([]backtest.Record, 0, 96)
		for _, r := range res.Records {
			if r.Date == q.Date {
				records = append(records, r)
			}
		}
	}
	total := len(records)
	if q.Limit > 0 && q.Limit < len(records) {
		records = records[:q.Limit]
	}

	if q.Format == "csv" {
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=ledger_%s.csv", id))
		c.Header("Content-Type", "text/csv; charset=utf-8")
		c.Status(http.StatusOK)
		if err := backtest.WriteLedger(c.Writer, records, res.Formula); err != nil {
			_ = c.Error(err)
		}
		return
	}

	c.JSON(http.StatusOK, models.LedgerResponse{
		RunID:   res.RunID,
		Formula: res.Formula,
		Total:   total,
		Records: records,
	})
}

// buildInput turns a request payload into a pipeline input. The returned
// code names the error class for the response.
func (h *CyclesHandler) buildInput(p models.CyclesPayload) (cycles.Input, string, error) {
	scenario := config.Config{
		Storage: p.Storage,
		Strategy: config.StrategyConfig{
			Monthly:   p.StrategySource.MonthlySchedule,
			DateRules: p.StrategySource.DateRules,
		},
		Prices:   p.MonthlyTouPrices,
		Timezone: p.Timezone,
	}
	if p.StoragePreset != "" {
		preset, err := h.presets.Resolve(p.StoragePreset)
		if err != nil {
			return cycles.Input{}, "INVALID_CONFIG", err
		}
		scenario.Storage = config.MergeStorage(preset.Storage, p.Storage)
	}

	loc, err := scenario.Location()
	if err != nil {
		return cycles.Input{}, "INVALID_PAYLOAD", err
	}
	table, err := scenario.Table()
	if err != nil {
		return cycles.Input{}, "INVALID_PAYLOAD", err
	}
	series, err := data.PointsSeries(p.Points, loc)
	if err != nil {
		return cycles.Input{}, "INVALID_PAYLOAD", err
	}

	return cycles.Input{
		Series:  series,
		Storage: scenario.Storage,
		Table:   table,
		Rules:   scenario.Rules(),
		Prices:  scenario.MonthlyPrices(),
	}, "", nil
}

func runErrorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, cycles.ErrEmptySeries):
		return http.StatusBadRequest, "INVALID_PAYLOAD"
	case errors.Is(err, cycles.ErrInvalidStorage):
		return http.StatusBadRequest, "INVALID_CONFIG"
	case errors.Is(err, cycles.ErrInvalidDate):
		return http.StatusBadRequest, "INVALID_REQUEST"
	case errors.Is(err, backtest.ErrNoData):
		return http.StatusNotFound, "NO_DATA"
	default:
		return http.StatusInternalServerError, "INTERNAL_ERROR"
	}
}

func respondError(c *gin.Context, status int, code string, err error) {
	ev := zerolog.Ctx(c.Request.Context()).Warn()
	if status >= http.StatusInternalServerError {
		ev = zerolog.Ctx(c.Request.Context()).Error()
	}
	ev.Err(err).Str("code", code).Msg("request failed")

	c.JSON(status, models.ErrorResponse{
		Error: models.ErrorDetail{
			Code:    code,
			Message: err.Error(),
			Details: map[string]interface{}{"timestamp": time.Now().UTC().Format(time.RFC3339)},
		},
	})
}
