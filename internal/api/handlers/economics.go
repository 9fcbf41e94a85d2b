package handlers

import (
	"errors"
	"net/http"
	"path/filepath"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"storage-cycles/internal/api/models"
	"storage-cycles/internal/economics"
	"storage-cycles/internal/report"
)

// EconomicsHandler handles project economics and cash-flow exports
type EconomicsHandler struct {
	exportDir string
}

// NewEconomicsHandler creates a new economics handler
func NewEconomicsHandler(exportDir string) *EconomicsHandler {
	return &EconomicsHandler{exportDir: exportDir}
}

// Compute handles POST /api/v1/storage/economics
func (h *EconomicsHandler) Compute(c *gin.Context) {
	req, res, ok := h.compute(c)
	if !ok {
		return
	}
	zerolog.Ctx(c.Request.Context()).Info().
		Float64("first_year_revenue", *req.FirstYearRevenue).
		Float64("capex_total", res.CapexTotal).
		Str("screening", res.StaticMetrics.Screening).
		Msg("economics computed")
	c.JSON(http.StatusOK, res)
}

// Export handles POST /api/v1/storage/economics/export
func (h *EconomicsHandler) Export(c *gin.Context) {
	req, res, ok := h.compute(c)
	if !ok {
		return
	}
	if req.UserSharePercent < 0 || req.UserSharePercent >= 100 {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", errors.New("user_share_percent must be in [0, 100)"))
		return
	}

	in := req.ToInput()
	var energy []float64
	if in.FirstYearEnergyKWh != nil && *in.FirstYearEnergyKWh > 0 {
		energy = economics.YearlyEnergy(*in.FirstYearEnergyKWh, in.ProjectYears, in.FirstYearDecayRate, in.SubsequentDecayRate, in.ReplacementYear)
	}

	path, err := report.WriteEconomicsZip(h.exportDir, res, req.UserSharePercent, energy)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "EXPORT_ERROR", err)
		return
	}
	zerolog.Ctx(c.Request.Context()).Info().Str("path", path).Msg("economics report generated")
	c.JSON(http.StatusOK, models.ExportResponse{
		ExcelPath: filepath.Base(path),
		Message:   "cash-flow report generated",
	})
}

func (h *EconomicsHandler) compute(c *gin.Context) (models.EconomicsRequest, *economics.Result, bool) {
	var req models.EconomicsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", err)
		return req, nil, false
	}
	res, err := economics.Compute(req.ToInput())
	if err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_CONFIG", err)
		return req, nil, false
	}
	return req, res, true
}
