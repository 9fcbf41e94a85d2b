package models

import (
	"storage-cycles/internal/backtest"
	"storage-cycles/internal/cycles"
	"storage-cycles/internal/model"
)

// CyclesResponse is the cycles result plus the optional export location
type CyclesResponse struct {
	*cycles.Result
	ExcelPath string `json:"excel_path,omitempty"`
}

// LedgerResponse is the cached 15-minute trajectory of a run
type LedgerResponse struct {
	RunID   string            `json:"run_id"`
	Formula model.Formula     `json:"energy_formula"`
	Total   int               `json:"total"`
	Records []backtest.Record `json:"records"`
}

// ExportResponse points at a generated report
type ExportResponse struct {
	ExcelPath string `json:"excel_path"`
	Message   string `json:"message"`
}

// StoragePresetInfo represents information about a storage preset
type StoragePresetInfo struct {
	ID          string              `json:"id"`
	Name        string              `json:"name"`
	Description string              `json:"description,omitempty"`
	File        string              `json:"file"`
	Storage     model.StorageConfig `json:"storage"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains error information
type ErrorDetail struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}
