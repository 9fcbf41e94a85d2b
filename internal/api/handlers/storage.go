package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"storage-cycles/internal/api/models"
	"storage-cycles/internal/config"
)

var ErrUnknownPreset = errors.New("unknown storage preset")

// StorageHandler serves the storage presets directory
type StorageHandler struct {
	presetsDir string
}

// NewStorageHandler creates a storage handler reading presets from dir
func NewStorageHandler(dir string) *StorageHandler {
	if abs, err := filepath.Abs(dir); err == nil {
		dir = abs
	}
	return &StorageHandler{presetsDir: dir}
}

// PresetsDir returns the presets directory path
func (h *StorageHandler) PresetsDir() string {
	return h.presetsDir
}

// ListPresets handles GET /api/v1/storage/presets
func (h *StorageHandler) ListPresets(c *gin.Context) {
	presets := h.list(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{"presets": presets})
}

func (h *StorageHandler) list(ctx context.Context) []models.StoragePresetInfo {
	logger := zerolog.Ctx(ctx)
	presets := []models.StoragePresetInfo{}

	entries, err := os.ReadDir(h.presetsDir)
	if err != nil {
		// A missing directory is an empty list.
		logger.Warn().Err(err).Str("dir", h.presetsDir).Msg("presets dir not readable")
		return presets
	}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".yaml") {
			continue
		}
		path := filepath.Join(h.presetsDir, entry.Name())
		info, err := loadPresetInfo(path, entry.Name())
		if err != nil {
			logger.Warn().Err(err).Str("file", path).Msg("skipping invalid preset")
			continue
		}
		presets = append(presets, *info)
	}
	logger.Debug().Int("count", len(presets)).Str("dir", h.presetsDir).Msg("presets listed")
	return presets
}

// Resolve loads the preset with the given ID ("cabinet" for cabinet.yaml).
func (h *StorageHandler) Resolve(id string) (*models.StoragePresetInfo, error) {
	if id == "" || strings.ContainsAny(id, `/\`) || strings.Contains(id, "..") {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPreset, id)
	}
	name := id + ".yaml"
	info, err := loadPresetInfo(filepath.Join(h.presetsDir, name), name)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %q", ErrUnknownPreset, id)
		}
		return nil, err
	}
	return info, nil
}

func loadPresetInfo(path, filename string) (*models.StoragePresetInfo, error) {
	p, err := config.LoadStorageFile(path)
	if err != nil {
		return nil, err
	}

	// The ID is the filename without extension, e.g. "2mwh_cabinet.yaml" -> "2mwh_cabinet"
	id := strings.TrimSuffix(filename, ".yaml")
	name := p.Name
	if name == "" {
		name = id
	}
	return &models.StoragePresetInfo{
		ID:          id,
		Name:        name,
		Description: p.Description,
		File:        path,
		Storage:     p.Storage,
	}, nil
}
