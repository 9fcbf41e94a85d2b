package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/NYTimes/gziphandler"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"

	"storage-cycles/internal/api/handlers"
	"storage-cycles/internal/api/middleware"
	"storage-cycles/internal/config"
	"storage-cycles/internal/cycles"
	"storage-cycles/internal/data"
	"storage-cycles/internal/logging"
)

func main() {
	cfgPath := pflag.String("config", "", "Optional server YAML config; env vars override it")
	pflag.Parse()

	cfg, err := config.LoadServer(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load server config: %v\n", err)
		os.Exit(1)
	}
	logging.Setup(cfg.LogLevel, cfg.LogPretty || !cfg.IsProduction())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	router.Use(middleware.CORS(cfg.CORSOrigins))
	router.Use(middleware.Logger())
	router.Use(middleware.ErrorHandler())

	cache := data.NewResultCache[*cycles.Result](ctx, cfg.CacheTTL, time.Minute)
	storageHandler := handlers.NewStorageHandler(cfg.PresetsDir)
	cyclesHandler := handlers.NewCyclesHandler(cache, storageHandler, cfg.ExportDir)
	economicsHandler := handlers.NewEconomicsHandler(cfg.ExportDir)

	log.Info().
		Str("presets_dir", storageHandler.PresetsDir()).
		Str("export_dir", cfg.ExportDir).
		Dur("cache_ttl", cfg.CacheTTL).
		Msg("handlers ready")

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "cached_runs": cache.Len()})
	})

	api := router.Group("/api/v1/storage")
	{
		api.GET("/presets", storageHandler.ListPresets)

		api.POST("/cycles", cyclesHandler.RunCycles)
		api.POST("/cycles/curves", cyclesHandler.RunCurves)
		api.GET("/cycles/:id/ledger", cyclesHandler.GetLedger)

		api.POST("/economics", economicsHandler.Compute)
		api.POST("/economics/export", economicsHandler.Export)
	}

	// Generated reports are downloadable by file name.
	router.Static("/outputs", cfg.ExportDir)

	if _, err := os.Stat(cfg.StaticDir); err == nil {
		router.Static("/assets", filepath.Join(cfg.StaticDir, "assets"))
		router.StaticFile("/favicon.ico", filepath.Join(cfg.StaticDir, "favicon.ico"))

		// Serve index.html for all non-API routes (SPA routing)
		router.NoRoute(func(c *gin.Context) {
			if strings.HasPrefix(c.Request.URL.Path, "/api") {
				c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
				return
			}
			c.File(filepath.Join(cfg.StaticDir, "index.html"))
		})
		log.Info().Str("dir", cfg.StaticDir).Msg("serving static files")
	} else {
		log.Info().Str("dir", cfg.StaticDir).Msg("static directory not found, skipping static file serving")
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           gziphandler.GzipHandler(router),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Msg("starting API server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
}
