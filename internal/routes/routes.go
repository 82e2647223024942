package routes

import (
	"fmt"
	"html/template"
	"path/filepath"
	"time"

	"go-qrscan-webapp/internal/config"
	"go-qrscan-webapp/internal/handlers"
	"go-qrscan-webapp/internal/logger"
	"go-qrscan-webapp/internal/middleware"
	"go-qrscan-webapp/internal/monitoring"
	"go-qrscan-webapp/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	slowRequestThreshold = 500 * time.Millisecond
	maxTrackedErrors     = 100
)

// NewRouter builds the HTTP server: scanning page, static assets, code
// generation, server-side decode fallback, health and metrics. reg may be
// nil when metrics are disabled.
func NewRouter(cfg *config.Config, log *logger.StructuredLogger, reg *prometheus.Registry) (*gin.Engine, error) {
	if log == nil {
		log = logger.Default()
	}

	r := gin.New()
	r.Use(handlers.GlobalErrorHandler())
	r.Use(log.LoggingMiddleware())
	errorTracker := monitoring.NewErrorTracker(maxTrackedErrors)
	r.Use(errorTracker.ErrorTrackingMiddleware())
	r.Use(middleware.SecurityHeadersMiddleware())
	r.Use(middleware.CacheControlMiddleware())

	var httpMetrics *monitoring.HTTPCollector
	if cfg.Metrics.Enabled && reg != nil {
		httpMetrics = monitoring.NewHTTPCollector(reg)
	}
	perf := middleware.NewPerformanceMonitor(slowRequestThreshold, httpMetrics, log)
	r.Use(perf.PerformanceMiddleware())

	tmpl, err := loadTemplates(cfg.Server.TemplatesDir)
	if err != nil {
		return nil, err
	}
	r.SetHTMLTemplate(tmpl)

	r.Static("/static", cfg.Server.StaticDir)
	r.NoRoute(handlers.NotFoundHandler())

	scanner := handlers.NewScannerHandler(cfg)
	codeService := services.NewBarcodeService()
	codes := handlers.NewBarcodeHandler(codeService, services.NewSheetService(codeService), cfg.Scanner)
	health := handlers.NewMonitoringHandler(perf, errorTracker)

	r.GET("/", scanner.Root)
	r.GET("/scan", scanner.ScanPage)
	r.GET("/health", health.Health)

	api := r.Group("/api/codes")
	{
		api.GET("/qr", codes.QRCode)
		api.GET("/barcode", codes.Barcode)
		api.GET("/sheet.pdf", codes.Sheet)
	}

	SetupScanFallbackRoutes(r, NewScanFallbackHandler(cfg.Fallback, log), cfg.Fallback)

	if cfg.Metrics.Enabled && reg != nil {
		r.GET(cfg.Metrics.Path, gin.WrapH(monitoring.Handler(reg)))
	}

	log.LogSystemEvent("Routes registered", map[string]interface{}{
		"templates":        cfg.Server.TemplatesDir,
		"static":           cfg.Server.StaticDir,
		"fallback_enabled": cfg.Fallback.Enabled,
		"metrics_enabled":  cfg.Metrics.Enabled && reg != nil,
		"scanner_profile":  cfg.Scanner.Profile,
	})

	return r, nil
}

func loadTemplates(dir string) (*template.Template, error) {
	pattern := filepath.Join(dir, "*.html")
	tmpl, err := template.ParseGlob(pattern)
	if err != nil {
		return nil, fmt.Errorf("load templates from %s: %w", dir, err)
	}
	return tmpl, nil
}
