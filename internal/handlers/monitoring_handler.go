package handlers

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"go-qrscan-webapp/internal/middleware"
	"go-qrscan-webapp/internal/monitoring"

	"github.com/gin-gonic/gin"
)

// Version is set by the CLI at startup.
var Version = "dev"

// MonitoringHandler serves health information.
type MonitoringHandler struct {
	startedAt    time.Time
	perfMonitor  *middleware.PerformanceMonitor
	errorTracker *monitoring.ErrorTracker
}

// NewMonitoringHandler creates the handler. Both dependencies may be nil.
func NewMonitoringHandler(perfMonitor *middleware.PerformanceMonitor, errorTracker *monitoring.ErrorTracker) *MonitoringHandler {
	return &MonitoringHandler{startedAt: time.Now(), perfMonitor: perfMonitor, errorTracker: errorTracker}
}

// Health handles GET /health. The status degrades with the request error
// rate.
func (h *MonitoringHandler) Health(c *gin.Context) {
	body := gin.H{
		"status":     "ok",
		"version":    Version,
		"uptime":     time.Since(h.startedAt).Round(time.Second).String(),
		"goroutines": runtime.NumGoroutine(),
		"timestamp":  time.Now().UTC().Format(time.RFC3339),
	}

	if h.perfMonitor != nil {
		metrics := h.perfMonitor.GetMetrics()
		body["requests"] = metrics.RequestCount
		body["error_rate"] = fmt.Sprintf("%.2f%%", metrics.ErrorRate)
		body["memory"] = gin.H{
			"allocated": middleware.FormatBytes(metrics.MemoryUsage.Allocated),
			"sys":       middleware.FormatBytes(metrics.MemoryUsage.Sys),
			"gc_runs":   metrics.MemoryUsage.GCRuns,
		}

		switch {
		case metrics.ErrorRate > 25:
			body["status"] = "unhealthy"
		case metrics.ErrorRate > 10:
			body["status"] = "degraded"
		}
	}

	if h.errorTracker != nil {
		body["errors"] = h.errorTracker.GetErrorSummary()
	}

	SafeJSON(c, http.StatusOK, body)
}
