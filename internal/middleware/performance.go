package middleware

import (
	"fmt"
	"net/http"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"

	"go-qrscan-webapp/internal/logger"
	"go-qrscan-webapp/internal/monitoring"

	"github.com/gin-gonic/gin"
)

// PerformanceMetrics is a snapshot of request performance.
type PerformanceMetrics struct {
	RequestCount  int64            `json:"request_count"`
	ErrorRate     float64          `json:"error_rate"`
	Uptime        time.Duration    `json:"uptime"`
	MemoryUsage   MemoryStats      `json:"memory_usage"`
	EndpointStats map[string]Stats `json:"endpoint_stats"`
}

// MemoryStats represents memory usage statistics
type MemoryStats struct {
	Allocated    uint64 `json:"allocated"`
	TotalAlloc   uint64 `json:"total_alloc"`
	Sys          uint64 `json:"sys"`
	GCRuns       uint32 `json:"gc_runs"`
	HeapInUse    uint64 `json:"heap_in_use"`
	HeapReleased uint64 `json:"heap_released"`
}

// Stats represents endpoint-specific statistics
type Stats struct {
	Count         int64         `json:"count"`
	TotalDuration time.Duration `json:"total_duration"`
	AverageTime   time.Duration `json:"average_time"`
	ErrorCount    int64         `json:"error_count"`
	SlowCount     int64         `json:"slow_count"`
}

// EndpointSummary represents endpoint performance summary
type EndpointSummary struct {
	Endpoint    string        `json:"endpoint"`
	AverageTime time.Duration `json:"average_time"`
	Count       int64         `json:"count"`
	ErrorRate   float64       `json:"error_rate"`
	SlowRate    float64       `json:"slow_rate"`
}

// PerformanceMonitor tracks request latency per route and feeds the
// prometheus HTTP collector when one is set.
type PerformanceMonitor struct {
	mu            sync.Mutex
	requestCount  int64
	errorCount    int64
	endpoints     map[string]Stats
	slowThreshold time.Duration
	startTime     time.Time

	collector *monitoring.HTTPCollector
	log       *logger.StructuredLogger
}

// NewPerformanceMonitor creates a monitor. collector and log may be nil.
func NewPerformanceMonitor(slowThreshold time.Duration, collector *monitoring.HTTPCollector, log *logger.StructuredLogger) *PerformanceMonitor {
	if log == nil {
		log = logger.Default()
	}
	return &PerformanceMonitor{
		endpoints:     make(map[string]Stats),
		slowThreshold: slowThreshold,
		startTime:     time.Now(),
		collector:     collector,
		log:           log,
	}
}

// PerformanceMiddleware tracks request performance
func (pm *PerformanceMonitor) PerformanceMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		if strings.HasPrefix(path, "/static/") || path == "/health" {
			c.Next()
			return
		}

		start := time.Now()
		c.Writer = &timingWriter{ResponseWriter: c.Writer, start: start}

		c.Next()

		duration := time.Since(start)
		status := c.Writer.Status()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		method := c.Request.Method

		pm.record(method+" "+route, duration, status >= 400)
		if pm.collector != nil {
			pm.collector.Observe(method, route, status, duration)
		}

		fields := map[string]interface{}{
			"method":      method,
			"path":        path,
			"status":      status,
			"duration_ms": duration.Milliseconds(),
			"request_id":  c.GetString("request_id"),
		}
		if duration > pm.slowThreshold {
			pm.log.Warn("Slow request", fields)
		}
		if status >= 500 {
			pm.log.Error("Request failed", fmt.Errorf("status %d", status), fields)
		}
	}
}

func (pm *PerformanceMonitor) record(endpoint string, duration time.Duration, isError bool) {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	pm.requestCount++
	if isError {
		pm.errorCount++
	}

	stats := pm.endpoints[endpoint]
	stats.Count++
	stats.TotalDuration += duration
	stats.AverageTime = stats.TotalDuration / time.Duration(stats.Count)
	if isError {
		stats.ErrorCount++
	}
	if duration > pm.slowThreshold {
		stats.SlowCount++
	}
	pm.endpoints[endpoint] = stats
}

// GetMetrics returns a snapshot of the current metrics.
func (pm *PerformanceMonitor) GetMetrics() *PerformanceMetrics {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	m := &PerformanceMetrics{
		RequestCount:  pm.requestCount,
		Uptime:        time.Since(pm.startTime),
		MemoryUsage:   readMemoryStats(),
		EndpointStats: make(map[string]Stats, len(pm.endpoints)),
	}
	for k, v := range pm.endpoints {
		m.EndpointStats[k] = v
	}
	if pm.requestCount > 0 {
		m.ErrorRate = float64(pm.errorCount) / float64(pm.requestCount) * 100
	}
	return m
}

// GetTopSlowEndpoints returns the slowest endpoints by average time.
func (pm *PerformanceMonitor) GetTopSlowEndpoints(limit int) []EndpointSummary {
	metrics := pm.GetMetrics()

	endpoints := make([]EndpointSummary, 0, len(metrics.EndpointStats))
	for endpoint, stats := range metrics.EndpointStats {
		endpoints = append(endpoints, EndpointSummary{
			Endpoint:    endpoint,
			AverageTime: stats.AverageTime,
			Count:       stats.Count,
			ErrorRate:   float64(stats.ErrorCount) / float64(stats.Count) * 100,
			SlowRate:    float64(stats.SlowCount) / float64(stats.Count) * 100,
		})
	}

	sort.Slice(endpoints, func(i, j int) bool {
		return endpoints[i].AverageTime > endpoints[j].AverageTime
	})

	if limit > 0 && limit < len(endpoints) {
		endpoints = endpoints[:limit]
	}
	return endpoints
}

func readMemoryStats() MemoryStats {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	return MemoryStats{
		Allocated:    m.Alloc,
		TotalAlloc:   m.TotalAlloc,
		Sys:          m.Sys,
		GCRuns:       m.NumGC,
		HeapInUse:    m.HeapInuse,
		HeapReleased: m.HeapReleased,
	}
}

// timingWriter stamps X-Response-Time before the header is flushed.
type timingWriter struct {
	gin.ResponseWriter
	start   time.Time
	stamped bool
}

func (w *timingWriter) stamp() {
	if w.stamped || w.ResponseWriter.Written() {
		return
	}
	w.stamped = true
	w.Header().Set("X-Response-Time", time.Since(w.start).String())
}

func (w *timingWriter) WriteHeader(code int) {
	w.stamp()
	w.ResponseWriter.WriteHeader(code)
}

func (w *timingWriter) WriteHeaderNow() {
	w.stamp()
	w.ResponseWriter.WriteHeaderNow()
}

func (w *timingWriter) Write(data []byte) (int, error) {
	w.stamp()
	return w.ResponseWriter.Write(data)
}

func (w *timingWriter) WriteString(s string) (int, error) {
	w.stamp()
	return w.ResponseWriter.WriteString(s)
}

// CacheControlMiddleware adds cache headers for static content
func CacheControlMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path

		if strings.HasPrefix(path, "/static/") {
			c.Header("Cache-Control", "public, max-age=86400")
		} else if !strings.HasPrefix(path, "/api/codes/") {
			c.Header("Cache-Control", "no-cache, no-store, must-revalidate")
			c.Header("Pragma", "no-cache")
			c.Header("Expires", "0")
		}

		c.Next()
	}
}

// SecurityHeadersMiddleware adds security headers. Camera access is
// granted to the page itself only.
func SecurityHeadersMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Header("Permissions-Policy", "camera=(self), microphone=()")

		if gin.Mode() == gin.ReleaseMode {
			c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		c.Next()
	}
}

// RequestSizeLimitMiddleware limits request body size
func RequestSizeLimitMiddleware(maxSize int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > maxSize {
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, gin.H{
				"error": "Request entity too large",
				"code":  "PAYLOAD_TOO_LARGE",
			})
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxSize)

		c.Next()
	}
}

// FormatBytes formats byte count as human readable string
func FormatBytes(bytes uint64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := uint64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
