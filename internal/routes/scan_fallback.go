package routes

import (
	"errors"
	"net/http"
	"sync"
	"time"

	"go-qrscan-webapp/internal/config"
	"go-qrscan-webapp/internal/decoder"
	"go-qrscan-webapp/internal/logger"
	"go-qrscan-webapp/internal/middleware"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// maxDecodeBody bounds a base64 frame upload.
const maxDecodeBody = 8 << 20

// ScanFallbackHandler decodes frames server-side for browsers that have
// neither a native detector nor the wasm decoder.
type ScanFallbackHandler struct {
	decoder *decoder.ServerDecoder
	enabled bool
	log     *logger.StructuredLogger
}

func NewScanFallbackHandler(cfg config.FallbackConfig, log *logger.StructuredLogger) *ScanFallbackHandler {
	if log == nil {
		log = logger.Default()
	}
	return &ScanFallbackHandler{
		decoder: decoder.NewServerDecoder(),
		enabled: cfg.Enabled,
		log:     log,
	}
}

// IsEnabled returns whether the fallback decoder is enabled
func (h *ScanFallbackHandler) IsEnabled() bool {
	return h.enabled
}

// DecodeFallback handles POST /api/scan/decode.
func (h *ScanFallbackHandler) DecodeFallback(c *gin.Context) {
	if !h.enabled {
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "FEATURE_DISABLED",
			"message": "Server-side decode is disabled",
		})
		return
	}

	var req decoder.DecodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "INVALID_REQUEST",
			"message": err.Error(),
		})
		return
	}

	if req.Width <= 0 || req.Height <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "INVALID_DIMENSIONS",
			"message": "Width and height must be positive",
		})
		return
	}

	if req.ImageData == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "MISSING_IMAGE_DATA",
			"message": "Image data is required",
		})
		return
	}

	response := h.decoder.Decode(&req)

	fields := map[string]interface{}{
		"component":     "fallback",
		"request_id":    c.GetString("request_id"),
		"processing_ms": response.ProcessingTime,
		"success":       response.Success,
		"error_code":    response.ErrorCode,
	}
	h.log.Debug("Server-side decode", fields)

	switch {
	case response.Success:
		c.JSON(http.StatusOK, response)
	case response.ErrorCode == decoder.CodeInvalidImage || response.ErrorCode == decoder.CodeInvalidROI:
		c.JSON(http.StatusBadRequest, response)
	case response.ErrorCode == decoder.CodeDecodeFailed:
		_ = c.Error(errors.New(response.Error))
		c.JSON(http.StatusUnprocessableEntity, response)
	default:
		// valid request, nothing decodable in it
		c.JSON(http.StatusUnprocessableEntity, response)
	}
}

// GetDecoderStatus handles GET /api/scan/status.
func (h *ScanFallbackHandler) GetDecoderStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"enabled":          h.enabled,
		"status":           "ready",
		"serverSide":       true,
		"supportedFormats": decoder.SupportedFormats(),
	})
}

// SetupScanFallbackRoutes sets up the fallback decode routes
func SetupScanFallbackRoutes(r *gin.Engine, handler *ScanFallbackHandler, cfg config.FallbackConfig) {
	api := r.Group("/api/scan")
	{
		api.POST("/decode",
			middleware.RequestSizeLimitMiddleware(maxDecodeBody),
			ScanFallbackMiddleware(cfg),
			handler.DecodeFallback)
		api.GET("/status", handler.GetDecoderStatus)
	}
}

// ipLimiters hands out one token bucket per client IP. Buckets idle for
// longer than ttl are dropped on the next sweep.
type ipLimiters struct {
	mu       sync.Mutex
	limiters map[string]*limiterEntry
	rate     rate.Limit
	burst    int
	ttl      time.Duration
	lastGC   time.Time
	now      func() time.Time
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newIPLimiters(r rate.Limit, burst int) *ipLimiters {
	return &ipLimiters{
		limiters: make(map[string]*limiterEntry),
		rate:     r,
		burst:    burst,
		ttl:      10 * time.Minute,
		now:      time.Now,
	}
}

func (s *ipLimiters) get(ip string) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if now.Sub(s.lastGC) > s.ttl {
		for key, e := range s.limiters {
			if now.Sub(e.lastSeen) > s.ttl {
				delete(s.limiters, key)
			}
		}
		s.lastGC = now
	}

	e, ok := s.limiters[ip]
	if !ok {
		e = &limiterEntry{limiter: rate.NewLimiter(s.rate, s.burst)}
		s.limiters[ip] = e
	}
	e.lastSeen = now
	return e.limiter
}

func (s *ipLimiters) size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.limiters)
}

// ScanFallbackMiddleware rate limits decode requests per client IP.
func ScanFallbackMiddleware(cfg config.FallbackConfig) gin.HandlerFunc {
	return newScanFallbackMiddleware(newIPLimiters(rate.Limit(cfg.RequestsPerSecond), cfg.Burst))
}

func newScanFallbackMiddleware(store *ipLimiters) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !store.get(c.ClientIP()).Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":   "RATE_LIMITED",
				"message": "Too many requests. Server-side decode is rate limited.",
			})
			return
		}
		c.Next()
	}
}
