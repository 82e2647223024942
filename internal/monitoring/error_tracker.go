package monitoring

import (
	"fmt"
	"hash/fnv"
	"sort"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ErrorSeverity represents error severity levels
type ErrorSeverity int

const (
	LOW ErrorSeverity = iota
	MEDIUM
	HIGH
	CRITICAL
)

func (es ErrorSeverity) String() string {
	switch es {
	case LOW:
		return "LOW"
	case MEDIUM:
		return "MEDIUM"
	case HIGH:
		return "HIGH"
	case CRITICAL:
		return "CRITICAL"
	default:
		return "UNKNOWN"
	}
}

// ErrorDetails is one distinct error. Repeats of the same fingerprint bump
// Count and LastSeen.
type ErrorDetails struct {
	ID          string    `json:"id"`
	Message     string    `json:"message"`
	Error       string    `json:"error"`
	Severity    string    `json:"severity"`
	Component   string    `json:"component"`
	Method      string    `json:"method,omitempty"`
	Route       string    `json:"route,omitempty"`
	RequestID   string    `json:"request_id,omitempty"`
	Fingerprint string    `json:"fingerprint"`
	Count       int       `json:"count"`
	FirstSeen   time.Time `json:"first_seen"`
	LastSeen    time.Time `json:"last_seen"`
}

// ErrorSummary aggregates the errors of one component.
type ErrorSummary struct {
	Count    int       `json:"count"`
	LastSeen time.Time `json:"last_seen"`
	Severity string    `json:"severity"`
	Message  string    `json:"message"`
}

// ErrorTracker keeps the most recent distinct errors of the server in memory
// so /health can report them without a log search.
type ErrorTracker struct {
	mutex     sync.RWMutex
	errors    map[string]*ErrorDetails
	maxErrors int
	now       func() time.Time
}

func NewErrorTracker(maxErrors int) *ErrorTracker {
	if maxErrors <= 0 {
		maxErrors = 100
	}
	return &ErrorTracker{
		errors:    make(map[string]*ErrorDetails),
		maxErrors: maxErrors,
		now:       time.Now,
	}
}

// CaptureError records an error of a component.
func (et *ErrorTracker) CaptureError(component, message string, err error, severity ErrorSeverity) *ErrorDetails {
	return et.store(&ErrorDetails{
		Message:   message,
		Error:     errorText(err),
		Severity:  severity.String(),
		Component: component,
	})
}

// CaptureRequestError records an error raised while serving a request. The
// route template, not the raw path, goes into the fingerprint.
func (et *ErrorTracker) CaptureRequestError(c *gin.Context, message string, err error, severity ErrorSeverity) *ErrorDetails {
	route := c.FullPath()
	if route == "" {
		route = "unmatched"
	}
	return et.store(&ErrorDetails{
		Message:   message,
		Error:     errorText(err),
		Severity:  severity.String(),
		Component: "http",
		Method:    c.Request.Method,
		Route:     route,
		RequestID: c.GetString("request_id"),
	})
}

func (et *ErrorTracker) store(e *ErrorDetails) *ErrorDetails {
	now := et.now().UTC()
	e.Fingerprint = fingerprint(e)

	et.mutex.Lock()
	defer et.mutex.Unlock()

	if existing, ok := et.errors[e.Fingerprint]; ok {
		existing.Count++
		existing.LastSeen = now
		existing.RequestID = e.RequestID
		copied := *existing
		return &copied
	}

	e.ID = uuid.NewString()
	e.Count = 1
	e.FirstSeen = now
	e.LastSeen = now
	et.errors[e.Fingerprint] = e
	if len(et.errors) > et.maxErrors {
		et.evictOldest()
	}

	copied := *e
	return &copied
}

// evictOldest drops the error seen least recently. Callers hold the lock.
func (et *ErrorTracker) evictOldest() {
	var oldestKey string
	var oldest time.Time
	for key, e := range et.errors {
		if oldestKey == "" || e.LastSeen.Before(oldest) {
			oldestKey, oldest = key, e.LastSeen
		}
	}
	delete(et.errors, oldestKey)
}

// GetErrors returns copies of the tracked errors, most recent first.
func (et *ErrorTracker) GetErrors(limit int) []ErrorDetails {
	et.mutex.RLock()
	out := make([]ErrorDetails, 0, len(et.errors))
	for _, e := range et.errors {
		out = append(out, *e)
	}
	et.mutex.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].LastSeen.After(out[j].LastSeen) })
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out
}

// GetErrorSummary aggregates the tracked errors by component.
func (et *ErrorTracker) GetErrorSummary() map[string]ErrorSummary {
	et.mutex.RLock()
	defer et.mutex.RUnlock()

	summary := make(map[string]ErrorSummary)
	for _, e := range et.errors {
		s, ok := summary[e.Component]
		if !ok || e.LastSeen.After(s.LastSeen) {
			s.LastSeen = e.LastSeen
			s.Severity = e.Severity
			s.Message = e.Message
		}
		s.Count += e.Count
		summary[e.Component] = s
	}
	return summary
}

// ErrorTrackingMiddleware records errors attached to the gin context and
// panics, which it re-raises for the recovery handler.
func (et *ErrorTracker) ErrorTrackingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				et.CaptureRequestError(c, "Handler panic", fmt.Errorf("%v", r), CRITICAL)
				panic(r)
			}
		}()

		c.Next()

		severity := MEDIUM
		if c.Writer.Status() >= 500 {
			severity = HIGH
		}
		for _, ginErr := range c.Errors {
			et.CaptureRequestError(c, "Request error", ginErr.Err, severity)
		}
	}
}

func fingerprint(e *ErrorDetails) string {
	h := fnv.New64a()
	for _, part := range []string{e.Component, e.Message, e.Error, e.Method, e.Route} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	return fmt.Sprintf("%016x", h.Sum64())
}

func errorText(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
