package monitoring

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorTracker_GroupsRepeats(t *testing.T) {
	et := NewErrorTracker(10)

	first := et.CaptureError("scan", "Decode failed", errors.New("boom"), MEDIUM)
	second := et.CaptureError("scan", "Decode failed", errors.New("boom"), MEDIUM)
	et.CaptureError("scan", "Decode failed", errors.New("other"), MEDIUM)

	assert.Equal(t, first.Fingerprint, second.Fingerprint)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 2, second.Count)
	assert.Len(t, et.GetErrors(0), 2)

	summary := et.GetErrorSummary()
	require.Contains(t, summary, "scan")
	assert.Equal(t, 3, summary["scan"].Count)
}

func TestErrorTracker_EvictsLeastRecent(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	et := NewErrorTracker(2)
	et.now = func() time.Time { return now }

	et.CaptureError("a", "first", nil, LOW)
	now = now.Add(time.Second)
	et.CaptureError("b", "second", nil, LOW)
	now = now.Add(time.Second)
	et.CaptureError("a", "first", nil, LOW)
	now = now.Add(time.Second)
	et.CaptureError("c", "third", nil, LOW)

	recent := et.GetErrors(0)
	require.Len(t, recent, 2)
	assert.Equal(t, "third", recent[0].Message)
	assert.Equal(t, "first", recent[1].Message)

	assert.Len(t, et.GetErrors(1), 1)
}

func TestErrorTrackingMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	et := NewErrorTracker(10)

	r := gin.New()
	r.Use(gin.CustomRecovery(func(c *gin.Context, _ interface{}) {
		c.AbortWithStatus(http.StatusInternalServerError)
	}))
	r.Use(et.ErrorTrackingMiddleware())
	r.GET("/fail/:id", func(c *gin.Context) {
		_ = c.Error(errors.New("generation failed"))
		c.Status(http.StatusUnprocessableEntity)
	})
	r.GET("/panic", func(c *gin.Context) { panic("kaboom") })

	for _, path := range []string{"/fail/1", "/fail/2", "/panic"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	}

	recent := et.GetErrors(0)
	require.Len(t, recent, 2)

	byRoute := map[string]ErrorDetails{}
	for _, e := range recent {
		byRoute[e.Route] = e
	}
	assert.Equal(t, 2, byRoute["/fail/:id"].Count)
	assert.Equal(t, "MEDIUM", byRoute["/fail/:id"].Severity)
	assert.Equal(t, "CRITICAL", byRoute["/panic"].Severity)
	assert.Equal(t, "kaboom", byRoute["/panic"].Error)
	assert.Equal(t, "http", byRoute["/panic"].Component)
}
