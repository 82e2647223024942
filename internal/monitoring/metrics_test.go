package monitoring

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go-qrscan-webapp/internal/scan"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestScanCollector_TracksSessions(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewScanCollector(reg)

	m.SessionStarted(scan.DecoderLibrary)
	m.FrameSkipped()
	m.FrameCaptured()
	m.FrameCaptured()
	m.DecodeFailed()
	m.PayloadPublished()
	m.Redirected()

	assert.Equal(t, 1.0, testutil.ToFloat64(m.sessionsActive))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.sessionsTotal.WithLabelValues("library")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.frames.WithLabelValues("captured")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.frames.WithLabelValues("not_ready")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.decodeErrors))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.payloads))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.redirects))

	m.SessionStopped(3 * time.Second)
	assert.Equal(t, 0.0, testutil.ToFloat64(m.sessionsActive))
}

func TestScanCollector_AcquisitionFailures(t *testing.T) {
	m := NewScanCollector(prometheus.NewRegistry())

	m.AcquisitionFailed("permission_denied")
	m.AcquisitionFailed("permission_denied")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.acquisitionFails.WithLabelValues("permission_denied")))
}

func TestHandler_ExposesRegisteredMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	h := NewHTTPCollector(reg)
	h.Observe(http.MethodGet, "/scan", http.StatusOK, 10*time.Millisecond)

	w := httptest.NewRecorder()
	Handler(reg).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `qrscan_http_requests_total{method="GET",route="/scan",status="200"} 1`)
}
