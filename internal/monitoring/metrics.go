package monitoring

import (
	"net/http"
	"strconv"
	"time"

	"go-qrscan-webapp/internal/scan"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ScanCollector records scan session activity. It implements scan.Recorder.
type ScanCollector struct {
	sessionsActive   prometheus.Gauge
	sessionsTotal    *prometheus.CounterVec
	sessionLifetime  prometheus.Histogram
	acquisitionFails *prometheus.CounterVec
	frames           *prometheus.CounterVec
	decodeErrors     prometheus.Counter
	payloads         prometheus.Counter
	redirects        prometheus.Counter
}

var _ scan.Recorder = (*ScanCollector)(nil)

func NewScanCollector(reg prometheus.Registerer) *ScanCollector {
	factory := promauto.With(reg)

	return &ScanCollector{
		sessionsActive: factory.NewGauge(prometheus.GaugeOpts{
			Name: "qrscan_sessions_active",
			Help: "Number of scan sessions currently holding a camera",
		}),
		sessionsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "qrscan_sessions_started_total",
			Help: "Scan sessions started, by decoder kind",
		}, []string{"decoder"}),
		sessionLifetime: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "qrscan_session_duration_seconds",
			Help:    "Lifetime of scan sessions",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10),
		}),
		acquisitionFails: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "qrscan_acquisition_failures_total",
			Help: "Camera acquisition failures, by reason",
		}, []string{"reason"}),
		frames: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "qrscan_frames_total",
			Help: "Scan loop iterations, by outcome",
		}, []string{"outcome"}),
		decodeErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "qrscan_decode_errors_total",
			Help: "Capture or decode failures contained by the scan loop",
		}),
		payloads: factory.NewCounter(prometheus.CounterOpts{
			Name: "qrscan_payloads_total",
			Help: "Distinct payloads published",
		}),
		redirects: factory.NewCounter(prometheus.CounterOpts{
			Name: "qrscan_redirects_total",
			Help: "Redirects scheduled for scanned URLs",
		}),
	}
}

func (m *ScanCollector) SessionStarted(decoder scan.DecoderKind) {
	m.sessionsActive.Inc()
	m.sessionsTotal.WithLabelValues(string(decoder)).Inc()
}

func (m *ScanCollector) SessionStopped(lifetime time.Duration) {
	m.sessionsActive.Dec()
	m.sessionLifetime.Observe(lifetime.Seconds())
}

func (m *ScanCollector) AcquisitionFailed(reason string) {
	m.acquisitionFails.WithLabelValues(reason).Inc()
}

func (m *ScanCollector) FrameSkipped() {
	m.frames.WithLabelValues("not_ready").Inc()
}

func (m *ScanCollector) FrameCaptured() {
	m.frames.WithLabelValues("captured").Inc()
}

func (m *ScanCollector) DecodeFailed() {
	m.decodeErrors.Inc()
}

func (m *ScanCollector) PayloadPublished() {
	m.payloads.Inc()
}

func (m *ScanCollector) Redirected() {
	m.redirects.Inc()
}

// HTTPCollector records request counts and latencies.
type HTTPCollector struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

func NewHTTPCollector(reg prometheus.Registerer) *HTTPCollector {
	factory := promauto.With(reg)

	return &HTTPCollector{
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "qrscan_http_requests_total",
			Help: "HTTP requests, by route and status",
		}, []string{"method", "route", "status"}),
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "qrscan_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
}

func (m *HTTPCollector) Observe(method, route string, status int, d time.Duration) {
	m.requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.duration.WithLabelValues(method, route).Observe(d.Seconds())
}

// Handler exposes the metrics gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
