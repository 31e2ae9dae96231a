package monitoring

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the process collectors. Build one per registry; tests use a
// fresh prometheus.NewRegistry().
type Metrics struct {
	RequestCounter  *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// SubmissionEvents counts lifecycle transitions by event:
	// started, resumed, submitted, graded, attempts_exceeded.
	SubmissionEvents *prometheus.CounterVec
	SubmissionScores prometheus.Histogram

	gatherer prometheus.Gatherer
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		RequestCounter: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Duration of HTTP requests",
				Buckets: []float64{0.1, 0.5, 1, 2, 5},
			},
			[]string{"method", "endpoint"},
		),
		SubmissionEvents: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lms_submission_events_total",
				Help: "Submission lifecycle events",
			},
			[]string{"event"},
		),
		SubmissionScores: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "lms_submission_score_percentage",
				Help:    "Percentage score of graded submissions",
				Buckets: prometheus.LinearBuckets(0, 10, 11),
			},
		),
	}
	reg.MustRegister(m.RequestCounter, m.RequestDuration, m.SubmissionEvents, m.SubmissionScores)
	if g, ok := reg.(prometheus.Gatherer); ok {
		m.gatherer = g
	}
	return m
}

const (
	EventStarted          = "started"
	EventResumed          = "resumed"
	EventSubmitted        = "submitted"
	EventGraded           = "graded"
	EventAttemptsExceeded = "attempts_exceeded"
)

// SubmissionEvent is nil-safe so services can run without metrics.
func (m *Metrics) SubmissionEvent(event string) {
	if m == nil {
		return
	}
	m.SubmissionEvents.WithLabelValues(event).Inc()
}

func (m *Metrics) ObserveScore(percentage float64) {
	if m == nil {
		return
	}
	m.SubmissionScores.Observe(percentage)
}

func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		duration := time.Since(start).Seconds()
		status := c.Writer.Status()

		m.RequestCounter.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			strconv.Itoa(status),
		).Inc()

		m.RequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
		).Observe(duration)
	}
}

// Handler serves the registry the metrics were registered on.
func (m *Metrics) Handler() gin.HandlerFunc {
	h := promhttp.Handler()
	if m.gatherer != nil {
		h = promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
	}
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
