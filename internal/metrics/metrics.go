package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/liamcoop/loancheck/eligibility"
	"github.com/liamcoop/loancheck/internal/logger"
)

// Metrics provides observability for eligibility evaluations and the HTTP
// surface. A nil *Metrics is valid and records nothing.
type Metrics struct {
	// Evaluation outcomes by reason
	EvaluationOutcome *prometheus.CounterVec

	// Simulated scores of evaluations that reached scoring
	CibilScore prometheus.Histogram

	// Granted share of the requested amount for approvals
	EligiblePercentage prometheus.Histogram

	// Duration of a single evaluation
	EvaluateLatency prometheus.Histogram

	// HTTP requests by route pattern, method and status code
	HTTPRequests *prometheus.CounterVec
}

// New registers all metrics with reg. Pass a fresh prometheus.Registry in
// tests so repeated construction does not collide.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)

	m := &Metrics{
		EvaluationOutcome: f.NewCounterVec(prometheus.CounterOpts{
			Name: "loancheck_evaluations_total",
			Help: "Total eligibility evaluations by outcome reason",
		}, []string{"reason"}), // reason: "approved", "invalid_pan", "low_score", "low_income"

		CibilScore: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "loancheck_cibil_score",
			Help:    "Distribution of simulated CIBIL scores",
			Buckets: prometheus.LinearBuckets(300, 50, 13),
		}),

		EligiblePercentage: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "loancheck_eligible_percentage",
			Help:    "Share of the requested amount granted to approved applicants",
			Buckets: []float64{0.25, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1},
		}),

		EvaluateLatency: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "loancheck_evaluate_duration_seconds",
			Help:    "Duration of a single eligibility evaluation",
			Buckets: []float64{0.0001, 0.00025, 0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.1},
		}),

		HTTPRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "loancheck_http_requests_total",
			Help: "Total HTTP requests by route, method and status code",
		}, []string{"route", "method", "code"}),
	}

	f.NewCounterFunc(prometheus.CounterOpts{
		Name: "loancheck_log_errors_total",
		Help: "Error records logged, counted before sampling",
	}, func() float64 { return float64(logger.TotalErrors.Load()) })

	f.NewCounterFunc(prometheus.CounterOpts{
		Name: "loancheck_log_warnings_total",
		Help: "Warning records logged, counted before sampling",
	}, func() float64 { return float64(logger.TotalWarnings.Load()) })

	f.NewCounterFunc(prometheus.CounterOpts{
		Name: "loancheck_slow_requests_total",
		Help: "Requests slower than the slow request threshold",
	}, func() float64 { return float64(logger.SlowRequests.Load()) })

	return m
}

// ObserveResult records the outcome of an evaluation.
func (m *Metrics) ObserveResult(r *eligibility.Result) {
	if m == nil || r == nil {
		return
	}
	m.EvaluationOutcome.WithLabelValues(string(r.Reason)).Inc()
	if r.Reason != eligibility.ReasonInvalidPAN {
		m.CibilScore.Observe(float64(r.CibilScore))
	}
	if r.Eligible {
		m.EligiblePercentage.Observe(r.Percentage)
	}
}

// ObserveEvaluateLatency records the duration of one evaluation.
func (m *Metrics) ObserveEvaluateLatency(d time.Duration) {
	if m != nil {
		m.EvaluateLatency.Observe(d.Seconds())
	}
}

// IncrementRequest records a served HTTP request.
func (m *Metrics) IncrementRequest(route, method string, code int) {
	if m != nil {
		m.HTTPRequests.WithLabelValues(route, method, strconv.Itoa(code)).Inc()
	}
}
