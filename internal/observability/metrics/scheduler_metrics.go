package metrics

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	SchedulerErrorTypeDeadlineExceeded = "deadline_exceeded"
	SchedulerErrorTypeNoData           = "no_data"
	SchedulerErrorTypeBusinessRule     = "business_rule"
	SchedulerErrorTypeDB               = "db"
	SchedulerErrorTypeUnknown          = "unknown"
)

// SchedulerMetrics captures pricing-cycle health signals.
type SchedulerMetrics struct {
	jobRuns         *prometheus.CounterVec
	jobDuration     *prometheus.HistogramVec
	jobTimeouts     *prometheus.CounterVec
	jobErrors       *prometheus.CounterVec
	cycleSkips      prometheus.Counter
	recommendations *prometheus.CounterVec
	decideOutcomes  *prometheus.CounterVec
}

var (
	schedulerMetricsOnce sync.Once
	schedulerMetrics     *SchedulerMetrics
)

// Scheduler returns the singleton scheduler metrics registry.
func Scheduler() *SchedulerMetrics {
	schedulerMetricsOnce.Do(func() {
		schedulerMetrics = newSchedulerMetrics(prometheus.DefaultRegisterer)
	})
	return schedulerMetrics
}

// ResetSchedulerMetricsForTest resets the scheduler metrics singleton for tests.
func ResetSchedulerMetricsForTest() {
	schedulerMetricsOnce = sync.Once{}
	schedulerMetrics = nil
}

func newSchedulerMetrics(registerer prometheus.Registerer) *SchedulerMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	factory := func(c prometheus.Collector) prometheus.Collector {
		if err := registerer.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				return are.ExistingCollector
			}
		}
		return c
	}

	jobRuns := factory(prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pricing_scheduler_job_runs_total",
		Help: "Scheduler job invocations by job name.",
	}, []string{"job"})).(*prometheus.CounterVec)

	jobDuration := factory(prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "pricing_scheduler_job_duration_seconds",
		Help:    "Scheduler job duration by job name.",
		Buckets: []float64{0.1, 0.5, 1, 5, 15, 60, 300},
	}, []string{"job"})).(*prometheus.HistogramVec)

	jobTimeouts := factory(prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pricing_scheduler_job_timeouts_total",
		Help: "Scheduler job deadline hits by job name.",
	}, []string{"job"})).(*prometheus.CounterVec)

	jobErrors := factory(prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pricing_scheduler_job_errors_total",
		Help: "Scheduler job errors by job name and error type.",
	}, []string{"job", "type"})).(*prometheus.CounterVec)

	cycleSkips := factory(prometheus.NewCounter(prometheus.CounterOpts{
		Name: "pricing_scheduler_cycle_skips_total",
		Help: "Cycles skipped because a previous cycle was still running.",
	})).(prometheus.Counter)

	recommendations := factory(prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pricing_recommendations_total",
		Help: "Price recommendations by outcome (generated, suppressed, failed).",
	}, []string{"outcome"})).(*prometheus.CounterVec)

	decideOutcomes := factory(prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pricing_recommendation_decisions_total",
		Help: "Admin decisions on recommendations by result.",
	}, []string{"result"})).(*prometheus.CounterVec)

	return &SchedulerMetrics{
		jobRuns:         jobRuns,
		jobDuration:     jobDuration,
		jobTimeouts:     jobTimeouts,
		jobErrors:       jobErrors,
		cycleSkips:      cycleSkips,
		recommendations: recommendations,
		decideOutcomes:  decideOutcomes,
	}
}

func (m *SchedulerMetrics) IncJobRun(job string) {
	if m == nil {
		return
	}
	m.jobRuns.WithLabelValues(job).Inc()
}

func (m *SchedulerMetrics) ObserveJobDuration(job string, d time.Duration) {
	if m == nil {
		return
	}
	m.jobDuration.WithLabelValues(job).Observe(d.Seconds())
}

func (m *SchedulerMetrics) IncJobTimeout(job string) {
	if m == nil {
		return
	}
	m.jobTimeouts.WithLabelValues(job).Inc()
}

func (m *SchedulerMetrics) IncJobError(job string, err error) {
	if m == nil {
		return
	}
	m.jobErrors.WithLabelValues(job, classifyError(err)).Inc()
}

func (m *SchedulerMetrics) IncCycleSkip() {
	if m == nil {
		return
	}
	m.cycleSkips.Inc()
}

func (m *SchedulerMetrics) IncRecommendation(outcome string) {
	if m == nil {
		return
	}
	m.recommendations.WithLabelValues(outcome).Inc()
}

func (m *SchedulerMetrics) IncDecision(result string) {
	if m == nil {
		return
	}
	m.decideOutcomes.WithLabelValues(result).Inc()
}

func classifyError(err error) string {
	switch {
	case err == nil:
		return SchedulerErrorTypeUnknown
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return SchedulerErrorTypeDeadlineExceeded
	default:
		return SchedulerErrorTypeUnknown
	}
}
