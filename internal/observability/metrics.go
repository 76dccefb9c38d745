package observability

import (
	"context"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"gorm.io/gorm"

	types "github.com/yungbote/audience-backend/internal/domain"
	"github.com/yungbote/audience-backend/internal/domain/audience"
	jobstatus "github.com/yungbote/audience-backend/internal/domain/jobs"
	"github.com/yungbote/audience-backend/internal/platform/envutil"
	"github.com/yungbote/audience-backend/internal/platform/logger"
)

var latencyBuckets = []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30}

// Generation and warehouse calls run for seconds to minutes.
var slowBuckets = []float64{0.5, 1, 2, 5, 10, 30, 60, 120, 300}

type Metrics struct {
	apiRequests   *CounterVec
	apiLatency    *HistogramVec
	apiInflight   *GaugeVec
	genRequests   *CounterVec
	genLatency    *HistogramVec
	execLatency   *HistogramVec
	execRows      *CounterVec
	roundOutcomes *CounterVec
	jobRuns       *GaugeVec
	queryRounds   *GaugeVec
}

var (
	initOnce sync.Once
	instance *Metrics
)

func Enabled() bool { return envutil.Bool("METRICS_ENABLED", false) }

// Current returns the process metrics, or nil when metrics are disabled. All Metrics methods
// accept a nil receiver.
func Current() *Metrics { return instance }

// Init creates the process metrics when METRICS_ENABLED is set.
func Init() *Metrics {
	if !Enabled() {
		return nil
	}
	initOnce.Do(func() { instance = New() })
	return instance
}

func New() *Metrics {
	return &Metrics{
		apiRequests: NewCounterVec("audience_api_requests_total", "API requests by method/route/status.", []string{"method", "route", "status"}),
		apiLatency: NewHistogramVec("audience_api_request_duration_seconds", "API request latency in seconds.",
			[]string{"method", "route", "status"}, latencyBuckets),
		apiInflight: NewGaugeVec("audience_api_inflight_requests", "In-flight API requests.", nil),
		genRequests: NewCounterVec("audience_generation_requests_total", "Query generation calls by provider/status.", []string{"provider", "status"}),
		genLatency: NewHistogramVec("audience_generation_duration_seconds", "Query generation latency in seconds.",
			[]string{"provider", "status"}, slowBuckets),
		execLatency: NewHistogramVec("audience_execution_duration_seconds", "Warehouse query latency in seconds.",
			[]string{"status"}, slowBuckets),
		execRows:      NewCounterVec("audience_execution_rows_total", "Rows returned by the warehouse.", nil),
		roundOutcomes: NewCounterVec("audience_round_outcomes_total", "Query rounds reaching a terminal status.", []string{"status"}),
		jobRuns:       NewGaugeVec("audience_job_runs", "job_run rows by status.", []string{"status"}),
		queryRounds:   NewGaugeVec("audience_query_rounds", "Query rounds by status.", []string{"status"}),
	}
}

func (m *Metrics) collectors() []collector {
	return []collector{
		m.apiRequests, m.apiLatency, m.apiInflight,
		m.genRequests, m.genLatency,
		m.execLatency, m.execRows,
		m.roundOutcomes, m.jobRuns, m.queryRounds,
	}
}

func (m *Metrics) WritePrometheus(w io.Writer) error {
	if m == nil {
		return nil
	}
	for _, c := range m.collectors() {
		if err := c.WritePrometheus(w); err != nil {
			return err
		}
	}
	return nil
}

func (m *Metrics) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if m == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	_ = m.WritePrometheus(w)
}

func (m *Metrics) ObserveAPI(method, route, status string, dur time.Duration) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	m.apiRequests.Inc(method, route, status)
	m.apiLatency.Observe(dur.Seconds(), method, route, status)
}

func (m *Metrics) APIInflight(delta float64) {
	if m == nil {
		return
	}
	m.apiInflight.Add(delta)
}

func (m *Metrics) ObserveGeneration(provider string, err error, dur time.Duration) {
	if m == nil {
		return
	}
	status := outcome(err)
	m.genRequests.Inc(provider, status)
	m.genLatency.Observe(dur.Seconds(), provider, status)
}

func (m *Metrics) ObserveExecution(rows int, err error, dur time.Duration) {
	if m == nil {
		return
	}
	m.execLatency.Observe(dur.Seconds(), outcome(err))
	if err == nil {
		m.execRows.Add(float64(rows))
	}
}

func (m *Metrics) IncRoundOutcome(status string) {
	if m == nil {
		return
	}
	m.roundOutcomes.Inc(status)
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case strings.Contains(err.Error(), "deadline exceeded"):
		return "timeout"
	default:
		return "error"
	}
}

// StartStatusCollector samples job_run and query round counts by status until ctx is done.
func (m *Metrics) StartStatusCollector(ctx context.Context, log *logger.Logger, db *gorm.DB, every time.Duration) {
	if m == nil || db == nil {
		return
	}
	if every <= 0 {
		every = 10 * time.Second
	}
	go func() {
		ticker := time.NewTicker(every)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := m.CollectStatuses(ctx, db); err != nil && ctx.Err() == nil {
					log.Warn("metrics: status sample failed", "error", err)
				}
			}
		}
	}()
}

type statusCount struct {
	Status string
	Count  int64
}

func (m *Metrics) CollectStatuses(ctx context.Context, db *gorm.DB) error {
	if m == nil {
		return nil
	}
	jobStatuses := []string{jobstatus.StatusQueued, jobstatus.StatusRunning, jobstatus.StatusSucceeded, jobstatus.StatusFailed, jobstatus.StatusCanceled}
	if err := sample(ctx, db, &types.JobRun{}, m.jobRuns, jobStatuses); err != nil {
		return err
	}
	roundStatuses := []string{audience.RoundStatusCreated, audience.RoundStatusExecuting, audience.RoundStatusCompleted, audience.RoundStatusExecutionFailed}
	return sample(ctx, db, &types.QueryRound{}, m.queryRounds, roundStatuses)
}

func sample(ctx context.Context, db *gorm.DB, model any, gauge *GaugeVec, statuses []string) error {
	var rows []statusCount
	if err := db.WithContext(ctx).Model(model).
		Select("status, count(*) AS count").
		Group("status").
		Scan(&rows).Error; err != nil {
		return err
	}
	for _, s := range statuses {
		gauge.Set(0, s)
	}
	for _, r := range rows {
		gauge.Set(float64(r.Count), r.Status)
	}
	return nil
}
