package observability

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/yungbote/audience-backend/internal/data/repos/testutil"
	"github.com/yungbote/audience-backend/internal/domain/audience"
)

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	m.ObserveAPI("GET", "/x", "200", time.Millisecond)
	m.ObserveGeneration("openai", nil, time.Second)
	m.IncRoundOutcome("completed")
	if err := m.WritePrometheus(&bytes.Buffer{}); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func TestExposition(t *testing.T) {
	m := New()
	m.ObserveAPI("GET", "/api/audiences", "200", 30*time.Millisecond)
	m.ObserveGeneration("gemini", fmt.Errorf("wrap: %w", context.DeadlineExceeded), 2*time.Second)
	m.ObserveExecution(120, nil, 3*time.Second)
	m.ObserveExecution(0, errors.New("boom"), time.Second)
	m.IncRoundOutcome("completed")

	var buf bytes.Buffer
	if err := m.WritePrometheus(&buf); err != nil {
		t.Fatalf("write: %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		`audience_api_requests_total{method="GET",route="/api/audiences",status="200"} 1`,
		`audience_api_request_duration_seconds_bucket{method="GET",route="/api/audiences",status="200",le="0.05"} 1`,
		`audience_generation_requests_total{provider="gemini",status="timeout"} 1`,
		`audience_execution_rows_total 120`,
		`audience_execution_duration_seconds_count{status="error"} 1`,
		`audience_round_outcomes_total{status="completed"} 1`,
		"# TYPE audience_job_runs gauge",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in:\n%s", want, out)
		}
	}
}

func TestLabelEscaping(t *testing.T) {
	got := labelString([]string{"a", "b"}, []string{`x"y`})
	if got != `{a="x\"y",b="unknown"}` {
		t.Fatalf("labelString = %s", got)
	}
	if withLe("", "1") != `{le="1"}` {
		t.Fatalf("withLe empty")
	}
}

func TestCollectStatuses(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	p := testutil.SeedProfile(t, ctx, db, "user-1")
	testutil.SeedRound(t, ctx, db, p.ID, nil, audience.RoundStatusCompleted, time.Now().UTC())
	testutil.SeedRound(t, ctx, db, p.ID, nil, audience.RoundStatusCompleted, time.Now().UTC())
	testutil.SeedRound(t, ctx, db, p.ID, nil, audience.RoundStatusCreated, time.Now().UTC())

	m := New()
	if err := m.CollectStatuses(ctx, db); err != nil {
		t.Fatalf("collect: %v", err)
	}
	if got := m.queryRounds.Value(audience.RoundStatusCompleted); got != 2 {
		t.Fatalf("completed = %v", got)
	}
	if got := m.queryRounds.Value(audience.RoundStatusExecuting); got != 0 {
		t.Fatalf("executing = %v", got)
	}
	if got := m.jobRuns.Value("queued"); got != 0 {
		t.Fatalf("queued = %v", got)
	}
}

func TestParseHeaders(t *testing.T) {
	h := parseHeaders("a=1, bad ,b = 2,=x")
	if len(h) != 2 || h["a"] != "1" || h["b"] != "2" {
		t.Fatalf("parseHeaders = %v", h)
	}
	if parseHeaders("") != nil {
		t.Fatalf("expected nil for empty")
	}
}

func TestHistogramBucketsAreCumulative(t *testing.T) {
	h := NewHistogramVec("probe_seconds", "probe", nil, []float64{1, 0.25})
	for _, v := range []float64{0.125, 0.25, 0.5, 3} {
		h.Observe(v)
	}
	var buf bytes.Buffer
	if err := h.WritePrometheus(&buf); err != nil {
		t.Fatalf("write: %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		`probe_seconds_bucket{le="0.25"} 2`,
		`probe_seconds_bucket{le="1"} 3`,
		`probe_seconds_bucket{le="+Inf"} 4`,
		`probe_seconds_sum 3.875`,
		`probe_seconds_count 4`,
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in:\n%s", want, out)
		}
	}
}

func TestCounterIgnoresNegativeDeltas(t *testing.T) {
	c := NewCounterVec("probe_total", "probe", []string{"k"})
	c.Add(2, "a")
	c.Add(-5, "a")
	if got := c.Value("a"); got != 2 {
		t.Fatalf("counter = %v", got)
	}
}
