package metrics

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func findMetric(t *testing.T, reg *prometheus.Registry, name string, labels map[string]string) *dto.Metric {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
	next:
		for _, m := range mf.GetMetric() {
			got := make(map[string]string)
			for _, lp := range m.GetLabel() {
				got[lp.GetName()] = lp.GetValue()
			}
			for k, v := range labels {
				if got[k] != v {
					continue next
				}
			}
			return m
		}
	}
	return nil
}

func TestCollector_AggregateWrites(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordAggregateWrite(nil)
	c.RecordAggregateWrite(nil)
	c.RecordAggregateWrite(errors.New("boom"))

	ok := findMetric(t, reg, "anheyu_comment_aggregate_writes_total", map[string]string{"result": ResultOK})
	if ok == nil || ok.GetCounter().GetValue() != 2 {
		t.Fatalf("ok writes = %v, want 2", ok)
	}
	failed := findMetric(t, reg, "anheyu_comment_aggregate_writes_total", map[string]string{"result": ResultFailed})
	if failed == nil || failed.GetCounter().GetValue() != 1 {
		t.Fatalf("failed writes = %v, want 1", failed)
	}
}

func TestCollector_Jobs(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordJobDispatched("CommentCountRecompute", "queued")
	c.RecordJobFinished("CommentCountRecompute", 20*time.Millisecond)
	c.RecordJobPanic("CommentNotification")

	if m := findMetric(t, reg, "anheyu_comment_jobs_dispatched_total", map[string]string{"job": "CommentCountRecompute", "mode": "queued"}); m == nil || m.GetCounter().GetValue() != 1 {
		t.Errorf("dispatched metric = %v", m)
	}
	if m := findMetric(t, reg, "anheyu_comment_job_duration_seconds", map[string]string{"job": "CommentCountRecompute"}); m == nil || m.GetHistogram().GetSampleCount() != 1 {
		t.Errorf("duration metric = %v", m)
	}
	if m := findMetric(t, reg, "anheyu_comment_jobs_panicked_total", map[string]string{"job": "CommentNotification"}); m == nil || m.GetCounter().GetValue() != 1 {
		t.Errorf("panic metric = %v", m)
	}
}

func TestCollector_NilSafe(t *testing.T) {
	var c *Collector
	c.RecordJobDispatched("x", "queued")
	c.RecordJobFinished("x", time.Second)
	c.RecordJobPanic("x")
	c.RecordAggregateWrite(nil)
	c.RecordEmail("owner", nil)
	c.RecordHTTPRequest("GET", "/", 200, time.Millisecond)
}

func TestHandler_ServesMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)
	c.RecordEmail("owner", nil)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	Handler(reg).ServeHTTP(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "anheyu_comment_emails_total") {
		t.Error("response should contain anheyu_comment_emails_total")
	}
}
