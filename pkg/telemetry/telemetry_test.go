package telemetry

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"
)

func TestLoggerEmitsStructuredFields(t *testing.T) {
	var buf bytes.Buffer
	log := NewWriterLogger(&buf).
		NewComponentLogger("engine").
		WithRecordID("rec-1").
		WithResource("img-1")

	log.Info("finished")

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log line is not JSON: %v", err)
	}
	if entry["component"] != "engine" {
		t.Errorf("component = %v, want engine", entry["component"])
	}
	if entry["record_id"] != "rec-1" {
		t.Errorf("record_id = %v, want rec-1", entry["record_id"])
	}
	if entry["resource"] != "img-1" {
		t.Errorf("resource = %v, want img-1", entry["resource"])
	}
	if entry["message"] != "finished" {
		t.Errorf("message = %v, want finished", entry["message"])
	}
}

func TestLoggerContextRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	log := NewWriterLogger(&buf)

	ctx := log.WithContext(t.Context())
	FromContext(ctx).Info("from context")

	if !bytes.Contains(buf.Bytes(), []byte("from context")) {
		t.Error("context logger did not write to the original writer")
	}
}

func TestDisabledMetricsAreNoops(t *testing.T) {
	m, err := NewMetrics(MetricsConfig{Enabled: false})
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}

	// None of these may panic on the no-op instance.
	m.RunStarted()
	m.RunCompleted("succeeded", time.Second)
	m.ProcedureStarted()
	m.ProcedureCompleted("import", "failed", time.Second)
	m.ErrorObserved("client")
	m.BytesImported(1 << 20)

	if m.Handler() != nil {
		t.Error("disabled metrics must not expose a handler")
	}
	if err := m.Serve(); err != nil {
		t.Errorf("disabled Serve returned %v, want nil", err)
	}
}

func TestEnabledMetricsExposeCounters(t *testing.T) {
	m, err := NewMetrics(MetricsConfig{Enabled: true, Namespace: "opsforge"})
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}

	m.RunStarted()
	m.ProcedureStarted()
	m.ProcedureCompleted("create", "succeeded", 10*time.Millisecond)
	m.RunCompleted("succeeded", 20*time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body := rec.Body.String()
	for _, metric := range []string{
		"opsforge_runs_started_total 1",
		`opsforge_runs_completed_total{status="succeeded"} 1`,
		`opsforge_procedures_executed_total{action="create",status="succeeded"} 1`,
	} {
		if !bytes.Contains([]byte(body), []byte(metric)) {
			t.Errorf("metrics output missing %q", metric)
		}
	}
}

func TestServeWithoutAddressIsNoop(t *testing.T) {
	m, err := NewMetrics(MetricsConfig{Enabled: true})
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	if err := m.Serve(); err != nil {
		t.Errorf("Serve without a listen address returned %v, want nil", err)
	}
}

func TestTracerDisabledIsSafe(t *testing.T) {
	tracer, err := NewTracer(TracingConfig{Enabled: false}, "opsforge", "test")
	if err != nil {
		t.Fatalf("NewTracer: %v", err)
	}

	ctx, span := tracer.StartRun(t.Context(), "rec-1", 3)
	if ctx == nil {
		t.Fatal("StartRun returned nil context")
	}
	EndSpan(span, nil)

	if err := tracer.Shutdown(t.Context()); err != nil {
		t.Errorf("Shutdown: %v", err)
	}
}
