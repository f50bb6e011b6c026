package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

func TestPrometheusRecorder(t *testing.T) {
	reg := prom.NewRegistry()
	pr := NewPrometheusRecorder(reg)
	pr.ObserveStageDuration("emit", 150*time.Millisecond)
	pr.IncStageResult("emit", ResultSuccess)
	pr.AddDocuments("register-group-types", 3)
	pr.SetRegistrySize("main", 7)
	pr.ObserveRunDuration(500 * time.Millisecond)
	pr.IncRunOutcome("success")
	// Basic scrape to ensure metrics encode without panic
	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	if len(mfs) != 6 {
		t.Fatalf("expected 6 metric families, got %d", len(mfs))
	}
}

func TestPrometheusRecorder_WriteTextfile(t *testing.T) {
	pr := NewPrometheusRecorder(nil)
	pr.SetRegistrySize("deps", 2)
	path := filepath.Join(t.TempDir(), "avrogen.prom")
	if err := pr.WriteTextfile(path); err != nil {
		t.Fatalf("write textfile: %v", err)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.Contains(string(b), `avrogen_registry_types{scope="deps"} 2`) {
		t.Fatalf("textfile missing registry gauge:\n%s", b)
	}
}

func TestNoopRecorder(t *testing.T) {
	var r Recorder = NoopRecorder{}
	r.ObserveStageDuration("x", time.Second)
	r.IncStageResult("x", ResultFailed)
	r.AddDocuments("x", 1)
	r.SetRegistrySize("x", 1)
	r.ObserveRunDuration(time.Second)
	r.IncRunOutcome("failed")
}
