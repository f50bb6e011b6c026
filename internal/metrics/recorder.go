package metrics

import "time"

// Stage result labels.
const (
	ResultSuccess  = "success"
	ResultFailed   = "failed"
	ResultCanceled = "canceled"
)

// Recorder defines observability hooks for runs and stages. All methods must
// be safe to call concurrently.
type Recorder interface {
	ObserveStageDuration(stage string, d time.Duration)
	IncStageResult(stage, result string)
	AddDocuments(stage string, n int)
	SetRegistrySize(scope string, n int)
	ObserveRunDuration(d time.Duration)
	IncRunOutcome(outcome string)
}

// NoopRecorder is a Recorder that does nothing (default when metrics not configured).
type NoopRecorder struct{}

func (NoopRecorder) ObserveStageDuration(string, time.Duration) {}
func (NoopRecorder) IncStageResult(string, string)              {}
func (NoopRecorder) AddDocuments(string, int)                   {}
func (NoopRecorder) SetRegistrySize(string, int)                {}
func (NoopRecorder) ObserveRunDuration(time.Duration)           {}
func (NoopRecorder) IncRunOutcome(string)                       {}
