package metrics

import (
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	reg           *prom.Registry
	stageDuration *prom.HistogramVec
	stageResults  *prom.CounterVec
	documents     *prom.CounterVec
	registrySize  *prom.GaugeVec
	runDuration   prom.Histogram
	runOutcome    *prom.CounterVec
}

// NewPrometheusRecorder constructs the metrics and registers them with reg
// (a fresh registry when nil).
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{reg: reg}
	pr.stageDuration = prom.NewHistogramVec(prom.HistogramOpts{
		Namespace: "avrogen",
		Name:      "stage_duration_seconds",
		Help:      "Duration of individual pipeline stages",
		Buckets:   prom.DefBuckets,
	}, []string{"stage"})
	pr.stageResults = prom.NewCounterVec(prom.CounterOpts{
		Namespace: "avrogen",
		Name:      "stage_results_total",
		Help:      "Stage result counts by outcome",
	}, []string{"stage", "result"})
	pr.documents = prom.NewCounterVec(prom.CounterOpts{
		Namespace: "avrogen",
		Name:      "documents_processed_total",
		Help:      "Documents compiled or registered, by stage",
	}, []string{"stage"})
	pr.registrySize = prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: "avrogen",
		Name:      "registry_types",
		Help:      "Number of registered types per scope after registration",
	}, []string{"scope"})
	pr.runDuration = prom.NewHistogram(prom.HistogramOpts{
		Namespace: "avrogen",
		Name:      "run_duration_seconds",
		Help:      "Total pipeline run duration",
		Buckets:   prom.DefBuckets,
	})
	pr.runOutcome = prom.NewCounterVec(prom.CounterOpts{
		Namespace: "avrogen",
		Name:      "run_outcomes_total",
		Help:      "Pipeline runs by final status",
	}, []string{"outcome"})
	reg.MustRegister(pr.stageDuration, pr.stageResults, pr.documents, pr.registrySize, pr.runDuration, pr.runOutcome)
	return pr
}

// Registry returns the registry the metrics are registered with.
func (p *PrometheusRecorder) Registry() *prom.Registry { return p.reg }

func (p *PrometheusRecorder) ObserveStageDuration(stage string, d time.Duration) {
	p.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncStageResult(stage, result string) {
	p.stageResults.WithLabelValues(stage, result).Inc()
}

func (p *PrometheusRecorder) AddDocuments(stage string, n int) {
	p.documents.WithLabelValues(stage).Add(float64(n))
}

func (p *PrometheusRecorder) SetRegistrySize(scope string, n int) {
	p.registrySize.WithLabelValues(scope).Set(float64(n))
}

func (p *PrometheusRecorder) ObserveRunDuration(d time.Duration) {
	p.runDuration.Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncRunOutcome(outcome string) {
	p.runOutcome.WithLabelValues(outcome).Inc()
}

// WriteTextfile writes the current metrics in the text exposition format,
// for node-exporter style textfile collection.
func (p *PrometheusRecorder) WriteTextfile(path string) error {
	return prom.WriteToTextfile(path, p.reg)
}
