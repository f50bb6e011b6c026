// Package metrics records pipeline observability data. The Recorder
// interface decouples the pipeline from any backend; NoopRecorder is the
// default and PrometheusRecorder exports to client_golang.
package metrics
