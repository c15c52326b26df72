// Package metrics provides build and pipeline metrics for postbuilder.
//
// Components receive a Recorder through dependency injection and default to
// NoopRecorder, so metrics collection needs no nil checks:
//
//	builder := site.NewBuilder(cfg, site.WithRecorder(metrics.NoopRecorder{}))
//
// The serve command, or build with server.metrics enabled, swaps in a
// PrometheusRecorder bound to a private registry and exposes it through
// HTTPHandler at /metrics.
//
// A Recorder also satisfies content.StepObserver, so the same value times
// each plugin step inside the content pipeline.
package metrics
