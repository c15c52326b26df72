package metrics

import "time"

// OutcomeLabel enumerates per-document build results.
type OutcomeLabel string

const (
	OutcomeBuilt    OutcomeLabel = "built"
	OutcomeCached   OutcomeLabel = "cached"
	OutcomeNotFound OutcomeLabel = "not_found"
	OutcomeFailed   OutcomeLabel = "failed"
)

// BuildOutcomeLabel enumerates whole-build results.
type BuildOutcomeLabel string

const (
	BuildSuccess  BuildOutcomeLabel = "success"
	BuildPartial  BuildOutcomeLabel = "partial"
	BuildFailed   BuildOutcomeLabel = "failed"
	BuildCanceled BuildOutcomeLabel = "canceled"
)

// Recorder defines observability hooks for site builds and the content
// pipeline. Implementations may forward to Prometheus. All methods must be
// safe to call concurrently from build workers.
type Recorder interface {
	ObservePluginStep(plugin string, d time.Duration, err error)
	ObserveTransformDuration(kind string, d time.Duration)
	IncDocumentOutcome(outcome OutcomeLabel)
	ObserveBuildDuration(d time.Duration)
	IncBuildOutcome(outcome BuildOutcomeLabel)
	IncCacheResult(hit bool)
	ObserveSyncDuration(d time.Duration, success bool)
	SetWorkers(n int)
}

// NoopRecorder is a Recorder that does nothing (default when metrics not configured).
type NoopRecorder struct{}

func (NoopRecorder) ObservePluginStep(string, time.Duration, error) {}
func (NoopRecorder) ObserveTransformDuration(string, time.Duration) {}
func (NoopRecorder) IncDocumentOutcome(OutcomeLabel)                {}
func (NoopRecorder) ObserveBuildDuration(time.Duration)             {}
func (NoopRecorder) IncBuildOutcome(BuildOutcomeLabel)              {}
func (NoopRecorder) IncCacheResult(bool)                            {}
func (NoopRecorder) ObserveSyncDuration(time.Duration, bool)        {}
func (NoopRecorder) SetWorkers(int)                                 {}
