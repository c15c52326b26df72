package metrics

import (
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

const namespace = "postbuilder"

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	pluginDuration    *prom.HistogramVec
	pluginResults     *prom.CounterVec
	transformDuration *prom.HistogramVec
	documentOutcomes  *prom.CounterVec
	buildDuration     prom.Histogram
	buildOutcomes     *prom.CounterVec
	cacheResults      *prom.CounterVec
	syncDuration      *prom.HistogramVec
	workers           prom.Gauge
}

// NewPrometheusRecorder constructs the metrics and registers them with reg.
// A nil reg gets a private registry.
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{
		pluginDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "plugin_step_duration_seconds",
			Help:      "Duration of individual content plugin steps",
			Buckets:   []float64{.0001, .0005, .001, .005, .01, .05, .1, .5, 1},
		}, []string{"plugin"}),
		pluginResults: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "plugin_step_results_total",
			Help:      "Plugin step results by outcome",
		}, []string{"plugin", "result"}),
		transformDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "transform_duration_seconds",
			Help:      "Duration of whole document transforms",
			Buckets:   prom.DefBuckets,
		}, []string{"kind"}),
		documentOutcomes: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "document_outcomes_total",
			Help:      "Per-document build outcomes",
		}, []string{"outcome"}),
		buildDuration: prom.NewHistogram(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "build_duration_seconds",
			Help:      "Total site build duration",
			Buckets:   prom.DefBuckets,
		}),
		buildOutcomes: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "build_outcomes_total",
			Help:      "Site build outcomes by final status",
		}, []string{"outcome"}),
		cacheResults: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "cache_lookups_total",
			Help:      "Artifact cache lookups by result",
		}, []string{"result"}),
		syncDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "content_sync_duration_seconds",
			Help:      "Duration of content repository clone or pull",
			Buckets:   prom.DefBuckets,
		}, []string{"result"}),
		workers: prom.NewGauge(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "build_workers",
			Help:      "Worker count of the last site build",
		}),
	}
	reg.MustRegister(pr.pluginDuration, pr.pluginResults, pr.transformDuration, pr.documentOutcomes,
		pr.buildDuration, pr.buildOutcomes, pr.cacheResults, pr.syncDuration, pr.workers)
	return pr
}

func (p *PrometheusRecorder) ObservePluginStep(plugin string, d time.Duration, err error) {
	if p == nil {
		return
	}
	p.pluginDuration.WithLabelValues(plugin).Observe(d.Seconds())
	p.pluginResults.WithLabelValues(plugin, result(err == nil)).Inc()
}

func (p *PrometheusRecorder) ObserveTransformDuration(kind string, d time.Duration) {
	if p == nil {
		return
	}
	p.transformDuration.WithLabelValues(kind).Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncDocumentOutcome(outcome OutcomeLabel) {
	if p == nil {
		return
	}
	p.documentOutcomes.WithLabelValues(string(outcome)).Inc()
}

func (p *PrometheusRecorder) ObserveBuildDuration(d time.Duration) {
	if p == nil {
		return
	}
	p.buildDuration.Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncBuildOutcome(outcome BuildOutcomeLabel) {
	if p == nil {
		return
	}
	p.buildOutcomes.WithLabelValues(string(outcome)).Inc()
}

func (p *PrometheusRecorder) IncCacheResult(hit bool) {
	if p == nil {
		return
	}
	res := "miss"
	if hit {
		res = "hit"
	}
	p.cacheResults.WithLabelValues(res).Inc()
}

func (p *PrometheusRecorder) ObserveSyncDuration(d time.Duration, success bool) {
	if p == nil {
		return
	}
	p.syncDuration.WithLabelValues(result(success)).Observe(d.Seconds())
}

func (p *PrometheusRecorder) SetWorkers(n int) {
	if p == nil {
		return
	}
	p.workers.Set(float64(n))
}

func result(success bool) string {
	if success {
		return "success"
	}
	return "failed"
}
