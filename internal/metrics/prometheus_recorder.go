package metrics

import (
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

const namespace = "staticboot"

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	pageDuration  *prom.HistogramVec
	pageResults   *prom.CounterVec
	batchDuration prom.Histogram
	batchOutcomes *prom.CounterVec
	inFlight      prom.Gauge
}

// NewPrometheusRecorder constructs the collectors and registers them on reg.
// A nil reg gets a private registry.
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{
		pageDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "page_duration_seconds",
			Help:      "Duration of the render, mkdir and write pipeline for one route",
			Buckets:   prom.DefBuckets,
		}, []string{"result"}),
		pageResults: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "page_results_total",
			Help:      "Page results by outcome",
		}, []string{"result"}),
		batchDuration: prom.NewHistogram(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_duration_seconds",
			Help:      "Total batch duration",
			Buckets:   prom.DefBuckets,
		}),
		batchOutcomes: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "batch_outcomes_total",
			Help:      "Batch outcomes by final status",
		}, []string{"outcome"}),
		inFlight: prom.NewGauge(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "pages_in_flight",
			Help:      "Routes currently being rendered or written",
		}),
	}
	reg.MustRegister(pr.pageDuration, pr.pageResults, pr.batchDuration, pr.batchOutcomes, pr.inFlight)
	return pr
}

func (p *PrometheusRecorder) ObservePageDuration(result ResultLabel, d time.Duration) {
	if p == nil {
		return
	}
	p.pageDuration.WithLabelValues(string(result)).Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncPageResult(result ResultLabel) {
	if p == nil {
		return
	}
	p.pageResults.WithLabelValues(string(result)).Inc()
}

func (p *PrometheusRecorder) ObserveBatchDuration(d time.Duration) {
	if p == nil {
		return
	}
	p.batchDuration.Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncBatchOutcome(outcome BatchOutcomeLabel) {
	if p == nil {
		return
	}
	p.batchOutcomes.WithLabelValues(string(outcome)).Inc()
}

func (p *PrometheusRecorder) AddInFlight(delta int) {
	if p == nil {
		return
	}
	p.inFlight.Add(float64(delta))
}
