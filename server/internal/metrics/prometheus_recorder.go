package metrics

import (
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	mutations    *prom.CounterVec
	saves        *prom.CounterVec
	saveDuration prom.Histogram
	broadcasts   prom.Counter
	observers    prom.Gauge
	dropped      prom.Counter
}

// NewPrometheusRecorder constructs the lapboard metrics and registers them
// with reg. A nil reg gets a fresh registry.
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{
		mutations: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "lapboard",
			Name:      "mutations_total",
			Help:      "Board mutations by operation and result",
		}, []string{"op", "result"}),
		saves: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "lapboard",
			Name:      "saves_total",
			Help:      "Data file writes by result",
		}, []string{"result"}),
		saveDuration: prom.NewHistogram(prom.HistogramOpts{
			Namespace: "lapboard",
			Name:      "save_duration_seconds",
			Help:      "Duration of data file writes",
			Buckets:   prom.DefBuckets,
		}),
		broadcasts: prom.NewCounter(prom.CounterOpts{
			Namespace: "lapboard",
			Name:      "broadcasts_total",
			Help:      "State updates fanned out to observers",
		}),
		observers: prom.NewGauge(prom.GaugeOpts{
			Namespace: "lapboard",
			Name:      "observers",
			Help:      "Currently connected WebSocket observers",
		}),
		dropped: prom.NewCounter(prom.CounterOpts{
			Namespace: "lapboard",
			Name:      "observers_dropped_total",
			Help:      "Observers disconnected because their send buffer was full",
		}),
	}
	reg.MustRegister(pr.mutations, pr.saves, pr.saveDuration, pr.broadcasts, pr.observers, pr.dropped)
	return pr
}

func (p *PrometheusRecorder) IncMutation(op Op, result Result) {
	p.mutations.WithLabelValues(string(op), string(result)).Inc()
}

func (p *PrometheusRecorder) IncSave(success bool) {
	res := "failed"
	if success {
		res = "success"
	}
	p.saves.WithLabelValues(res).Inc()
}

func (p *PrometheusRecorder) ObserveSaveDuration(d time.Duration) {
	p.saveDuration.Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncBroadcast() { p.broadcasts.Inc() }

func (p *PrometheusRecorder) SetObservers(n int) { p.observers.Set(float64(n)) }

func (p *PrometheusRecorder) IncObserverDropped() { p.dropped.Inc() }

var _ Recorder = (*PrometheusRecorder)(nil)
