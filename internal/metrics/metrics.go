// Package metrics exposes prediction outcomes to prometheus so fallback answers stay
// visible even though callers only ever see a probability.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "clinicrisk"

type Metrics struct {
	predictions  *prometheus.CounterVec
	fallbacks    *prometheus.CounterVec
	modelsLoaded prometheus.Gauge
}

// New registers the collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		predictions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "predictions_total",
			Help:      "Risk predictions served, by model, feature schema and outcome.",
		}, []string{"model", "schema", "outcome"}),
		fallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "prediction_fallbacks_total",
			Help:      "Predictions answered with the static fallback probability, by reason.",
		}, []string{"model", "reason"}),
		modelsLoaded: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "models_loaded",
			Help:      "1 when every risk model head loaded, 0 in degraded mode.",
		}),
	}
	reg.MustRegister(m.predictions, m.fallbacks, m.modelsLoaded)
	return m
}

// ObservePrediction counts one answered prediction. reason is empty for model answers.
func (m *Metrics) ObservePrediction(model, schema, outcome, reason string) {
	if m == nil {
		return
	}
	m.predictions.WithLabelValues(model, schema, outcome).Inc()
	if reason != "" {
		m.fallbacks.WithLabelValues(model, reason).Inc()
	}
}

func (m *Metrics) SetModelsLoaded(loaded bool) {
	if m == nil {
		return
	}
	if loaded {
		m.modelsLoaded.Set(1)
		return
	}
	m.modelsLoaded.Set(0)
}
