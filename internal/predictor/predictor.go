// Package predictor scores clinical records against the registered risk heads.
//
// Every failure path resolves to the model's static fallback probability. Callers
// only see a number; Result keeps fallback answers distinguishable for logs and
// metrics.
package predictor

import (
	"math"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/Skufu/clinicrisk/internal/features"
	"github.com/Skufu/clinicrisk/internal/metrics"
	"github.com/Skufu/clinicrisk/internal/record"
	"github.com/Skufu/clinicrisk/internal/registry"
	"github.com/Skufu/clinicrisk/internal/tier"
)

var ErrInvalidProbability = errors.New("probability outside [0,1]")

type Outcome string

const (
	OK       Outcome = "ok"
	Fallback Outcome = "fallback"
)

type Reason string

const (
	ReasonUnknownModel       Reason = "unknown_model"
	ReasonInvalidOverrides   Reason = "invalid_overrides"
	ReasonUnavailable        Reason = "registry_unavailable"
	ReasonMissingHead        Reason = "missing_head"
	ReasonScale              Reason = "scale_failed"
	ReasonInference          Reason = "inference_failed"
	ReasonInvalidProbability Reason = "invalid_probability"
	ReasonPanic              Reason = "inference_panic"
)

var fallbacks = map[features.ModelName]float64{
	features.NoShow:   0.3,
	features.Diabetes: 0.2,
	features.Heart:    0.25,
}

// FallbackProbability is the static answer served when model m cannot score.
func FallbackProbability(m features.ModelName) float64 {
	return fallbacks[m]
}

// Result is the typed outcome of one prediction.
type Result struct {
	Model       features.ModelName `json:"model"`
	Schema      features.SchemaID  `json:"schema,omitempty"`
	Probability float64            `json:"probability"`
	Outcome     Outcome            `json:"outcome"`
	Reason      Reason             `json:"reason,omitempty"`
	Vector      features.Vector    `json:"features"`
}

func (r Result) IsFallback() bool { return r.Outcome == Fallback }

// Assessment couples a result with its display tier.
type Assessment struct {
	Result `yaml:",inline"`
	Risk   tier.ScoredRisk `json:"risk"`
}

// Models is the read side of the registry.
type Models interface {
	Get(name features.ModelName) (*registry.Bundle, error)
}

type Predictor struct {
	models  Models
	logger  logrus.FieldLogger
	metrics *metrics.Metrics
}

type Option func(*Predictor)

func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Predictor) { p.metrics = m }
}

func New(models Models, logger logrus.FieldLogger, opts ...Option) *Predictor {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	p := &Predictor{models: models, logger: logger}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Predict returns the probability for model m, rounded to 3 decimals.
func (p *Predictor) Predict(m features.ModelName, rec record.ClinicalRecord, ov features.Overrides) float64 {
	return p.Evaluate(m, rec, ov).Probability
}

// Evaluate builds the feature vector, scales it and runs the classifier.
func (p *Predictor) Evaluate(m features.ModelName, rec record.ClinicalRecord, ov features.Overrides) Result {
	res := Result{Model: m}

	vec, err := features.Build(m, rec, ov)
	if errors.Is(err, features.ErrUnknownFeature) {
		return p.fallback(res, ReasonInvalidOverrides, err)
	}
	if err != nil {
		return p.fallback(res, ReasonUnknownModel, err)
	}
	res.Schema = vec.Schema
	res.Vector = vec

	b, err := p.models.Get(m)
	if err != nil {
		return p.fallback(res, ReasonUnavailable, err)
	}
	h, ok := b.Head(vec.Schema)
	if !ok {
		return p.fallback(res, ReasonMissingHead, errors.Wrapf(registry.ErrMissingHead, "%s", vec.Schema))
	}

	prob, reason, err := infer(h, vec.Values)
	if err != nil {
		return p.fallback(res, reason, err)
	}

	res.Probability = round3(prob)
	res.Outcome = OK
	p.metrics.ObservePrediction(string(m), string(res.Schema), string(OK), "")
	return res
}

// Assess scores model m and maps the probability to a localized tier.
func (p *Predictor) Assess(m features.ModelName, rec record.ClinicalRecord, ov features.Overrides, l tier.Locale) Assessment {
	res := p.Evaluate(m, rec, ov)
	return Assessment{Result: res, Risk: tier.ClassifyIn(l, res.Probability)}
}

// AssessAll scores every model for one record. Overrides are per model because
// the same feature name can mean different measurements across schemas.
func (p *Predictor) AssessAll(rec record.ClinicalRecord, ov map[features.ModelName]features.Overrides, l tier.Locale) []Assessment {
	out := make([]Assessment, 0, len(features.Models))
	for _, m := range features.Models {
		out = append(out, p.Assess(m, rec, ov[m], l))
	}
	return out
}

func infer(h registry.Head, x []float64) (prob float64, reason Reason, err error) {
	defer func() {
		if r := recover(); r != nil {
			prob, reason, err = 0, ReasonPanic, errors.Errorf("inference panic: %v", r)
		}
	}()

	scaled, err := h.Scaler.Transform(x)
	if err != nil {
		return 0, ReasonScale, errors.Wrap(err, "scale features")
	}
	prob, err = h.Classifier.PredictProba(scaled)
	if err != nil {
		return 0, ReasonInference, errors.Wrap(err, "predict probability")
	}
	if math.IsNaN(prob) || prob < 0 || prob > 1 {
		return 0, ReasonInvalidProbability, errors.Wrapf(ErrInvalidProbability, "%v", prob)
	}
	return prob, "", nil
}

func (p *Predictor) fallback(res Result, reason Reason, err error) Result {
	res.Probability = FallbackProbability(res.Model)
	res.Outcome = Fallback
	res.Reason = reason

	p.logger.WithFields(logrus.Fields{
		"model":       res.Model,
		"schema":      res.Schema,
		"reason":      reason,
		"probability": res.Probability,
	}).WithError(err).Warn("risk prediction fell back to static probability")
	p.metrics.ObservePrediction(string(res.Model), string(res.Schema), string(Fallback), string(reason))
	return res
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
