package model

import (
	"os"
	"path/filepath"
	"sort"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

const fileMode = 0o644

// ClassifierArtifact is the persisted form of one trained classifier head.
type ClassifierArtifact struct {
	Kind     string    `yaml:"kind" json:"kind"`
	Features []string  `yaml:"features" json:"features"`
	Weights  []float64 `yaml:"weights" json:"weights"`
	Bias     float64   `yaml:"bias" json:"bias"`
}

// ScalerArtifact is the persisted form of one fitted scaler head.
type ScalerArtifact struct {
	Kind     string    `yaml:"kind" json:"kind"`
	Features []string  `yaml:"features" json:"features"`
	Mean     []float64 `yaml:"mean,omitempty" json:"mean,omitempty"`
	Scale    []float64 `yaml:"scale,omitempty" json:"scale,omitempty"`
}

// PredictorFile is one <model>_predictor.yaml document, heads keyed by schema variant.
type PredictorFile struct {
	Model string                        `yaml:"model" json:"model"`
	Heads map[string]ClassifierArtifact `yaml:"heads" json:"heads"`
}

// ScalerFile is one <model>_scaler.yaml document, heads keyed by schema variant.
type ScalerFile struct {
	Model string                    `yaml:"model" json:"model"`
	Heads map[string]ScalerArtifact `yaml:"heads" json:"heads"`
}

func PredictorPath(dir, model string) string {
	return filepath.Join(dir, model+"_predictor.yaml")
}

func ScalerPath(dir, model string) string {
	return filepath.Join(dir, model+"_scaler.yaml")
}

func (a ClassifierArtifact) Build() (Classifier, error) {
	switch a.Kind {
	case KindLogisticRegression:
		if len(a.Weights) != len(a.Features) {
			return nil, errors.Wrapf(ErrShapeMismatch, "%d weights for %d features", len(a.Weights), len(a.Features))
		}
		if err := checkRow(a.Weights, len(a.Weights)); err != nil {
			return nil, errors.Wrap(err, "weights")
		}
		if err := checkRow([]float64{a.Bias}, 1); err != nil {
			return nil, errors.Wrap(err, "bias")
		}
		w := make([]float64, len(a.Weights))
		copy(w, a.Weights)
		return &LogisticRegression{Weights: w, Bias: a.Bias}, nil
	default:
		return nil, errors.Wrapf(ErrUnknownKind, "classifier %q", a.Kind)
	}
}

func (a ScalerArtifact) Build() (Scaler, error) {
	switch a.Kind {
	case KindStandardScaler:
		n := len(a.Features)
		if len(a.Mean) != n || len(a.Scale) != n {
			return nil, errors.Wrapf(ErrShapeMismatch, "mean %d, scale %d for %d features", len(a.Mean), len(a.Scale), n)
		}
		if err := checkRow(a.Mean, n); err != nil {
			return nil, errors.Wrap(err, "mean")
		}
		if err := checkRow(a.Scale, n); err != nil {
			return nil, errors.Wrap(err, "scale")
		}
		for j, v := range a.Scale {
			if v == 0 {
				return nil, errors.Errorf("scale for feature %q is zero", a.Features[j])
			}
		}
		mean := make([]float64, n)
		scale := make([]float64, n)
		copy(mean, a.Mean)
		copy(scale, a.Scale)
		return &StandardScaler{Mean: mean, Scale: scale}, nil
	case KindIdentityScaler:
		return IdentityScaler{Width: len(a.Features)}, nil
	default:
		return nil, errors.Wrapf(ErrUnknownKind, "scaler %q", a.Kind)
	}
}

// NewClassifierArtifact captures a fitted logistic regression.
func NewClassifierArtifact(features []string, m *LogisticRegression) ClassifierArtifact {
	return ClassifierArtifact{
		Kind:     KindLogisticRegression,
		Features: append([]string(nil), features...),
		Weights:  append([]float64(nil), m.Weights...),
		Bias:     m.Bias,
	}
}

// NewScalerArtifact captures a fitted standard scaler.
func NewScalerArtifact(features []string, s *StandardScaler) ScalerArtifact {
	return ScalerArtifact{
		Kind:     KindStandardScaler,
		Features: append([]string(nil), features...),
		Mean:     append([]float64(nil), s.Mean...),
		Scale:    append([]float64(nil), s.Scale...),
	}
}

func ReadPredictorFile(path string) (*PredictorFile, error) {
	var f PredictorFile
	if err := readYAML(path, &f); err != nil {
		return nil, err
	}
	return &f, nil
}

func ReadScalerFile(path string) (*ScalerFile, error) {
	var f ScalerFile
	if err := readYAML(path, &f); err != nil {
		return nil, err
	}
	return &f, nil
}

func WritePredictorFile(path string, f *PredictorFile) error {
	return writeYAML(path, f)
}

func WriteScalerFile(path string, f *ScalerFile) error {
	return writeYAML(path, f)
}

// Variants returns the head keys in stable order.
func (f *PredictorFile) Variants() []string {
	out := make([]string, 0, len(f.Heads))
	for k := range f.Heads {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func readYAML(path string, out interface{}) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrapf(err, "error reading artifact: %s", path)
	}
	if err := yaml.Unmarshal(b, out); err != nil {
		return errors.Wrapf(err, "error decoding artifact: %s", path)
	}
	return nil
}

func writeYAML(path string, in interface{}) error {
	b, err := yaml.Marshal(in)
	if err != nil {
		return errors.Wrapf(err, "failed to encode artifact: %s", path)
	}
	if err := os.WriteFile(path, b, fileMode); err != nil {
		return errors.Wrapf(err, "failed to write artifact: %s", path)
	}
	return nil
}
