// Package model holds the tabular classifiers and feature scalers behind each risk head.
package model

import (
	"math"

	"github.com/pkg/errors"
)

var (
	ErrShapeMismatch = errors.New("feature count mismatch")
	ErrNonFinite     = errors.New("non-finite value")
	ErrUnknownKind   = errors.New("unknown artifact kind")
	ErrNotFitted     = errors.New("model not fitted")
)

// Classifier scores one scaled feature row.
// PredictProba returns p(y=1) for the binary target.
type Classifier interface {
	PredictProba(x []float64) (float64, error)
	NumFeatures() int
}

// Scaler applies the training-time transform to one raw feature row.
type Scaler interface {
	Transform(x []float64) ([]float64, error)
	NumFeatures() int
}

func checkRow(x []float64, want int) error {
	if len(x) != want {
		return errors.Wrapf(ErrShapeMismatch, "got %d features, want %d", len(x), want)
	}
	for i, v := range x {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return errors.Wrapf(ErrNonFinite, "feature %d is %v", i, v)
		}
	}
	return nil
}

func sigmoid(z float64) float64 {
	if z >= 0 {
		return 1 / (1 + math.Exp(-z))
	}
	e := math.Exp(z)
	return e / (1 + e)
}
