package model

import (
	"math"

	"github.com/pkg/errors"
)

const (
	KindStandardScaler = "standard"
	KindIdentityScaler = "identity"
)

// StandardScaler standardizes each column to zero mean and unit variance.
type StandardScaler struct {
	Mean  []float64
	Scale []float64
}

func (s *StandardScaler) NumFeatures() int { return len(s.Mean) }

// Fit computes population mean and standard deviation per column.
// Constant columns get a scale of 1.
func (s *StandardScaler) Fit(X [][]float64) error {
	if len(X) == 0 {
		return errors.New("standard scaler: empty X")
	}
	r, c := len(X), len(X[0])
	s.Mean = make([]float64, c)
	s.Scale = make([]float64, c)
	for j := 0; j < c; j++ {
		for i := 0; i < r; i++ {
			if len(X[i]) != c {
				return errors.Wrapf(ErrShapeMismatch, "row %d has %d columns, want %d", i, len(X[i]), c)
			}
			s.Mean[j] += X[i][j]
		}
		s.Mean[j] /= float64(r)

		v := 0.0
		for i := 0; i < r; i++ {
			d := X[i][j] - s.Mean[j]
			v += d * d
		}
		s.Scale[j] = math.Sqrt(v / float64(r))
		if s.Scale[j] == 0 {
			s.Scale[j] = 1
		}
	}
	return nil
}

func (s *StandardScaler) Transform(x []float64) ([]float64, error) {
	if len(s.Mean) == 0 {
		return nil, ErrNotFitted
	}
	if err := checkRow(x, len(s.Mean)); err != nil {
		return nil, err
	}
	out := make([]float64, len(x))
	for j, v := range x {
		out[j] = (v - s.Mean[j]) / s.Scale[j]
	}
	return out, nil
}

// TransformAll scales every row, stopping at the first bad one.
func (s *StandardScaler) TransformAll(X [][]float64) ([][]float64, error) {
	out := make([][]float64, len(X))
	for i, row := range X {
		scaled, err := s.Transform(row)
		if err != nil {
			return nil, errors.Wrapf(err, "row %d", i)
		}
		out[i] = scaled
	}
	return out, nil
}

// IdentityScaler passes rows through unchanged after a shape check.
type IdentityScaler struct {
	Width int
}

func (s IdentityScaler) NumFeatures() int { return s.Width }

func (s IdentityScaler) Transform(x []float64) ([]float64, error) {
	if err := checkRow(x, s.Width); err != nil {
		return nil, err
	}
	out := make([]float64, len(x))
	copy(out, x)
	return out, nil
}
