package model

import (
	"math/rand"

	"github.com/pkg/errors"
)

const KindLogisticRegression = "logistic_regression"

// LogisticRegression is a binary classifier with a sigmoid link.
// It holds no per-call state, so one instance serves concurrent predictions.
type LogisticRegression struct {
	Weights []float64
	Bias    float64
}

func (m *LogisticRegression) NumFeatures() int { return len(m.Weights) }

func (m *LogisticRegression) PredictProba(x []float64) (float64, error) {
	if len(m.Weights) == 0 {
		return 0, ErrNotFitted
	}
	if err := checkRow(x, len(m.Weights)); err != nil {
		return 0, err
	}
	z := m.Bias
	for j, v := range x {
		z += m.Weights[j] * v
	}
	return sigmoid(z), nil
}

// TrainOptions configures mini-batch gradient descent.
type TrainOptions struct {
	LearningRate float64
	Epochs       int
	BatchSize    int
	L2           float64
	Seed         int64
}

func DefaultTrainOptions() TrainOptions {
	return TrainOptions{
		LearningRate: 0.1,
		Epochs:       300,
		BatchSize:    32,
		L2:           0.001,
		Seed:         42,
	}
}

// Fit trains on already scaled rows with binary labels in {0,1}.
// Shuffling is seeded so the same data always yields the same weights.
func (m *LogisticRegression) Fit(X [][]float64, y []float64, opts TrainOptions) error {
	if len(X) == 0 {
		return errors.New("logistic regression: empty X")
	}
	if len(X) != len(y) {
		return errors.Errorf("logistic regression: %d rows but %d labels", len(X), len(y))
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = len(X)
	}

	n := len(X[0])
	for i, row := range X {
		if err := checkRow(row, n); err != nil {
			return errors.Wrapf(err, "row %d", i)
		}
	}

	m.Weights = make([]float64, n)
	m.Bias = 0

	rng := rand.New(rand.NewSource(opts.Seed))
	idx := make([]int, len(X))
	for i := range idx {
		idx[i] = i
	}

	gW := make([]float64, n)
	for ep := 0; ep < opts.Epochs; ep++ {
		rng.Shuffle(len(idx), func(i, j int) { idx[i], idx[j] = idx[j], idx[i] })

		for start := 0; start < len(idx); start += opts.BatchSize {
			end := min(start+opts.BatchSize, len(idx))
			batch := idx[start:end]

			for j := range gW {
				gW[j] = 0
			}
			gb := 0.0
			for _, i := range batch {
				p, _ := m.PredictProba(X[i])
				d := p - y[i]
				for j, v := range X[i] {
					gW[j] += d * v
				}
				gb += d
			}

			scale := opts.LearningRate / float64(len(batch))
			for j := range m.Weights {
				m.Weights[j] -= scale * (gW[j] + opts.L2*m.Weights[j])
			}
			m.Bias -= scale * gb
		}
	}
	return nil
}
