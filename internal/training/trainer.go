package training

import (
	"io/fs"
	"math/rand"
	"os"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/Skufu/clinicrisk/internal/features"
	"github.com/Skufu/clinicrisk/internal/model"
)

type Options struct {
	Train model.TrainOptions
	// Holdout is the share of rows kept out of fitting for the accuracy report.
	Holdout float64
}

func DefaultOptions() Options {
	return Options{Train: model.DefaultTrainOptions(), Holdout: 0.2}
}

// Report summarizes one fit.
type Report struct {
	Schema        features.SchemaID `json:"schema" yaml:"schema"`
	Rows          int               `json:"rows" yaml:"rows"`
	Dropped       int               `json:"dropped" yaml:"dropped"`
	Positives     int               `json:"positives" yaml:"positives"`
	TrainRows     int               `json:"trainRows" yaml:"trainRows"`
	TestRows      int               `json:"testRows" yaml:"testRows"`
	TrainAccuracy float64           `json:"trainAccuracy" yaml:"trainAccuracy"`
	TestAccuracy  float64           `json:"testAccuracy,omitempty" yaml:"testAccuracy,omitempty"`
}

// Head is a freshly fitted scaler and classifier for one schema.
type Head struct {
	Schema     features.SchemaID
	Features   []features.Feature
	Scaler     *model.StandardScaler
	Classifier *model.LogisticRegression
	Report     Report
}

// Fit standardizes the dataset and trains a logistic regression head on it.
func Fit(ds *Dataset, opts Options) (*Head, error) {
	if ds == nil || ds.Len() == 0 {
		return nil, ErrEmptyDataset
	}

	trainIdx, testIdx := split(ds.Len(), opts.Holdout, opts.Train.Seed)
	trainX, trainY := pick(ds, trainIdx)

	sc := &model.StandardScaler{}
	if err := sc.Fit(trainX); err != nil {
		return nil, errors.Wrap(err, "failed to fit scaler")
	}
	scaled, err := sc.TransformAll(trainX)
	if err != nil {
		return nil, errors.Wrap(err, "failed to scale training rows")
	}

	lr := &model.LogisticRegression{}
	if err := lr.Fit(scaled, trainY, opts.Train); err != nil {
		return nil, errors.Wrap(err, "failed to fit classifier")
	}

	h := &Head{
		Schema:     ds.Schema,
		Features:   ds.Features,
		Scaler:     sc,
		Classifier: lr,
		Report: Report{
			Schema:    ds.Schema,
			Rows:      ds.Len(),
			Dropped:   ds.Dropped,
			Positives: ds.Positives(),
			TrainRows: len(trainIdx),
			TestRows:  len(testIdx),
		},
	}
	h.Report.TrainAccuracy = h.accuracy(trainX, trainY)
	if len(testIdx) > 0 {
		testX, testY := pick(ds, testIdx)
		h.Report.TestAccuracy = h.accuracy(testX, testY)
	}
	return h, nil
}

func (h *Head) accuracy(X [][]float64, y []float64) float64 {
	if len(X) == 0 {
		return 0
	}
	hit := 0
	for i, row := range X {
		s, err := h.Scaler.Transform(row)
		if err != nil {
			continue
		}
		p, err := h.Classifier.PredictProba(s)
		if err != nil {
			continue
		}
		if (p >= 0.5) == (y[i] == 1) {
			hit++
		}
	}
	return float64(hit) / float64(len(X))
}

// Smaller datasets train on every row.
const minHoldoutRows = 10

func split(n int, holdout float64, seed int64) (train, test []int) {
	idx := rand.New(rand.NewSource(seed)).Perm(n)
	k := int(float64(n) * holdout)
	if holdout <= 0 || n < minHoldoutRows || k == 0 {
		return idx, nil
	}
	return idx[k:], idx[:k]
}

func pick(ds *Dataset, idx []int) ([][]float64, []float64) {
	X := make([][]float64, len(idx))
	y := make([]float64, len(idx))
	for i, j := range idx {
		X[i] = ds.X[j]
		y[i] = ds.Y[j]
	}
	return X, y
}

// Save writes the head into dir, merging it with any heads already stored
// for the same model.
func Save(dir string, h *Head, log logrus.FieldLogger) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrapf(err, "failed to create model dir: %s", dir)
	}

	name := string(h.Schema.Model())
	variant := string(h.Schema.Variant())
	names := make([]string, len(h.Features))
	for i, f := range h.Features {
		names[i] = string(f)
	}

	pPath, sPath := model.PredictorPath(dir, name), model.ScalerPath(dir, name)

	pf, err := model.ReadPredictorFile(pPath)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		pf = &model.PredictorFile{Model: name}
	case err != nil:
		return err
	case pf.Model != name:
		return errors.Errorf("%s holds model %q, not %q", pPath, pf.Model, name)
	}
	sf, err := model.ReadScalerFile(sPath)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		sf = &model.ScalerFile{Model: name}
	case err != nil:
		return err
	case sf.Model != name:
		return errors.Errorf("%s holds model %q, not %q", sPath, sf.Model, name)
	}

	if pf.Heads == nil {
		pf.Heads = map[string]model.ClassifierArtifact{}
	}
	if sf.Heads == nil {
		sf.Heads = map[string]model.ScalerArtifact{}
	}
	if _, ok := pf.Heads[variant]; ok {
		log.WithField("schema", h.Schema).Info("replacing existing head")
	}
	pf.Heads[variant] = model.NewClassifierArtifact(names, h.Classifier)
	sf.Heads[variant] = model.NewScalerArtifact(names, h.Scaler)

	if err := model.WriteScalerFile(sPath, sf); err != nil {
		return err
	}
	if err := model.WritePredictorFile(pPath, pf); err != nil {
		return err
	}

	log.WithFields(logrus.Fields{
		"schema":    h.Schema,
		"predictor": pPath,
		"scaler":    sPath,
		"heads":     pf.Variants(),
	}).Info("head saved")
	return nil
}
