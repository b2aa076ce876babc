// Package registrytest builds small deterministic model heads for tests.
package registrytest

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Skufu/clinicrisk/internal/features"
	"github.com/Skufu/clinicrisk/internal/model"
	"github.com/Skufu/clinicrisk/internal/registry"
)

// Artifacts returns fitted-looking artifacts for every head of model m.
// Each scaler centers on the schema's population defaults, so an all-default
// record scores sigmoid(Bias).
func Artifacts(m features.ModelName) (*model.PredictorFile, *model.ScalerFile) {
	pf := &model.PredictorFile{Model: string(m), Heads: map[string]model.ClassifierArtifact{}}
	sf := &model.ScalerFile{Model: string(m), Heads: map[string]model.ScalerArtifact{}}

	for _, id := range features.SchemasFor(m) {
		s, _ := features.Lookup(id)
		names := make([]string, s.Len())
		for i, f := range s.Features() {
			names[i] = string(f)
		}

		mean := s.Defaults()
		scale := make([]float64, len(mean))
		weights := make([]float64, len(mean))
		for i, v := range mean {
			scale[i] = math.Max(math.Abs(v)/4, 1)
			weights[i] = 0.4
		}

		pf.Heads[string(id.Variant())] = model.ClassifierArtifact{
			Kind:     model.KindLogisticRegression,
			Features: names,
			Weights:  weights,
			Bias:     Bias,
		}
		sf.Heads[string(id.Variant())] = model.ScalerArtifact{
			Kind:     model.KindStandardScaler,
			Features: names,
			Mean:     mean,
			Scale:    scale,
		}
	}
	return pf, sf
}

// Bias is the intercept every fixture head uses.
const Bias = -0.5

// WriteArtifacts writes a complete artifact set into dir.
func WriteArtifacts(t testing.TB, dir string) {
	t.Helper()
	for _, m := range features.Models {
		pf, sf := Artifacts(m)
		require.NoError(t, model.WritePredictorFile(model.PredictorPath(dir, string(m)), pf))
		require.NoError(t, model.WriteScalerFile(model.ScalerPath(dir, string(m)), sf))
	}
}

// Registry returns a fully loaded in-memory registry.
func Registry(t testing.TB) *registry.Registry {
	t.Helper()
	bundles := make([]*registry.Bundle, 0, len(features.Models))
	for _, m := range features.Models {
		pf, sf := Artifacts(m)
		var heads []registry.Head
		for _, id := range features.SchemasFor(m) {
			v := string(id.Variant())
			cls, err := pf.Heads[v].Build()
			require.NoError(t, err)
			sc, err := sf.Heads[v].Build()
			require.NoError(t, err)
			heads = append(heads, registry.Head{Schema: id, Classifier: cls, Scaler: sc})
		}
		b, err := registry.NewBundle(m, heads...)
		require.NoError(t, err)
		bundles = append(bundles, b)
	}
	return registry.New(bundles...)
}
