package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skufu/clinicrisk/internal/features"
	"github.com/Skufu/clinicrisk/internal/model"
	"github.com/Skufu/clinicrisk/internal/predictor"
	"github.com/Skufu/clinicrisk/internal/registry"
	"github.com/Skufu/clinicrisk/internal/registry/registrytest"
	"github.com/Skufu/clinicrisk/internal/training"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	app := newApp()
	app.Writer = &out
	app.ErrWriter = &out
	err := app.Run(append([]string{name}, args...))
	return out.String(), err
}

func TestSchemaCommand(t *testing.T) {
	out, err := run(t, "schema", "--id", "diabetes.basic")
	require.NoError(t, err)

	var got []SchemaInfo
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	require.Len(t, got, 1)
	assert.Equal(t, []features.Feature{"age", "sex", "glucose", "bmi", "blood_pressure"}, got[0].Features)

	_, err = run(t, "schema", "--id", "stroke.full")
	assert.ErrorIs(t, err, features.ErrUnknownSchema)
}

func TestSchemaCommandYAML(t *testing.T) {
	out, err := run(t, "--format", "yaml", "schema")
	require.NoError(t, err)
	for _, id := range features.AllSchemas() {
		assert.Contains(t, out, "id: "+string(id))
	}
}

func TestInspectCommand(t *testing.T) {
	dir := t.TempDir()
	registrytest.WriteArtifacts(t, dir)

	out, err := run(t, "inspect", "--models", dir)
	require.NoError(t, err)

	var st registry.Status
	require.NoError(t, json.Unmarshal([]byte(out), &st))
	assert.True(t, st.Loaded)
	assert.Len(t, st.Models, 3)

	_, err = run(t, "inspect", "--models", t.TempDir())
	assert.Error(t, err)
}

func TestScoreCommand(t *testing.T) {
	dir := t.TempDir()
	registrytest.WriteArtifacts(t, dir)

	recPath := filepath.Join(t.TempDir(), "record.yaml")
	require.NoError(t, os.WriteFile(recPath, []byte(`
patient:
  age: 60
  sex: 1
  diabetic: true
  hypertensive: true
screening:
  systolicBP: 148
`), 0o600))

	out, err := run(t, "score", "--models", dir, "--model", "heart", "--file", recPath, "--locale", "en", "--set", "max_heart_rate=120")
	require.NoError(t, err)

	var got predictor.Assessment
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, features.HeartBasic, got.Schema)
	assert.Equal(t, predictor.OK, got.Outcome)
	assert.Equal(t, []float64{60, 1, 148, 210, 120}, got.Vector.Values)
	assert.Contains(t, got.Risk.Label, "risk")

	_, err = run(t, "score", "--models", dir, "--model", "heart", "--file", recPath, "--set", "glucsoe=1")
	assert.ErrorIs(t, err, features.ErrUnknownFeature)
}

func TestScoreCommandDegraded(t *testing.T) {
	recPath := filepath.Join(t.TempDir(), "record.json")
	require.NoError(t, os.WriteFile(recPath, []byte(`{"patient": {"age": 30}}`), 0o600))

	out, err := run(t, "score", "--models", t.TempDir(), "--model", "noshow", "--file", recPath)
	require.NoError(t, err)

	var got predictor.Assessment
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, 0.3, got.Probability)
	assert.True(t, got.IsFallback())
}

func TestParseOverrides(t *testing.T) {
	ov, err := parseOverrides([]string{"glucose=182", " bmi = 31.5 "})
	require.NoError(t, err)
	assert.Equal(t, features.Overrides{features.Glucose: 182, features.BMI: 31.5}, ov)

	ov, err = parseOverrides(nil)
	require.NoError(t, err)
	assert.Nil(t, ov)

	_, err = parseOverrides([]string{"glucose"})
	assert.Error(t, err)
	_, err = parseOverrides([]string{"glucose=high"})
	assert.Error(t, err)
}

func TestTrainCommand(t *testing.T) {
	var b strings.Builder
	b.WriteString("age,sex,trestbps,chol,thalach,target\n")
	for i := 0; i < 40; i++ {
		sick := i%2 == 0
		label := 0
		bp, chol, hr := 118+i%5, 190+i%7, 165-i%6
		if sick {
			label = 1
			bp, chol, hr = bp+25, chol+50, hr-35
		}
		fmt.Fprintf(&b, "%d,%d,%d,%d,%d,%d\n", 40+i%20, i%3%2, bp, chol, hr, label)
	}
	data := filepath.Join(t.TempDir(), "heart.csv")
	require.NoError(t, os.WriteFile(data, []byte(b.String()), 0o600))
	outDir := filepath.Join(t.TempDir(), "models")

	out, err := run(t, "train", "--schema", "heart.basic", "--data", data, "--label", "target", "--out", outDir)
	require.NoError(t, err)

	var rep training.Report
	require.NoError(t, json.Unmarshal([]byte(out), &rep))
	assert.Equal(t, 40, rep.Rows)
	assert.Equal(t, 20, rep.Positives)
	assert.GreaterOrEqual(t, rep.TrainAccuracy, 0.9)

	pf, err := model.ReadPredictorFile(model.PredictorPath(outDir, "heart"))
	require.NoError(t, err)
	assert.Equal(t, []string{"basic"}, pf.Variants())
	assert.Equal(t, []string{"age", "sex", "blood_pressure", "cholesterol", "max_heart_rate"}, pf.Heads["basic"].Features)

	_, err = run(t, "train", "--schema", "heart.basic", "--data", data, "--label", "missing", "--out", outDir)
	assert.ErrorIs(t, err, training.ErrMissingColumn)
}
