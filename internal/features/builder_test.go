package features_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skufu/clinicrisk/internal/features"
	"github.com/Skufu/clinicrisk/internal/record"
)

func TestSchemaLayouts(t *testing.T) {
	tests := []struct {
		id       features.SchemaID
		expected []features.Feature
	}{
		{features.NoShowFull, []features.Feature{"age", "sex", "days_ahead", "sms_received", "hypertension", "diabetes"}},
		{features.DiabetesFull, []features.Feature{"pregnancies", "glucose", "blood_pressure", "skin_thickness", "insulin", "bmi", "diabetes_pedigree", "age"}},
		{features.DiabetesBasic, []features.Feature{"age", "sex", "glucose", "bmi", "blood_pressure"}},
		{features.HeartFull, []features.Feature{"age", "sex", "cp", "trestbps", "chol", "fbs", "restecg", "thalach", "exang", "oldpeak", "slope", "ca", "thal"}},
		{features.HeartBasic, []features.Feature{"age", "sex", "blood_pressure", "cholesterol", "max_heart_rate"}},
	}

	for _, tt := range tests {
		t.Run(string(tt.id), func(t *testing.T) {
			s, err := features.Lookup(tt.id)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, s.Features())
			assert.Equal(t, len(tt.expected), s.Len())
			assert.Len(t, s.Defaults(), s.Len())
		})
	}
}

func TestSchemaLengths(t *testing.T) {
	lengths := map[features.SchemaID]int{
		features.NoShowFull:    6,
		features.DiabetesFull:  8,
		features.DiabetesBasic: 5,
		features.HeartFull:     13,
		features.HeartBasic:    5,
	}
	assert.Len(t, features.AllSchemas(), len(lengths))

	empty := record.ClinicalRecord{}
	for id, n := range lengths {
		v, err := features.BuildSchema(id, empty, nil)
		require.NoError(t, err)
		assert.Equal(t, n, v.Len(), id)
		assert.Len(t, v.Sources, n, id)
	}
}

func TestSchemaIDParts(t *testing.T) {
	assert.Equal(t, features.Heart, features.HeartBasic.Model())
	assert.Equal(t, features.Basic, features.HeartBasic.Variant())
	assert.Equal(t, features.DiabetesFull, features.NewSchemaID(features.Diabetes, features.Full))
}

func TestParseModel(t *testing.T) {
	m, err := features.ParseModel(" Heart ")
	require.NoError(t, err)
	assert.Equal(t, features.Heart, m)

	_, err = features.ParseModel("kidney")
	require.Error(t, err)
	assert.ErrorIs(t, err, features.ErrUnknownModel)
}

func TestSelectSchema(t *testing.T) {
	basic := record.ClinicalRecord{Patient: &record.Patient{Age: 50}}
	full := record.ClinicalRecord{
		Patient:  &record.Patient{Age: 50},
		Diabetes: &record.DiabetesProtocol{},
		Heart:    &record.HeartProtocol{},
	}

	tests := []struct {
		model    features.ModelName
		rec      record.ClinicalRecord
		expected features.SchemaID
	}{
		{features.NoShow, basic, features.NoShowFull},
		{features.Diabetes, basic, features.DiabetesBasic},
		{features.Diabetes, full, features.DiabetesFull},
		{features.Heart, basic, features.HeartBasic},
		{features.Heart, full, features.HeartFull},
	}
	for _, tt := range tests {
		id, err := features.SelectSchema(tt.model, tt.rec)
		require.NoError(t, err)
		assert.Equal(t, tt.expected, id)
	}

	_, err := features.SelectSchema("liver", basic)
	assert.ErrorIs(t, err, features.ErrUnknownModel)
}

func TestDiabetesBasicEstimates(t *testing.T) {
	rec := record.ClinicalRecord{Patient: &record.Patient{
		Age:          60,
		Sex:          record.Male,
		Diabetic:     true,
		Hypertensive: true,
	}}

	v, err := features.Build(features.Diabetes, rec, nil)
	require.NoError(t, err)
	assert.Equal(t, features.DiabetesBasic, v.Schema)
	require.Equal(t, 5, v.Len())

	expected := []float64{60, 1, 150, 27, 94}
	for i := range expected {
		assert.InDelta(t, expected[i], v.Values[i], 1e-9, "position %d", i)
	}
	assert.Equal(t, []features.Source{
		features.FromRecord, features.FromRecord,
		features.FromEstimate, features.FromEstimate, features.FromEstimate,
	}, v.Sources)
}

func TestHeartBasicEstimates(t *testing.T) {
	rec := record.ClinicalRecord{Patient: &record.Patient{
		Age:          60,
		Sex:          record.Female,
		Hypertensive: true,
		HeartDisease: true,
	}}

	v, err := features.Build(features.Heart, rec, nil)
	require.NoError(t, err)
	assert.Equal(t, features.HeartBasic, v.Schema)

	// bp 120+10+20, chol 180+30, max hr 220-60-10
	expected := []float64{60, 0, 150, 210, 150}
	for i := range expected {
		assert.InDelta(t, expected[i], v.Values[i], 1e-9, "position %d", i)
	}
}

func TestResolutionOrder(t *testing.T) {
	rec := record.ClinicalRecord{
		Patient:   &record.Patient{Age: 60, Diabetic: true},
		Screening: &record.Screening{Glucose: record.Float(180), DiastolicBP: record.Float(85)},
	}

	t.Run("record beats estimate", func(t *testing.T) {
		v, err := features.BuildSchema(features.DiabetesBasic, rec, nil)
		require.NoError(t, err)
		assert.Equal(t, 180.0, v.Values[2])
		assert.Equal(t, features.FromRecord, v.Sources[2])
		assert.Equal(t, 85.0, v.Values[4])
	})

	t.Run("override beats record", func(t *testing.T) {
		v, err := features.BuildSchema(features.DiabetesBasic, rec, features.Overrides{features.Glucose: 95})
		require.NoError(t, err)
		assert.Equal(t, 95.0, v.Values[2])
		assert.Equal(t, features.FromOverride, v.Sources[2])
	})

	t.Run("constant without patient", func(t *testing.T) {
		v, err := features.BuildSchema(features.DiabetesBasic, record.ClinicalRecord{}, nil)
		require.NoError(t, err)
		assert.Equal(t, []float64{40, 0, 100, 25, 70}, v.Values)
		for _, s := range v.Sources {
			assert.Equal(t, features.FromDefault, s)
		}
	})
}

func TestDiabetesFullDefaults(t *testing.T) {
	rec := record.ClinicalRecord{
		Diabetes: &record.DiabetesProtocol{Glucose: record.Float(148), Pregnancies: record.Int(6)},
	}
	v, err := features.Build(features.Diabetes, rec, nil)
	require.NoError(t, err)
	assert.Equal(t, features.DiabetesFull, v.Schema)
	assert.Equal(t, []float64{6, 148, 70, 20, 80, 25, 0.5, 35}, v.Values)
}

func TestHeartFullProtocol(t *testing.T) {
	male := record.Male
	rec := record.ClinicalRecord{
		Patient: &record.Patient{Age: 63, Sex: record.Female},
		Heart: &record.HeartProtocol{
			Sex:               &male,
			ChestPainType:     record.Int(3),
			RestingBP:         record.Float(145),
			Cholesterol:       record.Float(233),
			FastingBloodSugar: record.Bool(true),
			MaxHeartRate:      record.Float(150),
			ExerciseAngina:    record.Bool(false),
			Oldpeak:           record.Float(2.3),
			Slope:             record.Int(0),
			Thal:              record.Int(1),
		},
	}

	v, err := features.Build(features.Heart, rec, nil)
	require.NoError(t, err)
	assert.Equal(t, []float64{63, 1, 3, 145, 233, 1, 0, 150, 0, 2.3, 0, 0, 1}, v.Values)
	assert.Equal(t, features.FromDefault, v.Sources[6])
	assert.Equal(t, features.FromRecord, v.Sources[8])
}

func TestHeartFullSexFallsBackToPatient(t *testing.T) {
	rec := record.ClinicalRecord{
		Patient: &record.Patient{Age: 45, Sex: record.Male},
		Heart:   &record.HeartProtocol{},
	}
	v, err := features.Build(features.Heart, rec, nil)
	require.NoError(t, err)
	assert.Equal(t, 1.0, v.Values[1])
}

func TestNoShowLeadDays(t *testing.T) {
	booked := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	visit := time.Date(2026, 3, 11, 8, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		appt     *record.Appointment
		expected float64
	}{
		{"no appointment", nil, 5},
		{"explicit days", &record.Appointment{DaysAhead: record.Int(12)}, 12},
		{"derived from dates", &record.Appointment{ScheduledAt: &booked, At: &visit}, 9},
		{"missing visit date", &record.Appointment{ScheduledAt: &booked}, 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := record.ClinicalRecord{Patient: &record.Patient{Age: 30}, Appointment: tt.appt}
			v, err := features.Build(features.NoShow, rec, nil)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, v.Values[2])
		})
	}
}

func TestBuildIsPure(t *testing.T) {
	rec := record.ClinicalRecord{Patient: &record.Patient{Age: 52, Hypertensive: true}}
	ov := features.Overrides{features.Cholesterol: 240}

	a, err := features.Build(features.Heart, rec, ov)
	require.NoError(t, err)
	b, err := features.Build(features.Heart, rec, ov)
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Equal(t, features.Overrides{features.Cholesterol: 240}, ov)
}

func TestHeartOverridesApplyToBothSchemas(t *testing.T) {
	ov := features.Overrides{
		features.Cholesterol:   300,
		features.BloodPressure: 180,
		features.MaxHeartRate:  99,
	}
	patient := &record.Patient{Age: 60}

	basic, err := features.Build(features.Heart, record.ClinicalRecord{Patient: patient}, ov)
	require.NoError(t, err)
	assert.Equal(t, features.HeartBasic, basic.Schema)
	assert.Equal(t, []float64{60, 0, 180, 300, 99}, basic.Values)

	full, err := features.Build(features.Heart, record.ClinicalRecord{
		Patient: patient,
		Heart:   &record.HeartProtocol{Cholesterol: record.Float(233)},
	}, ov)
	require.NoError(t, err)
	assert.Equal(t, features.HeartFull, full.Schema)
	assert.Equal(t, []float64{60, 0, 0, 180, 300, 0, 0, 99, 0, 1, 1, 0, 2}, full.Values)
	for _, i := range []int{3, 4, 7} {
		assert.Equal(t, features.FromOverride, full.Sources[i], "position %d", i)
	}
}

func TestCanonicalOverrideBeatsAlias(t *testing.T) {
	rec := record.ClinicalRecord{Patient: &record.Patient{Age: 60}, Heart: &record.HeartProtocol{}}

	v, err := features.Build(features.Heart, rec, features.Overrides{features.Chol: 250, features.Cholesterol: 300})
	require.NoError(t, err)
	assert.Equal(t, 250.0, v.Values[4])

	v, err = features.Build(features.Heart, record.ClinicalRecord{Patient: rec.Patient}, features.Overrides{features.Thalach: 140})
	require.NoError(t, err)
	assert.Equal(t, 140.0, v.Values[4])
	assert.Equal(t, features.FromOverride, v.Sources[4])
}

func TestUnknownOverrideRejected(t *testing.T) {
	rec := record.ClinicalRecord{Patient: &record.Patient{Age: 60}}

	_, err := features.Build(features.Heart, rec, features.Overrides{features.Cholesterol: 300, "glucsoe": 1})
	require.Error(t, err)
	assert.ErrorIs(t, err, features.ErrUnknownFeature)
	assert.Contains(t, err.Error(), "glucsoe")

	// glucose is a diabetes feature, not a heart one
	_, err = features.BuildSchema(features.HeartFull, rec, features.Overrides{features.Glucose: 120})
	assert.ErrorIs(t, err, features.ErrUnknownFeature)

	// features of the other heart layout are accepted
	require.NoError(t, features.CheckOverrides(features.Heart, features.Overrides{features.Oldpeak: 2}))
	require.NoError(t, features.CheckOverrides(features.NoShow, nil))

	err = features.CheckOverrides("stroke", features.Overrides{features.Age: 1})
	assert.ErrorIs(t, err, features.ErrUnknownModel)
}
