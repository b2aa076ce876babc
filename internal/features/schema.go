package features

import (
	"strings"

	"github.com/pkg/errors"

	"github.com/Skufu/clinicrisk/internal/record"
)

var (
	ErrUnknownModel   = errors.New("unknown model")
	ErrUnknownSchema  = errors.New("unknown feature schema")
	ErrUnknownFeature = errors.New("unknown override feature")
)

type ModelName string

const (
	NoShow   ModelName = "noshow"
	Diabetes ModelName = "diabetes"
	Heart    ModelName = "heart"
)

// Models lists every model the registry loads, in load order.
var Models = []ModelName{NoShow, Diabetes, Heart}

func ParseModel(s string) (ModelName, error) {
	switch m := ModelName(strings.ToLower(strings.TrimSpace(s))); m {
	case NoShow, Diabetes, Heart:
		return m, nil
	default:
		return "", errors.Wrapf(ErrUnknownModel, "%q", s)
	}
}

type Variant string

const (
	Full  Variant = "full"
	Basic Variant = "basic"
)

// SchemaID names one trained feature layout, e.g. "diabetes.basic".
type SchemaID string

const (
	NoShowFull    SchemaID = "noshow.full"
	DiabetesFull  SchemaID = "diabetes.full"
	DiabetesBasic SchemaID = "diabetes.basic"
	HeartFull     SchemaID = "heart.full"
	HeartBasic    SchemaID = "heart.basic"
)

func NewSchemaID(m ModelName, v Variant) SchemaID {
	return SchemaID(string(m) + "." + string(v))
}

func (id SchemaID) Model() ModelName {
	m, _, _ := strings.Cut(string(id), ".")
	return ModelName(m)
}

func (id SchemaID) Variant() Variant {
	_, v, _ := strings.Cut(string(id), ".")
	return Variant(v)
}

type Feature string

const (
	Age              Feature = "age"
	Sex              Feature = "sex"
	DaysAhead        Feature = "days_ahead"
	SMSReceived      Feature = "sms_received"
	Hypertension     Feature = "hypertension"
	DiabetesFlag     Feature = "diabetes"
	Pregnancies      Feature = "pregnancies"
	Glucose          Feature = "glucose"
	BloodPressure    Feature = "blood_pressure"
	SkinThickness    Feature = "skin_thickness"
	Insulin          Feature = "insulin"
	BMI              Feature = "bmi"
	DiabetesPedigree Feature = "diabetes_pedigree"
	Cholesterol      Feature = "cholesterol"
	MaxHeartRate     Feature = "max_heart_rate"

	// Cleveland column names for the full heart schema.
	ChestPain         Feature = "cp"
	RestingBP         Feature = "trestbps"
	Chol              Feature = "chol"
	FastingBloodSugar Feature = "fbs"
	RestECG           Feature = "restecg"
	Thalach           Feature = "thalach"
	ExerciseAngina    Feature = "exang"
	Oldpeak           Feature = "oldpeak"
	Slope             Feature = "slope"
	Vessels           Feature = "ca"
	Thal              Feature = "thal"
)

type lookup func(record.ClinicalRecord) (float64, bool)

type rule struct {
	feature Feature
	// aliases are measurement names other layouts use for the same value.
	aliases  []Feature
	stored   lookup
	estimate lookup
	fallback float64
}

// Schema is the ordered feature layout a model head was trained on.
type Schema struct {
	ID    SchemaID
	rules []rule
}

func (s Schema) Model() ModelName { return s.ID.Model() }
func (s Schema) Len() int         { return len(s.rules) }

// accepts reports whether f names one of the schema's features or their aliases.
func (s Schema) accepts(f Feature) bool {
	for _, r := range s.rules {
		if r.feature == f {
			return true
		}
		for _, a := range r.aliases {
			if a == f {
				return true
			}
		}
	}
	return false
}

func (s Schema) Features() []Feature {
	out := make([]Feature, len(s.rules))
	for i, r := range s.rules {
		out[i] = r.feature
	}
	return out
}

// Defaults returns the population constants in schema order.
func (s Schema) Defaults() []float64 {
	out := make([]float64, len(s.rules))
	for i, r := range s.rules {
		out[i] = r.fallback
	}
	return out
}

var schemas = map[SchemaID]Schema{
	NoShowFull: {ID: NoShowFull, rules: []rule{
		{feature: Age, stored: patientAge, fallback: 35},
		{feature: Sex, stored: patientSex, fallback: 0},
		{feature: DaysAhead, stored: appointmentLeadDays, fallback: 5},
		{feature: SMSReceived, stored: appointmentSMS, fallback: 0},
		{feature: Hypertension, stored: patientFlag(func(p *record.Patient) bool { return p.Hypertensive }), fallback: 0},
		{feature: DiabetesFlag, stored: patientFlag(func(p *record.Patient) bool { return p.Diabetic }), fallback: 0},
	}},
	DiabetesFull: {ID: DiabetesFull, rules: []rule{
		{feature: Pregnancies, stored: diabetesInt(func(d *record.DiabetesProtocol) *int { return d.Pregnancies }), fallback: 0},
		{feature: Glucose, stored: diabetesFloat(func(d *record.DiabetesProtocol) *float64 { return d.Glucose }), fallback: 100},
		{feature: BloodPressure, stored: diabetesFloat(func(d *record.DiabetesProtocol) *float64 { return d.BloodPressure }), fallback: 70},
		{feature: SkinThickness, stored: diabetesFloat(func(d *record.DiabetesProtocol) *float64 { return d.SkinThickness }), fallback: 20},
		{feature: Insulin, stored: diabetesFloat(func(d *record.DiabetesProtocol) *float64 { return d.Insulin }), fallback: 80},
		{feature: BMI, stored: diabetesFloat(func(d *record.DiabetesProtocol) *float64 { return d.BMI }), fallback: 25},
		{feature: DiabetesPedigree, stored: diabetesFloat(func(d *record.DiabetesProtocol) *float64 { return d.DiabetesPedigree }), fallback: 0.5},
		{feature: Age, stored: patientAge, fallback: 35},
	}},
	DiabetesBasic: {ID: DiabetesBasic, rules: []rule{
		{feature: Age, stored: patientAge, fallback: 40},
		{feature: Sex, stored: patientSex, fallback: 0},
		{feature: Glucose, stored: screeningFloat(func(s *record.Screening) *float64 { return s.Glucose }), estimate: estimateGlucose, fallback: 100},
		{feature: BMI, stored: screeningFloat(func(s *record.Screening) *float64 { return s.BMI }), estimate: estimateBMI, fallback: 25},
		{feature: BloodPressure, stored: screeningFloat(func(s *record.Screening) *float64 { return s.DiastolicBP }), estimate: estimateDiastolic, fallback: 70},
	}},
	HeartFull: {ID: HeartFull, rules: []rule{
		{feature: Age, stored: patientAge, fallback: 50},
		{feature: Sex, stored: heartSex, fallback: 0},
		{feature: ChestPain, stored: heartInt(func(h *record.HeartProtocol) *int { return h.ChestPainType }), fallback: 0},
		{feature: RestingBP, aliases: []Feature{BloodPressure}, stored: heartFloat(func(h *record.HeartProtocol) *float64 { return h.RestingBP }), fallback: 120},
		{feature: Chol, aliases: []Feature{Cholesterol}, stored: heartFloat(func(h *record.HeartProtocol) *float64 { return h.Cholesterol }), fallback: 200},
		{feature: FastingBloodSugar, stored: heartBool(func(h *record.HeartProtocol) *bool { return h.FastingBloodSugar }), fallback: 0},
		{feature: RestECG, stored: heartInt(func(h *record.HeartProtocol) *int { return h.RestECG }), fallback: 0},
		{feature: Thalach, aliases: []Feature{MaxHeartRate}, stored: heartFloat(func(h *record.HeartProtocol) *float64 { return h.MaxHeartRate }), fallback: 150},
		{feature: ExerciseAngina, stored: heartBool(func(h *record.HeartProtocol) *bool { return h.ExerciseAngina }), fallback: 0},
		{feature: Oldpeak, stored: heartFloat(func(h *record.HeartProtocol) *float64 { return h.Oldpeak }), fallback: 1.0},
		{feature: Slope, stored: heartInt(func(h *record.HeartProtocol) *int { return h.Slope }), fallback: 1},
		{feature: Vessels, stored: heartInt(func(h *record.HeartProtocol) *int { return h.Vessels }), fallback: 0},
		{feature: Thal, stored: heartInt(func(h *record.HeartProtocol) *int { return h.Thal }), fallback: 2},
	}},
	HeartBasic: {ID: HeartBasic, rules: []rule{
		{feature: Age, stored: patientAge, fallback: 40},
		{feature: Sex, stored: patientSex, fallback: 0},
		{feature: BloodPressure, aliases: []Feature{RestingBP}, stored: screeningFloat(func(s *record.Screening) *float64 { return s.SystolicBP }), estimate: estimateSystolic, fallback: 120},
		{feature: Cholesterol, aliases: []Feature{Chol}, stored: screeningFloat(func(s *record.Screening) *float64 { return s.Cholesterol }), estimate: estimateCholesterol, fallback: 200},
		{feature: MaxHeartRate, aliases: []Feature{Thalach}, estimate: estimateMaxHeartRate, fallback: 150},
	}},
}

// Lookup returns the schema registered under id.
func Lookup(id SchemaID) (Schema, error) {
	s, ok := schemas[id]
	if !ok {
		return Schema{}, errors.Wrapf(ErrUnknownSchema, "%q", id)
	}
	return s, nil
}

// SchemasFor lists the schemas a model serves, full first.
func SchemasFor(m ModelName) []SchemaID {
	switch m {
	case NoShow:
		return []SchemaID{NoShowFull}
	case Diabetes:
		return []SchemaID{DiabetesFull, DiabetesBasic}
	case Heart:
		return []SchemaID{HeartFull, HeartBasic}
	default:
		return nil
	}
}

// AllSchemas lists every schema in model load order.
func AllSchemas() []SchemaID {
	var out []SchemaID
	for _, m := range Models {
		out = append(out, SchemasFor(m)...)
	}
	return out
}
