// Package record holds the read-only clinical records the scoring subsystem consumes.
// Every observation is optional; a nil pointer means the value was never captured.
package record

import (
	"math"
	"time"
)

// Sex is the biological sex as coded in the training datasets.
type Sex int

const (
	Female Sex = 0
	Male   Sex = 1
)

// Code returns the binary code the models were trained on.
func (s Sex) Code() float64 {
	if s == Male {
		return 1
	}
	return 0
}

// Patient is the demographic card shared by every model.
type Patient struct {
	Age          int  `json:"age" yaml:"age" binding:"min=0"`
	Sex          Sex  `json:"sex" yaml:"sex"`
	Diabetic     bool `json:"diabetic" yaml:"diabetic"`
	Hypertensive bool `json:"hypertensive" yaml:"hypertensive"`
	HeartDisease bool `json:"heartDisease" yaml:"heartDisease"`
}

// Appointment is the upcoming visit the no-show model scores.
type Appointment struct {
	DaysAhead   *int       `json:"daysAhead,omitempty" yaml:"daysAhead,omitempty"`
	ScheduledAt *time.Time `json:"scheduledAt,omitempty" yaml:"scheduledAt,omitempty"`
	At          *time.Time `json:"at,omitempty" yaml:"at,omitempty"`
	SMSSent     bool       `json:"smsSent" yaml:"smsSent"`
}

// LeadDays reports how many whole days separate booking from the visit.
// An explicit DaysAhead wins over the timestamps.
func (a *Appointment) LeadDays() (int, bool) {
	if a == nil {
		return 0, false
	}
	if a.DaysAhead != nil {
		return *a.DaysAhead, true
	}
	if a.ScheduledAt == nil || a.At == nil {
		return 0, false
	}
	days := a.At.Sub(*a.ScheduledAt).Hours() / 24
	return int(math.Floor(days)), true
}

// DiabetesProtocol carries the Pima intake observations.
type DiabetesProtocol struct {
	Pregnancies      *int     `json:"pregnancies,omitempty" yaml:"pregnancies,omitempty"`
	Glucose          *float64 `json:"glucose,omitempty" yaml:"glucose,omitempty"`
	BloodPressure    *float64 `json:"bloodPressure,omitempty" yaml:"bloodPressure,omitempty"`
	SkinThickness    *float64 `json:"skinThickness,omitempty" yaml:"skinThickness,omitempty"`
	Insulin          *float64 `json:"insulin,omitempty" yaml:"insulin,omitempty"`
	BMI              *float64 `json:"bmi,omitempty" yaml:"bmi,omitempty"`
	DiabetesPedigree *float64 `json:"diabetesPedigree,omitempty" yaml:"diabetesPedigree,omitempty"`
}

// HeartProtocol carries the Cleveland intake observations.
type HeartProtocol struct {
	Sex               *Sex     `json:"sex,omitempty" yaml:"sex,omitempty"`
	ChestPainType     *int     `json:"chestPainType,omitempty" yaml:"chestPainType,omitempty"`
	RestingBP         *float64 `json:"restingBP,omitempty" yaml:"restingBP,omitempty"`
	Cholesterol       *float64 `json:"cholesterol,omitempty" yaml:"cholesterol,omitempty"`
	FastingBloodSugar *bool    `json:"fastingBloodSugar,omitempty" yaml:"fastingBloodSugar,omitempty"`
	RestECG           *int     `json:"restECG,omitempty" yaml:"restECG,omitempty"`
	MaxHeartRate      *float64 `json:"maxHeartRate,omitempty" yaml:"maxHeartRate,omitempty"`
	ExerciseAngina    *bool    `json:"exerciseAngina,omitempty" yaml:"exerciseAngina,omitempty"`
	Oldpeak           *float64 `json:"oldpeak,omitempty" yaml:"oldpeak,omitempty"`
	Slope             *int     `json:"slope,omitempty" yaml:"slope,omitempty"`
	Vessels           *int     `json:"vessels,omitempty" yaml:"vessels,omitempty"`
	Thal              *int     `json:"thal,omitempty" yaml:"thal,omitempty"`
}

// Screening is a routine vitals check taken at the front desk.
type Screening struct {
	SystolicBP  *float64 `json:"systolicBP,omitempty" yaml:"systolicBP,omitempty"`
	DiastolicBP *float64 `json:"diastolicBP,omitempty" yaml:"diastolicBP,omitempty"`
	Pulse       *float64 `json:"pulse,omitempty" yaml:"pulse,omitempty"`
	Glucose     *float64 `json:"glucose,omitempty" yaml:"glucose,omitempty"`
	Cholesterol *float64 `json:"cholesterol,omitempty" yaml:"cholesterol,omitempty"`
	BMI         *float64 `json:"bmi,omitempty" yaml:"bmi,omitempty"`
}

// ClinicalRecord bundles everything known about one patient at scoring time.
type ClinicalRecord struct {
	Patient     *Patient          `json:"patient,omitempty" yaml:"patient,omitempty"`
	Appointment *Appointment      `json:"appointment,omitempty" yaml:"appointment,omitempty"`
	Diabetes    *DiabetesProtocol `json:"diabetes,omitempty" yaml:"diabetes,omitempty"`
	Heart       *HeartProtocol    `json:"heart,omitempty" yaml:"heart,omitempty"`
	Screening   *Screening        `json:"screening,omitempty" yaml:"screening,omitempty"`
}

// Float, Int and Bool return pointers for building records inline.
func Float(v float64) *float64 { return &v }
func Int(v int) *int           { return &v }
func Bool(v bool) *bool        { return &v }
