package features

import "github.com/Skufu/clinicrisk/internal/record"

func patientAge(r record.ClinicalRecord) (float64, bool) {
	if r.Patient == nil {
		return 0, false
	}
	return float64(r.Patient.Age), true
}

func patientSex(r record.ClinicalRecord) (float64, bool) {
	if r.Patient == nil {
		return 0, false
	}
	return r.Patient.Sex.Code(), true
}

func patientFlag(get func(*record.Patient) bool) lookup {
	return func(r record.ClinicalRecord) (float64, bool) {
		if r.Patient == nil {
			return 0, false
		}
		return boolCode(get(r.Patient)), true
	}
}

func appointmentLeadDays(r record.ClinicalRecord) (float64, bool) {
	days, ok := r.Appointment.LeadDays()
	return float64(days), ok
}

func appointmentSMS(r record.ClinicalRecord) (float64, bool) {
	if r.Appointment == nil {
		return 0, false
	}
	return boolCode(r.Appointment.SMSSent), true
}

func diabetesFloat(get func(*record.DiabetesProtocol) *float64) lookup {
	return func(r record.ClinicalRecord) (float64, bool) {
		if r.Diabetes == nil {
			return 0, false
		}
		return floatValue(get(r.Diabetes))
	}
}

func diabetesInt(get func(*record.DiabetesProtocol) *int) lookup {
	return func(r record.ClinicalRecord) (float64, bool) {
		if r.Diabetes == nil {
			return 0, false
		}
		return intValue(get(r.Diabetes))
	}
}

func heartFloat(get func(*record.HeartProtocol) *float64) lookup {
	return func(r record.ClinicalRecord) (float64, bool) {
		if r.Heart == nil {
			return 0, false
		}
		return floatValue(get(r.Heart))
	}
}

func heartInt(get func(*record.HeartProtocol) *int) lookup {
	return func(r record.ClinicalRecord) (float64, bool) {
		if r.Heart == nil {
			return 0, false
		}
		return intValue(get(r.Heart))
	}
}

func heartBool(get func(*record.HeartProtocol) *bool) lookup {
	return func(r record.ClinicalRecord) (float64, bool) {
		if r.Heart == nil {
			return 0, false
		}
		v := get(r.Heart)
		if v == nil {
			return 0, false
		}
		return boolCode(*v), true
	}
}

// heartSex prefers the sex recorded on the protocol over the patient card.
func heartSex(r record.ClinicalRecord) (float64, bool) {
	if r.Heart != nil && r.Heart.Sex != nil {
		return r.Heart.Sex.Code(), true
	}
	return patientSex(r)
}

func screeningFloat(get func(*record.Screening) *float64) lookup {
	return func(r record.ClinicalRecord) (float64, bool) {
		if r.Screening == nil {
			return 0, false
		}
		return floatValue(get(r.Screening))
	}
}

// Estimates derive a plausible value from age and chronic-condition flags.
// They only apply when the patient card is present.

func estimateGlucose(r record.ClinicalRecord) (float64, bool) {
	p := r.Patient
	if p == nil {
		return 0, false
	}
	v := 100 + float64(p.Age-40)*0.5
	if p.Diabetic {
		v += 40
	}
	return v, true
}

func estimateBMI(r record.ClinicalRecord) (float64, bool) {
	if r.Patient == nil {
		return 0, false
	}
	return 25 + float64(r.Patient.Age-40)*0.1, true
}

func estimateDiastolic(r record.ClinicalRecord) (float64, bool) {
	p := r.Patient
	if p == nil {
		return 0, false
	}
	v := 70 + float64(p.Age-30)*0.3
	if p.Hypertensive {
		v += 15
	}
	return v, true
}

func estimateSystolic(r record.ClinicalRecord) (float64, bool) {
	p := r.Patient
	if p == nil {
		return 0, false
	}
	v := 120 + float64(p.Age-40)*0.5
	if p.Hypertensive {
		v += 20
	}
	return v, true
}

func estimateCholesterol(r record.ClinicalRecord) (float64, bool) {
	if r.Patient == nil {
		return 0, false
	}
	return 180 + float64(r.Patient.Age-40)*1.5, true
}

func estimateMaxHeartRate(r record.ClinicalRecord) (float64, bool) {
	p := r.Patient
	if p == nil {
		return 0, false
	}
	v := 220 - float64(p.Age)
	if p.HeartDisease {
		v -= 10
	}
	return v, true
}

func floatValue(p *float64) (float64, bool) {
	if p == nil {
		return 0, false
	}
	return *p, true
}

func intValue(p *int) (float64, bool) {
	if p == nil {
		return 0, false
	}
	return float64(*p), true
}

func boolCode(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
