// Package features turns clinical records into the fixed-order numeric vectors the
// risk models were trained on.
//
// Each feature resolves through an ordered chain: explicit override, value stored on
// the record, estimate from age and chronic-condition flags, population constant.
package features

import (
	"sort"
	"strings"

	"github.com/pkg/errors"

	"github.com/Skufu/clinicrisk/internal/record"
)

// Overrides carries freshly measured values keyed by feature name.
type Overrides map[Feature]float64

type Source string

const (
	FromOverride Source = "override"
	FromRecord   Source = "record"
	FromEstimate Source = "estimate"
	FromDefault  Source = "default"
)

// Vector is a feature vector in schema order.
type Vector struct {
	Schema  SchemaID  `json:"schema"`
	Values  []float64 `json:"values"`
	Sources []Source  `json:"sources"`
}

func (v Vector) Len() int { return len(v.Values) }

// SelectSchema picks the full layout when the record carries the matching protocol
// and the reduced layout otherwise.
func SelectSchema(m ModelName, rec record.ClinicalRecord) (SchemaID, error) {
	switch m {
	case NoShow:
		return NoShowFull, nil
	case Diabetes:
		if rec.Diabetes != nil {
			return DiabetesFull, nil
		}
		return DiabetesBasic, nil
	case Heart:
		if rec.Heart != nil {
			return HeartFull, nil
		}
		return HeartBasic, nil
	default:
		return "", errors.Wrapf(ErrUnknownModel, "%q", m)
	}
}

// CheckOverrides rejects override keys that no layout of model m can use.
// Keys of the model's other layout are accepted.
func CheckOverrides(m ModelName, ov Overrides) error {
	ids := SchemasFor(m)
	if ids == nil {
		return errors.Wrapf(ErrUnknownModel, "%q", m)
	}

	var unknown []string
	for f := range ov {
		known := false
		for _, id := range ids {
			if schemas[id].accepts(f) {
				known = true
				break
			}
		}
		if !known {
			unknown = append(unknown, string(f))
		}
	}
	if len(unknown) == 0 {
		return nil
	}
	sort.Strings(unknown)
	return errors.Wrapf(ErrUnknownFeature, "%s: %s", m, strings.Join(unknown, ", "))
}

// Build assembles the vector for model m.
func Build(m ModelName, rec record.ClinicalRecord, ov Overrides) (Vector, error) {
	id, err := SelectSchema(m, rec)
	if err != nil {
		return Vector{}, err
	}
	return BuildSchema(id, rec, ov)
}

// BuildSchema assembles the vector for an explicit schema.
func BuildSchema(id SchemaID, rec record.ClinicalRecord, ov Overrides) (Vector, error) {
	s, err := Lookup(id)
	if err != nil {
		return Vector{}, err
	}
	if err := CheckOverrides(s.Model(), ov); err != nil {
		return Vector{}, err
	}

	v := Vector{
		Schema:  id,
		Values:  make([]float64, len(s.rules)),
		Sources: make([]Source, len(s.rules)),
	}
	for i, r := range s.rules {
		v.Values[i], v.Sources[i] = r.resolve(rec, ov)
	}
	return v, nil
}

func (r rule) resolve(rec record.ClinicalRecord, ov Overrides) (float64, Source) {
	if val, ok := ov[r.feature]; ok {
		return val, FromOverride
	}
	for _, a := range r.aliases {
		if val, ok := ov[a]; ok {
			return val, FromOverride
		}
	}
	if r.stored != nil {
		if val, ok := r.stored(rec); ok {
			return val, FromRecord
		}
	}
	if r.estimate != nil {
		if val, ok := r.estimate(rec); ok {
			return val, FromEstimate
		}
	}
	return r.fallback, FromDefault
}
