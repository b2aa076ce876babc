// Package training turns tabular CSV exports into fitted model heads.
package training

import (
	"encoding/csv"
	"io"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/Skufu/clinicrisk/internal/features"
)

var (
	ErrMissingColumn = errors.New("missing column")
	ErrBadCell       = errors.New("unparseable cell")
	ErrEmptyDataset  = errors.New("dataset has no usable rows")
)

// Dataset is a design matrix in schema order with binary labels.
type Dataset struct {
	Schema   features.SchemaID
	Features []features.Feature
	X        [][]float64
	Y        []float64
	// Dropped counts rows filtered out, e.g. appointments booked after the visit.
	Dropped int
}

func (d *Dataset) Len() int { return len(d.Y) }

func (d *Dataset) Positives() int {
	n := 0
	for _, v := range d.Y {
		if v == 1 {
			n++
		}
	}
	return n
}

type ReadOptions struct {
	// Label names the outcome column. Values map Yes/True/1 to 1.
	Label string
	// FillMissing substitutes schema defaults for feature columns the file lacks.
	FillMissing bool
}

// Header spellings seen in the public datasets, normalized by normalize.
var aliases = map[features.Feature][]string{
	features.Age:               {"age"},
	features.Sex:               {"sex", "gender"},
	features.DaysAhead:         {"daysahead"},
	features.SMSReceived:       {"smsreceived", "sms"},
	features.Hypertension:      {"hypertension", "hipertension"},
	features.DiabetesFlag:      {"diabetes"},
	features.Pregnancies:       {"pregnancies"},
	features.Glucose:           {"glucose"},
	features.BloodPressure:     {"bloodpressure", "bp", "trestbps"},
	features.SkinThickness:     {"skinthickness"},
	features.Insulin:           {"insulin"},
	features.BMI:               {"bmi"},
	features.DiabetesPedigree:  {"diabetespedigreefunction", "diabetespedigree"},
	features.Cholesterol:       {"cholesterol", "chol"},
	features.MaxHeartRate:      {"maxheartrate", "maxhr", "thalach"},
	features.ChestPain:         {"cp", "chestpain"},
	features.RestingBP:         {"trestbps", "restingbp"},
	features.Chol:              {"chol", "cholesterol"},
	features.FastingBloodSugar: {"fbs"},
	features.RestECG:           {"restecg"},
	features.Thalach:           {"thalach", "maxhr"},
	features.ExerciseAngina:    {"exang"},
	features.Oldpeak:           {"oldpeak"},
	features.Slope:             {"slope"},
	features.Vessels:           {"ca"},
	features.Thal:              {"thal"},
}

// Pima stores missing measurements as 0.
var zeroIsMissing = map[features.Feature]bool{
	features.Glucose:       true,
	features.BloodPressure: true,
	features.BMI:           true,
}

func ReadFile(path string, id features.SchemaID, opts ReadOptions) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "error opening dataset: %s", path)
	}
	defer f.Close()

	ds, err := Read(f, id, opts)
	if err != nil {
		return nil, errors.Wrapf(err, "error reading dataset: %s", path)
	}
	return ds, nil
}

// Read parses a CSV with a header row into a dataset for schema id.
func Read(r io.Reader, id features.SchemaID, opts ReadOptions) (*Dataset, error) {
	s, err := features.Lookup(id)
	if err != nil {
		return nil, err
	}
	if opts.Label == "" {
		return nil, errors.New("label column is required")
	}

	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	header, err := cr.Read()
	if err != nil {
		return nil, errors.Wrap(err, "error reading header")
	}
	cols := indexHeader(header)

	label, ok := cols[normalize(opts.Label)]
	if !ok {
		return nil, errors.Wrapf(ErrMissingColumn, "label %q", opts.Label)
	}

	feats := s.Features()
	defaults := s.Defaults()
	src := make([]column, len(feats))
	for i, f := range feats {
		c, err := resolveColumn(f, cols, label)
		switch {
		case err == nil:
			src[i] = c
		case opts.FillMissing:
			src[i] = column{index: -1, constant: defaults[i]}
		default:
			return nil, err
		}
	}

	ds := &Dataset{Schema: id, Features: feats}
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrapf(err, "line %d", line)
		}

		y, err := parseCell(rec[label])
		if err != nil {
			return nil, errors.Wrapf(err, "line %d column %s", line, header[label])
		}
		row := make([]float64, len(src))
		skip := false
		for j, c := range src {
			v, err := c.value(rec)
			if err != nil {
				return nil, errors.Wrapf(err, "line %d feature %s", line, feats[j])
			}
			if feats[j] == features.DaysAhead && v < 0 {
				skip = true
			}
			row[j] = v
		}
		if skip {
			ds.Dropped++
			continue
		}
		ds.X = append(ds.X, row)
		ds.Y = append(ds.Y, boolish(y))
	}

	if ds.Len() == 0 {
		return nil, ErrEmptyDataset
	}
	if id.Model() == features.Diabetes {
		repairZeros(ds)
	}
	return ds, nil
}

type column struct {
	index    int
	constant float64
	// lead days derived from scheduling timestamps
	scheduled, appointment int
	derived                bool
}

func (c column) value(rec []string) (float64, error) {
	switch {
	case c.derived:
		return leadDays(rec[c.scheduled], rec[c.appointment])
	case c.index < 0:
		return c.constant, nil
	default:
		return parseCell(rec[c.index])
	}
}

func resolveColumn(f features.Feature, cols map[string]int, label int) (column, error) {
	for _, name := range aliases[f] {
		if i, ok := cols[name]; ok && i != label {
			return column{index: i}, nil
		}
	}
	if f == features.DaysAhead {
		s, okS := cols["scheduledday"]
		a, okA := cols["appointmentday"]
		if okS && okA {
			return column{derived: true, scheduled: s, appointment: a}, nil
		}
	}
	return column{}, errors.Wrapf(ErrMissingColumn, "feature %s", f)
}

func indexHeader(header []string) map[string]int {
	cols := make(map[string]int, len(header))
	for i, h := range header {
		k := normalize(h)
		if _, dup := cols[k]; !dup {
			cols[k] = i
		}
	}
	return cols
}

func normalize(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// parseCell reads numbers and the categorical spellings the public exports use.
// Empty cells read as 0.
func parseCell(s string) (float64, error) {
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "":
		return 0, nil
	case "m", "male", "yes", "true":
		return 1, nil
	case "f", "female", "no", "false":
		return 0, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, errors.Wrapf(ErrBadCell, "%q", s)
	}
	return v, nil
}

func boolish(v float64) float64 {
	if v > 0 {
		return 1
	}
	return 0
}

func leadDays(scheduled, appointment string) (float64, error) {
	s, err := parseTime(scheduled)
	if err != nil {
		return 0, err
	}
	a, err := parseTime(appointment)
	if err != nil {
		return 0, err
	}
	return math.Floor(a.Sub(s).Hours() / 24), nil
}

func parseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02 15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, errors.Wrapf(ErrBadCell, "timestamp %q", s)
}

// repairZeros replaces zero readings with the column median.
func repairZeros(ds *Dataset) {
	for j, f := range ds.Features {
		if !zeroIsMissing[f] {
			continue
		}
		col := make([]float64, len(ds.X))
		for i, row := range ds.X {
			col[i] = row[j]
		}
		m := median(col)
		for _, row := range ds.X {
			if row[j] == 0 {
				row[j] = m
			}
		}
	}
}

func median(v []float64) float64 {
	s := append([]float64(nil), v...)
	sort.Float64s(s)
	n := len(s)
	if n%2 == 1 {
		return s[n/2]
	}
	return (s[n/2-1] + s[n/2]) / 2
}
