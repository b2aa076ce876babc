// Package registry loads the trained risk heads once at startup and serves them
// read-only. A failed load leaves the registry degraded: every lookup reports
// ErrUnavailable and callers answer with their static fallbacks.
package registry

import (
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/Skufu/clinicrisk/internal/features"
	"github.com/Skufu/clinicrisk/internal/model"
)

var (
	ErrUnavailable    = errors.New("risk models unavailable")
	ErrSchemaMismatch = errors.New("artifact schema mismatch")
	ErrMissingHead    = errors.New("missing model head")
)

// Head is one trained (scaler, classifier) pair for a single feature schema.
type Head struct {
	Schema       features.SchemaID
	Classifier   model.Classifier
	Scaler       model.Scaler
	FeatureCount int
}

// Bundle groups the heads served under one model name.
type Bundle struct {
	Name  features.ModelName
	heads map[features.SchemaID]Head
}

// NewBundle validates every head against its feature schema.
func NewBundle(name features.ModelName, heads ...Head) (*Bundle, error) {
	b := &Bundle{Name: name, heads: make(map[features.SchemaID]Head, len(heads))}
	for _, h := range heads {
		if h.Schema.Model() != name {
			return nil, errors.Errorf("head %s does not belong to model %s", h.Schema, name)
		}
		s, err := features.Lookup(h.Schema)
		if err != nil {
			return nil, err
		}
		if h.Classifier == nil || h.Scaler == nil {
			return nil, errors.Wrapf(ErrMissingHead, "%s", h.Schema)
		}
		if h.Scaler.NumFeatures() != s.Len() || h.Classifier.NumFeatures() != s.Len() {
			return nil, errors.Wrapf(ErrSchemaMismatch, "%s: scaler %d, classifier %d, schema %d",
				h.Schema, h.Scaler.NumFeatures(), h.Classifier.NumFeatures(), s.Len())
		}
		h.FeatureCount = s.Len()
		b.heads[h.Schema] = h
	}
	return b, nil
}

func (b *Bundle) Head(id features.SchemaID) (Head, bool) {
	h, ok := b.heads[id]
	return h, ok
}

// Schemas lists the heads in the order the model declares them.
func (b *Bundle) Schemas() []features.SchemaID {
	var out []features.SchemaID
	for _, id := range features.SchemasFor(b.Name) {
		if _, ok := b.heads[id]; ok {
			out = append(out, id)
		}
	}
	return out
}

type Registry struct {
	dir     string
	bundles map[features.ModelName]*Bundle
	err     error
}

// New builds an in-memory registry from already constructed bundles.
func New(bundles ...*Bundle) *Registry {
	r := &Registry{bundles: make(map[features.ModelName]*Bundle, len(bundles))}
	for _, b := range bundles {
		r.bundles[b.Name] = b
	}
	return r
}

// Degraded returns a registry that answers ErrUnavailable for every model.
func Degraded(cause error) *Registry {
	if cause == nil {
		cause = ErrUnavailable
	}
	return &Registry{err: cause}
}

// LoadAll reads every model's predictor and scaler artifacts from dir.
// Any failure degrades the whole registry; it never returns an error.
func LoadAll(dir string, logger logrus.FieldLogger) *Registry {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	log := logger.WithField("dir", dir)

	bundles := make([]*Bundle, 0, len(features.Models))
	for _, name := range features.Models {
		b, err := loadBundle(dir, name, log)
		if err != nil {
			log.WithError(err).WithField("model", name).Warn("risk models not loaded, serving static fallbacks")
			r := Degraded(err)
			r.dir = dir
			return r
		}
		bundles = append(bundles, b)
	}

	r := New(bundles...)
	r.dir = dir
	log.WithField("models", len(bundles)).Info("risk models loaded")
	return r
}

func loadBundle(dir string, name features.ModelName, log logrus.FieldLogger) (*Bundle, error) {
	pf, err := model.ReadPredictorFile(model.PredictorPath(dir, string(name)))
	if err != nil {
		return nil, err
	}
	sf, err := model.ReadScalerFile(model.ScalerPath(dir, string(name)))
	if err != nil {
		return nil, err
	}
	for _, f := range []string{pf.Model, sf.Model} {
		if f != "" && f != string(name) {
			return nil, errors.Wrapf(ErrSchemaMismatch, "artifact for %q loaded as %q", f, name)
		}
	}

	wanted := features.SchemasFor(name)
	heads := make([]Head, 0, len(wanted))
	for _, id := range wanted {
		h, err := loadHead(id, pf, sf)
		if err != nil {
			return nil, err
		}
		heads = append(heads, h)
	}

	for _, v := range pf.Variants() {
		if _, err := features.Lookup(features.NewSchemaID(name, features.Variant(v))); err != nil {
			log.WithFields(logrus.Fields{"model": name, "variant": v}).Warn("ignoring unknown model head")
		}
	}

	return NewBundle(name, heads...)
}

func loadHead(id features.SchemaID, pf *model.PredictorFile, sf *model.ScalerFile) (Head, error) {
	variant := string(id.Variant())
	ca, ok := pf.Heads[variant]
	if !ok {
		return Head{}, errors.Wrapf(ErrMissingHead, "%s classifier", id)
	}
	sa, ok := sf.Heads[variant]
	if !ok {
		return Head{}, errors.Wrapf(ErrMissingHead, "%s scaler", id)
	}

	s, err := features.Lookup(id)
	if err != nil {
		return Head{}, err
	}
	if err := matchFeatures(s, ca.Features); err != nil {
		return Head{}, errors.Wrapf(err, "%s classifier", id)
	}
	if err := matchFeatures(s, sa.Features); err != nil {
		return Head{}, errors.Wrapf(err, "%s scaler", id)
	}

	cls, err := ca.Build()
	if err != nil {
		return Head{}, errors.Wrapf(err, "%s classifier", id)
	}
	sc, err := sa.Build()
	if err != nil {
		return Head{}, errors.Wrapf(err, "%s scaler", id)
	}
	return Head{Schema: id, Classifier: cls, Scaler: sc}, nil
}

// matchFeatures requires the artifact to list exactly the schema's features in order.
func matchFeatures(s features.Schema, got []string) error {
	want := s.Features()
	if len(got) != len(want) {
		return errors.Wrapf(ErrSchemaMismatch, "got %d features, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != string(want[i]) {
			return errors.Wrapf(ErrSchemaMismatch, "position %d is %q, want %q", i, got[i], want[i])
		}
	}
	return nil
}

// Loaded reports whether every model head is available.
func (r *Registry) Loaded() bool { return r.err == nil }

// Err returns the load failure behind degraded mode.
func (r *Registry) Err() error { return r.err }

func (r *Registry) Get(name features.ModelName) (*Bundle, error) {
	if r.err != nil {
		return nil, ErrUnavailable
	}
	b, ok := r.bundles[name]
	if !ok {
		return nil, errors.Wrapf(ErrUnavailable, "%s", name)
	}
	return b, nil
}
