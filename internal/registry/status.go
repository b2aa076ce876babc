package registry

import "github.com/Skufu/clinicrisk/internal/features"

type Status struct {
	Loaded bool          `json:"loaded"`
	Dir    string        `json:"dir,omitempty"`
	Error  string        `json:"error,omitempty"`
	Models []ModelStatus `json:"models"`
}

type ModelStatus struct {
	Name  features.ModelName `json:"name"`
	Heads []HeadStatus       `json:"heads"`
}

type HeadStatus struct {
	Schema   features.SchemaID `json:"schema"`
	Features int               `json:"features"`
}

// Status summarizes what the registry serves.
func (r *Registry) Status() Status {
	st := Status{Loaded: r.Loaded(), Dir: r.dir, Models: []ModelStatus{}}
	if r.err != nil {
		st.Error = r.err.Error()
		return st
	}
	for _, name := range features.Models {
		b, ok := r.bundles[name]
		if !ok {
			continue
		}
		ms := ModelStatus{Name: name}
		for _, id := range b.Schemas() {
			h, _ := b.Head(id)
			ms.Heads = append(ms.Heads, HeadStatus{Schema: id, Features: h.FeatureCount})
		}
		st.Models = append(st.Models, ms)
	}
	return st
}
