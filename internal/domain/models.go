package domain

import "fmt"

// ModelSpec binds a model identifier to its provider, family and quality rules.
type ModelSpec struct {
	ID             Model
	Provider       Provider
	Family         Family
	NativeModel    string
	DefaultQuality string
	// Qualities maps each accepted normalized quality to the provider-native value.
	Qualities map[Quality]string
}

// NativeQuality maps q to the provider-native value, falling back to the
// model default when q is empty or not valid for this model.
func (s ModelSpec) NativeQuality(q Quality) string {
	if native, ok := s.Qualities[q]; ok {
		return native
	}
	return s.DefaultQuality
}

type modelIndex int

const (
	idxDallE3 modelIndex = iota
	idxGPTImage1
	idxPhoton
	idxPhotonFlash
	modelCount
)

var lumaQualities = map[Quality]string{
	QualityLow:    "draft",
	QualityMedium: "standard",
	QualityHigh:   "enhanced",
}

// modelTable has one slot per model; init refuses to start with an empty slot.
var modelTable = [modelCount]ModelSpec{
	idxDallE3: {
		ID:             ModelDallE3,
		Provider:       ProviderOpenAI,
		Family:         FamilySync,
		NativeModel:    "dall-e-3",
		DefaultQuality: "standard",
		Qualities: map[Quality]string{
			QualityStandard: "standard",
			QualityHD:       "hd",
		},
	},
	idxGPTImage1: {
		ID:             ModelGPTImage1,
		Provider:       ProviderOpenAI,
		Family:         FamilySync,
		NativeModel:    "gpt-image-1",
		DefaultQuality: "auto",
		Qualities: map[Quality]string{
			QualityLow:    "low",
			QualityMedium: "medium",
			QualityHigh:   "high",
			QualityAuto:   "auto",
		},
	},
	idxPhoton: {
		ID:             ModelPhoton,
		Provider:       ProviderLuma,
		Family:         FamilyAsync,
		NativeModel:    "photon-1",
		DefaultQuality: "standard",
		Qualities:      lumaQualities,
	},
	idxPhotonFlash: {
		ID:             ModelPhotonFlash,
		Provider:       ProviderLuma,
		Family:         FamilyAsync,
		NativeModel:    "photon-flash-1",
		DefaultQuality: "standard",
		Qualities:      lumaQualities,
	},
}

func init() {
	for i, spec := range modelTable {
		if spec.ID == "" || spec.Provider == "" || spec.Family == 0 {
			panic(fmt.Sprintf("domain: model table slot %d is not wired", i))
		}
	}
}

// Models returns every supported model in table order.
func Models() []ModelSpec {
	out := make([]ModelSpec, len(modelTable))
	copy(out, modelTable[:])
	return out
}

// LookupModel resolves a model identifier.
func LookupModel(id Model) (ModelSpec, bool) {
	for _, spec := range modelTable {
		if spec.ID == id {
			return spec, true
		}
	}
	return ModelSpec{}, false
}

// Providers returns the distinct providers referenced by the model table.
func Providers() []Provider {
	seen := make(map[Provider]struct{})
	var out []Provider
	for _, spec := range modelTable {
		if _, ok := seen[spec.Provider]; ok {
			continue
		}
		seen[spec.Provider] = struct{}{}
		out = append(out, spec.Provider)
	}
	return out
}
