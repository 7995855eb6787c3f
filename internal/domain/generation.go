package domain

import (
	"fmt"
	"strings"
	"time"
)

// Model identifies a provider and model variant for image generation.
type Model string

const (
	ModelDallE3      Model = "dall-e-3"
	ModelGPTImage1   Model = "gpt-image-1"
	ModelPhoton      Model = "photon-1"
	ModelPhotonFlash Model = "photon-flash-1"
)

// DefaultAspectRatio applies when a request leaves aspect_ratio empty.
const DefaultAspectRatio = "1:1"

// Provider names an upstream image-generation service.
type Provider string

const (
	ProviderOpenAI Provider = "openai"
	ProviderLuma   Provider = "luma"
)

// Family tells whether a provider answers in the creating response or must be polled.
type Family int

const (
	FamilySync Family = iota + 1
	FamilyAsync
)

func (f Family) String() string {
	switch f {
	case FamilySync:
		return "sync"
	case FamilyAsync:
		return "async"
	default:
		return "unknown"
	}
}

// Quality is the provider-agnostic quality hint carried by a request.
type Quality string

const (
	QualityLow      Quality = "low"
	QualityMedium   Quality = "medium"
	QualityHigh     Quality = "high"
	QualityStandard Quality = "standard"
	QualityHD       Quality = "hd"
	QualityAuto     Quality = "auto"
)

// State is the lifecycle position of a generation.
type State string

const (
	StatePending   State = "pending"
	StateDreaming  State = "dreaming"
	StateCompleted State = "completed"
	StateFailed    State = "failed"
)

// Terminal reports whether no further transitions can occur.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateFailed
}

// SupportedAspectRatios lists every width:height ratio accepted at the boundary.
var SupportedAspectRatios = []string{"1:1", "16:9", "9:16", "4:3", "3:4", "3:2", "2:3", "21:9", "9:21"}

// GenerationRequest is the normalized, provider-agnostic generation request.
type GenerationRequest struct {
	Prompt      string  `json:"prompt"`
	AspectRatio string  `json:"aspect_ratio,omitempty"`
	Model       Model   `json:"model"`
	Quality     Quality `json:"quality,omitempty"`
}

// Assets mirrors the provider-native asset payload.
type Assets struct {
	Image string `json:"image,omitempty"`
}

// GenerationResult is the normalized result shape shared by every provider.
type GenerationResult struct {
	ID            string    `json:"id"`
	State         State     `json:"state"`
	Model         Model     `json:"model,omitempty"`
	URL           string    `json:"url,omitempty"`
	FailureReason string    `json:"failure_reason,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	Assets        *Assets   `json:"assets,omitempty"`
}

// Normalize trims free-form input and fills defaults. It does not coerce quality;
// that is a per-model decision made by ModelSpec.NativeQuality.
func (r GenerationRequest) Normalize() GenerationRequest {
	r.Prompt = strings.TrimSpace(r.Prompt)
	r.AspectRatio = strings.TrimSpace(r.AspectRatio)
	if r.AspectRatio == "" {
		r.AspectRatio = DefaultAspectRatio
	}
	r.Model = Model(strings.ToLower(strings.TrimSpace(string(r.Model))))
	r.Quality = Quality(strings.ToLower(strings.TrimSpace(string(r.Quality))))
	return r
}

// Validate checks a normalized request.
func (r GenerationRequest) Validate() error {
	if r.Prompt == "" {
		return fmt.Errorf("%w: prompt is required", ErrInvalidRequest)
	}
	if !IsSupportedAspectRatio(r.AspectRatio) {
		return fmt.Errorf("%w: unsupported aspect_ratio %q", ErrInvalidRequest, r.AspectRatio)
	}
	if _, ok := LookupModel(r.Model); !ok {
		return fmt.Errorf("%w: unsupported model %q", ErrInvalidRequest, r.Model)
	}
	return nil
}

// IsSupportedAspectRatio reports whether ratio belongs to SupportedAspectRatios.
func IsSupportedAspectRatio(ratio string) bool {
	for _, r := range SupportedAspectRatios {
		if r == ratio {
			return true
		}
	}
	return false
}
