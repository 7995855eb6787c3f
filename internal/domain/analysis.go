package domain

import "strings"

// MediaType classifies uploaded media.
type MediaType string

const (
	MediaImage MediaType = "image"
	MediaVideo MediaType = "video"
	MediaAudio MediaType = "audio"
)

// MediaTypeFromMIME maps a content type onto a MediaType.
func MediaTypeFromMIME(mime string) (MediaType, bool) {
	mime = strings.ToLower(strings.TrimSpace(mime))
	if idx := strings.Index(mime, ";"); idx >= 0 {
		mime = strings.TrimSpace(mime[:idx])
	}
	switch {
	case strings.HasPrefix(mime, "image/"):
		return MediaImage, true
	case strings.HasPrefix(mime, "video/"):
		return MediaVideo, true
	case strings.HasPrefix(mime, "audio/"):
		return MediaAudio, true
	default:
		return "", false
	}
}

// PromptSet holds the creative prompt variants derived from one piece of media.
type PromptSet struct {
	Remix     string `json:"remix"`
	Outpaint  string `json:"outpaint"`
	Animation string `json:"animation"`
	Music     string `json:"music"`
	Dialogue  string `json:"dialogue"`
	Story     string `json:"story"`
}

// Analysis is the structured creative analysis of uploaded media.
type Analysis struct {
	Title       string            `json:"title"`
	Style       string            `json:"style"`
	Description string            `json:"description"`
	MediaType   MediaType         `json:"media_type"`
	Prompts     PromptSet         `json:"prompts"`
	Keywords    []string          `json:"keywords,omitempty"`
	Provider    string            `json:"provider"`
	Demo        bool              `json:"demo"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}
