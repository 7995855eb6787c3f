package analysis

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"dreamlab/internal/domain"
)

const systemInstruction = `You are a creative director who studies a single piece of media and proposes follow-up creative work. Respond strictly with JSON and nothing else.`

type modelPromptsPayload struct {
	Remix     string `json:"remix"`
	Outpaint  string `json:"outpaint"`
	Animation string `json:"animation"`
	Music     string `json:"music"`
	Dialogue  string `json:"dialogue"`
	Story     string `json:"story"`
}

type modelAnalysisPayload struct {
	Title       string              `json:"title"`
	Style       string              `json:"style"`
	Description string              `json:"description"`
	Keywords    []string            `json:"keywords"`
	Prompts     modelPromptsPayload `json:"prompts"`
}

func buildAnalysisPrompt(in Input) string {
	sb := &strings.Builder{}
	fmt.Fprintf(sb, "Analyze the attached %s. Respond strictly with JSON matching this schema: ", in.MediaType)
	sb.WriteString(`{"title":string,"style":string,"description":string,"keywords":string[],"prompts":{"remix":string,"outpaint":string,"animation":string,"music":string,"dialogue":string,"story":string}}`)
	sb.WriteString(". Each prompt must be a self-contained instruction another generative model can follow without seeing the media.")
	switch in.MediaType {
	case domain.MediaAudio:
		sb.WriteString(" For audio, describe the imagery the sound evokes; outpaint and remix prompts should describe a matching cover image.")
	case domain.MediaVideo:
		sb.WriteString(" For video, base the title and style on the dominant scene; the animation prompt should extend the motion.")
	}
	if style := strings.TrimSpace(in.Style); style != "" {
		fmt.Fprintf(sb, " Preferred style: %q.", style)
	}
	if notes := strings.TrimSpace(in.Notes); notes != "" {
		fmt.Fprintf(sb, " User notes: %q.", notes)
	}
	return sb.String()
}

func parseAnalysis(raw string, mediaType domain.MediaType) (*domain.Analysis, error) {
	var payload modelAnalysisPayload
	if err := decodeModelJSON(raw, &payload); err != nil {
		return nil, err
	}
	title := coalesce(payload.Title)
	if title == "" {
		return nil, errors.New("analysis payload has no title")
	}
	return &domain.Analysis{
		Title:       title,
		Style:       coalesce(payload.Style, "unspecified"),
		Description: coalesce(payload.Description),
		MediaType:   mediaType,
		Keywords:    normalizeKeywords(payload.Keywords, ""),
		Prompts: domain.PromptSet{
			Remix:     coalesce(payload.Prompts.Remix),
			Outpaint:  coalesce(payload.Prompts.Outpaint),
			Animation: coalesce(payload.Prompts.Animation),
			Music:     coalesce(payload.Prompts.Music),
			Dialogue:  coalesce(payload.Prompts.Dialogue),
			Story:     coalesce(payload.Prompts.Story),
		},
	}, nil
}

// maxKeywords bounds the tag list stored with a gallery post.
const maxKeywords = 12

// normalizeKeywords trims, drops case-insensitive duplicates and caps the list.
func normalizeKeywords(keywords []string, fallback string) []string {
	seen := make(map[string]bool, len(keywords))
	out := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		kw = strings.TrimSpace(kw)
		key := strings.ToLower(kw)
		if kw == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, kw)
		if len(out) == maxKeywords {
			break
		}
	}
	if len(out) == 0 {
		if fallback == "" {
			return nil
		}
		return []string{fallback}
	}
	return out
}

// coalesce returns the first non-blank value, trimmed.
func coalesce(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

func decodeModelJSON(raw string, out any) error {
	fragment := extractJSONFragment(raw)
	if fragment == "" {
		return errors.New("model returned no JSON")
	}
	if err := json.Unmarshal([]byte(fragment), out); err != nil {
		return fmt.Errorf("decode model JSON: %w", err)
	}
	return nil
}

// extractJSONFragment strips code fences and chatter around the outermost
// JSON object or array in a model reply.
func extractJSONFragment(raw string) string {
	text := trimCodeFence(raw)
	if text == "" {
		return ""
	}
	if start := strings.IndexAny(text, "{["); start >= 0 {
		if end := strings.LastIndexAny(text, "}]"); end > start {
			text = text[start : end+1]
		}
	}
	return strings.TrimSpace(text)
}

func trimCodeFence(text string) string {
	text = strings.TrimSpace(text)
	rest, ok := strings.CutPrefix(text, "```")
	if !ok {
		return text
	}
	// Drop the info string (json, JSON, ...) on the opening fence line.
	if nl := strings.IndexByte(rest, '\n'); nl >= 0 && !strings.ContainsAny(rest[:nl], "{[") {
		rest = rest[nl+1:]
	}
	if idx := strings.LastIndex(rest, "```"); idx >= 0 {
		rest = rest[:idx]
	}
	return strings.TrimSpace(rest)
}
