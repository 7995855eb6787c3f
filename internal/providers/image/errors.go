package image

import (
	"encoding/json"
	"fmt"
	"strings"

	"dreamlab/internal/domain"
)

const maxErrorBody = 2048

// providerFailure builds a classified error from a non-2xx provider response.
func providerFailure(kind domain.ErrorKind, provider domain.Provider, status int, raw []byte) *domain.GenerationError {
	msg := extractErrorMessage(raw)
	text := fmt.Sprintf("%s: status %d", provider, status)
	if msg != "" {
		text = fmt.Sprintf("%s: %s", text, msg)
	}
	return &domain.GenerationError{
		Kind:       kind,
		Provider:   provider,
		StatusCode: status,
		Message:    text,
		Body:       truncate(string(raw)),
	}
}

// decodeFailure reports a 2xx response whose body could not be understood.
func decodeFailure(kind domain.ErrorKind, provider domain.Provider, status int, raw []byte, err error) *domain.GenerationError {
	return &domain.GenerationError{
		Kind:       kind,
		Provider:   provider,
		StatusCode: status,
		Message:    fmt.Sprintf("%s: decode response: %v", provider, err),
		Body:       truncate(string(raw)),
		Err:        err,
	}
}

// transportFailure wraps a network error.
func transportFailure(kind domain.ErrorKind, provider domain.Provider, err error) *domain.GenerationError {
	return &domain.GenerationError{
		Kind:     kind,
		Provider: provider,
		Message:  fmt.Sprintf("%s: http request: %v", provider, err),
		Err:      err,
	}
}

// extractErrorMessage tries the structured shapes providers use before
// falling back to the raw text.
func extractErrorMessage(raw []byte) string {
	text := strings.TrimSpace(string(raw))
	if text == "" {
		return ""
	}
	var body struct {
		Error   json.RawMessage `json:"error"`
		Detail  json.RawMessage `json:"detail"`
		Message string          `json:"message"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return truncate(text)
	}
	if msg := rawMessage(body.Error, "message"); msg != "" {
		return msg
	}
	if msg := rawMessage(body.Detail, "msg"); msg != "" {
		return msg
	}
	if msg := strings.TrimSpace(body.Message); msg != "" {
		return msg
	}
	return truncate(text)
}

// rawMessage reads a field that may be a plain string, an object carrying
// the named key, or a list of such objects.
func rawMessage(raw json.RawMessage, key string) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var obj map[string]any
	if err := json.Unmarshal(raw, &obj); err == nil {
		if v, ok := obj[key].(string); ok {
			return strings.TrimSpace(v)
		}
		return ""
	}
	var list []map[string]any
	if err := json.Unmarshal(raw, &list); err == nil {
		var parts []string
		for _, item := range list {
			if v, ok := item[key].(string); ok && strings.TrimSpace(v) != "" {
				parts = append(parts, strings.TrimSpace(v))
			}
		}
		return strings.Join(parts, "; ")
	}
	return ""
}

func truncate(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > maxErrorBody {
		return s[:maxErrorBody]
	}
	return s
}
