package credentials

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"dreamlab/internal/infra"
	"dreamlab/internal/sqlinline"
)

// Provider names used as integration_tokens keys.
const (
	ProviderOpenAI = "openai"
	ProviderLuma   = "luma"
	ProviderGemini = "gemini"
)

// Providers lists every provider whose key can be stored.
func Providers() []string {
	return []string{ProviderOpenAI, ProviderLuma, ProviderGemini}
}

// IsKnownProvider reports whether provider is one of Providers.
func IsKnownProvider(provider string) bool {
	for _, p := range Providers() {
		if p == provider {
			return true
		}
	}
	return false
}

// Store keeps provider API keys in the integration_tokens table.
type Store struct {
	sql infra.SQLExecutor
}

func NewStore(sql infra.SQLExecutor) *Store {
	return &Store{sql: sql}
}

// Token returns the stored key for provider, or "" when none is stored.
func (s *Store) Token(ctx context.Context, provider string) (string, error) {
	row := s.sql.QueryRow(ctx, sqlinline.QSelectIntegrationToken, provider)
	var token string
	if err := row.Scan(&token); err != nil {
		if infra.IsNoRows(err) {
			return "", nil
		}
		return "", err
	}
	return strings.TrimSpace(token), nil
}

// SetToken stores key for provider, replacing any previous value.
func (s *Store) SetToken(ctx context.Context, provider, key string) error {
	provider = strings.ToLower(strings.TrimSpace(provider))
	if !IsKnownProvider(provider) {
		return fmt.Errorf("unsupported provider %q", provider)
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return fmt.Errorf("%s api key is required", provider)
	}
	return s.upsert(ctx, provider, key, map[string]any{"source": "cli"})
}

// Resolve prefers the configured value and falls back to the stored key.
// A nil store resolves to the configured value alone.
func Resolve(ctx context.Context, store *Store, provider, configured string) (string, error) {
	if v := strings.TrimSpace(configured); v != "" || store == nil {
		return v, nil
	}
	return store.Token(ctx, provider)
}

func (s *Store) upsert(ctx context.Context, provider, token string, props map[string]any) error {
	payload := props
	if payload == nil {
		payload = map[string]any{}
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	_, err = s.sql.Exec(ctx, sqlinline.QUpsertIntegrationToken, provider, token, raw)
	return err
}
