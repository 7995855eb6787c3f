package image

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"dreamlab/internal/domain"
	"dreamlab/internal/infra"
)

// LumaOptions configures the Luma photon adapter.
type LumaOptions struct {
	APIKey         string
	BaseURL        string
	HTTPClient     *http.Client
	Logger         *infra.Logger
	RequestTimeout time.Duration
	Now            func() time.Time
}

// LumaAdapter submits photon image generations and reads their status.
type LumaAdapter struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	logger     *infra.Logger
	now        func() time.Time
}

type lumaImageRequest struct {
	Prompt      string `json:"prompt"`
	AspectRatio string `json:"aspect_ratio"`
	Model       string `json:"model"`
	Quality     string `json:"quality"`
}

type lumaGeneration struct {
	ID            string `json:"id"`
	State         string `json:"state"`
	FailureReason string `json:"failure_reason"`
	CreatedAt     string `json:"created_at"`
	Model         string `json:"model"`
	Assets        *struct {
		Image string `json:"image"`
	} `json:"assets"`
}

// NewLumaAdapter constructs the adapter. A missing key surfaces as a
// configuration error on first use.
func NewLumaAdapter(opts LumaOptions) *LumaAdapter {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.RequestTimeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		baseURL = "https://api.lumalabs.ai/dream-machine/v1"
	}
	logger := opts.Logger
	if logger == nil {
		discard := zerolog.New(io.Discard)
		logger = &discard
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &LumaAdapter{
		apiKey:     strings.TrimSpace(opts.APIKey),
		baseURL:    baseURL,
		httpClient: httpClient,
		logger:     logger,
		now:        now,
	}
}

// Provider fulfils AsyncAdapter.
func (a *LumaAdapter) Provider() domain.Provider {
	return domain.ProviderLuma
}

// HasCredentials reports whether the adapter can perform remote calls.
func (a *LumaAdapter) HasCredentials() bool {
	return a.apiKey != ""
}

// Submit creates a generation and returns its initial, usually pending, state.
func (a *LumaAdapter) Submit(ctx context.Context, req domain.GenerationRequest, spec domain.ModelSpec) (domain.GenerationResult, error) {
	if !a.HasCredentials() {
		return domain.GenerationResult{}, domain.NewConfigurationError(domain.ProviderLuma, "luma: api key is not configured")
	}
	payload := lumaImageRequest{
		Prompt:      req.Prompt,
		AspectRatio: req.AspectRatio,
		Model:       spec.NativeModel,
		Quality:     spec.NativeQuality(req.Quality),
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return domain.GenerationResult{}, fmt.Errorf("luma: encode request: %w", err)
	}
	gen, err := a.do(ctx, http.MethodPost, "/generations/image", body, domain.KindProviderRequest)
	if err != nil {
		return domain.GenerationResult{}, err
	}
	result, err := a.normalize(gen)
	if err != nil {
		return domain.GenerationResult{}, err
	}
	if result.Model == "" {
		result.Model = spec.ID
	}
	a.logger.Debug().
		Str("model", string(spec.ID)).
		Str("generation_id", result.ID).
		Str("state", string(result.State)).
		Str("quality", payload.Quality).
		Msg("luma: submitted generation")
	return result, nil
}

// Status performs a single idempotent status read.
func (a *LumaAdapter) Status(ctx context.Context, id string) (domain.GenerationResult, error) {
	if !a.HasCredentials() {
		return domain.GenerationResult{}, domain.NewConfigurationError(domain.ProviderLuma, "luma: api key is not configured")
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return domain.GenerationResult{}, fmt.Errorf("%w: generation id is required", domain.ErrInvalidRequest)
	}
	gen, err := a.do(ctx, http.MethodGet, "/generations/"+url.PathEscape(id), nil, domain.KindProviderPoll)
	if err != nil {
		return domain.GenerationResult{}, err
	}
	return a.normalize(gen)
}

func (a *LumaAdapter) do(ctx context.Context, method, path string, body []byte, kind domain.ErrorKind) (lumaGeneration, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, method, a.baseURL+path, reader)
	if err != nil {
		return lumaGeneration{}, fmt.Errorf("luma: build request: %w", err)
	}
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+a.apiKey)

	resp, err := a.httpClient.Do(httpReq)
	if err != nil {
		return lumaGeneration{}, transportFailure(kind, domain.ProviderLuma, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return lumaGeneration{}, transportFailure(kind, domain.ProviderLuma, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return lumaGeneration{}, providerFailure(kind, domain.ProviderLuma, resp.StatusCode, raw)
	}
	var gen lumaGeneration
	if err := json.Unmarshal(raw, &gen); err != nil {
		return lumaGeneration{}, decodeFailure(kind, domain.ProviderLuma, resp.StatusCode, raw, err)
	}
	if strings.TrimSpace(gen.ID) == "" {
		return lumaGeneration{}, decodeFailure(kind, domain.ProviderLuma, resp.StatusCode, raw, errors.New("missing generation id"))
	}
	return gen, nil
}

func (a *LumaAdapter) normalize(gen lumaGeneration) (domain.GenerationResult, error) {
	result := domain.GenerationResult{
		ID:        strings.TrimSpace(gen.ID),
		State:     normalizeLumaState(gen.State),
		Model:     domain.Model(strings.TrimSpace(gen.Model)),
		CreatedAt: parseTimestamp(gen.CreatedAt, a.now),
	}
	if gen.Assets != nil && strings.TrimSpace(gen.Assets.Image) != "" {
		result.Assets = &domain.Assets{Image: strings.TrimSpace(gen.Assets.Image)}
	}
	switch result.State {
	case domain.StateCompleted:
		if result.Assets == nil {
			return domain.GenerationResult{}, &domain.GenerationError{
				Kind:     domain.KindProviderPoll,
				Provider: domain.ProviderLuma,
				Message:  fmt.Sprintf("luma: generation %s completed without an image asset", result.ID),
			}
		}
		result.URL = result.Assets.Image
	case domain.StateFailed:
		result.FailureReason = strings.TrimSpace(gen.FailureReason)
	}
	return result, nil
}

func normalizeLumaState(state string) domain.State {
	switch strings.ToLower(strings.TrimSpace(state)) {
	case "dreaming":
		return domain.StateDreaming
	case "completed":
		return domain.StateCompleted
	case "failed":
		return domain.StateFailed
	default:
		return domain.StatePending
	}
}

func parseTimestamp(value string, now func() time.Time) time.Time {
	value = strings.TrimSpace(value)
	if value != "" {
		if ts, err := time.Parse(time.RFC3339Nano, value); err == nil {
			return ts.UTC()
		}
	}
	return now().UTC()
}

var _ AsyncAdapter = (*LumaAdapter)(nil)
