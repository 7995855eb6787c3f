package image

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"dreamlab/internal/domain"
	"dreamlab/internal/infra"
)

// SyncIDPrefix marks ids assigned by the OpenAI adapter; such generations are
// terminal the moment they are returned.
const SyncIDPrefix = "openai-"

// OpenAIOptions configures the OpenAI images adapter.
type OpenAIOptions struct {
	APIKey         string
	BaseURL        string
	HTTPClient     *http.Client
	Logger         *infra.Logger
	RequestTimeout time.Duration
	NewID          func() string
	Now            func() time.Time
}

// OpenAIAdapter calls the OpenAI images API, which answers synchronously.
type OpenAIAdapter struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	logger     *infra.Logger
	newID      func() string
	now        func() time.Time
}

type openAIImageRequest struct {
	Model          string `json:"model"`
	Prompt         string `json:"prompt"`
	N              int    `json:"n"`
	Size           string `json:"size"`
	Quality        string `json:"quality,omitempty"`
	ResponseFormat string `json:"response_format,omitempty"`
	OutputFormat   string `json:"output_format,omitempty"`
}

type openAIImageResponse struct {
	Created int64 `json:"created"`
	Data    []struct {
		URL           string `json:"url"`
		B64JSON       string `json:"b64_json"`
		RevisedPrompt string `json:"revised_prompt"`
	} `json:"data"`
}

// NewOpenAIAdapter constructs the adapter. A missing key is not an error here;
// it is reported as a configuration error on the first Generate call.
func NewOpenAIAdapter(opts OpenAIOptions) *OpenAIAdapter {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.RequestTimeout
		if timeout <= 0 {
			timeout = 120 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	logger := opts.Logger
	if logger == nil {
		discard := zerolog.New(io.Discard)
		logger = &discard
	}
	newID := opts.NewID
	if newID == nil {
		newID = uuid.NewString
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &OpenAIAdapter{
		apiKey:     strings.TrimSpace(opts.APIKey),
		baseURL:    baseURL,
		httpClient: httpClient,
		logger:     logger,
		newID:      newID,
		now:        now,
	}
}

// Provider fulfils SyncAdapter.
func (a *OpenAIAdapter) Provider() domain.Provider {
	return domain.ProviderOpenAI
}

// HasCredentials reports whether the adapter can perform remote calls.
func (a *OpenAIAdapter) HasCredentials() bool {
	return a.apiKey != ""
}

// Generate issues one images request and returns a completed result.
func (a *OpenAIAdapter) Generate(ctx context.Context, req domain.GenerationRequest, spec domain.ModelSpec) (domain.GenerationResult, error) {
	if !a.HasCredentials() {
		return domain.GenerationResult{}, domain.NewConfigurationError(domain.ProviderOpenAI, "openai: api key is not configured")
	}
	payload := buildOpenAIRequest(req, spec)

	body, err := json.Marshal(payload)
	if err != nil {
		return domain.GenerationResult{}, fmt.Errorf("openai: encode request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/images/generations", bytes.NewReader(body))
	if err != nil {
		return domain.GenerationResult{}, fmt.Errorf("openai: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+a.apiKey)

	resp, err := a.httpClient.Do(httpReq)
	if err != nil {
		return domain.GenerationResult{}, transportFailure(domain.KindProviderRequest, domain.ProviderOpenAI, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return domain.GenerationResult{}, transportFailure(domain.KindProviderRequest, domain.ProviderOpenAI, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return domain.GenerationResult{}, providerFailure(domain.KindProviderRequest, domain.ProviderOpenAI, resp.StatusCode, raw)
	}

	var decoded openAIImageResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return domain.GenerationResult{}, decodeFailure(domain.KindProviderRequest, domain.ProviderOpenAI, resp.StatusCode, raw, err)
	}
	imageURL, err := imageReference(decoded)
	if err != nil {
		return domain.GenerationResult{}, decodeFailure(domain.KindProviderRequest, domain.ProviderOpenAI, resp.StatusCode, raw, err)
	}

	createdAt := a.now().UTC()
	if decoded.Created > 0 {
		createdAt = time.Unix(decoded.Created, 0).UTC()
	}
	result := domain.GenerationResult{
		ID:        SyncIDPrefix + a.newID(),
		State:     domain.StateCompleted,
		Model:     spec.ID,
		URL:       imageURL,
		CreatedAt: createdAt,
		Assets:    &domain.Assets{Image: imageURL},
	}
	a.logger.Debug().
		Str("model", string(spec.ID)).
		Str("generation_id", result.ID).
		Str("size", payload.Size).
		Str("quality", payload.Quality).
		Msg("openai: generated image")
	return result, nil
}

func buildOpenAIRequest(req domain.GenerationRequest, spec domain.ModelSpec) openAIImageRequest {
	payload := openAIImageRequest{
		Model:   spec.NativeModel,
		Prompt:  req.Prompt,
		N:       1,
		Size:    AspectRatioSize(spec.ID, req.AspectRatio),
		Quality: spec.NativeQuality(req.Quality),
	}
	switch spec.ID {
	case domain.ModelDallE3:
		payload.ResponseFormat = "url"
	case domain.ModelGPTImage1:
		payload.OutputFormat = "png"
	}
	return payload
}

// imageReference returns a displayable reference for the first image: the
// URL unchanged, or inline bytes wrapped as a data URL.
func imageReference(resp openAIImageResponse) (string, error) {
	if len(resp.Data) == 0 {
		return "", errors.New("no image data returned")
	}
	first := resp.Data[0]
	if url := strings.TrimSpace(first.URL); url != "" {
		return url, nil
	}
	if b64 := strings.TrimSpace(first.B64JSON); b64 != "" {
		return "data:image/png;base64," + b64, nil
	}
	return "", errors.New("image entry has neither url nor b64_json")
}

var _ SyncAdapter = (*OpenAIAdapter)(nil)
