package analysis

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/genai"

	"dreamlab/internal/domain"
	"dreamlab/internal/infra"
)

const (
	geminiDefaultModel   = "gemini-2.5-flash"
	geminiDefaultTimeout = 60 * time.Second
	geminiProvider       = domain.Provider("gemini")
)

// GeminiOptions configures GeminiAnalyzer. BaseURL overrides the Gemini API
// endpoint, mainly for tests.
type GeminiOptions struct {
	APIKey      string
	Model       string
	BaseURL     string
	HTTPClient  *http.Client
	Logger      *infra.Logger
	Temperature float32
}

// GeminiAnalyzer sends media inline to a Gemini vision model.
type GeminiAnalyzer struct {
	opts   GeminiOptions
	logger *infra.Logger

	once   sync.Once
	client *genai.Client
	err    error
}

func NewGeminiAnalyzer(opts GeminiOptions) *GeminiAnalyzer {
	opts.APIKey = strings.TrimSpace(opts.APIKey)
	opts.Model = strings.TrimSpace(opts.Model)
	if opts.Model == "" {
		opts.Model = geminiDefaultModel
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: geminiDefaultTimeout}
	}
	if opts.Temperature <= 0 {
		opts.Temperature = 0.7
	}
	logger := opts.Logger
	if logger == nil {
		discard := zerolog.New(io.Discard)
		logger = &discard
	}
	return &GeminiAnalyzer{opts: opts, logger: logger}
}

func (g *GeminiAnalyzer) Name() string { return geminiProviderName }

// HasCredentials reports whether an API key is configured.
func (g *GeminiAnalyzer) HasCredentials() bool { return g.opts.APIKey != "" }

func (g *GeminiAnalyzer) Analyze(ctx context.Context, in Input) (*domain.Analysis, error) {
	if !g.HasCredentials() {
		return nil, domain.NewConfigurationError(geminiProvider, "gemini: api key is not configured")
	}
	if len(in.Data) == 0 {
		return nil, fmt.Errorf("%w: empty upload", domain.ErrInvalidRequest)
	}
	if len(in.Data) > MaxInlineBytes {
		return nil, fmt.Errorf("%w: upload exceeds %d bytes", domain.ErrInvalidRequest, MaxInlineBytes)
	}
	client, err := g.genaiClient(ctx)
	if err != nil {
		return nil, &domain.GenerationError{Kind: domain.KindProviderRequest, Provider: geminiProvider, Message: fmt.Sprintf("gemini: create client: %v", err), Err: err}
	}

	contents := []*genai.Content{
		{
			Role: "user",
			Parts: []*genai.Part{
				{Text: buildAnalysisPrompt(in)},
				{InlineData: &genai.Blob{
					MIMEType: in.MIMEType,
					Data:     in.Data,
				}},
			},
		},
	}
	config := &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{
			Parts: []*genai.Part{{Text: systemInstruction}},
		},
		Temperature:      ptr(g.opts.Temperature),
		ResponseMIMEType: "application/json",
	}

	g.logger.Debug().
		Str("model", g.opts.Model).
		Str("media_type", string(in.MediaType)).
		Int("bytes", len(in.Data)).
		Msg("gemini: analyze")

	resp, err := client.Models.GenerateContent(ctx, g.opts.Model, contents, config)
	if err != nil {
		return nil, &domain.GenerationError{Kind: domain.KindProviderRequest, Provider: geminiProvider, Message: fmt.Sprintf("gemini: %v", err), Err: err}
	}
	text := extractResponseText(resp)
	analysis, err := parseAnalysis(text, in.MediaType)
	if err != nil {
		return nil, &domain.GenerationError{
			Kind:     domain.KindProviderRequest,
			Provider: geminiProvider,
			Message:  fmt.Sprintf("gemini: decode analysis: %v", err),
			Body:     text,
			Err:      err,
		}
	}
	analysis.Provider = geminiProviderName
	analysis.Metadata = map[string]string{"model": g.opts.Model}
	return analysis, nil
}

func (g *GeminiAnalyzer) genaiClient(ctx context.Context) (*genai.Client, error) {
	g.once.Do(func() {
		cfg := &genai.ClientConfig{
			APIKey:     g.opts.APIKey,
			Backend:    genai.BackendGeminiAPI,
			HTTPClient: g.opts.HTTPClient,
		}
		if base := strings.TrimRight(g.opts.BaseURL, "/"); base != "" {
			cfg.HTTPOptions = genai.HTTPOptions{BaseURL: base + "/"}
		}
		g.client, g.err = genai.NewClient(ctx, cfg)
	})
	return g.client, g.err
}

func extractResponseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var result strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part != nil && part.Text != "" {
			result.WriteString(part.Text)
		}
	}
	return strings.TrimSpace(result.String())
}

func ptr[T any](v T) *T {
	return &v
}

var _ Analyzer = (*GeminiAnalyzer)(nil)
