package analysis

import (
	"context"
	"errors"
	"io"

	"github.com/rs/zerolog"

	"dreamlab/internal/domain"
	"dreamlab/internal/infra"
)

// FallbackOptions configures the demo fallback.
type FallbackOptions struct {
	Primary Analyzer
	Demo    Analyzer
	// Enabled turns failures of Primary into demo results. When false the
	// primary error is returned unchanged.
	Enabled    bool
	Logger     *infra.Logger
	OnFallback func(reason string, err error)
}

// Fallback wraps a primary analyzer with an explicit demo fallback.
type Fallback struct {
	opts   FallbackOptions
	logger *infra.Logger
}

func NewFallback(opts FallbackOptions) *Fallback {
	if opts.Demo == nil {
		opts.Demo = NewDemoAnalyzer()
	}
	logger := opts.Logger
	if logger == nil {
		discard := zerolog.New(io.Discard)
		logger = &discard
	}
	return &Fallback{opts: opts, logger: logger}
}

func (f *Fallback) Name() string {
	if f.opts.Primary == nil {
		return f.opts.Demo.Name()
	}
	return f.opts.Primary.Name()
}

func (f *Fallback) Analyze(ctx context.Context, in Input) (*domain.Analysis, error) {
	if f.opts.Primary == nil {
		if !f.opts.Enabled {
			return nil, domain.NewConfigurationError(geminiProvider, "analysis: no analyzer configured")
		}
		return f.useDemo(ctx, in, "unconfigured", nil)
	}
	res, err := f.opts.Primary.Analyze(ctx, in)
	if err == nil {
		return res, nil
	}
	if !f.opts.Enabled || errors.Is(err, domain.ErrInvalidRequest) || ctx.Err() != nil {
		return nil, err
	}
	return f.useDemo(ctx, in, fallbackReason(err), err)
}

func (f *Fallback) useDemo(ctx context.Context, in Input, reason string, cause error) (*domain.Analysis, error) {
	f.logger.Warn().Err(cause).Str("reason", reason).Msg("analysis: serving demo result")
	if f.opts.OnFallback != nil {
		f.opts.OnFallback(reason, cause)
	}
	res, err := f.opts.Demo.Analyze(ctx, in)
	if err != nil {
		return nil, err
	}
	if res.Metadata == nil {
		res.Metadata = map[string]string{}
	}
	res.Demo = true
	res.Metadata["fallback_reason"] = reason
	return res, nil
}

func fallbackReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrConfiguration):
		return "missing_credentials"
	case errors.Is(err, domain.ErrProviderRequest):
		return "provider_request"
	default:
		return "error"
	}
}

var _ Analyzer = (*Fallback)(nil)
