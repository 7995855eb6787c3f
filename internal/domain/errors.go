package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound         = errors.New("not found")
	ErrUnauthorized     = errors.New("unauthorized")
	ErrInvalidRequest   = errors.New("invalid request")
	ErrUnsupportedMedia = errors.New("unsupported media type")

	// ErrSynchronousID is returned when a status lookup targets a generation
	// that was completed inline by a synchronous provider.
	ErrSynchronousID = errors.New("generation id belongs to a synchronous provider and is already terminal")

	ErrConfiguration    = errors.New("provider configuration error")
	ErrProviderRequest  = errors.New("provider request failed")
	ErrProviderPoll     = errors.New("provider status check failed")
	ErrGenerationFailed = errors.New("generation failed")
	ErrTimeout          = errors.New("generation timed out")
)

// ErrorKind distinguishes the generation failure taxonomy.
type ErrorKind int

const (
	KindConfiguration ErrorKind = iota + 1
	KindProviderRequest
	KindProviderPoll
	KindGenerationFailed
	KindTimeout
)

func (k ErrorKind) String() string {
	switch k {
	case KindConfiguration:
		return "configuration"
	case KindProviderRequest:
		return "provider_request"
	case KindProviderPoll:
		return "provider_poll"
	case KindGenerationFailed:
		return "generation_failed"
	case KindTimeout:
		return "timeout"
	default:
		return "unknown"
	}
}

func (k ErrorKind) sentinel() error {
	switch k {
	case KindConfiguration:
		return ErrConfiguration
	case KindProviderRequest:
		return ErrProviderRequest
	case KindProviderPoll:
		return ErrProviderPoll
	case KindGenerationFailed:
		return ErrGenerationFailed
	case KindTimeout:
		return ErrTimeout
	default:
		return nil
	}
}

// KindFromString is the inverse of ErrorKind.String; unknown names yield 0.
func KindFromString(s string) ErrorKind {
	for k := KindConfiguration; k <= KindTimeout; k++ {
		if k.String() == s {
			return k
		}
	}
	return 0
}

// GenerationError carries a classified provider or orchestration failure.
// Error() returns Message verbatim so provider failure reasons surface unchanged.
type GenerationError struct {
	Kind       ErrorKind
	Provider   Provider
	StatusCode int
	Message    string
	// Body keeps the raw provider payload when it could not be parsed.
	Body string
	Err  error
}

func (e *GenerationError) Error() string {
	if e == nil {
		return ""
	}
	if msg := strings.TrimSpace(e.Message); msg != "" {
		return msg
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	if sentinel := e.Kind.sentinel(); sentinel != nil {
		return sentinel.Error()
	}
	return "generation error"
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}

// Is matches the sentinel of the error's kind.
func (e *GenerationError) Is(target error) bool {
	if e == nil {
		return false
	}
	return target != nil && target == e.Kind.sentinel()
}

// NewConfigurationError reports a missing or invalid provider credential.
func NewConfigurationError(provider Provider, format string, args ...any) *GenerationError {
	return &GenerationError{
		Kind:     KindConfiguration,
		Provider: provider,
		Message:  fmt.Sprintf(format, args...),
	}
}

// KindOf returns the classification of err, or 0 when it is not a generation error.
func KindOf(err error) ErrorKind {
	var genErr *GenerationError
	if errors.As(err, &genErr) {
		return genErr.Kind
	}
	return 0
}
