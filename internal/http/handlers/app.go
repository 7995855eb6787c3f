package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/rs/zerolog"

	"dreamlab/internal/domain"
	"dreamlab/internal/infra"
	"dreamlab/internal/middleware"
	"dreamlab/internal/providers/analysis"
)

// Generator is the orchestrator surface the HTTP API needs.
type Generator interface {
	Generate(ctx context.Context, req domain.GenerationRequest) (domain.GenerationResult, error)
	Dispatch(ctx context.Context, req domain.GenerationRequest) (domain.GenerationResult, error)
	GetStatus(ctx context.Context, id string) (domain.GenerationResult, error)
}

// MediaStore persists gallery media uploaded inline as data URLs.
type MediaStore interface {
	SaveDataURL(ctx context.Context, prefix, dataURL string) (key, url string, err error)
	Delete(ctx context.Context, key string) error
}

// Options wires the App. Gallery and Store may be nil when no database or
// storage is configured; the gallery routes then answer 503.
type Options struct {
	Generator Generator
	Analyzer  analysis.Analyzer
	Gallery   domain.GalleryRepository
	Store     MediaStore
	Logger    *infra.Logger
}

type App struct {
	Generator Generator
	Analyzer  analysis.Analyzer
	Gallery   domain.GalleryRepository
	Store     MediaStore
	Logger    *infra.Logger
}

func NewApp(opts Options) *App {
	logger := opts.Logger
	if logger == nil {
		discard := zerolog.New(io.Discard)
		logger = &discard
	}
	return &App{
		Generator: opts.Generator,
		Analyzer:  opts.Analyzer,
		Gallery:   opts.Gallery,
		Store:     opts.Store,
		Logger:    logger,
	}
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

type errorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Kind    string `json:"kind,omitempty"`
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, code int, errCode, message string) {
	a.json(w, code, errorResponse{Error: errorPayload{Code: errCode, Message: message}})
}

// fail maps domain and generation errors onto HTTP statuses.
func (a *App) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrSynchronousID):
		a.error(w, http.StatusBadRequest, "synchronous_id", err.Error())
		return
	case errors.Is(err, domain.ErrInvalidRequest):
		a.error(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	case errors.Is(err, domain.ErrUnsupportedMedia):
		a.error(w, http.StatusUnsupportedMediaType, "unsupported_media", err.Error())
		return
	case errors.Is(err, domain.ErrNotFound):
		a.error(w, http.StatusNotFound, "not_found", err.Error())
		return
	case errors.Is(err, domain.ErrUnauthorized):
		a.error(w, http.StatusUnauthorized, "unauthorized", err.Error())
		return
	}

	kind := domain.KindOf(err)
	status := statusForKind(kind)
	if status == 0 {
		if errors.Is(err, context.DeadlineExceeded) {
			a.error(w, http.StatusGatewayTimeout, "timeout", "request deadline exceeded")
			return
		}
		if errors.Is(err, context.Canceled) {
			a.log(r).Info().Msg("request cancelled by caller")
			a.error(w, http.StatusServiceUnavailable, "cancelled", "request cancelled")
			return
		}
		a.log(r).Error().Err(err).Msg("request failed")
		a.error(w, http.StatusInternalServerError, "internal", "internal error")
		return
	}
	evt := a.log(r).Warn()
	if status >= http.StatusInternalServerError {
		evt = a.log(r).Error()
	}
	evt.Err(err).Str("kind", kind.String()).Int("status", status).Msg("generation error")
	a.json(w, status, errorResponse{Error: errorPayload{Code: kind.String(), Message: err.Error(), Kind: kind.String()}})
}

func statusForKind(kind domain.ErrorKind) int {
	switch kind {
	case domain.KindConfiguration:
		return http.StatusServiceUnavailable
	case domain.KindProviderRequest, domain.KindProviderPoll:
		return http.StatusBadGateway
	case domain.KindGenerationFailed:
		return http.StatusUnprocessableEntity
	case domain.KindTimeout:
		return http.StatusGatewayTimeout
	default:
		return 0
	}
}

func (a *App) log(r *http.Request) *zerolog.Logger {
	l := a.Logger.With().Str("request_id", middleware.RequestIDFromContext(r.Context())).Logger()
	return &l
}

func (a *App) currentUserID(r *http.Request) string {
	return middleware.UserIDFromContext(r.Context())
}
