package image

import (
	"context"

	"dreamlab/internal/domain"
)

// SyncAdapter is implemented by providers that return a finished image in the
// response that created it.
type SyncAdapter interface {
	Provider() domain.Provider
	Generate(ctx context.Context, req domain.GenerationRequest, spec domain.ModelSpec) (domain.GenerationResult, error)
}

// AsyncAdapter is implemented by providers that return an id immediately and
// expose a separate status endpoint.
type AsyncAdapter interface {
	Provider() domain.Provider
	Submit(ctx context.Context, req domain.GenerationRequest, spec domain.ModelSpec) (domain.GenerationResult, error)
	Status(ctx context.Context, id string) (domain.GenerationResult, error)
}
