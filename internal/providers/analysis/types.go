package analysis

import (
	"context"

	"dreamlab/internal/domain"
)

const (
	geminiProviderName = "gemini"
	demoProviderName   = "demo"
)

// MaxInlineBytes caps uploads sent inline to the vision model.
const MaxInlineBytes = 20 << 20

// Input is one uploaded media file plus optional user hints.
type Input struct {
	Data      []byte
	MIMEType  string
	Filename  string
	MediaType domain.MediaType
	Notes     string
	Style     string
}

// Analyzer turns uploaded media into a creative analysis.
type Analyzer interface {
	Name() string
	Analyze(ctx context.Context, in Input) (*domain.Analysis, error)
}
