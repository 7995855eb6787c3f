package analysis

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"dreamlab/internal/domain"
)

// DemoAnalyzer returns a canned analysis derived from the upload's name and
// hints. Results are always flagged Demo.
type DemoAnalyzer struct{}

func NewDemoAnalyzer() *DemoAnalyzer {
	return &DemoAnalyzer{}
}

func (d *DemoAnalyzer) Name() string { return demoProviderName }

func (d *DemoAnalyzer) Analyze(_ context.Context, in Input) (*domain.Analysis, error) {
	c := cases.Title(language.Und)
	subject := strings.TrimSuffix(filepath.Base(in.Filename), filepath.Ext(in.Filename))
	subject = strings.NewReplacer("_", " ", "-", " ").Replace(subject)
	subject = coalesce(subject, "Untitled")
	if subject == "." {
		subject = "Untitled"
	}
	style := coalesce(in.Style, "dreamlike")
	mediaType := in.MediaType
	if mediaType == "" {
		mediaType = domain.MediaImage
	}

	title := c.String(fmt.Sprintf("%s study", subject))
	return &domain.Analysis{
		Title:       title,
		Style:       style,
		Description: fmt.Sprintf("A %s %s reimagined as a %s piece.", style, mediaType, strings.ToLower(subject)),
		MediaType:   mediaType,
		Keywords:    normalizeKeywords([]string{style, string(mediaType), "demo"}, ""),
		Prompts: domain.PromptSet{
			Remix:     fmt.Sprintf("Reinterpret %s in a %s style with bold color contrast.", subject, style),
			Outpaint:  fmt.Sprintf("Extend the scene around %s, keeping the %s mood and lighting.", subject, style),
			Animation: fmt.Sprintf("Animate %s with a slow parallax camera drift.", subject),
			Music:     fmt.Sprintf("Ambient track that matches a %s %s, 90 bpm.", style, mediaType),
			Dialogue:  fmt.Sprintf("Two characters discover %s and argue about what it means.", subject),
			Story:     fmt.Sprintf("A short story that begins the moment %s was created.", subject),
		},
		Provider: demoProviderName,
		Demo:     true,
		Metadata: map[string]string{},
	}, nil
}

var _ Analyzer = (*DemoAnalyzer)(nil)
