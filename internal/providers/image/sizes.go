package image

import (
	"strings"

	"dreamlab/internal/domain"
)

// DefaultSize is the documented fallback for any ratio a provider does not map.
const DefaultSize = "1024x1024"

var dallE3Sizes = map[string]string{
	"1:1":  "1024x1024",
	"16:9": "1792x1024",
	"3:2":  "1792x1024",
	"9:16": "1024x1792",
	"2:3":  "1024x1792",
}

var gptImageSizes = map[string]string{
	"1:1":  "1024x1024",
	"16:9": "1536x1024",
	"3:2":  "1536x1024",
	"9:16": "1024x1536",
	"2:3":  "1024x1536",
}

// AspectRatioSize maps an aspect ratio to the size token the given model accepts.
func AspectRatioSize(model domain.Model, aspect string) string {
	var table map[string]string
	switch model {
	case domain.ModelDallE3:
		table = dallE3Sizes
	case domain.ModelGPTImage1:
		table = gptImageSizes
	default:
		return DefaultSize
	}
	if size, ok := table[strings.TrimSpace(aspect)]; ok {
		return size
	}
	return DefaultSize
}
