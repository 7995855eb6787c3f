package domain

import (
	"encoding/json"
	"time"
)

const (
	DefaultGalleryPageSize = 12
	MaxGalleryPageSize     = 50
)

// GalleryPost is a shared gallery entry.
type GalleryPost struct {
	ID           string          `json:"id"`
	UserID       string          `json:"user_id"`
	Title        string          `json:"title"`
	MediaType    MediaType       `json:"media_type"`
	MediaURL     string          `json:"media_url"`
	StorageKey   string          `json:"storage_key,omitempty"`
	Prompt       string          `json:"prompt,omitempty"`
	GenerationID string          `json:"generation_id,omitempty"`
	Analysis     json.RawMessage `json:"analysis,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
}

// GalleryPage is one page of gallery posts, newest first.
type GalleryPage struct {
	Items    []GalleryPost `json:"items"`
	Page     int           `json:"page"`
	PageSize int           `json:"page_size"`
	Total    int64         `json:"total"`
}

// ClampPage normalizes 1-based pagination input.
func ClampPage(page, size int) (int, int) {
	if page < 1 {
		page = 1
	}
	if size <= 0 {
		size = DefaultGalleryPageSize
	}
	if size > MaxGalleryPageSize {
		size = MaxGalleryPageSize
	}
	return page, size
}
