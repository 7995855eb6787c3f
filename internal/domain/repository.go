package domain

import "context"

// GalleryRepository persists shared gallery posts.
type GalleryRepository interface {
	Create(ctx context.Context, post *GalleryPost) (*GalleryPost, error)
	List(ctx context.Context, page, pageSize int) (*GalleryPage, error)
	// Delete removes a post owned by userID and returns its storage key.
	Delete(ctx context.Context, id, userID string) (string, error)
}
