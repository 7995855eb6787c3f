package repo

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"dreamlab/internal/domain"
	"dreamlab/internal/infra"
	"dreamlab/internal/sqlinline"
)

// GalleryRepositoryPG implements domain.GalleryRepository over marked SQL.
type GalleryRepositoryPG struct {
	sql   infra.SQLExecutor
	newID func() string
}

// NewGalleryRepository constructs a gallery repository.
func NewGalleryRepository(sql infra.SQLExecutor) *GalleryRepositoryPG {
	return &GalleryRepositoryPG{sql: sql, newID: uuid.NewString}
}

// Create inserts post and returns it with id and created_at filled in.
func (r *GalleryRepositoryPG) Create(ctx context.Context, post *domain.GalleryPost) (*domain.GalleryPost, error) {
	if post == nil {
		return nil, fmt.Errorf("%w: post is required", domain.ErrInvalidRequest)
	}
	saved := *post
	saved.ID = r.newID()
	var analysis any
	if len(saved.Analysis) > 0 {
		analysis = []byte(saved.Analysis)
	}
	row := r.sql.QueryRow(ctx, sqlinline.QInsertGalleryPost,
		saved.ID, saved.UserID, saved.Title, string(saved.MediaType), saved.MediaURL,
		saved.StorageKey, saved.Prompt, saved.GenerationID, analysis)
	if err := row.Scan(&saved.CreatedAt); err != nil {
		return nil, fmt.Errorf("insert gallery post: %w", err)
	}
	return &saved, nil
}

// List returns one page of posts, newest first.
func (r *GalleryRepositoryPG) List(ctx context.Context, page, pageSize int) (*domain.GalleryPage, error) {
	page, pageSize = domain.ClampPage(page, pageSize)

	var total int64
	if err := r.sql.QueryRow(ctx, sqlinline.QCountGalleryPosts).Scan(&total); err != nil {
		return nil, fmt.Errorf("count gallery posts: %w", err)
	}

	rows, err := r.sql.Query(ctx, sqlinline.QListGalleryPosts, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, fmt.Errorf("list gallery posts: %w", err)
	}
	defer rows.Close()

	items := make([]domain.GalleryPost, 0, pageSize)
	for rows.Next() {
		var (
			post      domain.GalleryPost
			mediaType string
			analysis  []byte
		)
		if err := rows.Scan(&post.ID, &post.UserID, &post.Title, &mediaType, &post.MediaURL,
			&post.StorageKey, &post.Prompt, &post.GenerationID, &analysis, &post.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan gallery post: %w", err)
		}
		post.MediaType = domain.MediaType(mediaType)
		if len(analysis) > 0 {
			post.Analysis = append([]byte(nil), analysis...)
		}
		items = append(items, post)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &domain.GalleryPage{Items: items, Page: page, PageSize: pageSize, Total: total}, nil
}

// Delete removes a post owned by userID and returns its storage key.
// Missing or foreign posts yield ErrNotFound.
func (r *GalleryRepositoryPG) Delete(ctx context.Context, id, userID string) (string, error) {
	if _, err := uuid.Parse(id); err != nil {
		return "", domain.ErrNotFound
	}
	var storageKey string
	if err := r.sql.QueryRow(ctx, sqlinline.QDeleteGalleryPost, id, userID).Scan(&storageKey); err != nil {
		if infra.IsNoRows(err) {
			return "", domain.ErrNotFound
		}
		return "", fmt.Errorf("delete gallery post: %w", err)
	}
	return storageKey, nil
}

var _ domain.GalleryRepository = (*GalleryRepositoryPG)(nil)
