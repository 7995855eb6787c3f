package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"dreamlab/internal/domain"
	"dreamlab/internal/storage"
)

const (
	maxGalleryBody  = 32 << 20
	maxTitleLength  = 200
	galleryKeyspace = "gallery"
)

type createGalleryRequest struct {
	Title        string           `json:"title"`
	MediaType    domain.MediaType `json:"media_type"`
	MediaURL     string           `json:"media_url"`
	Prompt       string           `json:"prompt"`
	GenerationID string           `json:"generation_id"`
	Analysis     json.RawMessage  `json:"analysis"`
}

func (r createGalleryRequest) validate() error {
	if strings.TrimSpace(r.Title) == "" {
		return errors.New("title is required")
	}
	if len(r.Title) > maxTitleLength {
		return errors.New("title is too long")
	}
	switch r.MediaType {
	case domain.MediaImage, domain.MediaVideo, domain.MediaAudio:
	default:
		return errors.New("media_type must be image, video or audio")
	}
	url := strings.TrimSpace(r.MediaURL)
	if url == "" {
		return errors.New("media_url is required")
	}
	if !strings.HasPrefix(url, "data:") && !strings.HasPrefix(url, "https://") && !strings.HasPrefix(url, "http://") {
		return errors.New("media_url must be an http(s) or data URL")
	}
	if len(r.Analysis) > 0 && !json.Valid(r.Analysis) {
		return errors.New("analysis must be valid JSON")
	}
	return nil
}

// CreateGalleryPost shares a piece of media. Inline data URLs are moved into
// the object store so the gallery only keeps links.
func (a *App) CreateGalleryPost(w http.ResponseWriter, r *http.Request) {
	if a.Gallery == nil {
		a.error(w, http.StatusServiceUnavailable, "configuration", "gallery is not configured")
		return
	}
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	var req createGalleryRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxGalleryBody)).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	if err := req.validate(); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	post := &domain.GalleryPost{
		UserID:       userID,
		Title:        strings.TrimSpace(req.Title),
		MediaType:    req.MediaType,
		MediaURL:     strings.TrimSpace(req.MediaURL),
		Prompt:       strings.TrimSpace(req.Prompt),
		GenerationID: strings.TrimSpace(req.GenerationID),
		Analysis:     req.Analysis,
	}
	if string(post.Analysis) == "null" {
		post.Analysis = nil
	}
	if strings.HasPrefix(post.MediaURL, "data:") {
		if a.Store == nil {
			a.error(w, http.StatusServiceUnavailable, "configuration", "media storage is not configured")
			return
		}
		key, url, err := a.Store.SaveDataURL(r.Context(), galleryKeyspace, post.MediaURL)
		if err != nil {
			if errors.Is(err, storage.ErrInvalidDataURL) {
				a.error(w, http.StatusBadRequest, "bad_request", err.Error())
				return
			}
			a.log(r).Error().Err(err).Msg("gallery: store media")
			a.error(w, http.StatusInternalServerError, "internal", "failed to store media")
			return
		}
		post.MediaURL = url
		post.StorageKey = key
	}

	saved, err := a.Gallery.Create(r.Context(), post)
	if err != nil {
		if post.StorageKey != "" {
			_ = a.Store.Delete(r.Context(), post.StorageKey)
		}
		a.log(r).Error().Err(err).Msg("gallery: create post")
		a.error(w, http.StatusInternalServerError, "internal", "failed to save post")
		return
	}
	a.json(w, http.StatusCreated, saved)
}

// ListGallery is public and returns newest posts first.
func (a *App) ListGallery(w http.ResponseWriter, r *http.Request) {
	if a.Gallery == nil {
		a.error(w, http.StatusServiceUnavailable, "configuration", "gallery is not configured")
		return
	}
	q := r.URL.Query()
	page, err := optionalInt(q.Get("page"))
	if err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "page must be an integer")
		return
	}
	size, err := optionalInt(q.Get("page_size"))
	if err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "page_size must be an integer")
		return
	}
	result, err := a.Gallery.List(r.Context(), page, size)
	if err != nil {
		a.log(r).Error().Err(err).Msg("gallery: list posts")
		a.error(w, http.StatusInternalServerError, "internal", "failed to load gallery")
		return
	}
	a.json(w, http.StatusOK, result)
}

// DeleteGalleryPost removes the caller's own post. Posts owned by someone
// else are reported as missing.
func (a *App) DeleteGalleryPost(w http.ResponseWriter, r *http.Request) {
	if a.Gallery == nil {
		a.error(w, http.StatusServiceUnavailable, "configuration", "gallery is not configured")
		return
	}
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	key, err := a.Gallery.Delete(r.Context(), chi.URLParam(r, "id"), userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			a.error(w, http.StatusNotFound, "not_found", "post not found")
			return
		}
		a.log(r).Error().Err(err).Msg("gallery: delete post")
		a.error(w, http.StatusInternalServerError, "internal", "failed to delete post")
		return
	}
	if key != "" && a.Store != nil {
		if err := a.Store.Delete(r.Context(), key); err != nil {
			a.log(r).Warn().Err(err).Str("storage_key", key).Msg("gallery: remove stored media")
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

func optionalInt(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	return strconv.Atoi(raw)
}
