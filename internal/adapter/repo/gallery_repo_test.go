package repo

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"dreamlab/internal/domain"
	"dreamlab/internal/sqlinline"
)

type scanFunc func(dest ...any) error

func (f scanFunc) Scan(dest ...any) error { return f(dest...) }

type galleryRows struct {
	posts []domain.GalleryPost
	idx   int
}

func (r *galleryRows) Close()                                       {}
func (r *galleryRows) Err() error                                   { return nil }
func (r *galleryRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (r *galleryRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *galleryRows) Values() ([]any, error)                       { return nil, nil }
func (r *galleryRows) RawValues() [][]byte                          { return nil }
func (r *galleryRows) Conn() *pgx.Conn                              { return nil }

func (r *galleryRows) Next() bool {
	if r.idx >= len(r.posts) {
		return false
	}
	r.idx++
	return true
}

func (r *galleryRows) Scan(dest ...any) error {
	p := r.posts[r.idx-1]
	*dest[0].(*string) = p.ID
	*dest[1].(*string) = p.UserID
	*dest[2].(*string) = p.Title
	*dest[3].(*string) = string(p.MediaType)
	*dest[4].(*string) = p.MediaURL
	*dest[5].(*string) = p.StorageKey
	*dest[6].(*string) = p.Prompt
	*dest[7].(*string) = p.GenerationID
	*dest[8].(*[]byte) = []byte(p.Analysis)
	*dest[9].(*time.Time) = p.CreatedAt
	return nil
}

type galleryStub struct {
	queries []string
	args    [][]any
	posts   []domain.GalleryPost
	total   int64
	deleted string
}

func (s *galleryStub) Exec(_ context.Context, query string, args ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, errors.New("unexpected exec")
}

func (s *galleryStub) QueryRow(_ context.Context, query string, args ...any) pgx.Row {
	s.queries = append(s.queries, query)
	s.args = append(s.args, args)
	switch query {
	case sqlinline.QInsertGalleryPost:
		return scanFunc(func(dest ...any) error {
			*dest[0].(*time.Time) = time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
			return nil
		})
	case sqlinline.QCountGalleryPosts:
		return scanFunc(func(dest ...any) error {
			*dest[0].(*int64) = s.total
			return nil
		})
	case sqlinline.QDeleteGalleryPost:
		return scanFunc(func(dest ...any) error {
			if args[1] != "owner" {
				return pgx.ErrNoRows
			}
			*dest[0].(*string) = s.deleted
			return nil
		})
	}
	return scanFunc(func(...any) error { return errors.New("unexpected query") })
}

func (s *galleryStub) Query(_ context.Context, query string, args ...any) (pgx.Rows, error) {
	s.queries = append(s.queries, query)
	s.args = append(s.args, args)
	return &galleryRows{posts: s.posts}, nil
}

func TestGalleryCreate(t *testing.T) {
	stub := &galleryStub{}
	r := NewGalleryRepository(stub)
	r.newID = func() string { return "0b9c7c1e-4a43-4f8e-9d1b-2f0e6c8a7d11" }

	saved, err := r.Create(context.Background(), &domain.GalleryPost{
		UserID: "u1", Title: "Fox", MediaType: domain.MediaImage, MediaURL: "https://cdn/fox.png",
		Analysis: json.RawMessage(`{"title":"Fox"}`),
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if saved.ID != "0b9c7c1e-4a43-4f8e-9d1b-2f0e6c8a7d11" || saved.CreatedAt.Year() != 2025 {
		t.Fatalf("unexpected saved post: %#v", saved)
	}
	args := stub.args[0]
	if len(args) != 9 || args[3] != "image" {
		t.Fatalf("unexpected args: %#v", args)
	}
	if b, ok := args[8].([]byte); !ok || !strings.Contains(string(b), "Fox") {
		t.Fatalf("analysis not passed as jsonb bytes: %#v", args[8])
	}
}

func TestGalleryListClampsAndOffsets(t *testing.T) {
	stub := &galleryStub{
		total: 3,
		posts: []domain.GalleryPost{
			{ID: "b", Title: "newer", MediaType: domain.MediaImage},
			{ID: "a", Title: "older", MediaType: domain.MediaVideo},
		},
	}
	page, err := NewGalleryRepository(stub).List(context.Background(), 2, 500)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if page.PageSize != domain.MaxGalleryPageSize || page.Page != 2 || page.Total != 3 {
		t.Fatalf("unexpected page meta: %+v", page)
	}
	if len(page.Items) != 2 || page.Items[1].MediaType != domain.MediaVideo {
		t.Fatalf("unexpected items: %#v", page.Items)
	}
	listArgs := stub.args[1]
	if listArgs[0] != domain.MaxGalleryPageSize || listArgs[1] != domain.MaxGalleryPageSize {
		t.Fatalf("unexpected limit/offset: %#v", listArgs)
	}
	if page.Items[0].Analysis != nil {
		t.Fatalf("empty analysis should stay nil")
	}
}

func TestGalleryDeleteOwnership(t *testing.T) {
	stub := &galleryStub{deleted: "gallery/2025/01/x.png"}
	r := NewGalleryRepository(stub)
	id := "0b9c7c1e-4a43-4f8e-9d1b-2f0e6c8a7d11"

	key, err := r.Delete(context.Background(), id, "owner")
	if err != nil || key != "gallery/2025/01/x.png" {
		t.Fatalf("Delete = %q, %v", key, err)
	}
	if _, err := r.Delete(context.Background(), id, "intruder"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found for foreign post, got %v", err)
	}
	if _, err := r.Delete(context.Background(), "not-a-uuid", "owner"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found for malformed id, got %v", err)
	}
}
