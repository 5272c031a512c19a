package pages

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/jmylchreest/zenimport/internal/store"
	"github.com/jmylchreest/zenimport/pkg/block"
	"github.com/jmylchreest/zenimport/pkg/importer"
)

const cardHTML = `<div class="custom-card"><h2>Hi</h2><p>World</p></div>`

func newService(t *testing.T) (*Service, *store.Store) {
	t.Helper()
	s, err := store.Open(store.Memory)
	if err != nil {
		t.Fatalf("store.Open() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return NewService(s, nil, Config{}), s
}

func TestImport_CreatesPage(t *testing.T) {
	svc, st := newService(t)
	ctx := context.Background()

	out, err := svc.Import(ctx, Request{
		Slug:  "solutions",
		Title: "  Our <em>Solutions</em> ",
		HTML:  cardHTML,
	})
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}
	if out.PageID == 0 || out.SectionsFound != 1 || out.Slug != "solutions" {
		t.Errorf("unexpected outcome %+v", out)
	}

	p, err := st.GetBySlug(ctx, "solutions")
	if err != nil {
		t.Fatalf("GetBySlug() error = %v", err)
	}
	if p.ID != out.PageID {
		t.Errorf("stored ID = %d, outcome ID = %d", p.ID, out.PageID)
	}
	if p.Title != "Our Solutions" {
		t.Errorf("Title = %q", p.Title)
	}
	if p.Status != StatusDraft || p.Author != "admin" {
		t.Errorf("defaults not applied: status=%q author=%q", p.Status, p.Author)
	}
	if p.Content != out.Result.Markup || p.Blocks != 1 {
		t.Errorf("content not stored: %+v", p)
	}

	blocks, err := block.Parse(p.Content)
	if err != nil {
		t.Fatalf("stored content does not parse: %v", err)
	}
	if v, _ := blocks[0].Attrs.Get("title"); v != "Hi" {
		t.Errorf("title = %q", v)
	}
}

func TestImport_DuplicateSlug(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	if _, err := svc.Import(ctx, Request{Slug: "about", Title: "About", HTML: cardHTML}); err != nil {
		t.Fatalf("first Import() error = %v", err)
	}
	_, err := svc.Import(ctx, Request{Slug: "/about/", Title: "Again", HTML: cardHTML})
	if !errors.Is(err, store.ErrSlugExists) {
		t.Fatalf("expected ErrSlugExists, got %v", err)
	}
	if err.Error() != "page with this slug already exists: about" {
		t.Errorf("Error() = %q", err.Error())
	}
}

// countingRepo records calls and reports every slug as taken.
type countingRepo struct {
	exists  bool
	checks  int
	creates int
}

func (r *countingRepo) Exists(context.Context, string) (bool, error) {
	r.checks++
	return r.exists, nil
}

func (r *countingRepo) Create(context.Context, *store.Page) (int64, error) {
	r.creates++
	return int64(r.creates), nil
}

func TestImport_SlugCheckedBeforeParsing(t *testing.T) {
	repo := &countingRepo{exists: true}
	svc := NewService(repo, nil, Config{})

	// The HTML has no sections; a taken slug must still win.
	_, err := svc.Import(context.Background(), Request{Slug: "taken", Title: "T", HTML: "<p>nothing</p>"})
	if !errors.Is(err, store.ErrSlugExists) {
		t.Fatalf("expected ErrSlugExists, got %v", err)
	}
	if repo.checks != 1 || repo.creates != 0 {
		t.Errorf("checks = %d, creates = %d", repo.checks, repo.creates)
	}
}

func TestImport_NoSections(t *testing.T) {
	repo := &countingRepo{}
	svc := NewService(repo, nil, Config{})

	_, err := svc.Import(context.Background(), Request{Slug: "empty", Title: "Empty", HTML: "<p>nothing</p>"})
	if !errors.Is(err, importer.ErrNoSectionsFound) {
		t.Fatalf("expected ErrNoSectionsFound, got %v", err)
	}
	if repo.creates != 0 {
		t.Error("no page should be created")
	}
}

func TestImport_InvalidRequests(t *testing.T) {
	tests := []struct {
		name    string
		req     Request
		wantMsg string
	}{
		{"missing slug", Request{Title: "T", HTML: cardHTML}, "slug is required"},
		{"slash only slug", Request{Slug: "//", Title: "T", HTML: cardHTML}, "slug is required"},
		{"missing title", Request{Slug: "s", Title: "<b> </b>", HTML: cardHTML}, "title is required"},
		{"bad status", Request{Slug: "s", Title: "T", Status: "private", HTML: cardHTML}, "status must be one of: draft publish"},
		{"missing html", Request{Slug: "s", Title: "T"}, "html is required"},
		{"long title", Request{Slug: "s", Title: strings.Repeat("t", 201), HTML: cardHTML}, "title must be at most 200"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &countingRepo{}
			svc := NewService(repo, nil, Config{})

			_, err := svc.Import(context.Background(), tt.req)
			if !errors.Is(err, ErrInvalidRequest) {
				t.Fatalf("expected ErrInvalidRequest, got %v", err)
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("error %q does not mention %q", err, tt.wantMsg)
			}
			if repo.checks != 0 {
				t.Error("invalid requests must not reach the repository")
			}
		})
	}
}

func TestNormalize(t *testing.T) {
	svc := NewService(&countingRepo{}, nil, Config{DefaultStatus: StatusPublish, DefaultAuthor: "editor"})

	req, err := svc.Normalize(Request{Slug: " Our Solutions ", Title: "Line\none", Status: ""})
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	if req.Slug != "our-solutions" {
		t.Errorf("Slug = %q", req.Slug)
	}
	if req.Title != "Line one" {
		t.Errorf("Title = %q", req.Title)
	}
	if req.Status != StatusPublish || req.Author != "editor" {
		t.Errorf("defaults = %q, %q", req.Status, req.Author)
	}

	req, err = svc.Normalize(Request{Slug: "x", Status: " PUBLISH ", Author: " sam "})
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	if req.Status != StatusPublish || req.Author != "sam" {
		t.Errorf("Status = %q, Author = %q", req.Status, req.Author)
	}
}

func TestImport_CustomImporter(t *testing.T) {
	repo := &countingRepo{}
	im, err := importer.New()
	if err != nil {
		t.Fatalf("importer.New() error = %v", err)
	}
	svc := NewService(repo, im, Config{})

	out, err := svc.Import(context.Background(), Request{Slug: "p", Title: "P", Status: "publish", HTML: cardHTML})
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}
	if out.PageID != 1 || repo.creates != 1 {
		t.Errorf("PageID = %d, creates = %d", out.PageID, repo.creates)
	}
}
