// Package pages creates pages from uploaded HTML.
//
// Import validates the request, normalises the slug, refuses slugs that are
// already taken, runs the importer and stores the resulting markup as the
// page content.
package pages

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/goliatone/go-slug"

	"github.com/jmylchreest/zenimport/internal/logger"
	"github.com/jmylchreest/zenimport/internal/store"
	"github.com/jmylchreest/zenimport/pkg/importer"
	"github.com/jmylchreest/zenimport/pkg/textnorm"
)

// ErrInvalidRequest is wrapped by every request validation failure.
var ErrInvalidRequest = errors.New("invalid import request")

// Page statuses.
const (
	StatusDraft   = "draft"
	StatusPublish = "publish"
)

// Request describes a page to create.
type Request struct {
	Slug   string `json:"slug" validate:"required,max=200"`
	Title  string `json:"title" validate:"required,max=200"`
	Status string `json:"status" validate:"required,oneof=draft publish"`
	Author string `json:"author" validate:"max=100"`
	HTML   string `json:"-" validate:"required"`
}

// Outcome reports a created page.
type Outcome struct {
	PageID        int64            `json:"page_id"`
	Slug          string           `json:"slug"`
	SectionsFound int              `json:"sections_found"`
	Result        *importer.Result `json:"result"`
}

// Repository is the page storage the service writes to.
type Repository interface {
	Exists(ctx context.Context, slug string) (bool, error)
	Create(ctx context.Context, p *store.Page) (int64, error)
}

// Config holds request defaults.
type Config struct {
	DefaultStatus string
	DefaultAuthor string
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		DefaultStatus: StatusDraft,
		DefaultAuthor: "admin",
	}
}

// Service imports pages. It is safe for concurrent use; two concurrent
// imports of the same slug are settled by the store's unique constraint.
type Service struct {
	repo     Repository
	importer *importer.Importer
	config   Config
	validate *validator.Validate
}

// NewService creates a Service. A nil importer means the built-in rules.
func NewService(repo Repository, im *importer.Importer, cfg Config) *Service {
	def := DefaultConfig()
	if cfg.DefaultStatus == "" {
		cfg.DefaultStatus = def.DefaultStatus
	}
	if cfg.DefaultAuthor == "" {
		cfg.DefaultAuthor = def.DefaultAuthor
	}
	if im == nil {
		im, _ = importer.New()
	}
	return &Service{
		repo:     repo,
		importer: im,
		config:   cfg,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// Normalize fills defaults, cleans the title and normalises the slug. It
// does not validate.
func (s *Service) Normalize(req Request) (Request, error) {
	req.Title = textnorm.Normalize(req.Title)
	req.Status = strings.ToLower(strings.TrimSpace(req.Status))
	if req.Status == "" {
		req.Status = s.config.DefaultStatus
	}
	req.Author = strings.TrimSpace(req.Author)
	if req.Author == "" {
		req.Author = s.config.DefaultAuthor
	}

	raw := strings.Trim(strings.TrimSpace(req.Slug), "/")
	if raw == "" {
		req.Slug = ""
		return req, nil
	}
	normalized, err := slug.Normalize(raw)
	if err != nil {
		return req, fmt.Errorf("%w: slug %q: %w", ErrInvalidRequest, req.Slug, err)
	}
	req.Slug = normalized
	return req, nil
}

// Import creates a page from req. It fails with ErrInvalidRequest,
// store.ErrSlugExists, importer.ErrNoSectionsFound or a storage error.
func (s *Service) Import(ctx context.Context, req Request) (*Outcome, error) {
	req, err := s.Normalize(req)
	if err != nil {
		return nil, err
	}
	if err := s.validateRequest(req); err != nil {
		return nil, err
	}

	// The slug check comes first so a taken slug never costs a parse.
	exists, err := s.repo.Exists(ctx, req.Slug)
	if err != nil {
		return nil, fmt.Errorf("failed to check slug: %w", err)
	}
	if exists {
		return nil, fmt.Errorf("%w: %s", store.ErrSlugExists, req.Slug)
	}

	result, err := s.importer.Run(req.HTML)
	if err != nil {
		return nil, err
	}

	page := &store.Page{
		Slug:    req.Slug,
		Title:   req.Title,
		Status:  req.Status,
		Author:  req.Author,
		Content: result.Markup,
		Blocks:  result.Count,
	}
	id, err := s.repo.Create(ctx, page)
	if err != nil {
		return nil, err
	}

	logger.InfoContext(ctx, "page imported",
		"page_id", id,
		"slug", req.Slug,
		"status", req.Status,
		"sections", result.Count)

	return &Outcome{
		PageID:        id,
		Slug:          req.Slug,
		SectionsFound: result.Count,
		Result:        result,
	}, nil
}

func (s *Service) validateRequest(req Request) error {
	err := s.validate.Struct(req)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}

	msgs := make([]string, 0, len(verrs))
	for _, e := range verrs {
		msgs = append(msgs, strings.ToLower(e.Field())+" "+formatValidationError(e))
	}
	return fmt.Errorf("%w: %s", ErrInvalidRequest, strings.Join(msgs, "; "))
}

// formatValidationError creates a human-readable error message.
func formatValidationError(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "is required"
	case "max":
		return fmt.Sprintf("must be at most %s characters", e.Param())
	case "oneof":
		return fmt.Sprintf("must be one of: %s", e.Param())
	default:
		return fmt.Sprintf("failed validation '%s'", e.Tag())
	}
}
