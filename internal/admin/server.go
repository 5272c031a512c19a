// Package admin serves the HTML import form and a small JSON API over it.
//
// Routes:
//
//	GET  /               upload form, with the outcome of the last import
//	POST /import         multipart upload: page_slug, page_title, page_status, html_file
//	GET  /blocks         available block rules as JSON
//	GET  /pages          stored pages as JSON, newest first (?limit=N)
//	GET  /pages/{slug}   a stored page as JSON
//	GET  /healthz        liveness probe
//
// Form posts are answered with a redirect to /?import_result=success&page_id=N
// or /?import_result=error, the failure being logged. Clients that send
// Accept: application/json get the outcome or an error document instead.
package admin

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/jmylchreest/zenimport/internal/logger"
	"github.com/jmylchreest/zenimport/internal/pages"
	"github.com/jmylchreest/zenimport/internal/source"
	"github.com/jmylchreest/zenimport/internal/store"
	"github.com/jmylchreest/zenimport/internal/version"
	"github.com/jmylchreest/zenimport/pkg/importer"
	"github.com/jmylchreest/zenimport/pkg/section"
)

// PageReader looks up stored pages.
type PageReader interface {
	Get(ctx context.Context, id int64) (*store.Page, error)
	GetBySlug(ctx context.Context, slug string) (*store.Page, error)
	List(ctx context.Context, limit int) ([]store.Page, error)
}

// defaultListLimit caps GET /pages when no limit is given.
const defaultListLimit = 50

// Server holds the admin handlers' dependencies.
type Server struct {
	pages    *pages.Service
	reader   PageReader
	source   *source.Reader
	registry *section.Registry
}

// New creates a Server.
func New(svc *pages.Service, reader PageReader, src *source.Reader, reg *section.Registry) *Server {
	if reg == nil {
		reg = section.Default()
	}
	return &Server{
		pages:    svc,
		reader:   reader,
		source:   src,
		registry: reg,
	}
}

// Routes returns the admin router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)

	r.Get("/", s.handleIndex)
	r.Post("/import", s.handleImport)
	r.Get("/blocks", s.handleBlocks)
	r.Get("/pages", s.handlePages)
	r.Get("/pages/{slug}", s.handlePage)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	return r
}

// handleIndex renders the upload form.
// GET /
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	data := indexData{
		Result:  q.Get("import_result"),
		MaxSize: humanize.Bytes(uint64(s.source.MaxSize())),
		Blocks:  s.registry.Catalog(),
		Version: version.Name + " " + version.String(),
	}
	if data.Result == "success" {
		if id, err := strconv.ParseInt(q.Get("page_id"), 10, 64); err == nil {
			if p, err := s.reader.Get(r.Context(), id); err == nil {
				data.PageID = p.ID
				data.Slug = p.Slug
			}
		}
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := indexTemplate.Execute(w, data); err != nil {
		logger.ErrorContext(r.Context(), "render index failed", "error", err)
	}
}

// handleImport creates a page from an uploaded HTML file.
// POST /import
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	wantJSON := acceptsJSON(r)

	out, err := s.importUpload(w, r)
	if err != nil {
		logger.ErrorContext(ctx, "HTML import error",
			"error", err,
			"request_id", middleware.GetReqID(ctx))
		if wantJSON {
			writeJSON(w, statusFor(err), map[string]string{"error": err.Error()})
			return
		}
		http.Redirect(w, r, "/?import_result=error", http.StatusSeeOther)
		return
	}

	if wantJSON {
		writeJSON(w, http.StatusCreated, out)
		return
	}
	http.Redirect(w, r, "/?import_result=success&page_id="+strconv.FormatInt(out.PageID, 10), http.StatusSeeOther)
}

// errUpload reports a missing or unreadable html_file part.
var errUpload = errors.New("file upload failed")

func (s *Server) importUpload(w http.ResponseWriter, r *http.Request) (*pages.Outcome, error) {
	// Leave room for the form fields next to the file itself.
	limit := s.source.MaxSize() + 1<<20
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := r.ParseMultipartForm(1 << 20); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			return nil, source.ErrInputTooLarge
		}
		return nil, errors.Join(errUpload, err)
	}

	file, header, err := r.FormFile("html_file")
	if err != nil {
		return nil, errors.Join(errUpload, err)
	}
	defer file.Close()

	doc, err := s.source.Read(header.Filename, file, header.Header.Get("Content-Type"))
	if err != nil {
		return nil, err
	}

	return s.pages.Import(r.Context(), pages.Request{
		Slug:   r.FormValue("page_slug"),
		Title:  r.FormValue("page_title"),
		Status: r.FormValue("page_status"),
		HTML:   doc.HTML,
	})
}

// handleBlocks lists the rules the importer runs.
// GET /blocks
func (s *Server) handleBlocks(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.registry.Catalog())
}

// handlePages lists stored pages, newest first.
// GET /pages
func (s *Server) handlePages(w http.ResponseWriter, r *http.Request) {
	limit := defaultListLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "limit must be a positive integer"})
			return
		}
		limit = n
	}

	list, err := s.reader.List(r.Context(), limit)
	if err != nil {
		logger.ErrorContext(r.Context(), "page list failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if list == nil {
		list = []store.Page{}
	}
	writeJSON(w, http.StatusOK, list)
}

// handlePage returns a stored page.
// GET /pages/{slug}
func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	p, err := s.reader.GetBySlug(r.Context(), slug)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			logger.ErrorContext(r.Context(), "page lookup failed", "slug", slug, "error", err)
		}
		writeJSON(w, statusFor(err), map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// statusFor maps an import or lookup error to an HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, pages.ErrInvalidRequest),
		errors.Is(err, source.ErrEmptyInput),
		errors.Is(err, errUpload):
		return http.StatusBadRequest
	case errors.Is(err, source.ErrInputTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, store.ErrSlugExists):
		return http.StatusConflict
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, importer.ErrNoSectionsFound):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func acceptsJSON(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		logger.Error("write response failed", "error", err)
	}
}

// requestLogger logs each request through the process logger.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		logger.DebugContext(r.Context(), "http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()))
	})
}
