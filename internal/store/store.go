// Package store persists imported pages in SQLite.
//
// The database is opened with the pure-Go modernc.org/sqlite driver and the
// usual production pragmas (WAL, busy timeout, foreign keys). Slugs are
// unique; creating a second page with the same slug fails with ErrSlugExists.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// Errors returned by the store. Check with errors.Is.
var (
	ErrSlugExists = errors.New("page with this slug already exists")
	ErrNotFound   = errors.New("page not found")
)

// Memory is the path of a private in-memory database.
const Memory = ":memory:"

// timeLayout is fixed width so created_at sorts as text in time order.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

const schema = `
CREATE TABLE IF NOT EXISTS pages (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	slug       TEXT    NOT NULL UNIQUE,
	title      TEXT    NOT NULL,
	status     TEXT    NOT NULL DEFAULT 'draft',
	author     TEXT    NOT NULL DEFAULT '',
	content    TEXT    NOT NULL,
	blocks     INTEGER NOT NULL DEFAULT 0,
	created_at TEXT    NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_pages_created_at ON pages(created_at);
`

// Page is a stored page. Content holds the block markup.
type Page struct {
	ID        int64     `json:"id" yaml:"id"`
	Slug      string    `json:"slug" yaml:"slug"`
	Title     string    `json:"title" yaml:"title"`
	Status    string    `json:"status" yaml:"status"`
	Author    string    `json:"author" yaml:"author"`
	Content   string    `json:"content" yaml:"content"`
	Blocks    int       `json:"blocks" yaml:"blocks"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
}

// Store is a page repository backed by SQLite. It is safe for concurrent use.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path and applies the
// schema. Use Memory for a throwaway database.
func Open(path string) (*Store, error) {
	if path != Memory {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("store: mkdir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: open: %w", err)
	}
	// Pragmas are per connection and an in-memory database is private to
	// its connection, so all work goes through one.
	db.SetMaxOpenConns(1)

	s, err := New(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// New wraps an open database and applies pragmas and schema.
func New(db *sql.DB) (*Store, error) {
	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 10000",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return nil, fmt.Errorf("store: %s: %w", p, err)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("store: exec schema: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("store: ping: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Create inserts p and returns its ID. ID and, when zero, CreatedAt are
// filled in on p.
func (s *Store) Create(ctx context.Context, p *Page) (int64, error) {
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO pages (slug, title, status, author, content, blocks, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		p.Slug, p.Title, p.Status, p.Author, p.Content, p.Blocks,
		p.CreatedAt.UTC().Format(timeLayout))
	if err != nil {
		if isUniqueViolation(err) {
			return 0, fmt.Errorf("%w: %s", ErrSlugExists, p.Slug)
		}
		return 0, fmt.Errorf("store: insert page: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("store: last insert id: %w", err)
	}
	p.ID = id
	return id, nil
}

// Exists reports whether a page with slug is stored.
func (s *Store) Exists(ctx context.Context, slug string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM pages WHERE slug = ?`, slug).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("store: count pages: %w", err)
	}
	return n > 0, nil
}

// GetBySlug returns the page stored under slug.
func (s *Store) GetBySlug(ctx context.Context, slug string) (*Page, error) {
	row := s.db.QueryRowContext(ctx, selectPage+` WHERE slug = ?`, slug)
	return scanPage(row, slug)
}

// Get returns the page with the given ID.
func (s *Store) Get(ctx context.Context, id int64) (*Page, error) {
	row := s.db.QueryRowContext(ctx, selectPage+` WHERE id = ?`, id)
	return scanPage(row, fmt.Sprintf("id %d", id))
}

// List returns up to limit pages, newest first. A limit of zero or less
// returns every page.
func (s *Store) List(ctx context.Context, limit int) ([]Page, error) {
	query := selectPage + ` ORDER BY created_at DESC, id DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("store: list pages: %w", err)
	}
	defer rows.Close()

	var pages []Page
	for rows.Next() {
		p, err := scanPage(rows, "")
		if err != nil {
			return nil, err
		}
		pages = append(pages, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: list pages: %w", err)
	}
	return pages, nil
}

const selectPage = `SELECT id, slug, title, status, author, content, blocks, created_at FROM pages`

type scanner interface {
	Scan(dest ...any) error
}

func scanPage(row scanner, key string) (*Page, error) {
	var (
		p       Page
		created string
	)
	err := row.Scan(&p.ID, &p.Slug, &p.Title, &p.Status, &p.Author, &p.Content, &p.Blocks, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	if err != nil {
		return nil, fmt.Errorf("store: scan page: %w", err)
	}
	p.CreatedAt, err = time.Parse(timeLayout, created)
	if err != nil {
		return nil, fmt.Errorf("store: page %d has invalid created_at %q: %w", p.ID, created, err)
	}
	return &p, nil
}

func isUniqueViolation(err error) bool {
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
