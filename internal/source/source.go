// Package source reads the HTML handed to the importer from files, standard
// input, uploads and URLs.
//
// Every reader enforces the same size limit and decodes legacy charsets to
// UTF-8. Input that is already valid UTF-8 is passed through unchanged so the
// mojibake it may contain reaches the text normaliser intact.
package source

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"
	"unicode/utf8"

	"github.com/dustin/go-humanize"
	"golang.org/x/net/html/charset"

	"github.com/jmylchreest/zenimport/internal/logger"
)

// Errors returned for unusable input. Check with errors.Is.
var (
	// ErrEmptyInput means the input held no bytes.
	ErrEmptyInput = errors.New("input is empty")
	// ErrInputTooLarge means the input exceeded Config.MaxSize.
	ErrInputTooLarge = errors.New("input exceeds size limit")
)

// StdinName is the path that selects standard input.
const StdinName = "-"

// DefaultMaxSize is the default input size limit.
const DefaultMaxSize = 5 * 1000 * 1000

// Config controls how input is read.
type Config struct {
	// MaxSize is the largest accepted input in bytes. Zero or less means
	// DefaultMaxSize.
	MaxSize int64

	// UserAgent and Timeout apply to URL fetches.
	UserAgent string
	Timeout   time.Duration
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		MaxSize:   DefaultMaxSize,
		UserAgent: defaultUserAgent,
		Timeout:   30 * time.Second,
	}
}

// Document is HTML ready for import.
type Document struct {
	Name        string    `json:"name"`                   // path, "-" or URL
	HTML        string    `json:"-"`                      // UTF-8 text
	Size        int       `json:"size"`                   // bytes read before decoding
	Charset     string    `json:"charset"`                // encoding the input was decoded from
	ContentType string    `json:"content_type,omitempty"` // as reported by the server, if any
	ReadAt      time.Time `json:"read_at"`
}

// Reader reads documents under one configuration. It is safe for concurrent
// use.
type Reader struct {
	config Config
}

// New creates a Reader.
func New(cfg Config) *Reader {
	def := DefaultConfig()
	if cfg.MaxSize <= 0 {
		cfg.MaxSize = def.MaxSize
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = def.UserAgent
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = def.Timeout
	}
	return &Reader{config: cfg}
}

// MaxSize returns the effective size limit in bytes.
func (r *Reader) MaxSize() int64 {
	return r.config.MaxSize
}

// ParseSize parses a human readable size such as "5MB" or "512KiB".
func ParseSize(s string) (int64, error) {
	n, err := humanize.ParseBytes(s)
	if err != nil {
		return 0, fmt.Errorf("invalid size %q: %w", s, err)
	}
	if n == 0 {
		return 0, fmt.Errorf("invalid size %q: must be positive", s)
	}
	return int64(n), nil
}

// ReadFile reads a document from path, or from standard input when path is
// "-".
func (r *Reader) ReadFile(path string) (*Document, error) {
	if path == StdinName {
		return r.Read(StdinName, os.Stdin, "")
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open input: %w", err)
	}
	defer f.Close()

	if info, err := f.Stat(); err == nil && info.Size() > r.config.MaxSize {
		return nil, r.tooLarge(path, info.Size())
	}
	return r.Read(path, f, "")
}

// Read reads a document from rd. contentType may carry a charset parameter and
// is only consulted when the bytes are not valid UTF-8.
func (r *Reader) Read(name string, rd io.Reader, contentType string) (*Document, error) {
	data, err := io.ReadAll(io.LimitReader(rd, r.config.MaxSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", name, err)
	}
	return r.document(name, data, contentType)
}

func (r *Reader) document(name string, data []byte, contentType string) (*Document, error) {
	if int64(len(data)) > r.config.MaxSize {
		return nil, r.tooLarge(name, int64(len(data)))
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("%s: %w", name, ErrEmptyInput)
	}

	html, enc := decode(data, contentType)
	logger.Debug("input read",
		"name", name,
		"size", humanize.Bytes(uint64(len(data))),
		"charset", enc)

	return &Document{
		Name:        name,
		HTML:        html,
		Size:        len(data),
		Charset:     enc,
		ContentType: contentType,
		ReadAt:      time.Now(),
	}, nil
}

func (r *Reader) tooLarge(name string, size int64) error {
	return fmt.Errorf("%s is larger than %s: %w",
		name, humanize.Bytes(uint64(r.config.MaxSize)), ErrInputTooLarge)
}

// decode converts data to UTF-8 text. Valid UTF-8 is returned as is, minus a
// byte order mark; anything else is decoded with the charset named by a meta
// tag or contentType, falling back to windows-1252.
func decode(data []byte, contentType string) (string, string) {
	if utf8.Valid(data) {
		return string(bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))), "utf-8"
	}

	enc, name, _ := charset.DetermineEncoding(data, contentType)
	out, err := enc.NewDecoder().Bytes(data)
	if err != nil {
		logger.Debug("charset decode failed, keeping raw bytes", "charset", name, "error", err)
		return string(data), name
	}
	return string(out), name
}
