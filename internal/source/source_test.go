package source

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
	return path
}

func TestReadFile(t *testing.T) {
	html := `<div class="custom-card"><h2>Hi</h2></div>`
	path := writeFile(t, "page.html", []byte(html))

	doc, err := New(Config{}).ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if doc.HTML != html {
		t.Errorf("HTML = %q", doc.HTML)
	}
	if doc.Name != path || doc.Size != len(html) || doc.Charset != "utf-8" {
		t.Errorf("unexpected document %+v", doc)
	}
}

func TestReadFile_Errors(t *testing.T) {
	r := New(Config{MaxSize: 16})

	t.Run("missing", func(t *testing.T) {
		_, err := r.ReadFile(filepath.Join(t.TempDir(), "missing.html"))
		if !errors.Is(err, os.ErrNotExist) {
			t.Errorf("expected not-exist error, got %v", err)
		}
	})

	t.Run("too large", func(t *testing.T) {
		path := writeFile(t, "big.html", []byte(strings.Repeat("x", 17)))
		_, err := r.ReadFile(path)
		if !errors.Is(err, ErrInputTooLarge) {
			t.Errorf("expected ErrInputTooLarge, got %v", err)
		}
	})

	t.Run("empty", func(t *testing.T) {
		path := writeFile(t, "empty.html", []byte(" \n\t"))
		_, err := r.ReadFile(path)
		if !errors.Is(err, ErrEmptyInput) {
			t.Errorf("expected ErrEmptyInput, got %v", err)
		}
	})
}

func TestRead_SizeLimit(t *testing.T) {
	r := New(Config{MaxSize: 10})

	if _, err := r.Read("exact", strings.NewReader(strings.Repeat("a", 10)), ""); err != nil {
		t.Errorf("input at the limit should be accepted: %v", err)
	}
	_, err := r.Read("over", strings.NewReader(strings.Repeat("a", 11)), "")
	if !errors.Is(err, ErrInputTooLarge) {
		t.Errorf("expected ErrInputTooLarge, got %v", err)
	}
	if !strings.Contains(err.Error(), "10 B") {
		t.Errorf("error should name the limit: %v", err)
	}
}

func TestRead_Decoding(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		contentType string
		want        string
		charset     string
	}{
		{
			name:    "utf-8 passes through",
			input:   "<p>café</p>",
			want:    "<p>café</p>",
			charset: "utf-8",
		},
		{
			name:    "mojibake is left for the normaliser",
			input:   "<p>Weâ€™re</p>",
			want:    "<p>Weâ€™re</p>",
			charset: "utf-8",
		},
		{
			name:    "byte order mark stripped",
			input:   "\xef\xbb\xbf<p>x</p>",
			want:    "<p>x</p>",
			charset: "utf-8",
		},
		{
			name:    "legacy bytes default to windows-1252",
			input:   "<p>\x93caf\xe9\x94</p>",
			want:    "<p>“café”</p>",
			charset: "windows-1252",
		},
		{
			name:        "content type charset",
			input:       "<p>\xe9</p>",
			contentType: "text/html; charset=iso-8859-1",
			want:        "<p>é</p>",
		},
		{
			name:    "meta charset",
			input:   `<meta charset="koi8-r"><p>` + "\xf0\xd2\xc9\xd7\xc5\xd4" + `</p>`,
			want:    `<meta charset="koi8-r"><p>` + "Привет" + `</p>`,
			charset: "koi8-r",
		},
	}

	r := New(Config{})
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := r.Read("input", strings.NewReader(tt.input), tt.contentType)
			if err != nil {
				t.Fatalf("Read() error = %v", err)
			}
			if doc.HTML != tt.want {
				t.Errorf("HTML = %q, want %q", doc.HTML, tt.want)
			}
			if tt.charset != "" && doc.Charset != tt.charset {
				t.Errorf("Charset = %q, want %q", doc.Charset, tt.charset)
			}
		})
	}
}

func TestParseSize(t *testing.T) {
	tests := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{"5MB", 5000000, false},
		{"512KiB", 524288, false},
		{"100", 100, false},
		{"0", 0, true},
		{"lots", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseSize(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseSize(%q) error = %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("ParseSize(%q) = %d, want %d", tt.in, got, tt.want)
			}
		})
	}
}

func TestNew_Defaults(t *testing.T) {
	r := New(Config{})
	if r.MaxSize() != DefaultMaxSize {
		t.Errorf("MaxSize() = %d", r.MaxSize())
	}
}

func TestFetchURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		switch req.URL.Path {
		case "/page":
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			_, _ = w.Write([]byte(`<div class="custom-card"><h2>Remote</h2></div>`))
		case "/latin1":
			w.Header().Set("Content-Type", "text/html; charset=windows-1252")
			_, _ = w.Write([]byte("<p>caf\xe9</p>"))
		case "/big":
			_, _ = w.Write([]byte(strings.Repeat("x", 64)))
		default:
			http.NotFound(w, req)
		}
	}))
	defer srv.Close()

	ctx := context.Background()

	t.Run("ok", func(t *testing.T) {
		doc, err := New(Config{}).FetchURL(ctx, srv.URL+"/page")
		if err != nil {
			t.Fatalf("FetchURL() error = %v", err)
		}
		if !strings.Contains(doc.HTML, "Remote") {
			t.Errorf("HTML = %q", doc.HTML)
		}
		if !strings.HasPrefix(doc.ContentType, "text/html") {
			t.Errorf("ContentType = %q", doc.ContentType)
		}
	})

	t.Run("decodes server charset", func(t *testing.T) {
		doc, err := New(Config{}).FetchURL(ctx, srv.URL+"/latin1")
		if err != nil {
			t.Fatalf("FetchURL() error = %v", err)
		}
		if doc.HTML != "<p>café</p>" {
			t.Errorf("HTML = %q", doc.HTML)
		}
	})

	t.Run("not found", func(t *testing.T) {
		if _, err := New(Config{}).FetchURL(ctx, srv.URL+"/missing"); err == nil {
			t.Error("expected error for 404")
		}
	})

	t.Run("too large", func(t *testing.T) {
		_, err := New(Config{MaxSize: 32}).FetchURL(ctx, srv.URL+"/big")
		if !errors.Is(err, ErrInputTooLarge) {
			t.Errorf("expected ErrInputTooLarge, got %v", err)
		}
	})

	t.Run("rejects non-http URLs", func(t *testing.T) {
		for _, u := range []string{"file:///etc/passwd", "/relative", "ftp://host/x"} {
			if _, err := New(Config{}).FetchURL(ctx, u); err == nil {
				t.Errorf("expected error for %q", u)
			}
		}
	})
}
