package importer

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/jmylchreest/zenimport/pkg/block"
	"github.com/jmylchreest/zenimport/pkg/section"
)

// readTestdata reads a file from the testdata directory
func readTestdata(t *testing.T, filename string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("testdata", filename))
	if err != nil {
		t.Fatalf("failed to read testdata %s: %v", filename, err)
	}
	return string(data)
}

func TestRun_CardExample(t *testing.T) {
	result, err := Run(`<div class="custom-card"><h2>Hi</h2><p>World</p></div>`)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if result.Count != 1 || len(result.Blocks) != 1 {
		t.Fatalf("Count = %d, blocks = %d, want 1", result.Count, len(result.Blocks))
	}
	b := result.Blocks[0]
	if b.Type != section.CardType {
		t.Errorf("Type = %q, want %q", b.Type, section.CardType)
	}
	if got := strings.Join(b.Attrs.Keys(), ","); got != "title,content" {
		t.Errorf("keys = %s, want title,content", got)
	}

	want := "<!-- wp:zen-blocks/custom-card {\"title\":\"Hi\",\"content\":\"World\"} -->\n" +
		"<!-- /wp:zen-blocks/custom-card -->\n\n"
	if result.Markup != want {
		t.Errorf("Markup =\n%q\nwant\n%q", result.Markup, want)
	}
}

func TestRun_Landing(t *testing.T) {
	result, err := Run(readTestdata(t, "landing.html"))
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	want := `<!-- wp:zen-blocks/product-benefits-section {"benefit_1_title":"Quick","benefit_2_title":"Safe",` +
		`"benefit_1_description":"It's fast.","benefit_2_description":"Locked down",` +
		`"benefit_1_icon":"/img/a.svg","benefit_2_icon":"/img/b.svg"} -->` + "\n" +
		"<!-- /wp:zen-blocks/product-benefits-section -->\n\n" +
		`<!-- wp:zen-blocks/custom-card {"title":"Meet the team","content":"Twelve people, four time zones.",` +
		`"image":"/uploads/team.jpg"} -->` + "\n" +
		"<!-- /wp:zen-blocks/custom-card -->\n\n"

	if result.Markup != want {
		t.Errorf("Markup =\n%s\nwant\n%s", result.Markup, want)
	}
	if result.Stats.Matched != 2 || result.Stats.Skipped != 0 {
		t.Errorf("Matched = %d, Skipped = %d", result.Stats.Matched, result.Stats.Skipped)
	}
	if result.Stats.PerRule["product-benefits"] != 1 || result.Stats.PerRule["custom-card"] != 1 {
		t.Errorf("PerRule = %v", result.Stats.PerRule)
	}
	if result.Stats.OutputBytes != len(result.Markup) {
		t.Errorf("OutputBytes = %d, want %d", result.Stats.OutputBytes, len(result.Markup))
	}
	if result.HasWarnings() {
		t.Errorf("unexpected warnings: %v", result.Warnings)
	}
}

func TestRun_NoSectionsFound(t *testing.T) {
	tests := []struct {
		name string
		html string
	}{
		{"empty", ""},
		{"whitespace", "  \n\t "},
		{"plain text", "just some words"},
		{"no matching class", `<div class="card"><h2>x</h2></div>`},
		{"class on wrong tag", `<p class="custom-card">x</p>`},
		{"garbage", "<<<>>><div <p"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := Run(tt.html)
			if result != nil {
				t.Errorf("expected nil result, got %+v", result)
			}
			if !errors.Is(err, ErrNoSectionsFound) {
				t.Fatalf("expected ErrNoSectionsFound, got %v", err)
			}
			var f *Failure
			if !errors.As(err, &f) {
				t.Fatalf("expected *Failure, got %T", err)
			}
			if f.Reason != ReasonNoSectionsFound {
				t.Errorf("Reason = %v", f.Reason)
			}
		})
	}
}

func TestRun_MalformedHTML(t *testing.T) {
	tests := []struct {
		name    string
		html    string
		title   string
		content string
	}{
		{"unclosed tags", `<div class="custom-card"><h2>Hi</h2><p>World`, "Hi", "World"},
		{"no doctype or body", "<div class=custom-card><h3>T</h3><p>C</p></div>", "T", "C"},
		{"stray closers", `</span><div class="custom-card"></b><h2>A</h2><p>B</p></div></section>`, "A", "B"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := Run(tt.html)
			if err != nil {
				t.Fatalf("Run() error = %v", err)
			}
			b := result.Blocks[0]
			if v, _ := b.Attrs.Get("title"); v != tt.title {
				t.Errorf("title = %q, want %q", v, tt.title)
			}
			if v, _ := b.Attrs.Get("content"); v != tt.content {
				t.Errorf("content = %q, want %q", v, tt.content)
			}
		})
	}
}

func TestRun_DoesNotMutateInput(t *testing.T) {
	html := readTestdata(t, "landing.html")
	orig := strings.Clone(html)
	if _, err := Run(html); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if html != orig {
		t.Error("input changed")
	}
}

func TestRun_RoundTrip(t *testing.T) {
	result, err := Run(readTestdata(t, "landing.html"))
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	parsed, err := block.Parse(result.Markup)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if len(parsed) != len(result.Blocks) {
		t.Fatalf("parsed %d blocks, want %d", len(parsed), len(result.Blocks))
	}
	for i := range parsed {
		if parsed[i].Type != result.Blocks[i].Type || !parsed[i].Attrs.Equal(result.Blocks[i].Attrs) {
			t.Errorf("block %d differs after round trip: %v", i, parsed[i])
		}
	}
}

// emptyAside matches <aside> elements and never has content.
type emptyAside struct{}

func (emptyAside) Name() string                            { return "empty-aside" }
func (emptyAside) BlockType() string                       { return "test/aside" }
func (emptyAside) Matches(s *goquery.Selection) bool       { return goquery.NodeName(s) == "aside" }
func (emptyAside) Extract(*goquery.Selection) *block.Block { return nil }

func TestRun_NilBlocksSkipped(t *testing.T) {
	im, err := New(WithRules(emptyAside{}))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	t.Run("alongside real blocks", func(t *testing.T) {
		result, err := im.Run(`<aside></aside><div class="custom-card"><p>x</p></div>`)
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
		if result.Count != 1 {
			t.Errorf("Count = %d, want 1", result.Count)
		}
		if result.Stats.Matched != 2 || result.Stats.Skipped != 1 {
			t.Errorf("Matched = %d, Skipped = %d", result.Stats.Matched, result.Stats.Skipped)
		}
		if len(result.Warnings) != 1 || result.Warnings[0].Context != "empty-aside" {
			t.Errorf("Warnings = %v", result.Warnings)
		}
	})

	t.Run("only nil blocks", func(t *testing.T) {
		_, err := im.Run(`<aside></aside><aside></aside>`)
		if !errors.Is(err, ErrNoSectionsFound) {
			t.Errorf("expected ErrNoSectionsFound, got %v", err)
		}
	})
}

func TestNew_Options(t *testing.T) {
	t.Run("duplicate rule", func(t *testing.T) {
		_, err := New(WithRules(section.Card()))
		if !errors.Is(err, section.ErrDuplicateRule) {
			t.Errorf("expected ErrDuplicateRule, got %v", err)
		}
	})

	t.Run("custom registry", func(t *testing.T) {
		reg, err := section.NewRegistry(section.Card())
		if err != nil {
			t.Fatalf("NewRegistry() error = %v", err)
		}
		im, err := New(WithRegistry(reg))
		if err != nil {
			t.Fatalf("New() error = %v", err)
		}
		if _, err := im.Run(readTestdata(t, "landing.html")); err != nil {
			t.Fatalf("Run() error = %v", err)
		}
		_, err = im.Run(`<section class="product-benefit-section"></section>`)
		if !errors.Is(err, ErrNoSectionsFound) {
			t.Errorf("benefit rule should not be registered, got %v", err)
		}
	})

	t.Run("nil registry falls back to default", func(t *testing.T) {
		im, err := New(WithRegistry(nil))
		if err != nil {
			t.Fatalf("New() error = %v", err)
		}
		if im.Registry().Len() != section.Default().Len() {
			t.Errorf("Len() = %d", im.Registry().Len())
		}
	})
}

func TestRun_Concurrent(t *testing.T) {
	html := readTestdata(t, "landing.html")
	first, err := Run(html)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	var wg sync.WaitGroup
	errs := make(chan string, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r, err := Run(html)
			if err != nil {
				errs <- err.Error()
				return
			}
			if r.Markup != first.Markup {
				errs <- "markup differs"
			}
		}()
	}
	wg.Wait()
	close(errs)
	for msg := range errs {
		t.Error(msg)
	}
}

func TestFailure_Error(t *testing.T) {
	f := &Failure{Reason: ReasonNoSectionsFound}
	if f.Error() != ErrNoSectionsFound.Error() {
		t.Errorf("Error() = %q", f.Error())
	}
	if ReasonNoSectionsFound.String() != "no_sections_found" {
		t.Errorf("String() = %q", ReasonNoSectionsFound.String())
	}
	other := &Failure{Reason: Reason(99)}
	if errors.Is(other, ErrNoSectionsFound) {
		t.Error("unknown reason should not match ErrNoSectionsFound")
	}
}

func TestStats_String(t *testing.T) {
	s := NewStats()
	s.InputBytes = 100
	s.OutputBytes = 40
	s.Matched = 3
	s.Skipped = 1
	s.RecordBlock("custom-card")
	s.RecordBlock("custom-card")

	out := s.String()
	for _, want := range []string{"100 -> 40 bytes", "3 matched, 1 skipped, 2 blocks", "custom-card=2"} {
		if !strings.Contains(out, want) {
			t.Errorf("String() missing %q:\n%s", want, out)
		}
	}
}

// badType matches <aside> elements and returns a block whose type would break
// the comment marker.
type badType struct{}

func (badType) Name() string                      { return "bad-type" }
func (badType) BlockType() string                 { return "Bad Type -->" }
func (badType) Matches(s *goquery.Selection) bool { return goquery.NodeName(s) == "aside" }
func (badType) Extract(*goquery.Selection) *block.Block {
	b := block.New("Bad Type -->")
	b.Attrs.Set("k", "v")
	return b
}

func TestRun_InvalidBlockTypeSkipped(t *testing.T) {
	im, err := New(WithRules(badType{}))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	t.Run("alongside real blocks", func(t *testing.T) {
		result, err := im.Run(`<aside>x</aside><div class="custom-card"><h2>Hi</h2></div>`)
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
		if result.Count != 1 || result.Blocks[0].Type != section.CardType {
			t.Fatalf("unexpected blocks %v", result.Blocks)
		}
		if strings.Contains(result.Markup, "Bad Type") {
			t.Errorf("invalid type reached the markup: %q", result.Markup)
		}
		if result.Stats.Matched != 2 || result.Stats.Skipped != 1 {
			t.Errorf("Matched = %d, Skipped = %d", result.Stats.Matched, result.Stats.Skipped)
		}
		if len(result.Warnings) != 1 || result.Warnings[0].Phase != "match" || result.Warnings[0].Context != "bad-type" {
			t.Errorf("Warnings = %v", result.Warnings)
		}
		if _, err := block.Parse(result.Markup); err != nil {
			t.Errorf("markup does not parse: %v", err)
		}
	})

	t.Run("only invalid blocks", func(t *testing.T) {
		_, err := im.Run(`<aside>x</aside>`)
		if !errors.Is(err, ErrNoSectionsFound) {
			t.Errorf("expected ErrNoSectionsFound, got %v", err)
		}
	})
}

func TestRun_InvalidUTF8RoundTrips(t *testing.T) {
	tests := []struct {
		name string
		html string
		key  string
		want string
	}{
		{"text field", "<div class=\"custom-card\"><h2>a\xffb</h2></div>", "title", "a\uFFFDb"},
		{"attribute field", "<div class=\"custom-card\"><img src=\"/a\xff.png\"></div>", "image", "/a\uFFFD.png"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := Run(tt.html)
			if err != nil {
				t.Fatalf("Run() error = %v", err)
			}
			if got, _ := result.Blocks[0].Attrs.Get(tt.key); got != tt.want {
				t.Errorf("%s = %q, want %q", tt.key, got, tt.want)
			}

			parsed, err := block.Parse(result.Markup)
			if err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			if !parsed[0].Attrs.Equal(result.Blocks[0].Attrs) {
				t.Errorf("attributes differ after round trip: %v vs %v", parsed[0].Attrs, result.Blocks[0].Attrs)
			}
		})
	}
}

func TestStats_JSONDurations(t *testing.T) {
	s := NewStats()
	s.ParseDuration = 1500 * time.Microsecond
	s.TotalDuration = 2 * time.Millisecond

	data, err := json.Marshal(s)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	for _, want := range []string{`"parse_duration_ns":1500000`, `"total_duration_ns":2000000`} {
		if !strings.Contains(string(data), want) {
			t.Errorf("JSON missing %s: %s", want, data)
		}
	}
	if strings.Contains(string(data), "_ms") {
		t.Errorf("JSON should not claim milliseconds: %s", data)
	}
}
