// Package section detects importable sections in a parsed HTML document and
// turns each one into a block.
//
// Detection is rule based. A Rule decides whether an element is a section it
// understands and, if so, extracts a block from it. Rules live in an immutable
// Registry; the registry's order decides the order blocks are emitted in.
package section

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"

	"github.com/jmylchreest/zenimport/pkg/block"
	"github.com/jmylchreest/zenimport/pkg/textnorm"
)

// Rule recognises one kind of section.
type Rule interface {
	// Name identifies the rule in a registry and in logs.
	Name() string

	// BlockType is the block type the rule produces.
	BlockType() string

	// Matches reports whether the element is a section this rule handles.
	Matches(s *goquery.Selection) bool

	// Extract builds a block from a matched element. A nil block means the
	// element matched but held nothing worth importing.
	Extract(s *goquery.Selection) *block.Block
}

// Info describes a rule for listings.
type Info struct {
	Name        string `json:"name" yaml:"name"`
	Block       string `json:"block" yaml:"block"`
	Title       string `json:"title" yaml:"title"`
	Description string `json:"description" yaml:"description"`
	Selector    string `json:"selector" yaml:"selector"`
}

// Describer is implemented by rules that can describe themselves.
type Describer interface {
	Describe() Info
}

// Validator is implemented by rules that can check their own definition.
type Validator interface {
	Validate() error
}

// IndexPlaceholder is replaced by the 1-based ordinal of a match in field keys.
const IndexPlaceholder = "{i}"

// Field pulls one value, or up to Limit numbered values, out of a section.
type Field struct {
	// Key is the attribute name. With Limit > 1 it must contain {i}.
	Key string `json:"key" yaml:"key"`

	// Selector is a CSS selector evaluated against the section's descendants.
	Selector string `json:"selector" yaml:"selector"`

	// Attr names an element attribute to copy verbatim. When empty the
	// element's normalised text content is used instead.
	Attr string `json:"attr,omitempty" yaml:"attr,omitempty"`

	// Limit is the number of matches considered, in document order. Zero means 1.
	Limit int `json:"limit,omitempty" yaml:"limit,omitempty"`
}

func (f Field) limit() int {
	if f.Limit <= 0 {
		return 1
	}
	return f.Limit
}

func (f Field) key(ordinal int) string {
	return strings.ReplaceAll(f.Key, IndexPlaceholder, strconv.Itoa(ordinal))
}

// extract copies the field's values from s into attrs. Only the first limit
// matches are considered and ordinals are positional: an attribute match with
// an empty value is skipped without shifting later ordinals. Text values are
// always emitted, even when empty. Attribute values are kept raw apart from
// invalid UTF-8, which becomes U+FFFD.
func (f Field) extract(s *goquery.Selection, attrs *block.Attributes) {
	limit := f.limit()
	s.Find(f.Selector).EachWithBreak(func(i int, m *goquery.Selection) bool {
		if i >= limit {
			return false
		}
		key := f.key(i + 1)
		if f.Attr == "" {
			attrs.Set(key, textnorm.Normalize(m.Text()))
			return true
		}
		if v, _ := m.Attr(f.Attr); v != "" {
			attrs.Set(key, strings.ToValidUTF8(v, "\uFFFD"))
		}
		return true
	})
}

// Validate checks that the field can be evaluated.
func (f Field) Validate() error {
	if f.Key == "" {
		return fmt.Errorf("field key is empty")
	}
	if f.limit() > 1 && !strings.Contains(f.Key, IndexPlaceholder) {
		return fmt.Errorf("field %q: limit %d needs %s in the key", f.Key, f.Limit, IndexPlaceholder)
	}
	if _, err := cascadia.ParseGroup(f.Selector); err != nil {
		return fmt.Errorf("field %q: invalid selector %q: %w", f.Key, f.Selector, err)
	}
	return nil
}

// FieldRule matches elements by tag name and class token and fills a block
// from a list of fields. Both built-in rules are FieldRules; more can be
// loaded from configuration.
type FieldRule struct {
	ID          string
	Type        string
	Tag         string // element name, or "*" for any element
	Class       string // class token the element must carry
	Title       string
	Description string
	Fields      []Field
}

// Name implements Rule.
func (r *FieldRule) Name() string {
	return r.ID
}

// BlockType implements Rule.
func (r *FieldRule) BlockType() string {
	return r.Type
}

// Selector returns the rule's match condition written as a CSS selector.
func (r *FieldRule) Selector() string {
	tag := r.Tag
	if tag == "*" {
		tag = ""
	}
	return tag + "." + r.Class
}

// Matches implements Rule. The class test uses CSS class semantics: "card
// featured" carries the token "card" but "cards" does not.
func (r *FieldRule) Matches(s *goquery.Selection) bool {
	if r.Tag != "*" && !strings.EqualFold(goquery.NodeName(s), r.Tag) {
		return false
	}
	return s.HasClass(r.Class)
}

// Extract implements Rule. A FieldRule always returns a block once its
// element matched; fields with no match are simply absent.
func (r *FieldRule) Extract(s *goquery.Selection) *block.Block {
	b := block.New(r.Type)
	for _, f := range r.Fields {
		f.extract(s, &b.Attrs)
	}
	return b
}

// Describe implements Describer.
func (r *FieldRule) Describe() Info {
	title := r.Title
	if title == "" {
		title = r.Type
	}
	desc := r.Description
	if desc == "" {
		desc = "No description available"
	}
	return Info{
		Name:        r.ID,
		Block:       r.Type,
		Title:       title,
		Description: desc,
		Selector:    r.Selector(),
	}
}

// Validate implements Validator.
func (r *FieldRule) Validate() error {
	if r.ID == "" {
		return fmt.Errorf("rule has no name")
	}
	if err := block.ValidateType(r.Type); err != nil {
		return fmt.Errorf("rule %s: %w", r.ID, err)
	}
	if r.Tag == "" {
		return fmt.Errorf("rule %s: tag is empty", r.ID)
	}
	if r.Class == "" || strings.ContainsAny(r.Class, " \t\r\n") {
		return fmt.Errorf("rule %s: class must be a single token, got %q", r.ID, r.Class)
	}
	if _, err := cascadia.ParseGroup(r.Selector()); err != nil {
		return fmt.Errorf("rule %s: invalid match selector %q: %w", r.ID, r.Selector(), err)
	}
	if len(r.Fields) == 0 {
		return fmt.Errorf("rule %s: no fields", r.ID)
	}
	seen := make(map[string]bool, len(r.Fields))
	for _, f := range r.Fields {
		if err := f.Validate(); err != nil {
			return fmt.Errorf("rule %s: %w", r.ID, err)
		}
		if seen[f.Key] {
			return fmt.Errorf("rule %s: duplicate field key %q", r.ID, f.Key)
		}
		seen[f.Key] = true
	}
	return nil
}
