package section

import (
	"errors"
	"fmt"

	"github.com/PuerkitoBio/goquery"
)

// ErrDuplicateRule is returned when two rules in a registry share a name.
var ErrDuplicateRule = errors.New("duplicate rule name")

// Match is an element matched by a rule.
type Match struct {
	Rule Rule
	Node *goquery.Selection
}

// Registry is an ordered, immutable list of rules. It is safe for concurrent
// use; With returns a new registry rather than modifying the receiver.
type Registry struct {
	rules  []Rule
	byName map[string]Rule
}

var defaultRegistry = MustRegistry(Builtin()...)

// Default returns the registry holding the built-in rules: the benefit grid
// followed by the card.
func Default() *Registry {
	return defaultRegistry
}

// NewRegistry builds a registry from rules in the given order. Rule names must
// be unique, and rules implementing Validator must validate.
func NewRegistry(rules ...Rule) (*Registry, error) {
	r := &Registry{
		rules:  make([]Rule, 0, len(rules)),
		byName: make(map[string]Rule, len(rules)),
	}
	for i, rule := range rules {
		if rule == nil {
			return nil, fmt.Errorf("rule %d is nil", i)
		}
		if v, ok := rule.(Validator); ok {
			if err := v.Validate(); err != nil {
				return nil, err
			}
		}
		name := rule.Name()
		if _, exists := r.byName[name]; exists {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateRule, name)
		}
		r.byName[name] = rule
		r.rules = append(r.rules, rule)
	}
	return r, nil
}

// MustRegistry is like NewRegistry but panics on error. It is intended for
// package-level registries built from known-good rules.
func MustRegistry(rules ...Rule) *Registry {
	r, err := NewRegistry(rules...)
	if err != nil {
		panic(err)
	}
	return r
}

// With returns a new registry holding the receiver's rules followed by rules.
func (r *Registry) With(rules ...Rule) (*Registry, error) {
	all := make([]Rule, 0, len(r.rules)+len(rules))
	all = append(all, r.rules...)
	all = append(all, rules...)
	return NewRegistry(all...)
}

// Rules returns the rules in registration order.
func (r *Registry) Rules() []Rule {
	out := make([]Rule, len(r.rules))
	copy(out, r.rules)
	return out
}

// Len returns the number of rules.
func (r *Registry) Len() int {
	return len(r.rules)
}

// Lookup returns the rule registered under name.
func (r *Registry) Lookup(name string) (Rule, bool) {
	rule, ok := r.byName[name]
	return rule, ok
}

// Catalog describes every rule, in registration order.
func (r *Registry) Catalog() []Info {
	infos := make([]Info, 0, len(r.rules))
	for _, rule := range r.rules {
		if d, ok := rule.(Describer); ok {
			infos = append(infos, d.Describe())
			continue
		}
		infos = append(infos, Info{
			Name:        rule.Name(),
			Block:       rule.BlockType(),
			Title:       rule.BlockType(),
			Description: "No description available",
		})
	}
	return infos
}

// Find returns every element of doc matched by a rule. All matches of the
// first rule come before those of the second, and so on; within one rule
// matches follow document order (depth-first, pre-order). An element matched
// by two rules appears once per rule.
func (r *Registry) Find(doc *goquery.Document) []Match {
	if doc == nil {
		return nil
	}
	elements := doc.Find("*")

	var matches []Match
	for _, rule := range r.rules {
		elements.Each(func(_ int, s *goquery.Selection) {
			if rule.Matches(s) {
				matches = append(matches, Match{Rule: rule, Node: s})
			}
		})
	}
	return matches
}
