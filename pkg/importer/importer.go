// Package importer turns a static HTML document into block markup.
//
// An Importer parses the document, finds sections with a rule registry,
// extracts one block per section and serializes the blocks in discovery order.
// It performs no I/O and keeps no state between runs, so one Importer can be
// shared by concurrent callers.
package importer

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/jmylchreest/zenimport/internal/logger"
	"github.com/jmylchreest/zenimport/pkg/block"
	"github.com/jmylchreest/zenimport/pkg/section"
)

// ErrNoSectionsFound is matched by a Failure whose reason is
// ReasonNoSectionsFound.
var ErrNoSectionsFound = errors.New("no importable sections found")

// Reason classifies an import failure.
type Reason int

const (
	// ReasonNoSectionsFound means no rule produced a block.
	ReasonNoSectionsFound Reason = iota + 1
)

// String returns the reason's identifier.
func (r Reason) String() string {
	switch r {
	case ReasonNoSectionsFound:
		return "no_sections_found"
	default:
		return fmt.Sprintf("reason(%d)", int(r))
	}
}

// MarshalText encodes the reason as its identifier.
func (r Reason) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// Failure is returned by Run when the document yields nothing to import.
// Use errors.As to inspect the reason.
type Failure struct {
	Reason Reason
}

func (f *Failure) Error() string {
	switch f.Reason {
	case ReasonNoSectionsFound:
		return ErrNoSectionsFound.Error()
	default:
		return "import failed: " + f.Reason.String()
	}
}

// Is reports whether target is the sentinel for the failure's reason.
func (f *Failure) Is(target error) bool {
	return target == ErrNoSectionsFound && f.Reason == ReasonNoSectionsFound
}

// Result is a successful import.
type Result struct {
	// Blocks in discovery order: rule registration order, then document order.
	Blocks []block.Block `json:"blocks" yaml:"blocks"`

	// Markup is Blocks serialized as block comments.
	Markup string `json:"markup" yaml:"markup"`

	// Count is len(Blocks).
	Count int `json:"count" yaml:"count"`

	Stats    *Stats    `json:"stats" yaml:"stats"`
	Warnings []Warning `json:"warnings,omitempty" yaml:"warnings,omitempty"`
}

// AddWarning adds a warning to the result.
func (r *Result) AddWarning(phase, message, context string) {
	r.Warnings = append(r.Warnings, Warning{
		Phase:   phase,
		Message: message,
		Context: context,
	})
}

// HasWarnings returns true if any warnings were recorded.
func (r *Result) HasWarnings() bool {
	return len(r.Warnings) > 0
}

// Importer runs the import pipeline against a fixed rule registry.
type Importer struct {
	registry *section.Registry
}

// New creates an Importer. It fails only when extra rules conflict with the
// registry or do not validate.
func New(opts ...Option) (*Importer, error) {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	reg := cfg.Registry
	if reg == nil {
		reg = section.Default()
	}
	if len(cfg.Rules) > 0 {
		var err error
		reg, err = reg.With(cfg.Rules...)
		if err != nil {
			return nil, fmt.Errorf("failed to register rules: %w", err)
		}
	}

	return &Importer{registry: reg}, nil
}

// Registry returns the rules the importer runs.
func (im *Importer) Registry() *section.Registry {
	return im.registry
}

// Run imports html. Malformed markup is tolerated. Blocks whose type is not a
// valid namespaced identifier are skipped with a warning, like empty ones. When
// no rule produces a usable block the error is a *Failure with
// ReasonNoSectionsFound.
func (im *Importer) Run(html string) (*Result, error) {
	startTime := time.Now()
	stats := NewStats()
	stats.InputBytes = len(html)
	result := &Result{Stats: stats}

	// Parse HTML
	parseStart := time.Now()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	stats.ParseDuration = time.Since(parseStart)
	if err != nil {
		logger.Debug("html parse failed", "error", err)
		return nil, &Failure{Reason: ReasonNoSectionsFound}
	}

	// Match and extract
	matchStart := time.Now()
	for _, m := range im.registry.Find(doc) {
		stats.Matched++
		b := m.Rule.Extract(m.Node)
		if b == nil {
			stats.Skipped++
			result.AddWarning("match", "section has no extractable content", m.Rule.Name())
			logger.Debug("rule returned no block", "rule", m.Rule.Name())
			continue
		}
		if err := b.Validate(); err != nil {
			stats.Skipped++
			result.AddWarning("match", err.Error(), m.Rule.Name())
			logger.Debug("rule returned an invalid block", "rule", m.Rule.Name(), "error", err)
			continue
		}
		stats.RecordBlock(m.Rule.Name())
		result.Blocks = append(result.Blocks, *b)
	}
	stats.MatchDuration = time.Since(matchStart)

	logger.Debug("sections matched",
		"rules", im.registry.Len(),
		"matched", stats.Matched,
		"skipped", stats.Skipped)

	if len(result.Blocks) == 0 {
		stats.TotalDuration = time.Since(startTime)
		return nil, &Failure{Reason: ReasonNoSectionsFound}
	}

	// Serialize
	serializeStart := time.Now()
	result.Markup = block.Serialize(result.Blocks)
	stats.SerializeDuration = time.Since(serializeStart)

	result.Count = len(result.Blocks)
	stats.OutputBytes = len(result.Markup)
	stats.TotalDuration = time.Since(startTime)

	logger.Debug("import complete",
		"blocks", result.Count,
		"input_size", stats.InputBytes,
		"output_size", stats.OutputBytes,
		"duration", stats.TotalDuration)

	return result, nil
}

var defaultImporter = &Importer{registry: section.Default()}

// Run imports html with the built-in rules.
func Run(html string) (*Result, error) {
	return defaultImporter.Run(html)
}
