package importer

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Stats captures metrics about one import run.
type Stats struct {
	// Size metrics
	InputBytes  int `json:"input_bytes" yaml:"input_bytes"`
	OutputBytes int `json:"output_bytes" yaml:"output_bytes"`

	// Matched counts elements accepted by a rule; Skipped those whose rule
	// returned no block.
	Matched int `json:"matched" yaml:"matched"`
	Skipped int `json:"skipped" yaml:"skipped"`

	PerRule map[string]int `json:"per_rule" yaml:"per_rule"` // rule name -> blocks

	// Timing. JSON carries nanoseconds; YAML the duration string ("1.5ms").
	ParseDuration     time.Duration `json:"parse_duration_ns" yaml:"parse_duration"`
	MatchDuration     time.Duration `json:"match_duration_ns" yaml:"match_duration"`
	SerializeDuration time.Duration `json:"serialize_duration_ns" yaml:"serialize_duration"`
	TotalDuration     time.Duration `json:"total_duration_ns" yaml:"total_duration"`
}

// NewStats creates a new Stats instance with initialized maps.
func NewStats() *Stats {
	return &Stats{
		PerRule: make(map[string]int),
	}
}

// RecordBlock records that a rule produced a block.
func (s *Stats) RecordBlock(rule string) {
	s.PerRule[rule]++
}

// Blocks returns the number of blocks produced.
func (s *Stats) Blocks() int {
	total := 0
	for _, n := range s.PerRule {
		total += n
	}
	return total
}

// String returns a human-readable summary of the stats.
func (s *Stats) String() string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("Size: %d -> %d bytes\n", s.InputBytes, s.OutputBytes))
	sb.WriteString(fmt.Sprintf("Sections: %d matched, %d skipped, %d blocks\n",
		s.Matched, s.Skipped, s.Blocks()))

	if len(s.PerRule) > 0 {
		names := make([]string, 0, len(s.PerRule))
		for name := range s.PerRule {
			names = append(names, name)
		}
		sort.Strings(names)

		parts := make([]string, 0, len(names))
		for _, name := range names {
			parts = append(parts, fmt.Sprintf("%s=%d", name, s.PerRule[name]))
		}
		sb.WriteString("Blocks by rule: ")
		sb.WriteString(strings.Join(parts, ", "))
		sb.WriteString("\n")
	}

	sb.WriteString(fmt.Sprintf("Timing: parse=%v, match=%v, serialize=%v, total=%v\n",
		s.ParseDuration.Round(time.Microsecond),
		s.MatchDuration.Round(time.Microsecond),
		s.SerializeDuration.Round(time.Microsecond),
		s.TotalDuration.Round(time.Microsecond)))

	return sb.String()
}

// Warning represents a non-fatal issue encountered during an import.
type Warning struct {
	Phase   string `json:"phase" yaml:"phase"`     // "parse", "match"
	Message string `json:"message" yaml:"message"` // Human-readable description
	Context string `json:"context" yaml:"context"` // Rule or element that caused it
}

// String returns a formatted warning message.
func (w Warning) String() string {
	if w.Context != "" {
		return fmt.Sprintf("[%s] %s (context: %s)", w.Phase, w.Message, w.Context)
	}
	return fmt.Sprintf("[%s] %s", w.Phase, w.Message)
}
