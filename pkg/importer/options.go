package importer

import (
	"github.com/jmylchreest/zenimport/pkg/section"
)

// Config holds the importer configuration.
type Config struct {
	// Registry supplies the detection rules. Nil means section.Default().
	Registry *section.Registry

	// Extra rules appended after the registry's own rules.
	Rules []section.Rule
}

// DefaultConfig returns the built-in rule set.
func DefaultConfig() Config {
	return Config{
		Registry: section.Default(),
	}
}

// Option configures an Importer.
type Option func(*Config)

// WithRegistry replaces the rule registry.
func WithRegistry(r *section.Registry) Option {
	return func(c *Config) {
		c.Registry = r
	}
}

// WithRules appends rules after those of the registry. Their matches are
// emitted after every match of the registry's rules.
func WithRules(rules ...section.Rule) Option {
	return func(c *Config) {
		c.Rules = append(c.Rules, rules...)
	}
}
