// Package rules loads extra section rules from JSON or YAML files.
//
// A rules file lists field rules in the order they should run after the
// built-in ones:
//
//	rules:
//	  - name: testimonial
//	    block: zen-blocks/testimonial
//	    tag: blockquote
//	    class: testimonial
//	    fields:
//	      - key: quote
//	        selector: p
//	      - key: author
//	        selector: cite
package rules

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/jmylchreest/zenimport/pkg/section"
)

// ErrInvalidRule is wrapped by every validation failure.
var ErrInvalidRule = errors.New("invalid rule")

// File is the document stored in a rules file.
type File struct {
	Rules []Definition `json:"rules" yaml:"rules" validate:"dive"`
}

// Definition describes one field rule.
type Definition struct {
	Name        string       `json:"name" yaml:"name" validate:"required,max=64"`
	Block       string       `json:"block" yaml:"block" validate:"required"`
	Tag         string       `json:"tag" yaml:"tag" validate:"required"`
	Class       string       `json:"class" yaml:"class" validate:"required"`
	Title       string       `json:"title,omitempty" yaml:"title,omitempty"`
	Description string       `json:"description,omitempty" yaml:"description,omitempty"`
	Fields      []FieldEntry `json:"fields" yaml:"fields" validate:"required,min=1,dive"`
}

// FieldEntry describes one attribute pulled out of a matched section.
type FieldEntry struct {
	Key      string `json:"key" yaml:"key" validate:"required"`
	Selector string `json:"selector" yaml:"selector" validate:"required"`
	Attr     string `json:"attr,omitempty" yaml:"attr,omitempty"`
	Limit    int    `json:"limit,omitempty" yaml:"limit,omitempty" validate:"min=0,max=100"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// FromFile loads rules from a JSON or YAML file.
func FromFile(path string) ([]section.Rule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rules file: %w", err)
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		return FromJSON(data)
	case ".yaml", ".yml":
		return FromYAML(data)
	default:
		return nil, fmt.Errorf("unsupported rules file format: %s", ext)
	}
}

// FromYAML loads rules from YAML data.
func FromYAML(data []byte) ([]section.Rule, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse YAML rules: %w", err)
	}
	return f.Build()
}

// FromJSON loads rules from JSON data.
func FromJSON(data []byte) ([]section.Rule, error) {
	var f File
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse JSON rules: %w", err)
	}
	return f.Build()
}

// Build validates the file and converts every definition into a rule.
func (f File) Build() ([]section.Rule, error) {
	if err := validateStruct(f); err != nil {
		return nil, err
	}

	out := make([]section.Rule, 0, len(f.Rules))
	for _, d := range f.Rules {
		r := d.Rule()
		if err := r.Validate(); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidRule, err)
		}
		out = append(out, r)
	}
	return out, nil
}

// Rule converts the definition into a section rule.
func (d Definition) Rule() *section.FieldRule {
	fields := make([]section.Field, len(d.Fields))
	for i, fe := range d.Fields {
		fields[i] = section.Field{
			Key:      fe.Key,
			Selector: fe.Selector,
			Attr:     fe.Attr,
			Limit:    fe.Limit,
		}
	}
	return &section.FieldRule{
		ID:          d.Name,
		Type:        d.Block,
		Tag:         strings.ToLower(d.Tag),
		Class:       d.Class,
		Title:       d.Title,
		Description: d.Description,
		Fields:      fields,
	}
}

func validateStruct(f File) error {
	err := validate.Struct(f)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %w", ErrInvalidRule, err)
	}

	msgs := make([]string, 0, len(verrs))
	for _, e := range verrs {
		field := strings.TrimPrefix(e.Namespace(), "File.")
		msgs = append(msgs, field+" "+formatValidationError(e))
	}
	return fmt.Errorf("%w: %s", ErrInvalidRule, strings.Join(msgs, "; "))
}

// formatValidationError creates a human-readable error message.
func formatValidationError(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "is required"
	case "min":
		return fmt.Sprintf("must be at least %s", e.Param())
	case "max":
		return fmt.Sprintf("must be at most %s", e.Param())
	default:
		return fmt.Sprintf("failed validation '%s'", e.Tag())
	}
}
