package block

import (
	"bytes"
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Attribute is a single key/value pair. A nil Value is an explicit null.
type Attribute struct {
	Key   string
	Value *string
}

// Attributes is an ordered string map. Keys are unique and keep the position
// of their first insertion; setting an existing key replaces its value in
// place.
//
// The zero value is an empty, ready to use map.
type Attributes struct {
	items []Attribute
	index map[string]int
}

// Set stores value under key.
func (a *Attributes) Set(key, value string) {
	a.put(key, &value)
}

// SetNull stores an explicit null under key.
func (a *Attributes) SetNull(key string) {
	a.put(key, nil)
}

func (a *Attributes) put(key string, value *string) {
	if a.index == nil {
		a.index = make(map[string]int)
	}
	if i, ok := a.index[key]; ok {
		a.items[i].Value = value
		return
	}
	a.index[key] = len(a.items)
	a.items = append(a.items, Attribute{Key: key, Value: value})
}

// Get returns the value stored under key. A null value is returned as "" with
// ok set to true; use IsNull to tell the two apart.
func (a Attributes) Get(key string) (value string, ok bool) {
	i, ok := a.index[key]
	if !ok {
		return "", false
	}
	if v := a.items[i].Value; v != nil {
		return *v, true
	}
	return "", true
}

// Has reports whether key is present.
func (a Attributes) Has(key string) bool {
	_, ok := a.index[key]
	return ok
}

// IsNull reports whether key is present with a null value.
func (a Attributes) IsNull(key string) bool {
	i, ok := a.index[key]
	return ok && a.items[i].Value == nil
}

// Len returns the number of attributes.
func (a Attributes) Len() int {
	return len(a.items)
}

// Keys returns the keys in insertion order.
func (a Attributes) Keys() []string {
	keys := make([]string, len(a.items))
	for i, item := range a.items {
		keys[i] = item.Key
	}
	return keys
}

// All returns a copy of the attributes in insertion order.
func (a Attributes) All() []Attribute {
	out := make([]Attribute, len(a.items))
	copy(out, a.items)
	return out
}

// Equal reports whether both maps hold the same keys, in the same order, with
// the same values.
func (a Attributes) Equal(other Attributes) bool {
	if len(a.items) != len(other.items) {
		return false
	}
	for i, item := range a.items {
		o := other.items[i]
		if item.Key != o.Key {
			return false
		}
		if (item.Value == nil) != (o.Value == nil) {
			return false
		}
		if item.Value != nil && *item.Value != *o.Value {
			return false
		}
	}
	return true
}

// MarshalJSON encodes the attributes as a JSON object in insertion order.
// HTML characters are left as they are; callers embedding the result in
// markup use EncodeAttributes instead.
func (a Attributes) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	buf.WriteByte('{')
	for i, item := range a.items {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := enc.Encode(item.Key); err != nil {
			return nil, err
		}
		trimNewline(&buf)
		buf.WriteByte(':')
		if item.Value == nil {
			buf.WriteString("null")
			continue
		}
		if err := enc.Encode(*item.Value); err != nil {
			return nil, err
		}
		trimNewline(&buf)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// trimNewline drops the newline json.Encoder appends after each value.
func trimNewline(buf *bytes.Buffer) {
	if n := buf.Len(); n > 0 && buf.Bytes()[n-1] == '\n' {
		buf.Truncate(n - 1)
	}
}

// UnmarshalJSON decodes a JSON object, keeping the order keys appear in.
// Values must be strings or null.
func (a *Attributes) UnmarshalJSON(data []byte) error {
	*a = Attributes{}

	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("attributes must be a JSON object")
	}

	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("attribute key must be a string")
		}

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return fmt.Errorf("attribute %q: %w", key, err)
		}
		if bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
			a.SetNull(key)
			continue
		}
		var value string
		if err := json.Unmarshal(raw, &value); err != nil {
			return fmt.Errorf("attribute %q: value must be a string or null", key)
		}
		a.Set(key, value)
	}

	if _, err := dec.Token(); err != nil {
		return err
	}
	return nil
}

// MarshalYAML encodes the attributes as a YAML mapping in insertion order.
func (a Attributes) MarshalYAML() (any, error) {
	node := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	for _, item := range a.items {
		key := &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: item.Key}
		val := &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}
		if item.Value != nil {
			val = &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: *item.Value}
		}
		node.Content = append(node.Content, key, val)
	}
	return node, nil
}

// UnmarshalYAML decodes a YAML mapping, keeping key order.
func (a *Attributes) UnmarshalYAML(value *yaml.Node) error {
	*a = Attributes{}
	if value.Kind != yaml.MappingNode {
		return fmt.Errorf("attributes must be a mapping, got line %d", value.Line)
	}
	for i := 0; i+1 < len(value.Content); i += 2 {
		key, val := value.Content[i], value.Content[i+1]
		if val.Tag == "!!null" {
			a.SetNull(key.Value)
			continue
		}
		if val.Kind != yaml.ScalarNode {
			return fmt.Errorf("attribute %q: value must be a scalar (line %d)", key.Value, val.Line)
		}
		a.Set(key.Value, val.Value)
	}
	return nil
}
