package block

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode"
)

// ErrMalformedMarkup is wrapped by every error Parse returns.
var ErrMalformedMarkup = errors.New("malformed block markup")

// MarkupError describes where Parse gave up.
type MarkupError struct {
	Offset  int
	Message string
}

func (e *MarkupError) Error() string {
	return fmt.Sprintf("block markup at offset %d: %s", e.Offset, e.Message)
}

func (e *MarkupError) Unwrap() error {
	return ErrMalformedMarkup
}

func markupErr(offset int, format string, args ...any) error {
	return &MarkupError{Offset: offset, Message: fmt.Sprintf(format, args...)}
}

// marker is one parsed block comment.
type marker struct {
	closer bool
	void   bool
	typ    string
	attrs  Attributes
}

// Parse reads block markup back into blocks. Open/close pairs and void
// markers ("<!-- wp:name /-->") are recognised; other comments and any text
// between markers are ignored. Nested blocks are not supported.
func Parse(markup string) ([]Block, error) {
	var (
		blocks []Block
		open   *Block
		openAt int
		pos    int
	)

	for {
		rel := strings.Index(markup[pos:], "<!--")
		if rel < 0 {
			break
		}
		start := pos + rel

		relEnd := strings.Index(markup[start+4:], "-->")
		if relEnd < 0 {
			return nil, markupErr(start, "unterminated comment")
		}
		end := start + 4 + relEnd
		pos = end + 3

		m, ok, err := parseMarker(markup[start+4 : end])
		if err != nil {
			return nil, markupErr(start, "%v", err)
		}
		if !ok {
			continue
		}

		switch {
		case m.closer:
			if open == nil {
				return nil, markupErr(start, "closing marker for %s without opener", m.typ)
			}
			if open.Type != m.typ {
				return nil, markupErr(start, "closing marker for %s does not match open %s", m.typ, open.Type)
			}
			blocks = append(blocks, *open)
			open = nil
		case open != nil:
			return nil, markupErr(start, "block %s opened inside %s (opened at %d)", m.typ, open.Type, openAt)
		case m.void:
			blocks = append(blocks, Block{Type: m.typ, Attrs: m.attrs})
		default:
			open = &Block{Type: m.typ, Attrs: m.attrs}
			openAt = start
		}
	}

	if open != nil {
		return nil, markupErr(openAt, "block %s is never closed", open.Type)
	}
	return blocks, nil
}

// parseMarker interprets the body of a comment. ok is false when the comment
// is not a block marker at all.
func parseMarker(body string) (m marker, ok bool, err error) {
	text := strings.TrimSpace(body)

	switch {
	case strings.HasPrefix(text, "/wp:"):
		m.closer = true
		text = text[len("/wp:"):]
	case strings.HasPrefix(text, "wp:"):
		text = text[len("wp:"):]
	default:
		return marker{}, false, nil
	}

	if strings.HasSuffix(text, "/") {
		if m.closer {
			return marker{}, false, fmt.Errorf("closing marker cannot be void")
		}
		m.void = true
		text = strings.TrimSpace(strings.TrimSuffix(text, "/"))
	}

	name, payload := text, ""
	if i := strings.IndexFunc(text, unicode.IsSpace); i >= 0 {
		name, payload = text[:i], strings.TrimSpace(text[i:])
	}
	if !strings.Contains(name, "/") {
		name = CoreNamespace + "/" + name
	}
	if err := ValidateType(name); err != nil {
		return marker{}, false, err
	}
	m.typ = name

	if payload == "" {
		return m, true, nil
	}
	if m.closer {
		return marker{}, false, fmt.Errorf("closing marker for %s carries attributes", name)
	}
	if !strings.HasPrefix(payload, "{") || !strings.HasSuffix(payload, "}") {
		return marker{}, false, fmt.Errorf("attributes for %s are not a JSON object", name)
	}
	if err := json.Unmarshal([]byte(payload), &m.attrs); err != nil {
		return marker{}, false, fmt.Errorf("attributes for %s: %w", name, err)
	}
	return m, true, nil
}
