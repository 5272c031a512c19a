package block

import (
	"encoding/json"
	"strings"
)

const (
	openPrefix   = "<!-- wp:"
	closePrefix  = "<!-- /wp:"
	markerSuffix = " -->"
	voidSuffix   = " /-->"
)

// Serialize renders blocks as consecutive open/close marker pairs, each pair
// followed by a blank line. The output depends only on the input: the same
// blocks always produce the same bytes.
func Serialize(blocks []Block) string {
	var sb strings.Builder
	for _, b := range blocks {
		writeBlock(&sb, b)
	}
	return sb.String()
}

// Marshal renders a single block as an open/close marker pair.
func Marshal(b Block) string {
	var sb strings.Builder
	writeBlock(&sb, b)
	return sb.String()
}

func writeBlock(sb *strings.Builder, b Block) {
	name := markerName(b.Type)

	sb.WriteString(openPrefix)
	sb.WriteString(name)
	if b.Attrs.Len() > 0 {
		sb.WriteByte(' ')
		sb.WriteString(EncodeAttributes(b.Attrs))
	}
	sb.WriteString(markerSuffix)
	sb.WriteByte('\n')

	sb.WriteString(closePrefix)
	sb.WriteString(name)
	sb.WriteString(markerSuffix)
	sb.WriteString("\n\n")
}

// markerName drops the core namespace, which the renderer implies.
func markerName(typ string) string {
	return strings.TrimPrefix(typ, CoreNamespace+"/")
}

// EncodeAttributes returns the marker payload for attrs: a compact JSON object
// in insertion order, escaped so it can sit inside an HTML comment.
func EncodeAttributes(attrs Attributes) string {
	var sb strings.Builder
	sb.WriteByte('{')
	for i, item := range attrs.items {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(encodeString(item.Key))
		sb.WriteByte(':')
		if item.Value == nil {
			sb.WriteString("null")
			continue
		}
		sb.WriteString(encodeString(*item.Value))
	}
	sb.WriteByte('}')
	return sb.String()
}

// encodeString JSON-encodes s for use inside a comment marker. encoding/json
// already writes <, > and & as \u escapes; on top of that escaped quotes
// become \u0022 and every hyphen in a run of two or more becomes \u002d, so
// neither "--" nor "-->" can appear in the payload.
func encodeString(s string) string {
	enc, _ := json.Marshal(s)

	var sb strings.Builder
	sb.Grow(len(enc))
	for i := 0; i < len(enc); i++ {
		c := enc[i]
		switch {
		case c == '\\' && i+1 < len(enc):
			if enc[i+1] == '"' {
				sb.WriteString(`\u0022`)
			} else {
				sb.WriteByte(c)
				sb.WriteByte(enc[i+1])
			}
			i++
		case c == '-' && (i+1 < len(enc) && enc[i+1] == '-' || i > 0 && enc[i-1] == '-'):
			sb.WriteString(`\u002d`)
		default:
			sb.WriteByte(c)
		}
	}
	return sb.String()
}
