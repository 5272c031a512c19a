// Package block models the typed block records produced by an import and
// converts them to and from block-comment markup.
//
// A block is written as a pair of HTML comments the renderer recognises as a
// block boundary:
//
//	<!-- wp:zen-blocks/custom-card {"title":"Hi","content":"World"} -->
//	<!-- /wp:zen-blocks/custom-card -->
//
// The opening marker carries the attributes as compact JSON in insertion
// order. The payload is escaped so that extracted text can never terminate the
// comment early.
package block

import (
	"fmt"
	"regexp"
	"strings"
)

// CoreNamespace is the namespace the renderer assumes when a marker omits one.
const CoreNamespace = "core"

// typeRegex matches a namespaced block type such as "zen-blocks/custom-card".
var typeRegex = regexp.MustCompile(`^[a-z][a-z0-9_-]*/[a-z][a-z0-9_-]*$`)

// Block is one typed record extracted from a document.
type Block struct {
	// Type is the namespaced block identifier, e.g. "zen-blocks/custom-card".
	Type string `json:"type" yaml:"type"`

	// Attrs holds the block attributes in insertion order.
	Attrs Attributes `json:"attributes" yaml:"attributes"`
}

// New returns an empty block of the given type.
func New(typ string) *Block {
	return &Block{Type: typ}
}

// Validate reports whether the block type is a valid namespaced identifier.
func (b Block) Validate() error {
	return ValidateType(b.Type)
}

// Namespace returns the part of the type before the slash.
func (b Block) Namespace() string {
	ns, _, _ := strings.Cut(b.Type, "/")
	return ns
}

// Name returns the part of the type after the slash.
func (b Block) Name() string {
	_, name, _ := strings.Cut(b.Type, "/")
	return name
}

// String returns a short description for logging.
func (b Block) String() string {
	return fmt.Sprintf("%s (%d attributes)", b.Type, b.Attrs.Len())
}

// ValidateType checks that typ is a lowercase "namespace/name" identifier.
func ValidateType(typ string) error {
	if typ == "" {
		return fmt.Errorf("block type is empty")
	}
	if !typeRegex.MatchString(typ) {
		return fmt.Errorf("invalid block type %q: want lowercase namespace/name", typ)
	}
	return nil
}
