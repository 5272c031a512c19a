package output

import (
	"bufio"
	"fmt"
	"io"

	"github.com/jmylchreest/zenimport/pkg/block"
	"github.com/jmylchreest/zenimport/pkg/importer"
)

// MarkupWriter writes block comment markup. It accepts import results, blocks
// and pre-rendered markup strings; anything else is an error.
type MarkupWriter struct {
	w *bufio.Writer
}

// NewMarkupWriter creates a markup writer.
func NewMarkupWriter(w io.Writer) *MarkupWriter {
	return &MarkupWriter{w: bufio.NewWriter(w)}
}

// Write renders one value.
func (w *MarkupWriter) Write(data any) error {
	var markup string
	switch v := data.(type) {
	case *importer.Result:
		markup = v.Markup
	case importer.Result:
		markup = v.Markup
	case block.Block:
		markup = block.Marshal(v)
	case *block.Block:
		markup = block.Marshal(*v)
	case []block.Block:
		markup = block.Serialize(v)
	case string:
		markup = v
	default:
		return fmt.Errorf("markup output cannot render %T", data)
	}
	_, err := w.w.WriteString(markup)
	return err
}

// WriteAll renders each value in order.
func (w *MarkupWriter) WriteAll(data []any) error {
	for _, item := range data {
		if err := w.Write(item); err != nil {
			return err
		}
	}
	return nil
}

// Flush flushes the buffer.
func (w *MarkupWriter) Flush() error {
	return w.w.Flush()
}

// Close flushes the writer.
func (w *MarkupWriter) Close() error {
	return w.Flush()
}
