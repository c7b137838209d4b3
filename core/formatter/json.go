package formatter

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/artpar/zentypes/domain/decl"
)

// JSONFormatter formats declarations as a JSON array.
type JSONFormatter struct{}

// NewJSONFormatter creates a new JSON formatter.
func NewJSONFormatter() *JSONFormatter {
	return &JSONFormatter{}
}

// Name returns the formatter name.
func (f *JSONFormatter) Name() string {
	return "json"
}

// Description returns the formatter description.
func (f *JSONFormatter) Description() string {
	return "Declarations as JSON"
}

// Extension returns the file extension.
func (f *JSONFormatter) Extension() string {
	return "json"
}

// ContentType returns the MIME type.
func (f *JSONFormatter) ContentType() string {
	return "application/json"
}

// Format writes the declarations as a JSON array, RPC declarations included.
func (f *JSONFormatter) Format(w io.Writer, decls []decl.Declaration, opts FormatOptions) error {
	if decls == nil {
		decls = []decl.Declaration{}
	}
	return f.encode(w, decls, opts.Compact)
}

// encode writes JSON to the writer.
func (f *JSONFormatter) encode(w io.Writer, data any, compact bool) error {
	encoder := json.NewEncoder(w)
	encoder.SetEscapeHTML(false)
	if !compact {
		encoder.SetIndent("", "  ")
	}
	return encoder.Encode(data)
}

func init() {
	if err := Register(NewJSONFormatter()); err != nil {
		fmt.Printf("failed to register json formatter: %v\n", err)
	}
}
