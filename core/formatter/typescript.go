package formatter

import (
	"fmt"
	"io"

	"github.com/artpar/zentypes/core/emitter"
	"github.com/artpar/zentypes/domain/decl"
)

// TypeScriptFormatter renders declarations as a TypeScript module.
type TypeScriptFormatter struct{}

// NewTypeScriptFormatter creates a new TypeScript formatter.
func NewTypeScriptFormatter() *TypeScriptFormatter {
	return &TypeScriptFormatter{}
}

// Name returns the formatter name.
func (f *TypeScriptFormatter) Name() string {
	return "ts"
}

// Description returns the formatter description.
func (f *TypeScriptFormatter) Description() string {
	return "TypeScript declarations"
}

// Extension returns the file extension.
func (f *TypeScriptFormatter) Extension() string {
	return "ts"
}

// ContentType returns the MIME type.
func (f *TypeScriptFormatter) ContentType() string {
	return "application/typescript; charset=utf-8"
}

// Format writes the declarations as TypeScript. RPC declarations are omitted.
func (f *TypeScriptFormatter) Format(w io.Writer, decls []decl.Declaration, _ FormatOptions) error {
	return emitter.Write(w, decls)
}

func init() {
	if err := Register(NewTypeScriptFormatter()); err != nil {
		fmt.Printf("failed to register ts formatter: %v\n", err)
	}
}
