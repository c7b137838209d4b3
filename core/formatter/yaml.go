package formatter

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/artpar/zentypes/domain/decl"
)

// YAMLFormatter formats declarations as YAML.
type YAMLFormatter struct{}

// NewYAMLFormatter creates a new YAML formatter.
func NewYAMLFormatter() *YAMLFormatter {
	return &YAMLFormatter{}
}

// Name returns the formatter name.
func (f *YAMLFormatter) Name() string {
	return "yaml"
}

// Description returns the formatter description.
func (f *YAMLFormatter) Description() string {
	return "Declarations as YAML"
}

// Extension returns the file extension.
func (f *YAMLFormatter) Extension() string {
	return "yaml"
}

// ContentType returns the MIME type.
func (f *YAMLFormatter) ContentType() string {
	return "application/yaml"
}

// Format writes the declarations as a YAML sequence.
func (f *YAMLFormatter) Format(w io.Writer, decls []decl.Declaration, _ FormatOptions) error {
	if decls == nil {
		decls = []decl.Declaration{}
	}
	return f.encode(w, decls)
}

// encode writes YAML to the writer.
func (f *YAMLFormatter) encode(w io.Writer, data any) error {
	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	defer encoder.Close()
	return encoder.Encode(data)
}

func init() {
	if err := Register(NewYAMLFormatter()); err != nil {
		fmt.Printf("failed to register yaml formatter: %v\n", err)
	}
}
