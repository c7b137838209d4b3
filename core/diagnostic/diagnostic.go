// Package diagnostic collects problems found while compiling a symbol set.
//
// Diagnostics are bucketed by severity. Errors halt a run before any output
// is produced; warnings and infos are reported next to the output.
package diagnostic

import (
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
)

// Codes.
const (
	CodeUnrecognizedShape  = "unrecognized-shape"
	CodeDecode             = "decode"
	CodeMissingName        = "missing-name"
	CodeResolutionMiss     = "resolution-miss"
	CodeUnresolvedConfirms = "unresolved-confirms"
	CodeUnresolvedMap      = "unresolved-map"
	CodeNameCollision      = "name-collision"
)

// Severity is the severity level of a diagnostic.
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityWarning
	SeverityError
)

// String returns a human-readable severity name.
func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	default:
		return "unknown"
	}
}

// MarshalText renders the severity by name.
func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Diagnostic is a single finding.
type Diagnostic struct {
	Severity Severity `json:"severity" yaml:"severity"`
	// Code identifies the kind of finding.
	Code    string `json:"code" yaml:"code"`
	Message string `json:"message" yaml:"message"`
	// Symbol is the registry symbol being compiled (if any).
	Symbol string `json:"symbol,omitempty" yaml:"symbol,omitempty"`
	// FieldPath is the dotted path inside the symbol (if any).
	FieldPath string `json:"field_path,omitempty" yaml:"field_path,omitempty"`
	// Raw is the offending node as JSON.
	Raw string `json:"raw,omitempty" yaml:"raw,omitempty"`
}

// Diagnostics holds all diagnostics of one run.
type Diagnostics struct {
	Errors   []Diagnostic `json:"errors" yaml:"errors"`
	Warnings []Diagnostic `json:"warnings" yaml:"warnings"`
	Infos    []Diagnostic `json:"infos" yaml:"infos"`
}

// Add appends a diagnostic to the bucket of its severity.
func (d *Diagnostics) Add(diag Diagnostic) {
	switch diag.Severity {
	case SeverityError:
		d.Errors = append(d.Errors, diag)
	case SeverityWarning:
		d.Warnings = append(d.Warnings, diag)
	default:
		d.Infos = append(d.Infos, diag)
	}
}

// AddError adds an error diagnostic.
func (d *Diagnostics) AddError(code, message, symbol, fieldPath string) {
	d.Add(Diagnostic{Severity: SeverityError, Code: code, Message: message, Symbol: symbol, FieldPath: fieldPath})
}

// AddWarning adds a warning diagnostic.
func (d *Diagnostics) AddWarning(code, message, symbol, fieldPath string) {
	d.Add(Diagnostic{Severity: SeverityWarning, Code: code, Message: message, Symbol: symbol, FieldPath: fieldPath})
}

// AddInfo adds an info diagnostic.
func (d *Diagnostics) AddInfo(code, message, symbol, fieldPath string) {
	d.Add(Diagnostic{Severity: SeverityInfo, Code: code, Message: message, Symbol: symbol, FieldPath: fieldPath})
}

// HasErrors returns true if there are any error diagnostics.
func (d *Diagnostics) HasErrors() bool {
	return len(d.Errors) > 0
}

// Len returns the total number of diagnostics.
func (d *Diagnostics) Len() int {
	return len(d.Errors) + len(d.Warnings) + len(d.Infos)
}

// Merge merges another Diagnostics instance into this one.
func (d *Diagnostics) Merge(other Diagnostics) {
	d.Errors = append(d.Errors, other.Errors...)
	d.Warnings = append(d.Warnings, other.Warnings...)
	d.Infos = append(d.Infos, other.Infos...)
}

// All returns every diagnostic, most severe first.
func (d *Diagnostics) All() []Diagnostic {
	out := make([]Diagnostic, 0, d.Len())
	out = append(out, d.Errors...)
	out = append(out, d.Warnings...)
	return append(out, d.Infos...)
}

// Error returns a combined error from all error diagnostics, or nil.
func (d *Diagnostics) Error() error {
	if !d.HasErrors() {
		return nil
	}
	parts := make([]string, 0, len(d.Errors))
	for _, e := range d.Errors {
		parts = append(parts, e.String())
	}
	return errors.New(strings.Join(parts, "; "))
}

// Log writes every diagnostic at a level matching its severity.
func (d *Diagnostics) Log(logger zerolog.Logger) {
	for _, diag := range d.All() {
		var ev *zerolog.Event
		switch diag.Severity {
		case SeverityError:
			ev = logger.Error()
		case SeverityWarning:
			ev = logger.Warn()
		default:
			ev = logger.Debug()
		}
		ev = ev.Str("code", diag.Code)
		if diag.Symbol != "" {
			ev = ev.Str("symbol", diag.Symbol)
		}
		if diag.FieldPath != "" {
			ev = ev.Str("field", diag.FieldPath)
		}
		if diag.Raw != "" {
			ev = ev.RawJSON("node", []byte(diag.Raw))
		}
		ev.Msg(diag.Message)
	}
}

// String returns a formatted diagnostic string.
func (d Diagnostic) String() string {
	var prefix []string
	if d.Symbol != "" {
		prefix = append(prefix, "["+d.Symbol+"]")
	}
	if d.FieldPath != "" {
		prefix = append(prefix, d.FieldPath)
	}

	msg := d.Message
	if d.Code != "" {
		msg = fmt.Sprintf("[%s] %s", d.Code, msg)
	}
	if d.Raw != "" {
		msg += " " + d.Raw
	}

	if len(prefix) > 0 {
		return strings.Join(prefix, " ") + ": " + msg
	}
	return msg
}
