package zen

import (
	"strings"
	"unicode"
)

// LocalName returns the part of a qualified symbol name after the first "/".
// Names without a namespace are returned unchanged.
func LocalName(name string) string {
	if i := strings.Index(name, "/"); i >= 0 {
		return name[i+1:]
	}
	return name
}

// Namespace returns the part of a qualified symbol name before the first "/".
func Namespace(name string) string {
	if i := strings.Index(name, "/"); i >= 0 {
		return name[:i]
	}
	return ""
}

// Capitalize upper-cases the first rune.
func Capitalize(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}

// PascalCase joins hyphen-separated segments with each segment capitalized.
// "code-system" becomes "CodeSystem". Names without hyphens are unchanged.
func PascalCase(s string) string {
	if !strings.Contains(s, "-") {
		return s
	}
	parts := strings.Split(s, "-")
	var b strings.Builder
	for _, p := range parts {
		b.WriteString(Capitalize(p))
	}
	return b.String()
}

// IsIdentifier reports whether s can be emitted as a bare TypeScript property name.
func IsIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_' || r == '$':
		case unicode.IsLetter(r):
		case i > 0 && unicode.IsDigit(r):
		default:
			return false
		}
	}
	return true
}

// WrapKey quotes a property name with single quotes when it is not a bare identifier.
func WrapKey(key string) string {
	if IsIdentifier(key) {
		return key
	}
	return "'" + strings.ReplaceAll(key, "'", `\'`) + "'"
}
