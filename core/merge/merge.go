// Package merge reconciles partial definitions that share a name.
//
// The rules are the same for raw values and for typed declarations:
// arrays concatenate and drop duplicates keeping first-seen order, mappings
// merge key by key recursing where both sides hold a mapping, and any other
// value is replaced by the later one, including an explicit null.
// Inputs are never modified.
package merge

import (
	"github.com/artpar/zentypes/domain/zen"
)

// Values merges raw values left to right.
// Values() is nil and Values(x) is a deep copy of x.
func Values(values ...any) any {
	var out any
	for i, v := range values {
		if i == 0 {
			out = zen.CloneValue(v)
			continue
		}
		out = pair(out, v)
	}
	return out
}

// Objects merges raw definitions left to right. Nil objects are skipped.
func Objects(objs ...*zen.Object) *zen.Object {
	out := zen.NewObject()
	for _, o := range objs {
		if o == nil {
			continue
		}
		out = pair(out, o).(*zen.Object)
	}
	return out
}

// pair merges b into a. a is owned by the caller and may be reused;
// b is copied where kept.
func pair(a, b any) any {
	switch bv := b.(type) {
	case []any:
		av, ok := a.([]any)
		if !ok {
			return zen.CloneValue(bv)
		}
		out := make([]any, 0, len(av)+len(bv))
		for _, item := range av {
			out = appendUnique(out, item)
		}
		for _, item := range bv {
			out = appendUnique(out, zen.CloneValue(item))
		}
		return out
	case *zen.Object:
		av, ok := a.(*zen.Object)
		if !ok {
			return bv.Clone()
		}
		out := av.Clone()
		bv.Range(func(key string, v any) bool {
			if existing, ok := out.Get(key); ok {
				out.Set(key, pair(existing, v))
			} else {
				out.Set(key, zen.CloneValue(v))
			}
			return true
		})
		return out
	default:
		return b
	}
}

func appendUnique(items []any, v any) []any {
	for _, existing := range items {
		if zen.Equal(existing, v) {
			return items
		}
	}
	return append(items, v)
}

func unionStrings(a, b []string) []string {
	if a == nil && b == nil {
		return nil
	}
	out := make([]string, 0, len(a)+len(b))
	seen := make(map[string]bool, len(a)+len(b))
	for _, list := range [][]string{a, b} {
		for _, s := range list {
			if !seen[s] {
				seen[s] = true
				out = append(out, s)
			}
		}
	}
	return out
}
