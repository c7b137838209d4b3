package zen_test

import (
	"encoding/json"
	"testing"

	"github.com/artpar/zentypes/domain/zen"
)

func TestParseObject_PreservesKeyOrder(t *testing.T) {
	obj, err := zen.ParseObject([]byte(`{"zeta":1,"alpha":{"b":true,"a":null},"mid":["x",2]}`))
	if err != nil {
		t.Fatalf("ParseObject failed: %v", err)
	}

	keys := obj.Keys()
	want := []string{"zeta", "alpha", "mid"}
	if len(keys) != len(want) {
		t.Fatalf("Keys() = %v, want %v", keys, want)
	}
	for i := range want {
		if keys[i] != want[i] {
			t.Errorf("Keys()[%d] = %q, want %q", i, keys[i], want[i])
		}
	}

	nested := obj.Object("alpha")
	if nested == nil {
		t.Fatal("Object(alpha) = nil")
	}
	if got := nested.Keys(); got[0] != "b" || got[1] != "a" {
		t.Errorf("nested keys = %v, want [b a]", got)
	}
	if !nested.Has("a") {
		t.Error("Has(a) = false for explicit null")
	}
	if got := obj.Strings("mid"); len(got) != 1 || got[0] != "x" {
		t.Errorf("Strings(mid) = %v, want [x]", got)
	}
}

func TestParseObject_RejectsNonObject(t *testing.T) {
	if _, err := zen.ParseObject([]byte(`["a"]`)); err == nil {
		t.Error("expected error for array input")
	}
	if _, err := zen.ParseObject([]byte(`{"a":`)); err == nil {
		t.Error("expected error for truncated input")
	}
}

func TestObject_MarshalJSON(t *testing.T) {
	src := `{"type":"zen/map","keys":{"name":{"type":"zen/string"},"id":{"type":"zen/string"}},"require":["name"]}`
	obj, err := zen.ParseObject([]byte(src))
	if err != nil {
		t.Fatalf("ParseObject failed: %v", err)
	}

	out, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if string(out) != src {
		t.Errorf("Marshal = %s, want %s", out, src)
	}
}

func TestObject_UnmarshalJSON(t *testing.T) {
	var payload struct {
		Result *zen.Object `json:"result"`
	}
	if err := json.Unmarshal([]byte(`{"result":{"b":1,"a":2}}`), &payload); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if got := payload.Result.Keys(); len(got) != 2 || got[0] != "b" {
		t.Errorf("Keys() = %v, want [b a]", got)
	}
}

func TestObject_SetDelete(t *testing.T) {
	obj := zen.NewObject()
	obj.Set("a", 1.0)
	obj.Set("b", 2.0)
	obj.Set("a", 3.0)
	obj.Delete("b")
	obj.Delete("missing")

	if obj.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", obj.Len())
	}
	if v, _ := obj.Get("a"); v != 3.0 {
		t.Errorf("Get(a) = %v, want 3", v)
	}
}

func TestObject_CloneIsDeep(t *testing.T) {
	obj, _ := zen.ParseObject([]byte(`{"a":{"b":["x"]}}`))
	clone := obj.Clone()
	clone.Object("a").Set("b", []any{"y"})

	if got := obj.Object("a").Strings("b"); got[0] != "x" {
		t.Errorf("original mutated: %v", got)
	}
	if !zen.Equal(obj, obj.Clone()) {
		t.Error("Equal(obj, Clone()) = false")
	}
}

func TestNormalize(t *testing.T) {
	v := zen.Normalize(map[string]any{"b": []any{map[string]any{"y": 1, "x": 2}}, "a": "s"})
	obj, ok := v.(*zen.Object)
	if !ok {
		t.Fatalf("Normalize returned %T", v)
	}
	if got := obj.Keys(); got[0] != "a" || got[1] != "b" {
		t.Errorf("Keys() = %v, want [a b]", got)
	}
	arr, _ := obj.Get("b")
	inner := arr.([]any)[0].(*zen.Object)
	if v, _ := inner.Get("y"); v != 1.0 {
		t.Errorf("inner y = %v, want 1", v)
	}
}

func TestTruthy(t *testing.T) {
	tests := []struct {
		value any
		want  bool
	}{
		{nil, false},
		{false, false},
		{true, true},
		{"", false},
		{"x", true},
		{0.0, false},
		{1.0, true},
		{[]any{}, true},
		{zen.NewObject(), true},
	}
	for _, tt := range tests {
		if got := zen.Truthy(tt.value); got != tt.want {
			t.Errorf("Truthy(%#v) = %v, want %v", tt.value, got, tt.want)
		}
	}
}
