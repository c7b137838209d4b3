package hasher_test

import (
	"strings"
	"testing"

	"github.com/artpar/zentypes/adapters/hasher"
	"golang.org/x/crypto/bcrypt"
)

func TestBcrypt_HashAndCompare(t *testing.T) {
	h := hasher.NewBcrypt(bcrypt.MinCost) // Use min cost for speed in tests

	hash, err := h.Hash("serve-token")
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}
	if !strings.HasPrefix(hash, "$2") {
		t.Errorf("expected bcrypt format, got %q", hash)
	}

	if !h.Compare(hash, "serve-token") {
		t.Error("Compare should match the original token")
	}
	if !h.Compare(hash+"\n", "serve-token") {
		t.Error("trailing newline in a config value should be ignored")
	}
	if h.Compare(hash, "other-token") {
		t.Error("Compare should reject a different token")
	}
}

func TestBcrypt_SameInputDifferentOutput(t *testing.T) {
	h := hasher.NewBcrypt(bcrypt.MinCost)

	a, _ := h.Hash("token")
	b, _ := h.Hash("token")
	if a == b {
		t.Error("hashes should be salted")
	}
}

func TestBcrypt_InvalidCost(t *testing.T) {
	for _, cost := range []int{1, 100} {
		h := hasher.NewBcrypt(cost)
		hash, err := h.Hash("t")
		if err != nil {
			t.Fatalf("Hash with cost %d: %v", cost, err)
		}
		got, err := bcrypt.Cost([]byte(hash))
		if err != nil {
			t.Fatalf("Cost: %v", err)
		}
		if got != bcrypt.DefaultCost {
			t.Errorf("cost %d: got %d, want default %d", cost, got, bcrypt.DefaultCost)
		}
	}
}

func TestCompare_Empty(t *testing.T) {
	tests := []struct {
		name  string
		hash  string
		token string
	}{
		{"empty hash", "", "token"},
		{"blank hash", "   ", "token"},
		{"empty token", "$2a$04$abcdefghijklmnopqrstuu", ""},
		{"garbage hash", "not-a-hash", "token"},
	}
	h := hasher.NewBcrypt(bcrypt.MinCost)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if h.Compare(tt.hash, tt.token) {
				t.Error("Compare should fail")
			}
		})
	}

	var p hasher.Plain
	if p.Compare("", "") {
		t.Error("Plain should reject empty tokens")
	}
	if !p.Compare("abc", "abc") {
		t.Error("Plain should accept equal tokens")
	}
}
