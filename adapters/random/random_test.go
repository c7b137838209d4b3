package random_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/artpar/zentypes/adapters/random"
)

func TestReal_Bytes_Unique(t *testing.T) {
	r := random.Real{}

	b1, err := r.Bytes(32)
	if err != nil {
		t.Fatalf("Bytes failed: %v", err)
	}
	b2, _ := r.Bytes(32)

	if len(b1) != 32 {
		t.Errorf("expected 32 bytes, got %d", len(b1))
	}
	if string(b1) == string(b2) {
		t.Error("random bytes should be different")
	}
}

func TestToken(t *testing.T) {
	tok, err := random.Token(&random.Sequence{}, 4)
	if err != nil {
		t.Fatalf("Token failed: %v", err)
	}
	if tok != "zt_01020304" {
		t.Errorf("Token = %s, want zt_01020304", tok)
	}

	tok, err = random.Token(random.Real{}, 0)
	if err != nil {
		t.Fatalf("Token failed: %v", err)
	}
	if !strings.HasPrefix(tok, random.TokenPrefix) || len(tok) != len(random.TokenPrefix)+2*random.DefaultTokenBytes {
		t.Errorf("unexpected default token %q", tok)
	}
}

type brokenReader struct{}

func (brokenReader) Bytes(n int) ([]byte, error) { return nil, errors.New("entropy exhausted") }

func TestToken_ReaderError(t *testing.T) {
	if _, err := random.Token(brokenReader{}, 8); err == nil {
		t.Error("expected error from failing reader")
	}
}
