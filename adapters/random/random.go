// Package random generates bearer tokens for the preview server.
package random

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// TokenPrefix marks zentypes bearer tokens.
const TokenPrefix = "zt_"

// DefaultTokenBytes is the entropy of a generated token.
const DefaultTokenBytes = 32

// Reader supplies random bytes.
type Reader interface {
	Bytes(n int) ([]byte, error)
}

// Real uses crypto/rand.
type Real struct{}

// Bytes generates n cryptographically secure random bytes.
func (Real) Bytes(n int) ([]byte, error) {
	b := make([]byte, n)
	_, err := rand.Read(b)
	return b, err
}

// Sequence returns deterministic bytes: the nth call yields n, n+1, ...
// modulo 256. For tests.
type Sequence struct {
	calls int
}

// Bytes returns the next deterministic block.
func (s *Sequence) Bytes(n int) ([]byte, error) {
	s.calls++
	b := make([]byte, n)
	for i := range b {
		b[i] = byte((s.calls + i) % 256)
	}
	return b, nil
}

// Token returns TokenPrefix followed by n random bytes in hex.
func Token(r Reader, n int) (string, error) {
	if n <= 0 {
		n = DefaultTokenBytes
	}
	b, err := r.Bytes(n)
	if err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return TokenPrefix + hex.EncodeToString(b), nil
}
