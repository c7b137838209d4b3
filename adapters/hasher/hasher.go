// Package hasher hashes the bearer tokens that guard regeneration over HTTP.
package hasher

import (
	"strings"

	"github.com/artpar/zentypes/ports"
	"golang.org/x/crypto/bcrypt"
)

// Bcrypt hashes tokens with bcrypt. Hashes are stored as text in the config.
type Bcrypt struct {
	cost int
}

// NewBcrypt creates a bcrypt hasher with the given cost.
// Out of range costs fall back to bcrypt.DefaultCost.
func NewBcrypt(cost int) *Bcrypt {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &Bcrypt{cost: cost}
}

// Hash returns the bcrypt hash of token.
func (h *Bcrypt) Hash(token string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(token), h.cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// Compare reports whether token matches hash. Surrounding whitespace in the
// stored hash is ignored; an empty hash or token never matches.
func (h *Bcrypt) Compare(hash, token string) bool {
	hash = strings.TrimSpace(hash)
	if hash == "" || token == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(token)) == nil
}

var _ ports.TokenHasher = (*Bcrypt)(nil)

// Plain compares tokens verbatim (tests only).
type Plain struct{}

// Hash returns the token unchanged.
func (Plain) Hash(token string) (string, error) {
	return token, nil
}

// Compare does simple equality check.
func (Plain) Compare(hash, token string) bool {
	return hash != "" && hash == token
}

var _ ports.TokenHasher = Plain{}
