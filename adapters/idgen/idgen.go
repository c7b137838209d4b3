// Package idgen provides run identifier generators.
package idgen

import (
	"strconv"
	"sync/atomic"

	"github.com/artpar/zentypes/ports"
	"github.com/google/uuid"
)

// RunIDs generates time-ordered UUIDs so runs sort by start time.
type RunIDs struct{}

// New returns a UUID v7, falling back to v4 if the clock source fails.
func (RunIDs) New() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

var _ ports.IDGenerator = RunIDs{}

// Sequential returns prefix1, prefix2, ... (for tests and reproducible snapshots).
type Sequential struct {
	prefix string
	n      atomic.Uint64
}

// NewSequential creates a sequential generator.
func NewSequential(prefix string) *Sequential {
	return &Sequential{prefix: prefix}
}

// New returns the next identifier.
func (s *Sequential) New() string {
	return s.prefix + strconv.FormatUint(s.n.Add(1), 10)
}

var _ ports.IDGenerator = (*Sequential)(nil)
