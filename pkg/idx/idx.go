// Package idx generates the identifiers of every stored row. IDs are ULIDs,
// so they sort by creation time and "newest first" is a plain ORDER BY id.
package idx

import (
	"crypto/rand"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

type ID string

var (
	mu      sync.Mutex
	entropy = ulid.Monotonic(rand.Reader, 0)
)

// New returns an ID stamped with the current UTC time.
func New() ID {
	return NewAt(time.Now().UTC())
}

// NewAt returns an ID stamped with t. IDs created in the same millisecond
// still increase, since the entropy source is monotonic.
func NewAt(t time.Time) ID {
	mu.Lock()
	defer mu.Unlock()
	return ID(ulid.MustNew(ulid.Timestamp(t), entropy).String())
}

// Valid reports whether s is a well-formed ID. Handlers use it to answer
// "not found" for garbage path parameters without a query.
func Valid(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return false
	}
	_, err := ulid.ParseStrict(s)
	return err == nil
}

func (id ID) String() string { return string(id) }

// Time extracts the embedded timestamp, or the zero time for a malformed ID.
func (id ID) Time() time.Time {
	u, err := ulid.ParseStrict(string(id))
	if err != nil {
		return time.Time{}
	}
	return ulid.Time(u.Time()).UTC()
}
