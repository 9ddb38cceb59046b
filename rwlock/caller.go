package rwlock

import (
	"github.com/gofrs/uuid"
)

// Caller identifies a holder of the lock.
//
// Goroutines have no identity of their own, so every participant creates a
// Caller once and passes it to each lock operation. The token must stay the
// same for the whole duration of a hold: reentrance, upgrade and downgrade
// are all decided by comparing Callers.
type Caller struct {
	id uuid.UUID
}

// NewCaller returns a fresh, unique Caller.
func NewCaller() Caller {
	return Caller{id: uuid.Must(uuid.NewV4())}
}

// IsZero reports whether c is the zero Caller. The zero Caller never holds
// the lock and is rejected by every operation.
func (c Caller) IsZero() bool {
	return c.id == uuid.Nil
}

func (c Caller) String() string {
	if c.IsZero() {
		return "<none>"
	}
	return c.id.String()
}

// MarshalText allows Caller to be used as a JSON object key.
func (c Caller) MarshalText() ([]byte, error) {
	if c.IsZero() {
		return []byte{}, nil
	}
	return c.id.MarshalText()
}
