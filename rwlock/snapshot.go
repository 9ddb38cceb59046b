package rwlock

import "fmt"

// Mode is the kind of access requested from the lock.
type Mode int

const (
	// ModeRead is shared access, held together with other readers.
	ModeRead Mode = iota
	// ModeWrite is exclusive access.
	ModeWrite
)

func (m Mode) String() string {
	switch m {
	case ModeRead:
		return "read"
	case ModeWrite:
		return "write"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// State is the coarse state of the lock.
type State int

const (
	// Free means nobody holds the lock.
	Free State = iota
	// ReadShared means one or more readers and no writer hold the lock.
	ReadShared
	// WriteExclusive means a writer holds the lock. The writer may also
	// hold read acquisitions after an upgrade or before a downgrade.
	WriteExclusive
)

func (s State) String() string {
	switch s {
	case Free:
		return "free"
	case ReadShared:
		return "read-shared"
	case WriteExclusive:
		return "write-exclusive"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Snapshot is a point-in-time copy of the lock bookkeeping.
type Snapshot struct {
	Writer        Caller         `json:"writer,omitempty"`
	WriteDepth    int            `json:"write_depth"`
	PendingWrites int            `json:"pending_writes"`
	Readers       map[Caller]int `json:"readers"`
}

// State reports WriteExclusive while a writer holds the lock, ReadShared
// while only readers do and Free otherwise.
func (s Snapshot) State() State {
	switch {
	case s.WriteDepth > 0:
		return WriteExclusive
	case len(s.Readers) > 0:
		return ReadShared
	default:
		return Free
	}
}

// Check validates the snapshot against the lock invariants.
func (s Snapshot) Check() error {
	if s.WriteDepth < 0 || s.PendingWrites < 0 {
		return fmt.Errorf("negative counter: write_depth=%d pending_writes=%d", s.WriteDepth, s.PendingWrites)
	}
	if s.Writer.IsZero() != (s.WriteDepth == 0) {
		return fmt.Errorf("writer %s with write_depth=%d", s.Writer, s.WriteDepth)
	}
	for c, n := range s.Readers {
		if n <= 0 {
			return fmt.Errorf("reader %s with count %d", c, n)
		}
		if s.WriteDepth > 0 && c != s.Writer {
			return fmt.Errorf("reader %s coexists with writer %s", c, s.Writer)
		}
	}
	return nil
}
