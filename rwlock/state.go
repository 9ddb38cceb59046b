package rwlock

// state is the bookkeeping of a single lock. Every field is accessed only
// while RWLock.mu is held.
type state struct {
	// reentrant read count per caller, entries are removed at zero
	readers map[Caller]int
	// zero when nobody holds the write lock
	writer Caller
	// reentrance depth of the write lock, writer is set iff writeDepth > 0
	writeDepth int
	// callers inside LockWrite that have not been granted yet
	pendingWrites int
}

func (s *state) init() {
	if s.readers == nil {
		s.readers = make(map[Caller]int)
	}
}

func (s *state) isWriter(c Caller) bool {
	return s.writeDepth > 0 && s.writer == c
}

func (s *state) hasWriter() bool {
	return s.writeDepth > 0
}

func (s *state) isReader(c Caller) bool {
	return s.readers[c] > 0
}

func (s *state) hasReaders() bool {
	return len(s.readers) > 0
}

func (s *state) isOnlyReader(c Caller) bool {
	return len(s.readers) == 1 && s.isReader(c)
}

func (s *state) hasWriteRequests() bool {
	return s.pendingWrites > 0
}

func (s *state) addRead(c Caller) {
	s.readers[c]++
}

// releaseRead reports false if c holds no read acquisition.
func (s *state) releaseRead(c Caller) bool {
	n, ok := s.readers[c]
	if !ok {
		return false
	}
	if n <= 1 {
		delete(s.readers, c)
	} else {
		s.readers[c] = n - 1
	}
	return true
}

func (s *state) addWrite(c Caller) {
	s.writeDepth++
	s.writer = c
}

// releaseWrite reports false if c is not the current writer.
func (s *state) releaseWrite(c Caller) bool {
	if !s.isWriter(c) {
		return false
	}
	s.writeDepth--
	if s.writeDepth == 0 {
		s.writer = Caller{}
	}
	return true
}

func (s *state) snapshot() Snapshot {
	readers := make(map[Caller]int, len(s.readers))
	for c, n := range s.readers {
		readers[c] = n
	}
	return Snapshot{
		Writer:        s.writer,
		WriteDepth:    s.writeDepth,
		PendingWrites: s.pendingWrites,
		Readers:       readers,
	}
}
