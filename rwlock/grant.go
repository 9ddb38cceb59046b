package rwlock

// canGrantRead decides whether c may take a read acquisition right now.
func (s *state) canGrantRead(c Caller) bool {
	// Downgrade: the writer may always read.
	if s.isWriter(c) {
		return true
	}
	if s.hasWriter() {
		return false
	}
	// Reentrant read wins over a merely pending write request.
	if s.isReader(c) {
		return true
	}
	// Writer preference: no new readers while someone waits to write.
	if s.hasWriteRequests() {
		return false
	}
	return true
}

// canGrantWrite decides whether c may take a write acquisition right now.
func (s *state) canGrantWrite(c Caller) bool {
	// Upgrade of the sole reader. The read entry is kept.
	if s.isOnlyReader(c) {
		return true
	}
	if s.hasReaders() {
		return false
	}
	if !s.hasWriter() {
		return true
	}
	if !s.isWriter(c) {
		return false
	}
	return true
}
