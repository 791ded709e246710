package queue

import (
	"sync"
)

// Session tracks which article hashes are currently queued or being
// processed. It exists only in memory: a restart clears it, and the
// persistent sent records take over the dedup duty across restarts.
type Session struct {
	mu       sync.Mutex
	inflight map[string]bool
}

func NewSession() *Session {
	return &Session{
		inflight: make(map[string]bool),
	}
}

// Begin claims a hash for processing. Returns false when the hash is already
// in flight, in which case the caller must not enqueue the article again.
func (s *Session) Begin(hash string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.inflight[hash] {
		return false
	}
	s.inflight[hash] = true
	return true
}

// Finish releases a hash. Runs on every worker outcome so a failed delivery
// cannot block future enqueues of the same guid.
func (s *Session) Finish(hash string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inflight, hash)
}

func (s *Session) Size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.inflight)
}
