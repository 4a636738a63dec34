package registry

import "sync"

// Channel is the opaque outbound handle a session delivers through. Send must
// not block on network I/O: implementations queue the payload and report
// failure when the session can no longer accept writes. Close tears down the
// underlying transport and is safe to call more than once.
type Channel interface {
	Send(payload []byte) error
	Close() error
}

// sessionTable maps a user id to its single live channel. At most one entry
// exists per user id; attaching again replaces the previous channel.
type sessionTable struct {
	mu       sync.RWMutex
	channels map[int64]Channel
}

func newSessionTable() *sessionTable {
	return &sessionTable{channels: make(map[int64]Channel)}
}

// attach records ch for userID and returns the channel it replaced, or nil.
func (t *sessionTable) attach(userID int64, ch Channel) Channel {
	t.mu.Lock()
	defer t.mu.Unlock()
	prev := t.channels[userID]
	t.channels[userID] = ch
	return prev
}

// detach removes the entry for userID and reports whether one existed.
func (t *sessionTable) detach(userID int64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.channels[userID]; !ok {
		return false
	}
	delete(t.channels, userID)
	return true
}

// detachIf removes the entry for userID only while ch still backs it. A stale
// connection replaced by a newer one therefore cannot evict its successor.
func (t *sessionTable) detachIf(userID int64, ch Channel) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	current, ok := t.channels[userID]
	if !ok || current != ch {
		return false
	}
	delete(t.channels, userID)
	return true
}

func (t *sessionTable) channel(userID int64) (Channel, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	ch, ok := t.channels[userID]
	return ch, ok
}

func (t *sessionTable) connected(userID int64) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.channels[userID]
	return ok
}

func (t *sessionTable) count() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.channels)
}

// drain removes every session and returns the evicted channels.
func (t *sessionTable) drain() map[int64]Channel {
	t.mu.Lock()
	defer t.mu.Unlock()
	drained := t.channels
	t.channels = make(map[int64]Channel)
	return drained
}
