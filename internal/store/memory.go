package store

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-memory Store used in development and tests. Users and
// groups are seeded explicitly; messages and calls each draw sequential ids
// from their own counter, mirroring the per-collection sequences of the
// Mongo-backed store.
type MemoryStore struct {
	mu            sync.RWMutex
	users         map[int64]time.Time
	groups        map[int64]map[int64]struct{}
	messages      map[int64]Message
	calls         map[int64]Call
	nextMessageID int64
	nextCallID    int64
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:    make(map[int64]time.Time),
		groups:   make(map[int64]map[int64]struct{}),
		messages: make(map[int64]Message),
		calls:    make(map[int64]Call),
	}
}

// AddUser seeds a user id.
func (s *MemoryStore) AddUser(userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[userID]; !ok {
		s.users[userID] = time.Time{}
	}
}

// AddGroup seeds a group and its member user ids.
func (s *MemoryStore) AddGroup(groupID int64, memberIDs ...int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	members, ok := s.groups[groupID]
	if !ok {
		members = make(map[int64]struct{})
		s.groups[groupID] = members
	}
	for _, id := range memberIDs {
		members[id] = struct{}{}
	}
}

// LastSeen reports the recorded last-seen time for a user id.
func (s *MemoryStore) LastSeen(userID int64) (time.Time, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.users[userID]
	return t, ok
}

func (s *MemoryStore) UserExists(_ context.Context, userID int64) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.users[userID]
	return ok, nil
}

func (s *MemoryStore) TouchLastSeen(_ context.Context, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[userID]; !ok {
		return ErrNotFound
	}
	s.users[userID] = time.Now()
	return nil
}

func (s *MemoryStore) GroupExists(_ context.Context, groupID int64) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.groups[groupID]
	return ok, nil
}

func (s *MemoryStore) IsGroupMember(_ context.Context, groupID, userID int64) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	members, ok := s.groups[groupID]
	if !ok {
		return false, nil
	}
	_, ok = members[userID]
	return ok, nil
}

func (s *MemoryStore) CreateMessage(_ context.Context, m Message) (Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextMessageID++
	m.ID = s.nextMessageID
	m.CreatedAt = time.Now().UTC()
	s.messages[m.ID] = m
	return m, nil
}

func (s *MemoryStore) GetMessage(_ context.Context, messageID int64) (Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.messages[messageID]
	if !ok {
		return Message{}, ErrNotFound
	}
	return m, nil
}

func (s *MemoryStore) UpdateMessageContent(_ context.Context, messageID int64, content string) (Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.messages[messageID]
	if !ok {
		return Message{}, ErrNotFound
	}
	m.Content = content
	m.IsEdited = true
	s.messages[messageID] = m
	return m, nil
}

func (s *MemoryStore) DeleteMessage(_ context.Context, messageID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.messages[messageID]; !ok {
		return ErrNotFound
	}
	delete(s.messages, messageID)
	return nil
}

func (s *MemoryStore) CreateCall(_ context.Context, c Call) (Call, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextCallID++
	c.ID = s.nextCallID
	c.StartedAt = time.Now().UTC()
	if c.Status == "" {
		c.Status = CallInitiated
	}
	s.calls[c.ID] = c
	return c, nil
}

func (s *MemoryStore) GetCall(_ context.Context, callID int64) (Call, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.calls[callID]
	if !ok {
		return Call{}, ErrNotFound
	}
	return c, nil
}

func (s *MemoryStore) UpdateCallStatus(_ context.Context, callID int64, status string) (Call, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.calls[callID]
	if !ok {
		return Call{}, ErrNotFound
	}
	now := time.Now().UTC()
	c.Status = status
	switch status {
	case CallAccepted:
		c.AnsweredAt = &now
	case CallCompleted, CallDeclined, CallMissed:
		c.EndedAt = &now
	}
	s.calls[callID] = c
	return c, nil
}

func (s *MemoryStore) Ping(context.Context) error { return nil }

func (s *MemoryStore) Close(context.Context) error { return nil }
