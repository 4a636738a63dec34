package registry

import "sync"

// roomTable tracks which user ids are attached to each group's live room.
// Room membership is independent of persisted group membership; it follows
// connection lifetime. A reverse index keeps disconnect cleanup proportional
// to the rooms the user actually occupies.
type roomTable struct {
	mu       sync.RWMutex
	byGroup  map[int64]map[int64]struct{}
	byMember map[int64]map[int64]struct{}
}

func newRoomTable() *roomTable {
	return &roomTable{
		byGroup:  make(map[int64]map[int64]struct{}),
		byMember: make(map[int64]map[int64]struct{}),
	}
}

// join adds userID to the room for groupID and reports whether this was a new
// addition.
func (t *roomTable) join(groupID, userID int64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	members, ok := t.byGroup[groupID]
	if !ok {
		members = make(map[int64]struct{})
		t.byGroup[groupID] = members
	}
	if _, present := members[userID]; present {
		return false
	}
	members[userID] = struct{}{}

	rooms, ok := t.byMember[userID]
	if !ok {
		rooms = make(map[int64]struct{})
		t.byMember[userID] = rooms
	}
	rooms[groupID] = struct{}{}
	return true
}

// leave removes userID from the room and reports whether it was present.
func (t *roomTable) leave(groupID, userID int64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	members, ok := t.byGroup[groupID]
	if !ok {
		return false
	}
	if _, present := members[userID]; !present {
		return false
	}
	t.removeMembership(groupID, userID)
	return true
}

// removeEverywhere removes userID from every room it occupies and returns the
// affected group ids.
func (t *roomTable) removeEverywhere(userID int64) []int64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	rooms := t.byMember[userID]
	affected := make([]int64, 0, len(rooms))
	for groupID := range rooms {
		affected = append(affected, groupID)
	}
	for _, groupID := range affected {
		t.removeMembership(groupID, userID)
	}
	return affected
}

// removeMembership must be called with the lock held.
func (t *roomTable) removeMembership(groupID, userID int64) {
	if members, ok := t.byGroup[groupID]; ok {
		delete(members, userID)
		if len(members) == 0 {
			delete(t.byGroup, groupID)
		}
	}
	if rooms, ok := t.byMember[userID]; ok {
		delete(rooms, groupID)
		if len(rooms) == 0 {
			delete(t.byMember, userID)
		}
	}
}

// membersOf returns a snapshot of the user ids in the room for groupID.
func (t *roomTable) membersOf(groupID int64) []int64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	members := t.byGroup[groupID]
	out := make([]int64, 0, len(members))
	for id := range members {
		out = append(out, id)
	}
	return out
}
