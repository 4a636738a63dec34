package registry

import "sync"

// subscriptionTable stores directed presence-subscription edges
// (subscriber -> target). Both directions are indexed so that presence
// broadcasts and disconnect cleanup each stay proportional to the edges
// actually touched.
type subscriptionTable struct {
	mu       sync.RWMutex
	bySub    map[int64]map[int64]struct{}
	byTarget map[int64]map[int64]struct{}
}

func newSubscriptionTable() *subscriptionTable {
	return &subscriptionTable{
		bySub:    make(map[int64]map[int64]struct{}),
		byTarget: make(map[int64]map[int64]struct{}),
	}
}

// subscribe adds the edge subscriberID -> targetID. Adding twice is a no-op.
func (t *subscriptionTable) subscribe(subscriberID, targetID int64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	targets, ok := t.bySub[subscriberID]
	if !ok {
		targets = make(map[int64]struct{})
		t.bySub[subscriberID] = targets
	}
	targets[targetID] = struct{}{}

	subs, ok := t.byTarget[targetID]
	if !ok {
		subs = make(map[int64]struct{})
		t.byTarget[targetID] = subs
	}
	subs[subscriberID] = struct{}{}
}

// unsubscribe removes the edge if present.
func (t *subscriptionTable) unsubscribe(subscriberID, targetID int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.removeEdge(subscriberID, targetID)
}

// clearSubscriber removes every outgoing edge held by subscriberID. Incoming
// edges pointing at the user are left alone so the offline presence broadcast
// still reaches the users watching them.
func (t *subscriptionTable) clearSubscriber(subscriberID int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for targetID := range t.bySub[subscriberID] {
		t.removeEdge(subscriberID, targetID)
	}
}

// removeEdge must be called with the lock held.
func (t *subscriptionTable) removeEdge(subscriberID, targetID int64) {
	if targets, ok := t.bySub[subscriberID]; ok {
		delete(targets, targetID)
		if len(targets) == 0 {
			delete(t.bySub, subscriberID)
		}
	}
	if subs, ok := t.byTarget[targetID]; ok {
		delete(subs, subscriberID)
		if len(subs) == 0 {
			delete(t.byTarget, targetID)
		}
	}
}

// subscribersOf returns a snapshot of the user ids subscribed to targetID.
func (t *subscriptionTable) subscribersOf(targetID int64) []int64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	subs := t.byTarget[targetID]
	out := make([]int64, 0, len(subs))
	for id := range subs {
		out = append(out, id)
	}
	return out
}
