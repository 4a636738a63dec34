// Package registry implements the presence and fan-out core of the ChatWave
// backend: it tracks which users hold a live connection, who subscribes to
// whose presence, and which users occupy each group's live room, and it
// routes events to the right channels.
//
// The three tables are mutated only through Registry methods. Delivery is
// best-effort and at-most-once: events for users without a live session are
// dropped, and a send that fails is never retried. Table locks are held only
// for in-memory mutation, never across a channel write.
package registry

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/CyberAshu/Chatwave-backend/internal/store"
)

// Persister is the slice of the persistence collaborator the dispatcher
// needs: storing group messages sent over the socket and refreshing last-seen
// on heartbeats. Authorization stays with the caller; the registry never
// queries relationship state.
type Persister interface {
	CreateMessage(ctx context.Context, m store.Message) (store.Message, error)
	TouchLastSeen(ctx context.Context, userID int64) error
}

// Registry is the event dispatcher over the session, subscription, and room
// tables. Construct it with New and share the one instance across handlers;
// there is no package-level singleton.
type Registry struct {
	sessions *sessionTable
	subs     *subscriptionTable
	rooms    *roomTable
	persist  Persister
	log      *slog.Logger
}

// New returns a ready Registry. persist may not be nil; log may be nil, in
// which case the default logger is used.
func New(persist Persister, log *slog.Logger) *Registry {
	if log == nil {
		log = slog.Default()
	}
	return &Registry{
		sessions: newSessionTable(),
		subs:     newSubscriptionTable(),
		rooms:    newRoomTable(),
		persist:  persist,
		log:      log,
	}
}

// IsConnected reports whether userID currently holds a live session.
func (r *Registry) IsConnected(userID int64) bool {
	return r.sessions.connected(userID)
}

// SessionCount returns the number of live sessions.
func (r *Registry) SessionCount() int {
	return r.sessions.count()
}

// NotifyUser serializes payload and writes it to userID's channel. It is a
// silent no-op when the user has no live session; a failed write is logged
// and dropped, the transport layer owns the teardown that follows.
func (r *Registry) NotifyUser(userID int64, payload any) {
	ch, ok := r.sessions.channel(userID)
	if !ok {
		return
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		r.log.Error("encoding event payload", "user_id", userID, "error", err)
		return
	}

	if err := ch.Send(raw); err != nil {
		r.log.Debug("dropping event for stalled session", "user_id", userID, "error", err)
	}
}

// BroadcastPresence tells every subscriber of subjectID that the subject went
// online or offline.
func (r *Registry) BroadcastPresence(subjectID int64, isOnline bool) {
	payload := statusUpdate{Type: "status_update", UserID: subjectID, IsOnline: isOnline}
	for _, subscriberID := range r.subs.subscribersOf(subjectID) {
		r.NotifyUser(subscriberID, payload)
	}
}

// BroadcastToGroup delivers payload to every user in the group's live room.
// Pass exclude > 0 to skip one member, typically the originator.
func (r *Registry) BroadcastToGroup(groupID int64, payload any, exclude int64) {
	for _, memberID := range r.rooms.membersOf(groupID) {
		if exclude > 0 && memberID == exclude {
			continue
		}
		r.NotifyUser(memberID, payload)
	}
}

// Subscribe adds a presence subscription edge. Self-subscription is permitted
// and harmless.
func (r *Registry) Subscribe(subscriberID, targetID int64) {
	r.subs.subscribe(subscriberID, targetID)
}

// Unsubscribe removes a presence subscription edge if present.
func (r *Registry) Unsubscribe(subscriberID, targetID int64) {
	r.subs.unsubscribe(subscriberID, targetID)
}

// HandleConnect attaches the session for userID and broadcasts that the user
// is online. It returns the channel the new session replaced, or nil; the
// registry never closes a replaced channel itself, the caller decides.
func (r *Registry) HandleConnect(userID int64, ch Channel) Channel {
	prev := r.sessions.attach(userID, ch)
	if prev != nil {
		r.log.Info("session replaced", "user_id", userID)
	} else {
		r.log.Info("session attached", "user_id", userID)
	}
	r.BroadcastPresence(userID, true)
	return prev
}

// HandleDisconnect tears down the session for userID regardless of which
// channel backs it: admin-forced disconnects use this path. Calling it for a
// user with no session is a no-op, so racing teardown paths never
// double-broadcast.
func (r *Registry) HandleDisconnect(userID int64) {
	r.finishDisconnect(userID, r.sessions.detach(userID))
}

// SessionClosed is the transport teardown path. The session is torn down only
// while ch still backs it, so a connection that was replaced cleans up after
// itself without evicting its successor.
func (r *Registry) SessionClosed(userID int64, ch Channel) {
	r.finishDisconnect(userID, r.sessions.detachIf(userID, ch))
}

func (r *Registry) finishDisconnect(userID int64, detached bool) {
	if !detached {
		return
	}

	r.subs.clearSubscriber(userID)

	for _, groupID := range r.rooms.removeEverywhere(userID) {
		r.BroadcastToGroup(groupID, groupMembership{
			Type:    "group_leave",
			UserID:  userID,
			GroupID: groupID,
		}, userID)
	}

	r.BroadcastPresence(userID, false)
	r.log.Info("session detached", "user_id", userID)
}

// JoinGroup adds userID to the group's live room and announces the join to
// the other occupants. Joining a room the user already occupies is a no-op.
// Persisted membership must have been verified by the caller.
func (r *Registry) JoinGroup(userID, groupID int64) {
	if !r.rooms.join(groupID, userID) {
		return
	}
	r.BroadcastToGroup(groupID, groupMembership{
		Type:    "group_join",
		UserID:  userID,
		GroupID: groupID,
	}, userID)
}

// LeaveGroup removes userID from the group's live room and announces the
// leave. Leaving a room the user does not occupy is a no-op.
func (r *Registry) LeaveGroup(userID, groupID int64) {
	if !r.rooms.leave(groupID, userID) {
		return
	}
	r.BroadcastToGroup(groupID, groupMembership{
		Type:    "group_leave",
		UserID:  userID,
		GroupID: groupID,
	}, userID)
}

// GroupMessage persists a message sent to a group over the socket and fans it
// out to the rest of the room. The sender is excluded; their own client
// already rendered the message optimistically.
func (r *Registry) GroupMessage(ctx context.Context, senderID, groupID int64, content string) error {
	m, err := r.persist.CreateMessage(ctx, store.Message{
		SenderID: senderID,
		GroupID:  groupID,
		Content:  content,
	})
	if err != nil {
		return err
	}
	r.BroadcastToGroup(groupID, NewGroupMessageEvent(m), senderID)
	return nil
}

// GroupTyping fans a typing indicator out to the room, excluding the sender.
func (r *Registry) GroupTyping(senderID, groupID int64, isTyping bool) {
	r.BroadcastToGroup(groupID, groupTyping{
		Type:     "group_typing",
		UserID:   senderID,
		GroupID:  groupID,
		IsTyping: isTyping,
	}, senderID)
}

// Dispatch executes one already-authorized inbound frame for userID. Group
// join authorization happens at the transport boundary before the frame gets
// here. Unknown frames are ignored.
func (r *Registry) Dispatch(ctx context.Context, userID int64, f Frame) {
	switch f.Kind {
	case FrameSubscribe:
		if f.TargetID > 0 {
			r.Subscribe(userID, f.TargetID)
		}

	case FrameUnsubscribe:
		if f.TargetID > 0 {
			r.Unsubscribe(userID, f.TargetID)
		}

	case FrameTyping:
		if f.ToUserID > 0 {
			r.NotifyUser(f.ToUserID, typingIndicator{
				Type:     "typing_indicator",
				UserID:   userID,
				IsTyping: f.IsTyping,
			})
		}

	case FrameJoinGroup:
		if f.GroupID > 0 {
			r.JoinGroup(userID, f.GroupID)
		}

	case FrameLeaveGroup:
		if f.GroupID > 0 {
			r.LeaveGroup(userID, f.GroupID)
		}

	case FrameGroupMessage:
		if f.GroupID > 0 && f.Content != "" {
			if err := r.GroupMessage(ctx, userID, f.GroupID, f.Content); err != nil {
				r.log.Error("persisting group message", "user_id", userID, "group_id", f.GroupID, "error", err)
			}
		}

	case FrameGroupTyping:
		if f.GroupID > 0 {
			r.GroupTyping(userID, f.GroupID, f.IsTyping)
		}

	case FramePing:
		r.NotifyUser(userID, pong{Type: "pong"})
		if err := r.persist.TouchLastSeen(ctx, userID); err != nil {
			r.log.Debug("refreshing last seen", "user_id", userID, "error", err)
		}

	default:
		// Unrecognized frames are dropped to tolerate protocol evolution.
	}
}

// Shutdown force-detaches every session and closes its channel. Tables are
// cleared without presence or leave broadcasts; the process is going away and
// there is nobody left to tell.
func (r *Registry) Shutdown() {
	drained := r.sessions.drain()
	for userID, ch := range drained {
		r.subs.clearSubscriber(userID)
		r.rooms.removeEverywhere(userID)
		if err := ch.Close(); err != nil {
			r.log.Debug("closing channel during shutdown", "user_id", userID, "error", err)
		}
	}
	r.log.Info("registry shut down", "sessions_closed", len(drained))
}
