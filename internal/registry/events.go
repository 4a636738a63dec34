package registry

import "github.com/CyberAshu/Chatwave-backend/internal/store"

// Outbound event payloads. Each serializes to a JSON object whose "type"
// field identifies the event for the client.

type statusUpdate struct {
	Type     string `json:"type"`
	UserID   int64  `json:"user_id"`
	IsOnline bool   `json:"is_online"`
}

type typingIndicator struct {
	Type     string `json:"type"`
	UserID   int64  `json:"user_id"`
	IsTyping bool   `json:"is_typing"`
}

type groupMembership struct {
	Type    string `json:"type"`
	UserID  int64  `json:"user_id"`
	GroupID int64  `json:"group_id"`
}

type groupTyping struct {
	Type     string `json:"type"`
	UserID   int64  `json:"user_id"`
	GroupID  int64  `json:"group_id"`
	IsTyping bool   `json:"is_typing"`
}

type pong struct {
	Type string `json:"type"`
}

type messageEvent struct {
	Type    string        `json:"type"`
	Message store.Message `json:"message"`
}

type messageDeleted struct {
	Type      string `json:"type"`
	MessageID int64  `json:"message_id"`
	GroupID   int64  `json:"group_id,omitempty"`
}

type callSummary struct {
	ID         int64  `json:"id"`
	CallerID   int64  `json:"caller_id,omitempty"`
	CallerName string `json:"caller_name,omitempty"`
	StartedAt  string `json:"started_at,omitempty"`
	Status     string `json:"status,omitempty"`
}

type callEvent struct {
	Type string      `json:"type"`
	Call callSummary `json:"call"`
}

// NewMessageEvent is the payload pushed to a receiver when a direct message is
// created.
func NewMessageEvent(m store.Message) any {
	return messageEvent{Type: "new_message", Message: m}
}

// NewFileMessageEvent is the payload for a direct message carrying a file
// attachment.
func NewFileMessageEvent(m store.Message) any {
	return messageEvent{Type: "new_file_message", Message: m}
}

// NewGroupMessageEvent is the payload broadcast to a room when a group
// message is created.
func NewGroupMessageEvent(m store.Message) any {
	return messageEvent{Type: "new_group_message", Message: m}
}

// MessageUpdatedEvent is the payload pushed when a message's content changes.
func MessageUpdatedEvent(m store.Message) any {
	return messageEvent{Type: "message_updated", Message: m}
}

// MessageDeletedEvent is the payload pushed when a message is removed.
// groupID is zero for direct messages.
func MessageDeletedEvent(messageID, groupID int64) any {
	return messageDeleted{Type: "message_deleted", MessageID: messageID, GroupID: groupID}
}

// IncomingCallEvent is the payload pushed to a call receiver.
func IncomingCallEvent(c store.Call, callerName string) any {
	return callEvent{
		Type: "incoming_call",
		Call: callSummary{
			ID:         c.ID,
			CallerID:   c.CallerID,
			CallerName: callerName,
			StartedAt:  c.StartedAt.Format("2006-01-02T15:04:05Z07:00"),
		},
	}
}

// CallStatusEvent is the payload pushed to the other party when a call's
// status changes.
func CallStatusEvent(c store.Call) any {
	return callEvent{
		Type: "call_status_updated",
		Call: callSummary{ID: c.ID, Status: c.Status},
	}
}
