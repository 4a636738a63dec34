package registry

import "encoding/json"

// FrameKind enumerates the inbound client commands. The zero value is
// FrameUnknown so undecodable or unrecognized input routes to the ignore path,
// which keeps old servers tolerant of newer clients.
type FrameKind int

const (
	FrameUnknown FrameKind = iota
	FrameSubscribe
	FrameUnsubscribe
	FrameTyping
	FrameJoinGroup
	FrameLeaveGroup
	FrameGroupMessage
	FrameGroupTyping
	FramePing
)

// Frame is an inbound client command, decoded exactly once at the transport
// boundary. Only the fields relevant to Kind carry meaning.
type Frame struct {
	Kind     FrameKind
	TargetID int64  // subscribe, unsubscribe
	ToUserID int64  // typing
	GroupID  int64  // join_group, leave_group, group_message, group_typing
	IsTyping bool   // typing, group_typing
	Content  string // group_message
}

// wireFrame is the superset of fields a client frame may carry.
type wireFrame struct {
	Type     string `json:"type"`
	UserID   int64  `json:"user_id"`
	ToUserID int64  `json:"to_user_id"`
	GroupID  int64  `json:"group_id"`
	IsTyping bool   `json:"is_typing"`
	Content  string `json:"content"`
}

// DecodeFrame parses a raw client frame. Malformed JSON and unknown type
// values both yield FrameUnknown; neither is an error at this layer.
func DecodeFrame(raw []byte) Frame {
	var w wireFrame
	if err := json.Unmarshal(raw, &w); err != nil {
		return Frame{}
	}

	switch w.Type {
	case "subscribe":
		return Frame{Kind: FrameSubscribe, TargetID: w.UserID}
	case "unsubscribe":
		return Frame{Kind: FrameUnsubscribe, TargetID: w.UserID}
	case "typing":
		return Frame{Kind: FrameTyping, ToUserID: w.ToUserID, IsTyping: w.IsTyping}
	case "join_group":
		return Frame{Kind: FrameJoinGroup, GroupID: w.GroupID}
	case "leave_group":
		return Frame{Kind: FrameLeaveGroup, GroupID: w.GroupID}
	case "group_message":
		return Frame{Kind: FrameGroupMessage, GroupID: w.GroupID, Content: w.Content}
	case "group_typing":
		return Frame{Kind: FrameGroupTyping, GroupID: w.GroupID, IsTyping: w.IsTyping}
	case "ping":
		return Frame{Kind: FramePing}
	default:
		return Frame{}
	}
}
