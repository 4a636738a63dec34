// Package store defines the persistence collaborators consumed by the
// realtime core and HTTP handlers, together with a MongoDB implementation and
// an in-memory implementation used in development and tests.
//
// The realtime registry never reads relationship state itself; callers perform
// authorization against this package before invoking registry operations.
package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a looked-up record does not exist.
var ErrNotFound = errors.New("store: record not found")

// Call status values, mirrored on the wire.
const (
	CallInitiated = "initiated"
	CallAccepted  = "accepted"
	CallDeclined  = "declined"
	CallMissed    = "missed"
	CallCompleted = "completed"
)

// Message is a persisted chat message. Exactly one of ReceiverID and GroupID
// is set: direct messages carry a receiver, group messages carry a group.
type Message struct {
	ID            int64     `json:"id" bson:"_id"`
	SenderID      int64     `json:"sender_id" bson:"sender_id"`
	ReceiverID    int64     `json:"receiver_id,omitempty" bson:"receiver_id,omitempty"`
	GroupID       int64     `json:"group_id,omitempty" bson:"group_id,omitempty"`
	Content       string    `json:"content" bson:"content"`
	CreatedAt     time.Time `json:"created_at" bson:"created_at"`
	IsEdited      bool      `json:"is_edited,omitempty" bson:"is_edited,omitempty"`
	ReplyToID     int64     `json:"reply_to_id,omitempty" bson:"reply_to_id,omitempty"`
	HasAttachment bool      `json:"has_attachment,omitempty" bson:"has_attachment,omitempty"`
	FileURL       string    `json:"file_url,omitempty" bson:"file_url,omitempty"`
	FileType      string    `json:"file_type,omitempty" bson:"file_type,omitempty"`
	FileName      string    `json:"file_name,omitempty" bson:"file_name,omitempty"`
	FileSize      int64     `json:"file_size,omitempty" bson:"file_size,omitempty"`
}

// Call is a persisted voice/video call record.
type Call struct {
	ID         int64      `json:"id" bson:"_id"`
	CallerID   int64      `json:"caller_id" bson:"caller_id"`
	ReceiverID int64      `json:"receiver_id" bson:"receiver_id"`
	Status     string     `json:"status" bson:"status"`
	StartedAt  time.Time  `json:"started_at" bson:"started_at"`
	AnsweredAt *time.Time `json:"answered_at,omitempty" bson:"answered_at,omitempty"`
	EndedAt    *time.Time `json:"ended_at,omitempty" bson:"ended_at,omitempty"`
}

// Store is the full collaborator surface needed by the server. All methods are
// safe for concurrent use.
type Store interface {
	UserExists(ctx context.Context, userID int64) (bool, error)
	TouchLastSeen(ctx context.Context, userID int64) error

	GroupExists(ctx context.Context, groupID int64) (bool, error)
	IsGroupMember(ctx context.Context, groupID, userID int64) (bool, error)

	// CreateMessage assigns the id and creation time and returns the stored
	// record.
	CreateMessage(ctx context.Context, m Message) (Message, error)
	GetMessage(ctx context.Context, messageID int64) (Message, error)
	UpdateMessageContent(ctx context.Context, messageID int64, content string) (Message, error)
	DeleteMessage(ctx context.Context, messageID int64) error

	CreateCall(ctx context.Context, c Call) (Call, error)
	GetCall(ctx context.Context, callID int64) (Call, error)
	UpdateCallStatus(ctx context.Context, callID int64, status string) (Call, error)

	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}
