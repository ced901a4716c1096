package ws

import (
	"encoding/json"
	"time"

	"wavelink/domain"
)

// Envelope is the wire frame in both directions: an event name and its
// JSON payload. Unknown events are rejected before any business logic.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

const (
	EventJoin        = "join"
	EventLeave       = "leave"
	EventMessage     = "message"
	EventMessageSent = "message:sent"
	EventTyping      = "typing"
	EventRead        = "read"
	EventJoined      = "joined"
	EventLeft        = "left"
	EventError       = "error"
)

type JoinPayload struct {
	RoomID string `json:"roomId" validate:"required,uuid4"`
}

type LeavePayload struct {
	RoomID string `json:"roomId" validate:"required,uuid4"`
}

// MessagePayload carries one outbound message. Exactly one of
// ConversationID and RecipientID targets it; TempID is echoed back in
// the ack so optimistic UIs can reconcile.
type MessagePayload struct {
	ConversationID *string             `json:"conversationId,omitempty" validate:"omitempty,uuid4"`
	RecipientID    *string             `json:"recipientId,omitempty" validate:"omitempty,min=1,max=64"`
	Content        string              `json:"content" validate:"required,min=1,max=4000"`
	Attachments    []domain.Attachment `json:"attachments,omitempty" validate:"omitempty,max=10,dive"`
	TempID         string              `json:"tempId,omitempty" validate:"omitempty,max=64"`
}

type TypingPayload struct {
	RoomID string `json:"roomId" validate:"required,uuid4"`
	Typing bool   `json:"typing"`
}

type ReadPayload struct {
	RoomID     string     `json:"roomId" validate:"required,uuid4"`
	LastReadAt *time.Time `json:"lastReadAt,omitempty"`
}

type RoomAck struct {
	RoomID string `json:"roomId"`
}

type MessageAck struct {
	TempID         string `json:"tempId,omitempty"`
	ID             string `json:"id"`
	ConversationID string `json:"conversationId"`
}

type TypingEvent struct {
	RoomID string `json:"roomId"`
	UserID string `json:"userId"`
	Typing bool   `json:"typing"`
}

type ReadEvent struct {
	RoomID     string    `json:"roomId"`
	UserID     string    `json:"userId"`
	LastReadAt time.Time `json:"lastReadAt"`
}

// ErrorFrame carries a stable code and a human-readable message. Raw
// error text from the services never crosses the socket.
type ErrorFrame struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
