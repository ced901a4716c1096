package domain

import (
	"time"

	"github.com/google/uuid"
)

// DeletedSentinel replaces the content of a deleted message. The row is
// kept so other participants' threads keep their ordering intact.
const DeletedSentinel = "[message deleted]"

type Attachment struct {
	URL      string `json:"url"`
	MimeType string `json:"mimeType,omitempty"`
	Name     string `json:"name,omitempty"`
}

// Message is immutable once created, except for the sender-only edit and
// delete operations.
type Message struct {
	ID             uuid.UUID
	ConversationID uuid.UUID
	SenderID       string
	Content        string
	Attachments    []Attachment
	CreatedAt      time.Time
	EditedAt       *time.Time
	Deleted        bool
}

// MarkDeleted blanks the content in place, leaving the row visible.
func (m *Message) MarkDeleted(at time.Time) {
	m.Content = DeletedSentinel
	m.Attachments = nil
	m.Deleted = true
	m.EditedAt = &at
}
