package services

import (
	"time"

	"github.com/google/uuid"

	"wavelink/domain"
)

// UserView is the flattened sender block inlined into message views, so
// clients never receive foreign-key-only rows.
type UserView struct {
	ID        string `json:"id"`
	Name      string `json:"name,omitempty"`
	AvatarURL string `json:"avatarUrl,omitempty"`
}

type MessageView struct {
	ID             uuid.UUID           `json:"id"`
	ConversationID uuid.UUID           `json:"conversationId"`
	Sender         UserView            `json:"sender"`
	Content        string              `json:"content"`
	Attachments    []domain.Attachment `json:"attachments,omitempty"`
	CreatedAt      time.Time           `json:"createdAt"`
	EditedAt       *time.Time          `json:"editedAt,omitempty"`
	Deleted        bool                `json:"deleted,omitempty"`
}

// ConversationSummary is one row of the conversation list: the thread,
// its last message preview and the caller's unread count.
type ConversationSummary struct {
	ID          uuid.UUID    `json:"id"`
	IsGroup     bool         `json:"isGroup"`
	Title       string       `json:"title,omitempty"`
	LastMessage *MessageView `json:"lastMessage,omitempty"`
	UnreadCount int          `json:"unreadCount"`
	LastReadAt  time.Time    `json:"lastReadAt"`
}

type NotificationView struct {
	ID        uuid.UUID        `json:"id"`
	Kind      domain.EventKind `json:"type"`
	EntityID  string           `json:"entityId,omitempty"`
	Count     int              `json:"count"`
	ActorIDs  []string         `json:"actorIds"`
	Seen      bool             `json:"seen"`
	CreatedAt time.Time        `json:"createdAt"`
}

func toNotificationView(n domain.Notification) NotificationView {
	return NotificationView{
		ID:        n.ID,
		Kind:      n.Kind,
		EntityID:  n.EntityID,
		Count:     n.Count,
		ActorIDs:  n.ActorIDs,
		Seen:      n.Seen,
		CreatedAt: n.CreatedAt,
	}
}
