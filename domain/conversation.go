// Package domain contains core concepts of the realtime core.
// No runtime, network, or storage logic should be added here.
package domain

import (
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Conversation is a direct (1:1) or group message thread.
// Direct conversations carry a DirectKey so that at most one thread
// exists per unordered pair of users. Conversations are never deleted.
type Conversation struct {
	ID        uuid.UUID
	IsGroup   bool
	Title     string
	DirectKey string
	CreatedAt time.Time
}

// Participant is a membership row. LastReadAt only moves forward and is
// mutated exclusively by the read-receipt operation.
type Participant struct {
	ConversationID uuid.UUID
	UserID         string
	JoinedAt       time.Time
	LastReadAt     time.Time
}

// DirectKey derives the dedup key for a 1:1 conversation: both user ids
// sorted and joined, so (a,b) and (b,a) resolve to the same thread.
func DirectKey(a, b string) string {
	pair := []string{a, b}
	sort.Strings(pair)
	return strings.Join(pair, "|")
}

func NewDirectConversation(a, b string, at time.Time) Conversation {
	return Conversation{
		ID:        uuid.New(),
		DirectKey: DirectKey(a, b),
		CreatedAt: at,
	}
}

func NewGroupConversation(title string, at time.Time) Conversation {
	return Conversation{
		ID:        uuid.New(),
		IsGroup:   true,
		Title:     title,
		CreatedAt: at,
	}
}
