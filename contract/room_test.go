package contract

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRoomKey_Namespaces(t *testing.T) {
	req := require.New(t)

	conv := ConversationRoom("42")
	group := GroupRoom("42")
	user := UserRoom("42")

	// Same id, three distinct rooms.
	req.NotEqual(conv, group)
	req.NotEqual(conv, user)

	req.True(conv.IsConversation())
	req.False(conv.IsGroup())
	req.True(group.IsGroup())
	req.True(user.IsUser())
	req.False(user.IsConversation())

	req.Equal("42", conv.ID())
	req.Equal("42", group.ID())
	req.Equal("42", user.ID())
}
