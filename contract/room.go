package contract

import "strings"

// RoomKey is a namespaced broadcast target. Direct conversations, group
// threads and personal notification channels live in separate namespaces
// so the transports never collide on an id.
type RoomKey string

const (
	conversationPrefix = "conv:"
	groupPrefix        = "group:"
	userPrefix         = "user:"
)

func ConversationRoom(id string) RoomKey { return RoomKey(conversationPrefix + id) }
func GroupRoom(id string) RoomKey        { return RoomKey(groupPrefix + id) }
func UserRoom(userID string) RoomKey     { return RoomKey(userPrefix + userID) }

func (r RoomKey) IsConversation() bool { return strings.HasPrefix(string(r), conversationPrefix) }
func (r RoomKey) IsGroup() bool        { return strings.HasPrefix(string(r), groupPrefix) }
func (r RoomKey) IsUser() bool         { return strings.HasPrefix(string(r), userPrefix) }

// ID strips the namespace prefix.
func (r RoomKey) ID() string {
	s := string(r)
	if i := strings.Index(s, ":"); i >= 0 {
		return s[i+1:]
	}
	return s
}
