package errors

import "fmt"

var (
	ErrMissingCredential    = fmt.Errorf("missing credential")
	ErrInvalidCredential    = fmt.Errorf("invalid credential")
	ErrExpiredCredential    = fmt.Errorf("expired credential")
	ErrNotParticipant       = fmt.Errorf("user is not a participant of the conversation")
	ErrNotSender            = fmt.Errorf("only the original sender may modify a message")
	ErrConversationNotFound = fmt.Errorf("conversation not found")
	ErrMessageNotFound      = fmt.Errorf("message not found")
	ErrNotificationNotFound = fmt.Errorf("notification not found")
	ErrUserNotFound         = fmt.Errorf("user not found")
	ErrRateLimited          = fmt.Errorf("send rate limit exceeded")
	ErrInvalidPayload       = fmt.Errorf("invalid payload")
	ErrUnclassifiedEvent    = fmt.Errorf("event kind has no notification classification")
	ErrSlowConsumer         = fmt.Errorf("connection send buffer full")
	ErrWorkerPanic          = fmt.Errorf("worker panic")
)
