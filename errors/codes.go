package errors

import "errors"

// Wire codes sent to clients inside `error {code, message}` frames.
// Clients key their behavior on the code: rate_limited triggers backoff,
// unauthenticated closes the session, everything else keeps it open.
const (
	CodeUnauthenticated = "unauthenticated"
	CodeForbidden       = "forbidden"
	CodeValidation      = "validation_failed"
	CodeRateLimited     = "rate_limited"
	CodeNotFound        = "not_found"
	CodeInternal        = "internal"
)

// WireCode maps a service error to the code delivered on the socket.
// Raw error text never reaches the client; the caller pairs the code
// with a stable human-readable message.
func WireCode(err error) string {
	switch {
	case errors.Is(err, ErrMissingCredential),
		errors.Is(err, ErrInvalidCredential),
		errors.Is(err, ErrExpiredCredential):
		return CodeUnauthenticated
	case errors.Is(err, ErrNotParticipant), errors.Is(err, ErrNotSender):
		return CodeForbidden
	case errors.Is(err, ErrInvalidPayload):
		return CodeValidation
	case errors.Is(err, ErrRateLimited):
		return CodeRateLimited
	case errors.Is(err, ErrConversationNotFound),
		errors.Is(err, ErrMessageNotFound),
		errors.Is(err, ErrNotificationNotFound),
		errors.Is(err, ErrUserNotFound):
		return CodeNotFound
	default:
		return CodeInternal
	}
}
