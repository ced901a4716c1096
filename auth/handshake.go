package auth

import (
	"net/http"
	"strings"
)

// Handshake credential sources, in order of preference:
//  1. the explicit `auth_token` field of the handshake payload,
//  2. the Authorization header (Bearer scheme),
//  3. the `token` query parameter.
//
// The first non-empty source wins; an empty result means the connection
// is unauthenticated and must be terminated.
func CredentialFromHandshake(r *http.Request) string {
	if tok := r.URL.Query().Get("auth_token"); tok != "" {
		return tok
	}
	if header := r.Header.Get("Authorization"); header != "" {
		if tok, ok := strings.CutPrefix(header, "Bearer "); ok {
			return strings.TrimSpace(tok)
		}
	}
	return r.URL.Query().Get("token")
}
