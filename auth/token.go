//go:generate go run go.uber.org/mock/mockgen -source=token.go -destination=../mocks/mock_auth.go -package=mocks
package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	apperrors "wavelink/errors"
)

// Claims is the identity attached to a connection after a successful
// handshake. Token issuance happens outside this core; we only verify.
type Claims struct {
	UserID string
	Email  string
}

type Verifier interface {
	Verify(token string) (Claims, error)
}

// tokenClaims mirrors the payload the identity service signs.
type tokenClaims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// JWTVerifier validates HS256 tokens against a shared secret.
type JWTVerifier struct {
	secret []byte
}

func NewJWTVerifier(secret string) *JWTVerifier {
	return &JWTVerifier{secret: []byte(secret)}
}

func (v *JWTVerifier) Verify(tokenString string) (Claims, error) {
	if tokenString == "" {
		return Claims{}, apperrors.ErrMissingCredential
	}

	token, err := jwt.ParseWithClaims(tokenString, &tokenClaims{}, func(token *jwt.Token) (interface{}, error) {
		return v.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Claims{}, apperrors.ErrExpiredCredential
		}
		return Claims{}, apperrors.ErrInvalidCredential
	}

	claims, ok := token.Claims.(*tokenClaims)
	if !ok || !token.Valid || claims.UserID == "" {
		return Claims{}, apperrors.ErrInvalidCredential
	}
	return Claims{UserID: claims.UserID, Email: claims.Email}, nil
}

// SignForTest issues a token the verifier accepts. Kept exported for
// tests and local tooling; production tokens come from the identity
// service.
func SignForTest(secret, userID, email string, ttl time.Duration) (string, error) {
	claims := &tokenClaims{
		UserID: userID,
		Email:  email,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}
