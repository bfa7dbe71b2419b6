package identity

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var ErrInvalidToken = errors.New("invalid identity token")

// Resolver maps a caller-supplied bearer token to a user id. Callers
// without a token get a generated anonymous identity; a token that is
// present but does not verify is rejected.
type Resolver struct {
	secret []byte
}

func NewResolver(secret string) *Resolver {
	return &Resolver{secret: []byte(secret)}
}

func (r *Resolver) Resolve(token string) (string, error) {
	if token == "" {
		return "anon-" + uuid.NewString(), nil
	}

	parsed, err := jwt.ParseWithClaims(token, jwt.MapClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return r.secret, nil
	})
	if err != nil || !parsed.Valid {
		return "", ErrInvalidToken
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return "", ErrInvalidToken
	}
	userID, ok := claims["member_id"].(string)
	if !ok || userID == "" {
		return "", ErrInvalidToken
	}

	return userID, nil
}

// Issue signs a token for userID. The engine itself only verifies tokens;
// issuing lives here so tests and tooling share one implementation.
func (r *Resolver) Issue(userID string) (string, error) {
	claims := jwt.MapClaims{
		"member_id": userID,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	return token.SignedString(r.secret)
}
