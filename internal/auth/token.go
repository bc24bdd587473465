package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type Role string

const (
	RoleOwner Role = "OWNER"
	RoleVet   Role = "VET"
	RoleAdmin Role = "ADMIN"
)

var ErrInvalidToken = errors.New("invalid or expired token")

// Identity is the resolved caller of an authenticated request.
type Identity struct {
	ID    uuid.UUID
	Role  Role
	Email string
}

func (i Identity) IsAdmin() bool {
	return i.Role == RoleAdmin
}

type claims struct {
	Role  string `json:"role"`
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// ParseToken verifies an HMAC-signed bearer token and extracts the identity.
// The token subject carries the user id.
func ParseToken(secret, tokenString string) (Identity, error) {
	var c claims
	token, err := jwt.ParseWithClaims(tokenString, &c, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return Identity{}, ErrInvalidToken
	}

	id, err := uuid.Parse(c.Subject)
	if err != nil {
		return Identity{}, ErrInvalidToken
	}

	role := Role(c.Role)
	switch role {
	case RoleOwner, RoleVet, RoleAdmin:
	default:
		return Identity{}, ErrInvalidToken
	}

	return Identity{ID: id, Role: role, Email: c.Email}, nil
}

// SignToken issues a token for the given identity. Used by the seed tool and
// in tests; production tokens come from the external identity service, which
// shares the same secret and claim shape.
func SignToken(secret string, ident Identity, ttl time.Duration) (string, error) {
	now := time.Now()
	c := claims{
		Role:  string(ident.Role),
		Email: ident.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   ident.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	return token.SignedString([]byte(secret))
}
