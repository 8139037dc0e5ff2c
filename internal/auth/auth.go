package auth

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// CookieName is the cookie carrying the signed access token, shared by
// the websocket handshake and the HTTP chat surface.
const CookieName = "accessToken"

var (
	ErrNoCredential      = errors.New("no access token provided")
	ErrInvalidCredential = errors.New("invalid access token")
)

// Role is the closed set of account roles.
type Role string

const (
	RoleUser       Role = "USER"
	RoleSuperAdmin Role = "SUPER_ADMIN"
)

// Valid reports whether the role is one of the known variants.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleSuperAdmin:
		return true
	}
	return false
}

// Identity is the verified account attached to a connection or request.
// Immutable for the lifetime of the connection it was derived for.
type Identity struct {
	UserID string
	Email  string
	Role   Role
}

// Claims is the JWT payload issued by the auth service.
type Claims struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// TokenVerifier verifies and signs HMAC access tokens.
type TokenVerifier struct {
	secret []byte
}

// NewTokenVerifier builds a verifier around the shared signing secret.
func NewTokenVerifier(secret string) *TokenVerifier {
	return &TokenVerifier{secret: []byte(secret)}
}

// Verify checks signature and expiry and returns the embedded identity.
func (v *TokenVerifier) Verify(tokenStr string) (Identity, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return v.secret, nil
	})
	if err != nil {
		return Identity{}, ErrInvalidCredential
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.UserID == "" {
		return Identity{}, ErrInvalidCredential
	}
	role := Role(claims.Role)
	if !role.Valid() {
		return Identity{}, ErrInvalidCredential
	}

	return Identity{UserID: claims.UserID, Email: claims.Email, Role: role}, nil
}

// Sign issues a token for the identity. Used by tests and local tooling;
// production tokens come from the auth service with the same secret.
func (v *TokenVerifier) Sign(ident Identity, ttl time.Duration) (string, error) {
	claims := Claims{
		UserID: ident.UserID,
		Email:  ident.Email,
		Role:   string(ident.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(v.secret)
}

// FromRequest resolves the identity from the access-token cookie, falling
// back to a bearer Authorization header.
func (v *TokenVerifier) FromRequest(r *http.Request) (Identity, error) {
	if cookie, err := r.Cookie(CookieName); err == nil && cookie.Value != "" {
		return v.Verify(cookie.Value)
	}

	header := r.Header.Get("Authorization")
	if header == "" {
		return Identity{}, ErrNoCredential
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return Identity{}, ErrNoCredential
	}
	return v.Verify(parts[1])
}
