// Package auth provides session tokens, password hashing, and the OAuth
// provider edge for the launcher backend.
//
// SESSION MODEL:
// The desktop launcher logs in once and holds a signed JWT for 30 days —
// there is no browser session to refresh, so the token is long-lived and
// stateless. Everything the backend needs to authorize a call (internal ID,
// username, public ID) rides inside the signed token; no session table.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// sessionTTL is how long an issued session token stays valid.
// The launcher re-authenticates (or re-runs OAuth) after expiry.
const sessionTTL = 30 * 24 * time.Hour

const issuer = "projectxs"

// Session is the identity carried by a valid token: enough for any request
// boundary to trust who is calling without a database lookup.
type Session struct {
	UserID   string // internal ID (the token subject)
	Username string
	PublicID string
}

// sessionClaims is the JWT payload. The internal ID lives in the standard
// "sub" claim; username and the public ID are custom claims so the launcher
// can render the logged-in account without a follow-up request.
type sessionClaims struct {
	Username string `json:"username"`
	PublicID string `json:"userId"`
	jwt.RegisteredClaims
}

// TokenService signs and verifies session tokens with an HMAC secret.
// The same secret does both — keep it out of source control and rotate it
// if it ever leaks (rotating invalidates every outstanding session).
type TokenService struct {
	secret []byte
}

// NewTokenService creates a TokenService. Secrets shorter than 16 bytes
// are rejected outright — an HS256 key that short is guessable.
func NewTokenService(secret string) (*TokenService, error) {
	if len(secret) < 16 {
		return nil, errors.New("auth: JWT secret must be at least 16 characters")
	}
	return &TokenService{secret: []byte(secret)}, nil
}

// Generate signs a new 30-day session token for the given identity.
func (s *TokenService) Generate(session Session) (string, error) {
	return s.generateWithTTL(session, sessionTTL)
}

// generateWithTTL exists so expiry tests don't have to wait 30 days.
func (s *TokenService) generateWithTTL(session Session, ttl time.Duration) (string, error) {
	now := time.Now()

	c := sessionClaims{
		Username: session.Username,
		PublicID: session.PublicID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   session.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			Issuer:    issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing token: %w", err)
	}

	return signed, nil
}

// Validate parses and verifies a token string and returns the Session it
// carries.
//
// Beyond the signature, the jwt library checks expiry and issuer for us.
// Pinning the algorithm with WithValidMethods closes the classic
// algorithm-confusion hole where an attacker submits an unsigned "none"
// token.
func (s *TokenService) Validate(tokenStr string) (*Session, error) {
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&sessionClaims{},
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("auth: unexpected signing method: %v", token.Header["alg"])
			}
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, errors.New("auth: token expired")
		}
		return nil, fmt.Errorf("auth: invalid token: %w", err)
	}

	c, ok := token.Claims.(*sessionClaims)
	if !ok || !token.Valid {
		return nil, errors.New("auth: invalid token claims")
	}
	if c.Subject == "" {
		return nil, errors.New("auth: token has no subject")
	}

	return &Session{
		UserID:   c.Subject,
		Username: c.Username,
		PublicID: c.PublicID,
	}, nil
}
