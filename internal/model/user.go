// Package model defines the data structures used throughout the application.
package model

import (
	"strings"
	"time"
)

// Provider identifies how an account authenticates.
//
// WHY A NAMED STRING TYPE (not iota constants)?
// The value is stored directly in the users.provider column and echoed back
// to the launcher in JSON. A string type keeps the DB and wire representation
// identical to the in-memory one — no mapping tables, and a stray value is
// immediately visible in logs instead of being a mystery integer.
type Provider string

const (
	ProviderLocal  Provider = "local"
	ProviderGoogle Provider = "google"
	ProviderApple  Provider = "apple"
)

// User represents a player account.
//
// TWO IDENTIFIERS, ON PURPOSE:
//   - ID is the internal primary key (an xid, e.g. "cv37rs3pp9olc6atsptg").
//     It never leaves the backend except inside signed session tokens.
//   - PublicID is the 5-digit string players share with each other to add
//     friends (e.g. "41213"). It is allocated once at signup and immutable.
//
// Keeping them separate means the human-facing number space can stay tiny
// (and typo-friendly) without tying storage keys to it.
//
// WHY PasswordHash string (not *string)?
// Accounts created through Google/Apple never get a password. We use the
// empty string as "no password set" — the repository stores NULL in that
// case and the login path treats empty as "social login only". The same
// empty-as-absent convention applies to Email, GoogleID, and AppleID,
// because their UNIQUE constraints need NULL (not "") for absent values.
type User struct {
	ID            string   `json:"id"`
	PublicID      string   `json:"userId"`
	Username      string   `json:"username"`
	PasswordHash  string   `json:"-"` // never serialized
	Email         string   `json:"email,omitempty"`
	EmailVerified bool     `json:"emailVerified"`
	Avatar        string   `json:"avatar"`
	Provider      Provider `json:"provider"`
	GoogleID      string   `json:"-"`
	AppleID       string   `json:"-"`

	// VerificationCode and VerificationExpires are set together while an
	// email verification is outstanding and cleared together on success.
	VerificationCode    string     `json:"-"`
	VerificationExpires *time.Time `json:"-"`

	CreatedAt time.Time `json:"createdAt"`
}

// HasPassword reports whether this account can log in with a password.
// False for pure federated accounts (Google/Apple only).
func (u *User) HasPassword() bool {
	return u.PasswordHash != ""
}

// PublicProfile is the projection of a User that other players may see:
// search results, friend lists, and pending requests all return this shape.
type PublicProfile struct {
	Username string `json:"username"`
	PublicID string `json:"userId"`
	Avatar   string `json:"avatar"`
}

// Profile returns the user's public projection.
func (u *User) Profile() PublicProfile {
	return PublicProfile{
		Username: u.Username,
		PublicID: u.PublicID,
		Avatar:   u.Avatar,
	}
}

// AvatarTag derives the default avatar tag from a username: its first two
// characters, uppercased ("NovaStar" → "NO"). Single-character names produce
// a single-character tag. Characters, not bytes — usernames may be multibyte.
func AvatarTag(username string) string {
	runes := []rune(username)
	if len(runes) > 2 {
		runes = runes[:2]
	}
	return strings.ToUpper(string(runes))
}
