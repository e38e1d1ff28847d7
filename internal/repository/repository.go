// Package repository declares the storage interfaces the service layer
// depends on. Services receive these interfaces (never the concrete sqlite
// types), so tests can substitute in-memory fakes and the storage backend
// can change without touching business logic.
package repository

import (
	"context"
	"time"

	"github.com/projectxs/backend/internal/model"
)

// UserUpdate is a partial update: nil fields are left untouched.
//
// WHY POINTERS?
// A partial update needs three-valued fields — "set to X", "clear", and
// "don't touch". With plain strings we couldn't tell "clear the code"
// from "leave the code alone". nil = don't touch; pointer to zero value =
// clear. ClearVerification handles the paired code+expiry clear so the two
// columns can never drift apart.
type UserUpdate struct {
	Email               *string
	EmailVerified       *bool
	Avatar              *string
	GoogleID            *string
	AppleID             *string
	VerificationCode    *string
	VerificationExpires *time.Time // set together with VerificationCode
	ClearVerification   bool       // clears code + expiry atomically
}

// UserRepository persists accounts.
//
// Create fails with apperror.ErrConflict when the username, public ID, or a
// provider identity is already taken. Lookups fail with apperror.ErrNotFound.
// Update is idempotent for unchanged fields.
type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id string) (*model.User, error)
	GetByUsername(ctx context.Context, username string) (*model.User, error)
	GetByPublicID(ctx context.Context, publicID string) (*model.User, error)
	GetByProviderID(ctx context.Context, provider model.Provider, providerID string) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	// Search matches by username and/or public ID; both provided means both
	// must match the same row.
	Search(ctx context.Context, username, publicID string) (*model.User, error)
	Update(ctx context.Context, id string, upd UserUpdate) error
	PublicIDExists(ctx context.Context, publicID string) (bool, error)
	Count(ctx context.Context) (int, error)
}

// FriendRepository persists friend requests and friendship edges.
//
// Accept is the one multi-statement operation: it inserts both reciprocal
// edges and marks the request accepted in a single transaction — a crash
// can never leave a request accepted without both edges, or vice versa.
type FriendRepository interface {
	CreateRequest(ctx context.Context, senderID, receiverID string) (*model.FriendRequest, error)
	GetRequest(ctx context.Context, requestID string) (*model.FriendRequest, error)
	AcceptRequest(ctx context.Context, requestID string) error
	RejectRequest(ctx context.Context, requestID string) error
	HasPendingRequest(ctx context.Context, senderID, receiverID string) (bool, error)
	ListPendingFor(ctx context.Context, receiverID string) ([]model.PendingRequest, error)

	AreFriends(ctx context.Context, userID, otherID string) (bool, error)
	ListFriends(ctx context.Context, userID string) ([]model.PublicProfile, error)
	// RemoveFriendship deletes both directions of an edge. Idempotent:
	// removing an absent edge is not an error.
	RemoveFriendship(ctx context.Context, userID, otherID string) error
}
