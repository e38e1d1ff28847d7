package model

import "time"

// RequestStatus is the lifecycle state of a friend request.
//
// STATE MACHINE:
//
//	pending --accept--> accepted   (two reciprocal Friendship rows appear)
//	pending --reject--> rejected   (nothing else happens)
//
// accepted and rejected are terminal — a resolved request is never mutated
// again. A new request between the same pair may be created after a
// rejection; only one PENDING request per (sender, receiver) is allowed.
type RequestStatus string

const (
	StatusPending  RequestStatus = "pending"
	StatusAccepted RequestStatus = "accepted"
	StatusRejected RequestStatus = "rejected"
)

// FriendRequest is a directed invitation from Sender to Receiver.
type FriendRequest struct {
	ID         string        `json:"id"`
	SenderID   string        `json:"-"` // internal user IDs stay internal
	ReceiverID string        `json:"-"`
	Status     RequestStatus `json:"status"`
	CreatedAt  time.Time     `json:"createdAt"`
}

// PendingRequest is what the receiver sees when listing incoming requests:
// the request plus the sender's public profile, so the launcher can render
// "NovaStar (#22334) wants to be your friend".
type PendingRequest struct {
	ID        string        `json:"id"`
	Sender    PublicProfile `json:"sender"`
	CreatedAt time.Time     `json:"createdAt"`
}

// Friendship is one directed edge of a relationship: "Owner has friend
// Friend". Edges always exist in reciprocal pairs — accepting a request
// inserts both directions in a single transaction, so a relationship is
// queryable from either side.
type Friendship struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"-"`
	FriendID  string    `json:"-"`
	CreatedAt time.Time `json:"createdAt"`
}
