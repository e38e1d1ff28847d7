package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/projectxs/backend/internal/apperror"
	"github.com/projectxs/backend/internal/model"
)

// twoUsers seeds the pair most friend tests need.
func twoUsers(t *testing.T, db *DB) (*model.User, *model.User) {
	t.Helper()
	alice := mustCreate(t, db, &model.User{PublicID: "11111", Username: "Alice"})
	bob := mustCreate(t, db, &model.User{PublicID: "22222", Username: "Bob"})
	return alice, bob
}

func TestCreateRequest(t *testing.T) {
	db := newTestDB(t)
	alice, bob := twoUsers(t, db)

	req, err := db.CreateRequest(context.Background(), alice.ID, bob.ID)
	if err != nil {
		t.Fatalf("CreateRequest() error = %v", err)
	}
	if req.Status != model.StatusPending {
		t.Errorf("Status = %q, want pending", req.Status)
	}

	got, err := db.GetRequest(context.Background(), req.ID)
	if err != nil {
		t.Fatalf("GetRequest() error = %v", err)
	}
	if got.SenderID != alice.ID || got.ReceiverID != bob.ID {
		t.Errorf("request = %s→%s, want %s→%s", got.SenderID, got.ReceiverID, alice.ID, bob.ID)
	}
}

func TestCreateRequest_DuplicatePendingBlocked(t *testing.T) {
	db := newTestDB(t)
	alice, bob := twoUsers(t, db)

	if _, err := db.CreateRequest(context.Background(), alice.ID, bob.ID); err != nil {
		t.Fatalf("first CreateRequest() error = %v", err)
	}

	// The partial unique index catches the duplicate at the storage layer,
	// even without the service-level pre-check.
	_, err := db.CreateRequest(context.Background(), alice.ID, bob.ID)
	if !errors.Is(err, apperror.ErrDuplicatePending) {
		t.Errorf("duplicate CreateRequest() error = %v, want ErrDuplicatePending", err)
	}

	// The opposite direction is a different request and is allowed.
	if _, err := db.CreateRequest(context.Background(), bob.ID, alice.ID); err != nil {
		t.Errorf("reverse CreateRequest() error = %v, want nil", err)
	}
}

func TestAcceptRequest_InsertsBothEdges(t *testing.T) {
	db := newTestDB(t)
	alice, bob := twoUsers(t, db)

	req, err := db.CreateRequest(context.Background(), alice.ID, bob.ID)
	if err != nil {
		t.Fatalf("CreateRequest() error = %v", err)
	}
	if err := db.AcceptRequest(context.Background(), req.ID); err != nil {
		t.Fatalf("AcceptRequest() error = %v", err)
	}

	for _, pair := range [][2]string{{alice.ID, bob.ID}, {bob.ID, alice.ID}} {
		ok, err := db.AreFriends(context.Background(), pair[0], pair[1])
		if err != nil {
			t.Fatalf("AreFriends() error = %v", err)
		}
		if !ok {
			t.Errorf("AreFriends(%s, %s) = false after accept, want true", pair[0], pair[1])
		}
	}

	got, err := db.GetRequest(context.Background(), req.ID)
	if err != nil {
		t.Fatalf("GetRequest() error = %v", err)
	}
	if got.Status != model.StatusAccepted {
		t.Errorf("Status = %q after accept, want accepted", got.Status)
	}
}

func TestAcceptRequest_ResolvedIsTerminal(t *testing.T) {
	db := newTestDB(t)
	alice, bob := twoUsers(t, db)

	req, err := db.CreateRequest(context.Background(), alice.ID, bob.ID)
	if err != nil {
		t.Fatalf("CreateRequest() error = %v", err)
	}
	if err := db.AcceptRequest(context.Background(), req.ID); err != nil {
		t.Fatalf("AcceptRequest() error = %v", err)
	}

	if err := db.AcceptRequest(context.Background(), req.ID); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("second AcceptRequest() error = %v, want ErrNotFound", err)
	}
	if err := db.RejectRequest(context.Background(), req.ID); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("RejectRequest() after accept error = %v, want ErrNotFound", err)
	}
}

func TestAcceptRequest_WhenAlreadyFriendsRollsBack(t *testing.T) {
	db := newTestDB(t)
	alice, bob := twoUsers(t, db)

	// First request accepted: friendship established.
	first, err := db.CreateRequest(context.Background(), alice.ID, bob.ID)
	if err != nil {
		t.Fatalf("CreateRequest() error = %v", err)
	}
	if err := db.AcceptRequest(context.Background(), first.ID); err != nil {
		t.Fatalf("AcceptRequest() error = %v", err)
	}

	// A second pending request snuck in from the other side before the
	// first was accepted. Accepting it would duplicate the edges.
	second, err := db.CreateRequest(context.Background(), bob.ID, alice.ID)
	if err != nil {
		t.Fatalf("reverse CreateRequest() error = %v", err)
	}

	err = db.AcceptRequest(context.Background(), second.ID)
	if !errors.Is(err, apperror.ErrAlreadyFriends) {
		t.Fatalf("AcceptRequest() error = %v, want ErrAlreadyFriends", err)
	}

	// The transaction rolled back: the second request is still pending.
	got, err := db.GetRequest(context.Background(), second.ID)
	if err != nil {
		t.Fatalf("GetRequest() error = %v", err)
	}
	if got.Status != model.StatusPending {
		t.Errorf("Status = %q after rolled-back accept, want pending", got.Status)
	}
}

func TestRejectRequest_AllowsNewPendingRequest(t *testing.T) {
	db := newTestDB(t)
	alice, bob := twoUsers(t, db)

	req, err := db.CreateRequest(context.Background(), alice.ID, bob.ID)
	if err != nil {
		t.Fatalf("CreateRequest() error = %v", err)
	}
	if err := db.RejectRequest(context.Background(), req.ID); err != nil {
		t.Fatalf("RejectRequest() error = %v", err)
	}

	// The rejected row stays in the table but no longer blocks the index.
	if _, err := db.CreateRequest(context.Background(), alice.ID, bob.ID); err != nil {
		t.Errorf("CreateRequest() after rejection error = %v, want nil", err)
	}
}

func TestHasPendingRequest(t *testing.T) {
	db := newTestDB(t)
	alice, bob := twoUsers(t, db)

	ok, err := db.HasPendingRequest(context.Background(), alice.ID, bob.ID)
	if err != nil {
		t.Fatalf("HasPendingRequest() error = %v", err)
	}
	if ok {
		t.Error("HasPendingRequest() = true before any request")
	}

	req, err := db.CreateRequest(context.Background(), alice.ID, bob.ID)
	if err != nil {
		t.Fatalf("CreateRequest() error = %v", err)
	}

	ok, err = db.HasPendingRequest(context.Background(), alice.ID, bob.ID)
	if err != nil {
		t.Fatalf("HasPendingRequest() error = %v", err)
	}
	if !ok {
		t.Error("HasPendingRequest() = false with a pending request")
	}

	// Direction matters for pending checks.
	ok, err = db.HasPendingRequest(context.Background(), bob.ID, alice.ID)
	if err != nil {
		t.Fatalf("HasPendingRequest() error = %v", err)
	}
	if ok {
		t.Error("HasPendingRequest() reverse direction = true, want false")
	}

	if err := db.RejectRequest(context.Background(), req.ID); err != nil {
		t.Fatalf("RejectRequest() error = %v", err)
	}
	ok, err = db.HasPendingRequest(context.Background(), alice.ID, bob.ID)
	if err != nil {
		t.Fatalf("HasPendingRequest() error = %v", err)
	}
	if ok {
		t.Error("HasPendingRequest() = true after rejection")
	}
}

func TestListPendingFor_NewestFirst(t *testing.T) {
	db := newTestDB(t)
	_, bob := twoUsers(t, db)
	carol := mustCreate(t, db, &model.User{PublicID: "33333", Username: "Carol"})
	dave := mustCreate(t, db, &model.User{PublicID: "44444", Username: "Dave"})

	// CreatedAt has second granularity in SQLite DATETIME comparisons, so
	// space the inserts out explicitly.
	for i, sender := range []*model.User{carol, dave} {
		req, err := db.CreateRequest(context.Background(), sender.ID, bob.ID)
		if err != nil {
			t.Fatalf("CreateRequest() #%d error = %v", i, err)
		}
		// Nudge the timestamps apart deterministically.
		_, err = db.conn.Exec(`UPDATE friend_requests SET created_at = ? WHERE id = ?`,
			time.Date(2026, 1, 1, 12, i, 0, 0, time.UTC), req.ID)
		if err != nil {
			t.Fatalf("adjusting timestamp: %v", err)
		}
	}

	pending, err := db.ListPendingFor(context.Background(), bob.ID)
	if err != nil {
		t.Fatalf("ListPendingFor() error = %v", err)
	}
	if len(pending) != 2 {
		t.Fatalf("ListPendingFor() = %d requests, want 2", len(pending))
	}
	if pending[0].Sender.Username != "Dave" || pending[1].Sender.Username != "Carol" {
		t.Errorf("order = [%s, %s], want newest first [Dave, Carol]",
			pending[0].Sender.Username, pending[1].Sender.Username)
	}
	if pending[0].Sender.PublicID != "44444" {
		t.Errorf("sender profile PublicID = %q, want 44444", pending[0].Sender.PublicID)
	}
}

func TestListFriends_SortedByUsername(t *testing.T) {
	db := newTestDB(t)
	alice, bob := twoUsers(t, db)
	zara := mustCreate(t, db, &model.User{PublicID: "33333", Username: "Zara"})

	for _, friend := range []*model.User{zara, bob} {
		req, err := db.CreateRequest(context.Background(), friend.ID, alice.ID)
		if err != nil {
			t.Fatalf("CreateRequest() error = %v", err)
		}
		if err := db.AcceptRequest(context.Background(), req.ID); err != nil {
			t.Fatalf("AcceptRequest() error = %v", err)
		}
	}

	friends, err := db.ListFriends(context.Background(), alice.ID)
	if err != nil {
		t.Fatalf("ListFriends() error = %v", err)
	}
	if len(friends) != 2 {
		t.Fatalf("ListFriends() = %d entries, want 2", len(friends))
	}
	if friends[0].Username != "Bob" || friends[1].Username != "Zara" {
		t.Errorf("order = [%s, %s], want alphabetical [Bob, Zara]",
			friends[0].Username, friends[1].Username)
	}
}

func TestRemoveFriendship(t *testing.T) {
	db := newTestDB(t)
	alice, bob := twoUsers(t, db)

	req, err := db.CreateRequest(context.Background(), alice.ID, bob.ID)
	if err != nil {
		t.Fatalf("CreateRequest() error = %v", err)
	}
	if err := db.AcceptRequest(context.Background(), req.ID); err != nil {
		t.Fatalf("AcceptRequest() error = %v", err)
	}

	if err := db.RemoveFriendship(context.Background(), alice.ID, bob.ID); err != nil {
		t.Fatalf("RemoveFriendship() error = %v", err)
	}

	for _, pair := range [][2]string{{alice.ID, bob.ID}, {bob.ID, alice.ID}} {
		ok, err := db.AreFriends(context.Background(), pair[0], pair[1])
		if err != nil {
			t.Fatalf("AreFriends() error = %v", err)
		}
		if ok {
			t.Errorf("AreFriends(%s, %s) = true after removal", pair[0], pair[1])
		}
	}

	// Idempotent.
	if err := db.RemoveFriendship(context.Background(), alice.ID, bob.ID); err != nil {
		t.Errorf("repeat RemoveFriendship() error = %v, want nil", err)
	}
}
