package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/projectxs/backend/internal/apperror"
	"github.com/projectxs/backend/internal/model"
	"github.com/projectxs/backend/internal/repository"
)

// Compile-time check that *DB implements repository.FriendRepository.
var _ repository.FriendRepository = (*DB)(nil)

// CreateRequest inserts a pending friend request.
//
// The partial unique index idx_requests_pending backs up the service-level
// duplicate check: even if two identical requests race past the check, the
// second insert fails with a UNIQUE violation, which we report as
// ErrDuplicatePending.
func (db *DB) CreateRequest(ctx context.Context, senderID, receiverID string) (*model.FriendRequest, error) {
	req := &model.FriendRequest{
		ID:         xid.New().String(),
		SenderID:   senderID,
		ReceiverID: receiverID,
		Status:     model.StatusPending,
		CreatedAt:  time.Now().UTC(),
	}

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO friend_requests (id, sender_id, receiver_id, status, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		req.ID, req.SenderID, req.ReceiverID, string(req.Status), req.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, apperror.New(apperror.ErrDuplicatePending, "Friend request already sent")
		}
		return nil, fmt.Errorf("sqlite: inserting friend request: %w", err)
	}

	return req, nil
}

func (db *DB) GetRequest(ctx context.Context, requestID string) (*model.FriendRequest, error) {
	var (
		req    model.FriendRequest
		status string
	)
	err := db.conn.QueryRowContext(ctx,
		`SELECT id, sender_id, receiver_id, status, created_at
		 FROM friend_requests WHERE id = ?`,
		requestID,
	).Scan(&req.ID, &req.SenderID, &req.ReceiverID, &status, &req.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("friend request", requestID)
		}
		return nil, fmt.Errorf("sqlite: getting friend request %s: %w", requestID, err)
	}
	req.Status = model.RequestStatus(status)
	return &req, nil
}

// AcceptRequest resolves a pending request and materializes the friendship.
//
// ATOMICITY IS THE WHOLE POINT HERE:
// Three statements run — two edge inserts (one per direction) and the
// status flip — inside one transaction. Either all three commit or none
// do, so no observer can ever see an accepted request without both edges,
// or a half-built friendship.
//
// The status = 'pending' guard in the UPDATE doubles as the state-machine
// check: accepting an already-resolved (or missing) request affects zero
// rows and returns ErrNotFound, matching the reject path.
func (db *DB) AcceptRequest(ctx context.Context, requestID string) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning accept transaction: %w", err)
	}
	// Rollback is a no-op after Commit — safe to defer unconditionally.
	defer tx.Rollback()

	var senderID, receiverID string
	err = tx.QueryRowContext(ctx,
		`SELECT sender_id, receiver_id FROM friend_requests
		 WHERE id = ? AND status = 'pending'`,
		requestID,
	).Scan(&senderID, &receiverID)
	if err != nil {
		if err == sql.ErrNoRows {
			return apperror.NotFound("friend request", requestID)
		}
		return fmt.Errorf("sqlite: loading friend request %s: %w", requestID, err)
	}

	now := time.Now().UTC()
	for _, edge := range [][2]string{{receiverID, senderID}, {senderID, receiverID}} {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO friends (id, user_id, friend_id, created_at)
			 VALUES (?, ?, ?, ?)`,
			xid.New().String(), edge[0], edge[1], now,
		)
		if err != nil {
			if isUniqueViolation(err) {
				return apperror.New(apperror.ErrAlreadyFriends, "Already friends with this user")
			}
			return fmt.Errorf("sqlite: inserting friendship edge: %w", err)
		}
	}

	if _, err = tx.ExecContext(ctx,
		`UPDATE friend_requests SET status = 'accepted' WHERE id = ?`,
		requestID,
	); err != nil {
		return fmt.Errorf("sqlite: accepting friend request %s: %w", requestID, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing accept of %s: %w", requestID, err)
	}
	return nil
}

// RejectRequest flips a pending request to rejected. Like accept, the
// status guard makes resolved requests terminal.
func (db *DB) RejectRequest(ctx context.Context, requestID string) error {
	res, err := db.conn.ExecContext(ctx,
		`UPDATE friend_requests SET status = 'rejected'
		 WHERE id = ? AND status = 'pending'`,
		requestID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: rejecting friend request %s: %w", requestID, err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: rejecting friend request %s: %w", requestID, err)
	}
	if rows == 0 {
		return apperror.NotFound("friend request", requestID)
	}
	return nil
}

func (db *DB) HasPendingRequest(ctx context.Context, senderID, receiverID string) (bool, error) {
	var n int
	err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM friend_requests
		 WHERE sender_id = ? AND receiver_id = ? AND status = 'pending'`,
		senderID, receiverID,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("sqlite: checking pending request: %w", err)
	}
	return n > 0, nil
}

// ListPendingFor returns the requests awaiting receiverID's decision,
// newest first, each joined with the sender's public profile.
func (db *DB) ListPendingFor(ctx context.Context, receiverID string) ([]model.PendingRequest, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT fr.id, fr.created_at, u.username, u.public_id, u.avatar
		 FROM friend_requests fr
		 JOIN users u ON u.id = fr.sender_id
		 WHERE fr.receiver_id = ? AND fr.status = 'pending'
		 ORDER BY fr.created_at DESC`,
		receiverID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing pending requests: %w", err)
	}
	defer rows.Close()

	requests := []model.PendingRequest{}
	for rows.Next() {
		var pr model.PendingRequest
		if err := rows.Scan(&pr.ID, &pr.CreatedAt,
			&pr.Sender.Username, &pr.Sender.PublicID, &pr.Sender.Avatar); err != nil {
			return nil, fmt.Errorf("sqlite: scanning pending request: %w", err)
		}
		requests = append(requests, pr)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating pending requests: %w", err)
	}

	return requests, nil
}

// AreFriends checks one direction of the edge. Edges only ever exist in
// reciprocal pairs (AcceptRequest inserts both transactionally), so one
// direction answers for the relationship.
func (db *DB) AreFriends(ctx context.Context, userID, otherID string) (bool, error) {
	var n int
	err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM friends WHERE user_id = ? AND friend_id = ?`,
		userID, otherID,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("sqlite: checking friendship: %w", err)
	}
	return n > 0, nil
}

// ListFriends returns the public profiles of everyone userID has an edge to.
func (db *DB) ListFriends(ctx context.Context, userID string) ([]model.PublicProfile, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT u.username, u.public_id, u.avatar
		 FROM friends f
		 JOIN users u ON u.id = f.friend_id
		 WHERE f.user_id = ?
		 ORDER BY u.username`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing friends: %w", err)
	}
	defer rows.Close()

	friends := []model.PublicProfile{}
	for rows.Next() {
		var p model.PublicProfile
		if err := rows.Scan(&p.Username, &p.PublicID, &p.Avatar); err != nil {
			return nil, fmt.Errorf("sqlite: scanning friend: %w", err)
		}
		friends = append(friends, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating friends: %w", err)
	}

	return friends, nil
}

// RemoveFriendship deletes both directions of the edge in one statement.
// Deleting an edge that does not exist is fine — removal is idempotent,
// so a double-click on "remove friend" never errors.
func (db *DB) RemoveFriendship(ctx context.Context, userID, otherID string) error {
	_, err := db.conn.ExecContext(ctx,
		`DELETE FROM friends
		 WHERE (user_id = ? AND friend_id = ?) OR (user_id = ? AND friend_id = ?)`,
		userID, otherID, otherID, userID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: removing friendship: %w", err)
	}
	return nil
}
