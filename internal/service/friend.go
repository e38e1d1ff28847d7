package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/projectxs/backend/internal/apperror"
	"github.com/projectxs/backend/internal/model"
	"github.com/projectxs/backend/internal/repository"
)

// FriendService runs the friend-request state machine and the friendship
// graph built from accepted requests.
type FriendService struct {
	users   repository.UserRepository
	friends repository.FriendRepository
	logger  *slog.Logger
}

func NewFriendService(users repository.UserRepository, friends repository.FriendRepository, logger *slog.Logger) *FriendService {
	return &FriendService{users: users, friends: friends, logger: logger}
}

// SearchUser finds a player by username and/or public ID and returns their
// public profile. Backs the launcher's add-friend search box.
func (s *FriendService) SearchUser(ctx context.Context, username, publicID string) (*model.PublicProfile, error) {
	user, err := s.users.Search(ctx, username, publicID)
	if err != nil {
		return nil, fmt.Errorf("service/friend: searching user: %w", err)
	}
	profile := user.Profile()
	return &profile, nil
}

// SendRequest creates a pending friend request from the sender to the
// player identified by username AND public ID together.
//
// WHY BOTH FIELDS?
// Requiring the combination (not either alone) means you can't spray
// requests at guessed 5-digit IDs — you have to know who you're adding.
// A mismatched pair is indistinguishable from an unknown user.
//
// Preconditions, in order: both users exist → not yourself → not already
// friends → no request already pending. Each failure is a distinct error
// so the launcher can explain itself.
func (s *FriendService) SendRequest(ctx context.Context, senderPublicID, receiverUsername, receiverPublicID string) (*model.FriendRequest, error) {
	sender, err := s.users.GetByPublicID(ctx, senderPublicID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.New(apperror.ErrNotFound, "Sender not found")
		}
		return nil, fmt.Errorf("service/friend: resolving sender: %w", err)
	}

	receiver, err := s.users.Search(ctx, receiverUsername, receiverPublicID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.New(apperror.ErrNotFound, "User not found")
		}
		return nil, fmt.Errorf("service/friend: resolving receiver: %w", err)
	}

	if sender.ID == receiver.ID {
		return nil, apperror.New(apperror.ErrSelfRequest, "Cannot add yourself as friend")
	}

	already, err := s.friends.AreFriends(ctx, sender.ID, receiver.ID)
	if err != nil {
		return nil, fmt.Errorf("service/friend: checking friendship: %w", err)
	}
	if already {
		return nil, apperror.New(apperror.ErrAlreadyFriends, "Already friends with this user")
	}

	pending, err := s.friends.HasPendingRequest(ctx, sender.ID, receiver.ID)
	if err != nil {
		return nil, fmt.Errorf("service/friend: checking pending request: %w", err)
	}
	if pending {
		return nil, apperror.New(apperror.ErrDuplicatePending, "Friend request already sent")
	}

	req, err := s.friends.CreateRequest(ctx, sender.ID, receiver.ID)
	if err != nil {
		return nil, fmt.Errorf("service/friend: creating request: %w", err)
	}

	s.logger.Info("friend request sent",
		slog.String("requestID", req.ID),
		slog.String("sender", sender.PublicID),
		slog.String("receiver", receiver.PublicID),
	)
	return req, nil
}

// AcceptRequest resolves a pending request and materializes both
// friendship edges. The repository runs the whole effect in one
// transaction; a request that is missing or already resolved comes back
// as NotFound.
func (s *FriendService) AcceptRequest(ctx context.Context, requestID string) error {
	if err := s.friends.AcceptRequest(ctx, requestID); err != nil {
		return fmt.Errorf("service/friend: accepting %s: %w", requestID, err)
	}
	s.logger.Info("friend request accepted", slog.String("requestID", requestID))
	return nil
}

// RejectRequest resolves a pending request with no further effect.
func (s *FriendService) RejectRequest(ctx context.Context, requestID string) error {
	if err := s.friends.RejectRequest(ctx, requestID); err != nil {
		return fmt.Errorf("service/friend: rejecting %s: %w", requestID, err)
	}
	s.logger.Info("friend request rejected", slog.String("requestID", requestID))
	return nil
}

// ListFriends returns the public profiles of a player's friends.
func (s *FriendService) ListFriends(ctx context.Context, publicID string) ([]model.PublicProfile, error) {
	user, err := s.users.GetByPublicID(ctx, publicID)
	if err != nil {
		return nil, fmt.Errorf("service/friend: resolving %s: %w", publicID, err)
	}
	friends, err := s.friends.ListFriends(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("service/friend: listing friends of %s: %w", publicID, err)
	}
	return friends, nil
}

// ListPendingRequests returns the requests awaiting a player's decision,
// newest first.
func (s *FriendService) ListPendingRequests(ctx context.Context, publicID string) ([]model.PendingRequest, error) {
	user, err := s.users.GetByPublicID(ctx, publicID)
	if err != nil {
		return nil, fmt.Errorf("service/friend: resolving %s: %w", publicID, err)
	}
	requests, err := s.friends.ListPendingFor(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("service/friend: listing requests for %s: %w", publicID, err)
	}
	return requests, nil
}

// RemoveFriend deletes the relationship between two players — both edges.
// Removing a relationship that doesn't exist succeeds quietly; the end
// state ("not friends") is what the caller asked for either way.
func (s *FriendService) RemoveFriend(ctx context.Context, ownerPublicID, friendPublicID string) error {
	owner, err := s.users.GetByPublicID(ctx, ownerPublicID)
	if err != nil {
		return fmt.Errorf("service/friend: resolving %s: %w", ownerPublicID, err)
	}
	friend, err := s.users.GetByPublicID(ctx, friendPublicID)
	if err != nil {
		return fmt.Errorf("service/friend: resolving %s: %w", friendPublicID, err)
	}

	if err := s.friends.RemoveFriendship(ctx, owner.ID, friend.ID); err != nil {
		return fmt.Errorf("service/friend: removing friendship: %w", err)
	}

	s.logger.Info("friend removed",
		slog.String("owner", ownerPublicID),
		slog.String("friend", friendPublicID),
	)
	return nil
}
