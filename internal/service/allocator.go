// Package service holds the business logic: account auth, public ID
// allocation, email verification, and the friend graph. Services sit
// between HTTP handlers and the repositories, and receive all their
// dependencies through constructors.
package service

import (
	"context"
	"fmt"
	"math/rand/v2"

	"github.com/projectxs/backend/internal/apperror"
	"github.com/projectxs/backend/internal/repository"
)

// Public ID space: 10000–99999 inclusive. 90 000 IDs for a player base
// measured in hundreds keeps the collision rate per draw near zero while
// every ID stays a shareable 5-digit number.
const (
	publicIDMin  = 10000
	publicIDSpan = 90000

	// maxAllocAttempts bounds the generate-and-check loop. At 5000 draws
	// the space would have to be ~99.9% full for allocation to fail —
	// if that ever happens the right fix is a bigger ID space, and a
	// typed error beats an infinite loop.
	maxAllocAttempts = 5000
)

// PublicIDAllocator hands out unused 5-digit public IDs.
//
// ALGORITHM: draw uniformly at random, ask the store whether the ID is
// taken, retry on collision. The users.public_id UNIQUE constraint is the
// backstop for the rare race where two concurrent signups draw the same ID
// between check and insert — the second insert fails as a conflict.
type PublicIDAllocator struct {
	users repository.UserRepository
}

func NewPublicIDAllocator(users repository.UserRepository) *PublicIDAllocator {
	return &PublicIDAllocator{users: users}
}

// Allocate returns a 5-digit public ID not currently assigned to any user,
// or apperror.ErrAllocatorExhausted if the retry budget runs out.
func (a *PublicIDAllocator) Allocate(ctx context.Context) (string, error) {
	for attempt := 0; attempt < maxAllocAttempts; attempt++ {
		candidate := fmt.Sprintf("%05d", publicIDMin+rand.IntN(publicIDSpan))

		exists, err := a.users.PublicIDExists(ctx, candidate)
		if err != nil {
			return "", fmt.Errorf("service/allocator: checking candidate %s: %w", candidate, err)
		}
		if !exists {
			return candidate, nil
		}
	}

	return "", apperror.New(apperror.ErrAllocatorExhausted,
		"Could not allocate a player ID, please try again")
}
