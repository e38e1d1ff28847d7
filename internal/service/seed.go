package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/projectxs/backend/internal/auth"
	"github.com/projectxs/backend/internal/model"
	"github.com/projectxs/backend/internal/repository"
)

// seedUsers are the well-known development accounts (password for all of
// them: "password123"). Their fixed public IDs let launcher builds ship
// with friend lists that point at real rows.
var seedUsers = []struct {
	username string
	publicID string
}{
	{"PlayerOne", "12345"},
	{"GhostRider", "33445"},
	{"BlitzKing", "66778"},
	{"EchoWolf", "99001"},
	{"NovaStar", "22334"},
	{"PhantomAce", "55667"},
	{"ShadowBlade", "88990"},
	{"CyberNinja", "11223"},
}

// SeedTestUsers creates the development accounts on an empty database.
// A database with any users at all is left alone, so this is safe to call
// on every start when seeding is enabled.
func SeedTestUsers(ctx context.Context, users repository.UserRepository, passwords *auth.PasswordService, logger *slog.Logger) error {
	count, err := users.Count(ctx)
	if err != nil {
		return fmt.Errorf("service/seed: counting users: %w", err)
	}
	if count > 0 {
		return nil
	}

	hash, err := passwords.Hash("password123")
	if err != nil {
		return fmt.Errorf("service/seed: hashing seed password: %w", err)
	}

	for _, su := range seedUsers {
		user := &model.User{
			PublicID:     su.publicID,
			Username:     su.username,
			PasswordHash: hash,
			Avatar:       model.AvatarTag(su.username),
			Provider:     model.ProviderLocal,
		}
		if err := users.Create(ctx, user); err != nil {
			return fmt.Errorf("service/seed: creating %s: %w", su.username, err)
		}
	}

	logger.Info("seeded test users", slog.Int("count", len(seedUsers)))
	return nil
}
