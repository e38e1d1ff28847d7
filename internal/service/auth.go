package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/projectxs/backend/internal/apperror"
	"github.com/projectxs/backend/internal/auth"
	"github.com/projectxs/backend/internal/model"
	"github.com/projectxs/backend/internal/repository"
)

// Username and password rules. The launcher validates these client-side
// too, but the service is the authority — a handcrafted HTTP request gets
// the same answer as the UI.
const (
	usernameMinLen = 3
	usernameMaxLen = 20
	passwordMinLen = 6
)

// federatedCreateAttempts bounds the derived-username retry loop: a
// collision on name+suffix just redraws the suffix.
const federatedCreateAttempts = 5

// AuthService orchestrates registration and login — local password
// accounts and federated Google/Apple identities.
//
// It owns account RESOLUTION only. The OAuth code exchange happens at the
// HTTP edge (internal/auth providers); by the time FederatedLogin runs,
// the provider has already vouched for the profile.
type AuthService struct {
	users        repository.UserRepository
	allocator    *PublicIDAllocator
	tokens       *auth.TokenService
	passwords    *auth.PasswordService
	verification *VerificationService
	logger       *slog.Logger
}

func NewAuthService(
	users repository.UserRepository,
	allocator *PublicIDAllocator,
	tokens *auth.TokenService,
	passwords *auth.PasswordService,
	verification *VerificationService,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		users:        users,
		allocator:    allocator,
		tokens:       tokens,
		passwords:    passwords,
		verification: verification,
		logger:       logger,
	}
}

// AuthResult bundles the account and its freshly issued session token.
type AuthResult struct {
	User  *model.User
	Token string
}

// Register creates a local password account.
//
// Flow: validate input → allocate a public ID → hash the password →
// derive the avatar tag → insert → issue a session token. A username
// collision surfaces as ErrConflict from the repository.
func (s *AuthService) Register(ctx context.Context, username, password, email string) (*AuthResult, error) {
	if n := utf8.RuneCountInString(username); n < usernameMinLen || n > usernameMaxLen {
		return nil, apperror.ValidationFailed("username", "Username must be 3-20 characters")
	}
	if utf8.RuneCountInString(password) < passwordMinLen {
		return nil, apperror.ValidationFailed("password", "Password must be at least 6 characters")
	}

	publicID, err := s.allocator.Allocate(ctx)
	if err != nil {
		return nil, fmt.Errorf("service/auth: allocating public id: %w", err)
	}

	hash, err := s.passwords.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("service/auth: hashing password: %w", err)
	}

	user := &model.User{
		PublicID:     publicID,
		Username:     username,
		PasswordHash: hash,
		Email:        email,
		Avatar:       model.AvatarTag(username),
		Provider:     model.ProviderLocal,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, apperror.ErrConflict) {
			return nil, apperror.New(apperror.ErrConflict, "Username already exists")
		}
		return nil, fmt.Errorf("service/auth: creating user %s: %w", username, err)
	}

	s.logger.Info("user registered",
		slog.String("userID", user.ID),
		slog.String("publicID", user.PublicID),
		slog.String("username", user.Username),
	)

	return s.withToken(user)
}

// Login authenticates a local account by username and password.
//
// Three distinct failures hide behind two messages:
//   - unknown username          → "Invalid credentials"
//   - wrong password            → "Invalid credentials" (same — no
//     username-probing oracle)
//   - account with no password  → the explicit social-login message,
//     because telling that user to try harder on a password they never
//     set would be cruel.
func (s *AuthService) Login(ctx context.Context, username, password string) (*AuthResult, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.InvalidCredentials()
		}
		return nil, fmt.Errorf("service/auth: looking up %s: %w", username, err)
	}

	if !user.HasPassword() {
		return nil, apperror.SocialLoginOnly()
	}

	if err := s.passwords.Verify(user.PasswordHash, password); err != nil {
		return nil, apperror.InvalidCredentials()
	}

	s.logger.Info("user logged in", slog.String("userID", user.ID))
	return s.withToken(user)
}

// FederatedLogin resolves a provider-vouched profile to an account.
//
// RESOLUTION ORDER (first hit wins):
//  1. (provider, providerID) already known → that account, unconditionally.
//  2. An account exists with the profile's email → LINK: the provider ID
//     is written onto that account (its provider/local status is otherwise
//     untouched), so a player who registered locally and later clicks
//     "Sign in with Google" ends up with one account, not two.
//  3. Otherwise a brand-new account: username derived from the display
//     name (whitespace stripped) plus a random 0–999 suffix, fresh public
//     ID, no password.
//
// SIDE EFFECT, GOOGLE ONLY: a new-or-linked Google login with an
// unverified email triggers a verification code. The Apple path does not —
// Apple relays mail through private relay addresses, so a code would often
// chase an inbox the user never reads.
func (s *AuthService) FederatedLogin(ctx context.Context, provider model.Provider, profile *auth.Profile) (*AuthResult, error) {
	if profile == nil || profile.ProviderID == "" {
		return nil, apperror.ProviderFailure(string(provider), errors.New("empty profile"))
	}

	// 1. Known federated identity.
	user, err := s.users.GetByProviderID(ctx, provider, profile.ProviderID)
	switch {
	case err == nil:
		return s.completeFederated(ctx, provider, user)
	case !errors.Is(err, apperror.ErrNotFound):
		return nil, fmt.Errorf("service/auth: resolving %s identity: %w", provider, err)
	}

	// 2. Link by email.
	if profile.Email != "" {
		user, err = s.users.GetByEmail(ctx, profile.Email)
		switch {
		case err == nil:
			if err := s.linkProvider(ctx, user, provider, profile.ProviderID); err != nil {
				return nil, err
			}
			s.logger.Info("linked federated identity",
				slog.String("userID", user.ID),
				slog.String("provider", string(provider)),
			)
			return s.completeFederated(ctx, provider, user)
		case !errors.Is(err, apperror.ErrNotFound):
			return nil, fmt.Errorf("service/auth: resolving %s email: %w", provider, err)
		}
	}

	// 3. New account.
	user, err = s.createFederated(ctx, provider, profile)
	if err != nil {
		return nil, err
	}
	s.logger.Info("user registered via federation",
		slog.String("userID", user.ID),
		slog.String("provider", string(provider)),
	)
	return s.completeFederated(ctx, provider, user)
}

// linkProvider writes the provider ID column onto an existing account.
func (s *AuthService) linkProvider(ctx context.Context, user *model.User, provider model.Provider, providerID string) error {
	upd := repository.UserUpdate{}
	switch provider {
	case model.ProviderGoogle:
		upd.GoogleID = &providerID
		user.GoogleID = providerID
	case model.ProviderApple:
		upd.AppleID = &providerID
		user.AppleID = providerID
	default:
		return fmt.Errorf("service/auth: cannot link provider %q", provider)
	}

	if err := s.users.Update(ctx, user.ID, upd); err != nil {
		return fmt.Errorf("service/auth: linking %s identity to %s: %w", provider, user.ID, err)
	}
	return nil
}

// createFederated inserts a new account for a first-time federated login.
// The derived username can collide (two "Alex Chen"s drawing the same
// suffix), so the suffix is redrawn a few times before giving up.
func (s *AuthService) createFederated(ctx context.Context, provider model.Provider, profile *auth.Profile) (*model.User, error) {
	base := strings.Join(strings.Fields(profile.DisplayName), "")
	if base == "" {
		switch provider {
		case model.ProviderApple:
			base = "AppleUser"
		default:
			base = "GoogleUser"
		}
	}

	var lastErr error
	for attempt := 0; attempt < federatedCreateAttempts; attempt++ {
		publicID, err := s.allocator.Allocate(ctx)
		if err != nil {
			return nil, fmt.Errorf("service/auth: allocating public id: %w", err)
		}

		username := base + strconv.Itoa(rand.IntN(1000))
		user := &model.User{
			PublicID: publicID,
			Username: username,
			Email:    profile.Email,
			Avatar:   model.AvatarTag(username),
			Provider: provider,
		}
		switch provider {
		case model.ProviderGoogle:
			user.GoogleID = profile.ProviderID
		case model.ProviderApple:
			user.AppleID = profile.ProviderID
		}

		err = s.users.Create(ctx, user)
		if err == nil {
			return user, nil
		}
		if !errors.Is(err, apperror.ErrConflict) {
			return nil, fmt.Errorf("service/auth: creating federated user: %w", err)
		}
		lastErr = err
	}

	return nil, fmt.Errorf("service/auth: creating federated user after %d attempts: %w",
		federatedCreateAttempts, lastErr)
}

// completeFederated runs the post-resolution steps shared by all three
// paths: the Google verification side effect, then token issuance.
func (s *AuthService) completeFederated(ctx context.Context, provider model.Provider, user *model.User) (*AuthResult, error) {
	if provider == model.ProviderGoogle && user.Email != "" && !user.EmailVerified {
		// Delivery problems are already logged inside Issue; login
		// proceeds regardless.
		if _, err := s.verification.Issue(ctx, user); err != nil {
			s.logger.Warn("could not issue verification code on login",
				slog.String("userID", user.ID),
				slog.String("error", err.Error()),
			)
		}
	}

	return s.withToken(user)
}

// GetUserByID returns the account for a validated session's subject.
func (s *AuthService) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	if id == "" {
		return nil, fmt.Errorf("service/auth: user ID must not be empty")
	}
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service/auth: fetching user %s: %w", id, err)
	}
	return user, nil
}

func (s *AuthService) withToken(user *model.User) (*AuthResult, error) {
	token, err := s.tokens.Generate(auth.Session{
		UserID:   user.ID,
		Username: user.Username,
		PublicID: user.PublicID,
	})
	if err != nil {
		return nil, fmt.Errorf("service/auth: generating token for %s: %w", user.ID, err)
	}
	return &AuthResult{User: user, Token: token}, nil
}
