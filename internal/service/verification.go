package service

import (
	"context"
	"crypto/rand"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/projectxs/backend/internal/apperror"
	"github.com/projectxs/backend/internal/mail"
	"github.com/projectxs/backend/internal/model"
	"github.com/projectxs/backend/internal/repository"
)

// codeTTL is how long a verification code stays valid after issuance.
const codeTTL = 10 * time.Minute

// VerificationService issues and checks email verification codes.
//
// A code is a 6-digit numeric string ("007213" is valid — leading zeros
// are preserved, so there are exactly one million codes). Code and expiry
// live on the user row and are always written and cleared as a pair.
type VerificationService struct {
	users      repository.UserRepository
	dispatcher mail.Dispatcher
	logger     *slog.Logger
}

func NewVerificationService(users repository.UserRepository, dispatcher mail.Dispatcher, logger *slog.Logger) *VerificationService {
	return &VerificationService{
		users:      users,
		dispatcher: dispatcher,
		logger:     logger,
	}
}

// Issue generates a fresh code for the user, persists it with a 10-minute
// expiry, and dispatches it by email.
//
// DELIVERY FAILURE IS NOT ISSUANCE FAILURE:
// The code is persisted before the send, and a bounced email does not
// invalidate it — the user can still type a code they received through a
// delayed delivery, and Resend mints a new one on demand. So a dispatch
// error is logged and reported via the return value, never as err.
// err is reserved for storage faults, where no code was issued at all.
func (s *VerificationService) Issue(ctx context.Context, user *model.User) (dispatched bool, err error) {
	code, err := generateCode()
	if err != nil {
		return false, fmt.Errorf("service/verification: generating code: %w", err)
	}
	expires := time.Now().UTC().Add(codeTTL)

	if err := s.users.Update(ctx, user.ID, repository.UserUpdate{
		VerificationCode:    &code,
		VerificationExpires: &expires,
	}); err != nil {
		return false, fmt.Errorf("service/verification: storing code for %s: %w", user.ID, err)
	}

	if err := s.dispatcher.Send(ctx, user.Email,
		"Verify Your ProjectXS Email",
		verificationBody(user.Username, code),
	); err != nil {
		s.logger.Warn("verification email dispatch failed",
			slog.String("userID", user.ID),
			slog.String("error", err.Error()),
		)
		return false, nil
	}

	s.logger.Info("verification code issued",
		slog.String("userID", user.ID),
		slog.String("publicID", user.PublicID),
	)
	return true, nil
}

// Verify checks a submitted code for the user identified by publicID.
//
// On success the code and expiry are cleared and emailVerified is set, in
// one update. An already-verified account short-circuits to success —
// double-submitting the form is not an error — and reports
// alreadyVerified=true so the caller can say "already verified" instead of
// pretending a verification just happened.
//
// Each failure mode has its own sentinel (NotFound, NoCodeIssued,
// CodeExpired, CodeMismatch) so the launcher can tell the user exactly
// what went wrong. The comparison is an exact string match: "123456" only.
func (s *VerificationService) Verify(ctx context.Context, publicID, submitted string) (alreadyVerified bool, err error) {
	user, err := s.users.GetByPublicID(ctx, publicID)
	if err != nil {
		return false, fmt.Errorf("service/verification: %w", err)
	}

	if user.EmailVerified {
		return true, nil
	}

	if user.VerificationCode == "" {
		return false, apperror.New(apperror.ErrNoCodeIssued,
			"No verification code found. Please request a new one.")
	}

	if user.VerificationExpires == nil || time.Now().After(*user.VerificationExpires) {
		return false, apperror.New(apperror.ErrCodeExpired,
			"Verification code expired. Please request a new one.")
	}

	if user.VerificationCode != submitted {
		return false, apperror.New(apperror.ErrCodeMismatch, "Invalid verification code")
	}

	verified := true
	if err := s.users.Update(ctx, user.ID, repository.UserUpdate{
		EmailVerified:     &verified,
		ClearVerification: true,
	}); err != nil {
		return false, fmt.Errorf("service/verification: marking %s verified: %w", user.ID, err)
	}

	s.logger.Info("email verified", slog.String("userID", user.ID))
	return false, nil
}

// Resend issues a fresh code for an unverified account. Already-verified
// accounts short-circuit to success; accounts with no email on file can't
// be verified at all.
func (s *VerificationService) Resend(ctx context.Context, publicID string) error {
	user, err := s.users.GetByPublicID(ctx, publicID)
	if err != nil {
		return fmt.Errorf("service/verification: %w", err)
	}

	if user.EmailVerified {
		return nil
	}
	if user.Email == "" {
		return apperror.ValidationFailed("email", "No email address on file")
	}

	dispatched, err := s.Issue(ctx, user)
	if err != nil {
		return err
	}
	if !dispatched {
		// Unlike the login-time side-effect issue, an explicit resend
		// exists only to deliver mail — failure to deliver IS the failure.
		return fmt.Errorf("service/verification: email dispatch failed for %s", user.ID)
	}

	return nil
}

// generateCode draws a uniform 6-digit code from crypto/rand. The codes
// gate account takeover by inbox access, so they come from the CSPRNG,
// not math/rand.
func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

// verificationBody renders the branded verification email.
func verificationBody(username, code string) string {
	return fmt.Sprintf(`
      <div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
        <h2 style="color: #8B5CF6;">Welcome to ProjectXS!</h2>
        <p>Hi %s,</p>
        <p>Thank you for signing up! Please verify your email address using the code below:</p>
        <div style="background: #f3f4f6; padding: 20px; text-align: center; border-radius: 8px; margin: 20px 0;">
          <h1 style="color: #8B5CF6; font-size: 32px; letter-spacing: 4px; margin: 0;">%s</h1>
        </div>
        <p>This code will expire in 10 minutes.</p>
        <p>If you didn't request this, please ignore this email.</p>
        <hr style="border: none; border-top: 1px solid #e5e7eb; margin: 30px 0;">
        <p style="color: #6b7280; font-size: 12px;">ProjectXS - Enter the Arena</p>
      </div>`, username, code)
}
