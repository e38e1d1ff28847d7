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

// Compile-time check that *DB implements repository.UserRepository.
var _ repository.UserRepository = (*DB)(nil)

const userColumns = `id, public_id, username, password_hash, email,
	email_verified, avatar, provider, google_id, apple_id,
	verification_code, verification_expires, created_at`

// Create inserts a new account. The caller provides PublicID, Username,
// Avatar, Provider, and optional PasswordHash/Email/GoogleID/AppleID;
// Create assigns ID and CreatedAt in place (pointer receiver pattern —
// the caller's struct carries the generated values afterwards).
//
// A UNIQUE violation on any of username / public_id / google_id / apple_id
// comes back as apperror.ErrConflict so the service layer can report
// "already taken" instead of a generic storage fault.
func (db *DB) Create(ctx context.Context, user *model.User) error {
	user.ID = xid.New().String()
	user.CreatedAt = time.Now().UTC()

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO users (id, public_id, username, password_hash, email,
			email_verified, avatar, provider, google_id, apple_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		user.ID,
		user.PublicID,
		user.Username,
		nullString(user.PasswordHash),
		nullString(user.Email),
		user.EmailVerified,
		user.Avatar,
		string(user.Provider),
		nullString(user.GoogleID),
		nullString(user.AppleID),
		user.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("user", user.Username)
		}
		return fmt.Errorf("sqlite: inserting user %s: %w", user.Username, err)
	}

	return nil
}

// scanUser reads one row into a User, translating NULLs back into the
// model's empty-as-absent convention.
func scanUser(row *sql.Row) (*model.User, error) {
	var (
		u                           model.User
		hash, email, gid, aid, code sql.NullString
		expires                     sql.NullTime
		provider                    string
	)

	err := row.Scan(
		&u.ID, &u.PublicID, &u.Username, &hash, &email,
		&u.EmailVerified, &u.Avatar, &provider, &gid, &aid,
		&code, &expires, &u.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	u.PasswordHash = hash.String
	u.Email = email.String
	u.Provider = model.Provider(provider)
	u.GoogleID = gid.String
	u.AppleID = aid.String
	u.VerificationCode = code.String
	if expires.Valid {
		t := expires.Time
		u.VerificationExpires = &t
	}

	return &u, nil
}

func (db *DB) getUserWhere(ctx context.Context, clause, describe string, args ...any) (*model.User, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE `+clause, args...)

	u, err := scanUser(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("user", describe)
		}
		return nil, fmt.Errorf("sqlite: getting user by %s: %w", describe, err)
	}
	return u, nil
}

func (db *DB) GetByID(ctx context.Context, id string) (*model.User, error) {
	return db.getUserWhere(ctx, "id = ?", id, id)
}

func (db *DB) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	return db.getUserWhere(ctx, "username = ?", username, username)
}

func (db *DB) GetByPublicID(ctx context.Context, publicID string) (*model.User, error) {
	return db.getUserWhere(ctx, "public_id = ?", publicID, publicID)
}

func (db *DB) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	return db.getUserWhere(ctx, "email = ?", email, email)
}

// GetByProviderID resolves a federated identity: the (provider, providerID)
// pair picks the column to match against.
func (db *DB) GetByProviderID(ctx context.Context, provider model.Provider, providerID string) (*model.User, error) {
	var column string
	switch provider {
	case model.ProviderGoogle:
		column = "google_id"
	case model.ProviderApple:
		column = "apple_id"
	default:
		return nil, fmt.Errorf("sqlite: provider %q has no identity column", provider)
	}
	return db.getUserWhere(ctx, column+" = ?", providerID, providerID)
}

// Search finds a user by username and/or public ID. When both are given
// they must match the SAME row — that is how the launcher's add-friend form
// confirms the caller really knows who they are adding.
func (db *DB) Search(ctx context.Context, username, publicID string) (*model.User, error) {
	switch {
	case username != "" && publicID != "":
		return db.getUserWhere(ctx, "username = ? AND public_id = ?", username+"#"+publicID, username, publicID)
	case publicID != "":
		return db.GetByPublicID(ctx, publicID)
	case username != "":
		return db.GetByUsername(ctx, username)
	default:
		return nil, apperror.ValidationFailed("query", "username or userId required")
	}
}

// Update applies a partial update: only non-nil fields change, so calling
// Update with an empty UserUpdate is a no-op and repeating the same update
// is idempotent.
func (db *DB) Update(ctx context.Context, id string, upd repository.UserUpdate) error {
	set := []string{}
	args := []any{}

	if upd.Email != nil {
		set = append(set, "email = ?")
		args = append(args, nullString(*upd.Email))
	}
	if upd.EmailVerified != nil {
		set = append(set, "email_verified = ?")
		args = append(args, *upd.EmailVerified)
	}
	if upd.Avatar != nil {
		set = append(set, "avatar = ?")
		args = append(args, *upd.Avatar)
	}
	if upd.GoogleID != nil {
		set = append(set, "google_id = ?")
		args = append(args, nullString(*upd.GoogleID))
	}
	if upd.AppleID != nil {
		set = append(set, "apple_id = ?")
		args = append(args, nullString(*upd.AppleID))
	}
	if upd.VerificationCode != nil {
		set = append(set, "verification_code = ?", "verification_expires = ?")
		args = append(args, *upd.VerificationCode, upd.VerificationExpires)
	}
	if upd.ClearVerification {
		set = append(set, "verification_code = NULL", "verification_expires = NULL")
	}

	if len(set) == 0 {
		return nil
	}

	args = append(args, id)
	query := "UPDATE users SET " + joinSet(set) + " WHERE id = ?"

	res, err := db.conn.ExecContext(ctx, query, args...)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("user", id)
		}
		return fmt.Errorf("sqlite: updating user %s: %w", id, err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: updating user %s: %w", id, err)
	}
	if rows == 0 {
		return apperror.NotFound("user", id)
	}

	return nil
}

func joinSet(parts []string) string {
	out := parts[0]
	for _, p := range parts[1:] {
		out += ", " + p
	}
	return out
}

// PublicIDExists is the allocator's collision probe.
func (db *DB) PublicIDExists(ctx context.Context, publicID string) (bool, error) {
	var n int
	err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM users WHERE public_id = ?`, publicID,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("sqlite: checking public id %s: %w", publicID, err)
	}
	return n > 0, nil
}

// Count returns the number of accounts. Used to decide whether to seed
// test users on a fresh database.
func (db *DB) Count(ctx context.Context) (int, error) {
	var n int
	if err := db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
		return 0, fmt.Errorf("sqlite: counting users: %w", err)
	}
	return n, nil
}
