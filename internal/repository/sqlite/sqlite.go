// Package sqlite implements the repository interfaces using SQLite as the
// storage backend.
//
// WHY SQLITE?
// The launcher backend runs as a single process next to the game servers —
// an embedded database that lives in one file is exactly the right size.
// No separate database server to install, configure, or manage, and tests
// get a throwaway ":memory:" database for free.
//
// WHY modernc.org/sqlite INSTEAD OF github.com/mattn/go-sqlite3?
// mattn/go-sqlite3 uses CGo, which means a C compiler at build time and
// painful cross-compilation. modernc.org/sqlite is a pure Go translation of
// SQLite — works everywhere Go works.
package sqlite

import (
	"database/sql"
	"fmt"
	"strings"

	// Side-effect import: the driver registers itself with database/sql
	// under the name "sqlite" at init time.
	_ "modernc.org/sqlite"
)

// DB wraps a sql.DB connection pool and implements both repository
// interfaces (UserRepository and FriendRepository) on one receiver.
// The whole backend shares this single handle, constructed once and
// passed into each service. No ambient singletons.
type DB struct {
	conn *sql.DB
}

// New opens a SQLite database at dbPath (use ":memory:" in tests) and runs
// migrations.
//
// sql.Open only creates the pool manager; Ping forces an immediate
// connection so a bad path surfaces here instead of on the first query.
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	// WAL lets reads proceed while a write is in flight — without it
	// SQLite locks the whole file for every write.
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting WAL mode: %w", err)
	}

	// Foreign keys are OFF by default in SQLite. The friends tables
	// reference users(id), so we want referential integrity enforced.
	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: enabling foreign keys: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// Close closes the connection pool. Always defer this next to New.
func (db *DB) Close() error {
	return db.conn.Close()
}

// migrate creates the schema. CREATE ... IF NOT EXISTS keeps it idempotent,
// which is all the migration machinery a single-binary deployment needs.
//
// SCHEMA NOTES:
//   - users: username, public_id, google_id, and apple_id each carry a
//     UNIQUE constraint. password_hash, email, google_id, apple_id are
//     nullable — NULL means "absent", and NULLs never collide under UNIQUE
//     (empty strings would).
//   - friend_requests: the partial unique index enforces at most one
//     PENDING request per (sender, receiver). Resolved requests are history
//     and do not block a re-request after a rejection.
//   - friends: one row per direction; the pair constraint forbids duplicate
//     edges, and the CHECK forbids self-edges even if application code slips.
func (db *DB) migrate() error {
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			id                   TEXT PRIMARY KEY,
			public_id            TEXT NOT NULL UNIQUE,
			username             TEXT NOT NULL UNIQUE,
			password_hash        TEXT,
			email                TEXT,
			email_verified       INTEGER NOT NULL DEFAULT 0,
			avatar               TEXT NOT NULL DEFAULT '',
			provider             TEXT NOT NULL DEFAULT 'local',
			google_id            TEXT UNIQUE,
			apple_id             TEXT UNIQUE,
			verification_code    TEXT,
			verification_expires DATETIME,
			created_at           DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_users_email ON users(email);

		CREATE TABLE IF NOT EXISTS friend_requests (
			id          TEXT PRIMARY KEY,
			sender_id   TEXT NOT NULL REFERENCES users(id),
			receiver_id TEXT NOT NULL REFERENCES users(id),
			status      TEXT NOT NULL DEFAULT 'pending',
			created_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE UNIQUE INDEX IF NOT EXISTS idx_requests_pending
			ON friend_requests(sender_id, receiver_id) WHERE status = 'pending';
		CREATE INDEX IF NOT EXISTS idx_requests_receiver
			ON friend_requests(receiver_id, status);

		CREATE TABLE IF NOT EXISTS friends (
			id         TEXT PRIMARY KEY,
			user_id    TEXT NOT NULL REFERENCES users(id),
			friend_id  TEXT NOT NULL REFERENCES users(id),
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			UNIQUE(user_id, friend_id),
			CHECK(user_id <> friend_id)
		);
	`)
	if err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	return nil
}

// isUniqueViolation reports whether err is a SQLite UNIQUE constraint
// failure. modernc.org/sqlite surfaces these as plain errors whose message
// contains the constraint text, so string matching is the practical check.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// nullString maps the model's empty-as-absent convention onto SQL NULL,
// so UNIQUE columns like google_id never collide on "".
func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
