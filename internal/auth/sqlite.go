package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	_ "modernc.org/sqlite"
)

// SQLiteStore keeps users in a local SQLite database. It serves as both the
// identity verifier and the record store for self-hosted deployments.
type SQLiteStore struct {
	db     *sql.DB
	logger *zap.Logger
}

// OpenSQLiteStore opens (or creates) the database at path and runs migrations.
func OpenSQLiteStore(path string, logger *zap.Logger) (*SQLiteStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	s := &SQLiteStore{db: db, logger: logger}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	logger.Info("sqlite user store opened", zap.String("path", path))
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS users (
		email         TEXT PRIMARY KEY,
		password_hash TEXT NOT NULL DEFAULT '',
		first_name    TEXT NOT NULL DEFAULT '',
		last_name     TEXT NOT NULL DEFAULT '',
		tier          TEXT NOT NULL DEFAULT '',
		paid          INTEGER NOT NULL DEFAULT 0
	)`)
	return err
}

// Close closes the database.
func (s *SQLiteStore) Close() error { return s.db.Close() }

// Lookup returns the record for email, or ErrRecordNotFound.
func (s *SQLiteStore) Lookup(ctx context.Context, email string) (*UserRecord, error) {
	var (
		rec  UserRecord
		paid int
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT email, first_name, last_name, tier, paid FROM users WHERE email = ?`,
		normalizeEmail(email),
	).Scan(&rec.Email, &rec.FirstName, &rec.LastName, &rec.Tier, &paid)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRecordNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite lookup: %w", err)
	}
	rec.Paid = paid != 0
	return &rec, nil
}

// Verify checks password against the stored bcrypt hash.
func (s *SQLiteStore) Verify(ctx context.Context, email, password string) error {
	var hash string
	err := s.db.QueryRowContext(ctx,
		`SELECT password_hash FROM users WHERE email = ?`, normalizeEmail(email),
	).Scan(&hash)
	if errors.Is(err, sql.ErrNoRows) || hash == "" {
		return ErrInvalidCredentials
	}
	if err != nil {
		return fmt.Errorf("sqlite verify: %w", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
		return ErrInvalidCredentials
	}
	return nil
}

// Upsert inserts or replaces a record. An empty password keeps the stored hash.
func (s *SQLiteStore) Upsert(ctx context.Context, rec UserRecord, password string) error {
	email := normalizeEmail(rec.Email)
	if email == "" {
		return errors.New("sqlite upsert: email is required")
	}
	var hash string
	if password != "" {
		h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			return fmt.Errorf("hash password: %w", err)
		}
		hash = string(h)
	}
	paid := 0
	if rec.Paid {
		paid = 1
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (email, password_hash, first_name, last_name, tier, paid)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(email) DO UPDATE SET
			password_hash = CASE WHEN excluded.password_hash = '' THEN users.password_hash ELSE excluded.password_hash END,
			first_name    = excluded.first_name,
			last_name     = excluded.last_name,
			tier          = excluded.tier,
			paid          = excluded.paid`,
		email, hash, rec.FirstName, rec.LastName, rec.Tier, paid)
	if err != nil {
		return fmt.Errorf("sqlite upsert: %w", err)
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
