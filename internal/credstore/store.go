// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package credstore persists token pairs for the command-line client.
// The relay server never uses it.
package credstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure Go driver

	psnauth "github.com/ManuGH/capturerelay/internal/psn/auth"
)

// DefaultProfile is used when the caller names none.
const DefaultProfile = "default"

// ErrNotFound is returned when a profile has no stored credentials.
var ErrNotFound = errors.New("credstore: no credentials for profile")

// Credentials is one stored token pair.
type Credentials struct {
	Profile   string
	Pair      psnauth.TokenPair
	UpdatedAt time.Time
}

// Store is a SQLite-backed credential table.
type Store struct {
	db *sql.DB
}

// Open opens or creates the store at path. The file is private to the
// current user.
func Open(ctx context.Context, path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("credstore: create directory: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(%d)&_pragma=synchronous(NORMAL)",
		path, (5 * time.Second).Milliseconds())
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("credstore: open failed: %w", err)
	}
	// A single writer keeps WAL checkpoints simple for a CLI.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("credstore: ping failed: %w", err)
	}
	if err := os.Chmod(path, 0o600); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("credstore: restrict permissions: %w", err)
	}

	s := &Store{db: db}
	if problems, err := s.verify(ctx); err != nil {
		_ = db.Close()
		return nil, err
	} else if len(problems) > 0 {
		_ = db.Close()
		return nil, fmt.Errorf("credstore: %s is corrupt: %v", path, problems)
	}
	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("credstore: run migrations: %w", err)
	}
	return s, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS credentials (
		profile TEXT PRIMARY KEY,
		access_token TEXT NOT NULL,
		refresh_token TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);
	`
	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// Put stores pair under profile, replacing any previous pair.
func (s *Store) Put(ctx context.Context, profile string, pair psnauth.TokenPair) error {
	if profile == "" {
		profile = DefaultProfile
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		return fmt.Errorf("credstore: refusing to store incomplete token pair")
	}
	query := `
	INSERT INTO credentials (profile, access_token, refresh_token, updated_at)
	VALUES (?, ?, ?, ?)
	ON CONFLICT(profile) DO UPDATE SET
		access_token = excluded.access_token,
		refresh_token = excluded.refresh_token,
		updated_at = excluded.updated_at
	`
	_, err := s.db.ExecContext(ctx, query, profile, pair.AccessToken, pair.RefreshToken, time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("credstore: put %s: %w", profile, err)
	}
	return nil
}

// Get returns the credentials for profile or ErrNotFound.
func (s *Store) Get(ctx context.Context, profile string) (Credentials, error) {
	if profile == "" {
		profile = DefaultProfile
	}
	query := `SELECT access_token, refresh_token, updated_at FROM credentials WHERE profile = ?`

	var (
		c       = Credentials{Profile: profile}
		updated string
	)
	err := s.db.QueryRowContext(ctx, query, profile).Scan(&c.Pair.AccessToken, &c.Pair.RefreshToken, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return Credentials{}, fmt.Errorf("%w: %s", ErrNotFound, profile)
	}
	if err != nil {
		return Credentials{}, fmt.Errorf("credstore: get %s: %w", profile, err)
	}
	if t, err := time.Parse(time.RFC3339Nano, updated); err == nil {
		c.UpdatedAt = t
	}
	return c, nil
}

// Delete removes profile. Deleting a missing profile is not an error.
func (s *Store) Delete(ctx context.Context, profile string) error {
	if profile == "" {
		profile = DefaultProfile
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM credentials WHERE profile = ?`, profile); err != nil {
		return fmt.Errorf("credstore: delete %s: %w", profile, err)
	}
	return nil
}

// Profiles lists stored profile names in order.
func (s *Store) Profiles(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT profile FROM credentials ORDER BY profile`)
	if err != nil {
		return nil, fmt.Errorf("credstore: list profiles: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
