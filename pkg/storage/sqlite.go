package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/contaluz/contaluz/pkg/types"
	"github.com/levenlabs/go-lflag"

	_ "modernc.org/sqlite"
)

// SQLiteDatabase implements Database with a local SQLite file, for single
// household installs without cloud access.
type SQLiteDatabase struct {
	db   *sql.DB
	path string
}

var _ Database = (*SQLiteDatabase)(nil)

func configuredSQLite() *SQLiteDatabase {
	path := lflag.String("sqlite-path", "contaluz.db", "Path to the SQLite database file")

	s := &SQLiteDatabase{}

	lflag.Do(func() {
		s.path = *path
	})

	return s
}

// NewSQLiteDatabase wraps an open database and creates the schema.
func NewSQLiteDatabase(db *sql.DB) (*SQLiteDatabase, error) {
	s := &SQLiteDatabase{db: db}
	if err := s.migrate(context.Background()); err != nil {
		return nil, err
	}
	return s, nil
}

// Validate checks if the provider is properly configured.
func (s *SQLiteDatabase) Validate() error {
	if s.path == "" {
		return fmt.Errorf("sqlite-path is required")
	}
	return nil
}

// Init opens the database file and creates the schema.
func (s *SQLiteDatabase) Init(ctx context.Context) error {
	db, err := sql.Open("sqlite", s.path)
	if err != nil {
		return fmt.Errorf("failed to open sqlite database %s: %w", s.path, err)
	}
	// a single writer avoids SQLITE_BUSY
	db.SetMaxOpenConns(1)
	s.db = db
	return s.migrate(ctx)
}

func (s *SQLiteDatabase) migrate(ctx context.Context) error {
	query := `
	CREATE TABLE IF NOT EXISTS households (
		household_id TEXT PRIMARY KEY,
		json TEXT NOT NULL,
		version INTEGER NOT NULL DEFAULT 0,
		updated_at DATETIME
	);`
	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to migrate sqlite schema: %w", err)
	}
	return nil
}

// Close closes the database.
func (s *SQLiteDatabase) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// LoadState implements Database.
func (s *SQLiteDatabase) LoadState(ctx context.Context, householdID string) (types.State, int, error) {
	if err := checkHouseholdID(householdID); err != nil {
		return types.State{}, 0, err
	}
	var jsonStr string
	var version int
	err := s.db.QueryRowContext(ctx,
		`SELECT json, version FROM households WHERE household_id = ?`,
		householdID,
	).Scan(&jsonStr, &version)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.State{}, 0, ErrStateNotFound
		}
		return types.State{}, 0, fmt.Errorf("failed to fetch state: %w", err)
	}
	state, err := decodeState(jsonStr)
	if err != nil {
		return types.State{}, 0, err
	}
	return state, version, nil
}

// SaveState implements Database.
func (s *SQLiteDatabase) SaveState(ctx context.Context, householdID string, state types.State, version int) error {
	if err := checkHouseholdID(householdID); err != nil {
		return err
	}
	jsonStr, err := encodeState(state)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO households (household_id, json, version, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(household_id) DO UPDATE SET json = excluded.json, version = excluded.version, updated_at = excluded.updated_at`,
		householdID, jsonStr, version, time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("failed to save state: %w", err)
	}
	return nil
}

// DeleteState implements Database.
func (s *SQLiteDatabase) DeleteState(ctx context.Context, householdID string) error {
	if err := checkHouseholdID(householdID); err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM households WHERE household_id = ?`, householdID); err != nil {
		return fmt.Errorf("failed to delete state: %w", err)
	}
	return nil
}
