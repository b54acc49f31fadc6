package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/contaluz/contaluz/pkg/types"
	"github.com/levenlabs/go-lflag"
)

var (
	// ErrStateNotFound is returned when a household has never been saved.
	ErrStateNotFound = errors.New("state not found")
	// ErrCorruptState is returned when a stored blob cannot be decoded.
	ErrCorruptState = errors.New("state is corrupt")
)

// Database persists the household state blob.
type Database interface {
	// LoadState returns the stored state and the schema version it was saved
	// with. Profile fields missing from the blob keep their defaults.
	LoadState(ctx context.Context, householdID string) (types.State, int, error)
	// SaveState replaces the stored state.
	SaveState(ctx context.Context, householdID string, state types.State, version int) error
	// DeleteState removes the stored state. Deleting a missing state is not an
	// error.
	DeleteState(ctx context.Context, householdID string) error

	// Lifecycle
	Close() error
}

// Configured sets up the Storage provider based on flags.
func Configured() Database {
	provider := lflag.String("storage-provider", "firestore", "Storage provider to use (available: firestore, sqlite, redis)")

	var p struct{ Database }

	fs := configuredFirestore()
	sq := configuredSQLite()
	rd := configuredRedis()

	lflag.Do(func() {
		switch *provider {
		case "firestore":
			if err := fs.Validate(); err != nil {
				panic(fmt.Sprintf("firestore validation failed: %v", err))
			}
			p.Database = fs
			if err := fs.Init(context.Background()); err != nil {
				panic(fmt.Sprintf("firestore init failed: %v", err))
			}
		case "sqlite":
			if err := sq.Validate(); err != nil {
				panic(fmt.Sprintf("sqlite validation failed: %v", err))
			}
			p.Database = sq
			if err := sq.Init(context.Background()); err != nil {
				panic(fmt.Sprintf("sqlite init failed: %v", err))
			}
		case "redis":
			if err := rd.Validate(); err != nil {
				panic(fmt.Sprintf("redis validation failed: %v", err))
			}
			p.Database = rd
			if err := rd.Init(context.Background()); err != nil {
				panic(fmt.Sprintf("redis init failed: %v", err))
			}
		default:
			panic(fmt.Sprintf("unknown storage provider: %s", *provider))
		}
	})

	return &p
}

func encodeState(state types.State) (string, error) {
	b, err := json.Marshal(state)
	if err != nil {
		return "", fmt.Errorf("failed to marshal state: %w", err)
	}
	return string(b), nil
}

func decodeState(data string) (types.State, error) {
	s, err := types.DecodeState([]byte(data))
	if err != nil {
		return types.State{}, fmt.Errorf("%w: %w", ErrCorruptState, err)
	}
	return s, nil
}

func checkHouseholdID(householdID string) error {
	if householdID == "" {
		return fmt.Errorf("householdID cannot be empty")
	}
	return nil
}
