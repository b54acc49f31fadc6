package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/contaluz/contaluz/pkg/log"
	"github.com/contaluz/contaluz/pkg/types"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	log.SetDefaultLogLevel(slog.LevelError)
}

// testDatabase runs the behavior every backend shares.
func testDatabase(t *testing.T, db Database) {
	ctx := context.Background()
	householdID := fmt.Sprintf("test-household-%d", time.Now().UnixNano())

	t.Run("NotFound", func(t *testing.T) {
		_, _, err := db.LoadState(ctx, householdID)
		assert.ErrorIs(t, err, ErrStateNotFound)
	})

	t.Run("EmptyHouseholdID", func(t *testing.T) {
		_, _, err := db.LoadState(ctx, "")
		assert.ErrorContains(t, err, "householdID cannot be empty")
		assert.Error(t, db.SaveState(ctx, "", types.State{}, 1))
	})

	t.Run("RoundTrip", func(t *testing.T) {
		now := time.Date(2026, 5, 4, 9, 30, 0, 0, time.UTC)
		state := types.DefaultState(now)
		state.Balance = 250.5
		state.Profile.Name = "Ana"
		state.Profile.TariffPerKWh = 9.25
		state.Appliances = []types.Appliance{
			{ID: "a1", Name: "Geleira", PowerWatts: 150, HoursPerDay: 24, Quantity: 1, Category: types.CategoryKitchen, IsActive: true},
			{ID: "a2", Name: "Lâmpada LED", PowerWatts: 9, HoursPerDay: 6, Quantity: 4, Category: types.CategoryLighting},
		}
		state.Recharges = []types.Recharge{{ID: "r1", Date: now, Amount: 250.5}}

		require.NoError(t, db.SaveState(ctx, householdID, state, types.CurrentStateVersion))

		got, version, err := db.LoadState(ctx, householdID)
		require.NoError(t, err)
		assert.Equal(t, types.CurrentStateVersion, version)
		assert.Equal(t, state.Balance, got.Balance)
		assert.Equal(t, state.Appliances, got.Appliances)
		assert.Equal(t, state.Profile, got.Profile)
		assert.Equal(t, state.Recharges[0].ID, got.Recharges[0].ID)
		assert.True(t, state.Recharges[0].Date.Equal(got.Recharges[0].Date))
		assert.True(t, state.LastUpdate.Equal(got.LastUpdate))

		state.Balance = 10
		require.NoError(t, db.SaveState(ctx, householdID, state, types.CurrentStateVersion))
		got, _, err = db.LoadState(ctx, householdID)
		require.NoError(t, err)
		assert.Equal(t, 10.0, got.Balance)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, db.DeleteState(ctx, householdID))
		_, _, err := db.LoadState(ctx, householdID)
		assert.ErrorIs(t, err, ErrStateNotFound)
		// deleting again is fine
		require.NoError(t, db.DeleteState(ctx, householdID))
	})
}

func newTestSQLite(t *testing.T) *SQLiteDatabase {
	sqlDB, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	db, err := NewSQLiteDatabase(sqlDB)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestSQLiteDatabase(t *testing.T) {
	db := newTestSQLite(t)
	testDatabase(t, db)

	t.Run("Corrupt", func(t *testing.T) {
		ctx := context.Background()
		_, err := db.db.ExecContext(ctx, `INSERT INTO households (household_id, json, version) VALUES (?, ?, ?)`, "broken", "{not json", 1)
		require.NoError(t, err)
		_, _, err = db.LoadState(ctx, "broken")
		assert.ErrorIs(t, err, ErrCorruptState)
	})

	t.Run("LegacyBlob", func(t *testing.T) {
		ctx := context.Background()
		blob := `{"balance":80,"appliances":[{"id":"x","name":"TV","power":100,"hoursPerDay":5,"isActive":true}],"profile":{"name":"Rui"},"recharges":[]}`
		_, err := db.db.ExecContext(ctx, `INSERT INTO households (household_id, json, version) VALUES (?, ?, ?)`, "legacy", blob, 0)
		require.NoError(t, err)

		state, version, err := db.LoadState(ctx, "legacy")
		require.NoError(t, err)
		assert.Equal(t, 0, version)
		assert.Equal(t, "Rui", state.Profile.Name)
		assert.Equal(t, types.DefaultTariffPerKWh, state.Profile.TariffPerKWh)

		state, changed, err := types.MigrateState(state, version)
		require.NoError(t, err)
		assert.True(t, changed)
		assert.Equal(t, 1, state.Appliances[0].Quantity)
	})
}

func TestSQLiteValidate(t *testing.T) {
	assert.Error(t, (&SQLiteDatabase{}).Validate())
	assert.NoError(t, (&SQLiteDatabase{path: "x.db"}).Validate())
}

func TestRedisValidate(t *testing.T) {
	assert.Error(t, (&RedisDatabase{prefix: "p"}).Validate())
	assert.Error(t, (&RedisDatabase{url: "http://localhost", prefix: "p"}).Validate())
	assert.Error(t, (&RedisDatabase{url: "redis://localhost:6379/0"}).Validate())
	assert.NoError(t, (&RedisDatabase{url: "redis://:secret@localhost:6379/2", prefix: "p"}).Validate())
}

func TestRedisDatabase(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	require.NoError(t, client.Ping(context.Background()).Err())
	db := NewRedisDatabase(client, "contaluz-test")
	defer db.Close()

	testDatabase(t, db)
}

func TestFirestoreDatabase(t *testing.T) {
	if os.Getenv("FIRESTORE_EMULATOR_HOST") == "" {
		t.Skip("FIRESTORE_EMULATOR_HOST not set")
	}

	// Use a random database for isolation
	f := &FirestoreDatabase{
		projectID: "test-project-id",
		database:  fmt.Sprintf("test-db-%d", time.Now().UnixNano()),
	}

	ctx := context.Background()
	require.NoError(t, f.Init(ctx))
	defer f.Close()

	t.Run("Validate", func(t *testing.T) {
		require.NoError(t, f.Validate())
		assert.Error(t, (&FirestoreDatabase{credentialsFile: "/does/not/exist.json"}).Validate())
	})

	testDatabase(t, f)
}
