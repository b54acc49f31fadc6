package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/contaluz/contaluz/pkg/types"
	"github.com/levenlabs/go-lflag"
	"github.com/redis/go-redis/v9"
)

const (
	redisDialTimeout  = 5 * time.Second
	redisReadTimeout  = 3 * time.Second
	redisWriteTimeout = 3 * time.Second
)

// RedisDatabase implements Database with a Redis hash per household holding
// the "json" blob and its "version".
type RedisDatabase struct {
	client *redis.Client
	url    string
	prefix string
}

var _ Database = (*RedisDatabase)(nil)

func configuredRedis() *RedisDatabase {
	url := lflag.String("redis-url", "redis://localhost:6379/0", "Redis URL, including any password and database number")
	prefix := lflag.String("redis-key", "contaluz:household", "Prefix of the Redis key holding each household")

	r := &RedisDatabase{}

	lflag.Do(func() {
		r.url = strings.TrimSpace(*url)
		r.prefix = *prefix
	})

	return r
}

// NewRedisDatabase wraps an existing client.
func NewRedisDatabase(client *redis.Client, prefix string) *RedisDatabase {
	return &RedisDatabase{
		client: client,
		prefix: prefix,
	}
}

// Validate checks if the provider is properly configured.
func (r *RedisDatabase) Validate() error {
	if r.url == "" {
		return errors.New("redis-url is required")
	}
	if _, err := redis.ParseURL(r.url); err != nil {
		return fmt.Errorf("invalid redis-url: %w", err)
	}
	if r.prefix == "" {
		return errors.New("redis-key is required")
	}
	return nil
}

// Init creates the client and validates the connection with PING.
func (r *RedisDatabase) Init(ctx context.Context) error {
	opts, err := redis.ParseURL(r.url)
	if err != nil {
		return fmt.Errorf("invalid redis-url: %w", err)
	}
	opts.DialTimeout = redisDialTimeout
	opts.ReadTimeout = redisReadTimeout
	opts.WriteTimeout = redisWriteTimeout
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(ctx, redisDialTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return fmt.Errorf("failed to ping redis at %s: %w", opts.Addr, err)
	}
	r.client = client
	return nil
}

// Close closes the client.
func (r *RedisDatabase) Close() error {
	if r.client != nil {
		return r.client.Close()
	}
	return nil
}

func (r *RedisDatabase) key(householdID string) string {
	return r.prefix + ":" + householdID
}

// LoadState implements Database.
func (r *RedisDatabase) LoadState(ctx context.Context, householdID string) (types.State, int, error) {
	if err := checkHouseholdID(householdID); err != nil {
		return types.State{}, 0, err
	}
	fields, err := r.client.HGetAll(ctx, r.key(householdID)).Result()
	if err != nil {
		return types.State{}, 0, fmt.Errorf("failed to fetch state: %w", err)
	}
	if len(fields) == 0 {
		return types.State{}, 0, ErrStateNotFound
	}
	jsonStr, ok := fields["json"]
	if !ok {
		return types.State{}, 0, fmt.Errorf("%w: hash missing 'json' field", ErrCorruptState)
	}
	var version int
	if v, ok := fields["version"]; ok {
		if _, err := fmt.Sscanf(v, "%d", &version); err != nil {
			return types.State{}, 0, fmt.Errorf("%w: invalid version %q", ErrCorruptState, v)
		}
	}
	state, err := decodeState(jsonStr)
	if err != nil {
		return types.State{}, 0, err
	}
	return state, version, nil
}

// SaveState implements Database.
func (r *RedisDatabase) SaveState(ctx context.Context, householdID string, state types.State, version int) error {
	if err := checkHouseholdID(householdID); err != nil {
		return err
	}
	jsonStr, err := encodeState(state)
	if err != nil {
		return err
	}
	err = r.client.HSet(ctx, r.key(householdID),
		"json", jsonStr,
		"version", version,
	).Err()
	if err != nil {
		return fmt.Errorf("failed to save state: %w", err)
	}
	return nil
}

// DeleteState implements Database.
func (r *RedisDatabase) DeleteState(ctx context.Context, householdID string) error {
	if err := checkHouseholdID(householdID); err != nil {
		return err
	}
	if err := r.client.Del(ctx, r.key(householdID)).Err(); err != nil {
		return fmt.Errorf("failed to delete state: %w", err)
	}
	return nil
}
