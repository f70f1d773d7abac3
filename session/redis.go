package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const keyPrefix = "trackbook:session:"

// Redis stores every session as a JSON value expiring after ttl
type Redis struct {
	C   *redis.Client
	TTL time.Duration
}

// NewRedis connects to the server under redis.* and pings it
func NewRedis(ctx context.Context, ttl time.Duration) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     viper.GetString("redis.addr"),
		Password: viper.GetString("redis.password"),
		DB:       viper.GetInt("redis.db"),
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis, %w", err)
	}

	return &Redis{C: client, TTL: ttl}, nil
}

func (r *Redis) Get(ctx context.Context, id string) (*State, error) {
	if id == "" {
		return nil, ErrInvalidID
	}

	raw, err := r.C.Get(ctx, keyPrefix+id).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return emptyState(), nil
		}

		return nil, fmt.Errorf("failed to read session, %w", err)
	}

	var s State
	if err := json.Unmarshal(raw, &s); err != nil {
		// The next Save overwrites the broken value
		zap.L().Warn("Discarding undecodable session", zap.String("session_id", id), zap.Error(err))
		return emptyState(), nil
	}

	if r.TTL > 0 {
		r.C.Expire(ctx, keyPrefix+id, r.TTL)
	}

	return clone(&s), nil
}

func (r *Redis) Save(ctx context.Context, id string, s *State) error {
	if id == "" {
		return ErrInvalidID
	}

	raw, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to encode session, %w", err)
	}

	if err := r.C.Set(ctx, keyPrefix+id, raw, r.TTL).Err(); err != nil {
		return fmt.Errorf("failed to save session, %w", err)
	}

	return nil
}

func (r *Redis) Delete(ctx context.Context, id string) error {
	if err := r.C.Del(ctx, keyPrefix+id).Err(); err != nil {
		return fmt.Errorf("failed to delete session, %w", err)
	}

	return nil
}
