package presence

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	onlineKeyPrefix = "presence:online:"

	// onlineTTL caps how long a crashed instance can leave a user marked
	// online before the key self-heals.
	onlineTTL = 24 * time.Hour
)

// Tracker records which users currently hold at least one live websocket
// connection. It is an optional capability: a nil Tracker (Redis absent or
// unreachable at startup) turns every call into a no-op.
type Tracker struct {
	client *redis.Client
}

func NewTracker(addr, password string, db int) (*Tracker, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &Tracker{client: client}, nil
}

func (t *Tracker) SetOnline(ctx context.Context, userID uuid.UUID) {
	if t == nil {
		return
	}
	if err := t.client.Set(ctx, onlineKey(userID), time.Now().Unix(), onlineTTL).Err(); err != nil {
		log.Warn().Err(err).Str("user_id", userID.String()).Msg("failed to mark user online")
	}
}

func (t *Tracker) SetOffline(ctx context.Context, userID uuid.UUID) {
	if t == nil {
		return
	}
	if err := t.client.Del(ctx, onlineKey(userID)).Err(); err != nil {
		log.Warn().Err(err).Str("user_id", userID.String()).Msg("failed to mark user offline")
	}
}

func (t *Tracker) IsOnline(ctx context.Context, userID uuid.UUID) bool {
	if t == nil {
		return false
	}
	n, err := t.client.Exists(ctx, onlineKey(userID)).Result()
	if err != nil {
		log.Warn().Err(err).Str("user_id", userID.String()).Msg("failed to check presence")
		return false
	}
	return n > 0
}

func (t *Tracker) Close() error {
	if t == nil {
		return nil
	}
	return t.client.Close()
}

func onlineKey(userID uuid.UUID) string {
	return onlineKeyPrefix + userID.String()
}
