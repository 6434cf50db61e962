// internal/cache/redis.go
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// DefaultQueueName is the Redis list that receives game action records.
var DefaultQueueName = "blob_actions"

// ActionRecord is one game-affecting action, pushed for offline consumers
// (replay, analytics).
type ActionRecord struct {
	GameCode      string                 `json:"game_code"`
	ActorPlayerID uuid.UUID              `json:"actor_player_id"`
	ActionType    string                 `json:"action_type"`
	ActionPayload map[string]interface{} `json:"action_payload"`
	Timestamp     int64                  `json:"timestamp"`
}

// ActionLog writes action records to a Redis queue. It satisfies
// game.ActionLogger.
type ActionLog struct {
	rdb   *redis.Client
	queue string
}

// Connect initializes an ActionLog from environment variables:
//   - REDIS_ADDR (required; empty disables action logging)
//   - REDIS_DB (optional, default 0)
func Connect(ctx context.Context) (*ActionLog, error) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		return nil, nil
	}
	dbIdx := 0
	if v := os.Getenv("REDIS_DB"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid REDIS_DB %q: %w", v, err)
		}
		dbIdx = n
	}

	rdb := redis.NewClient(&redis.Options{Addr: addr, DB: dbIdx})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
	}
	logrus.WithField("addr", addr).Info("connected to redis")
	return &ActionLog{rdb: rdb, queue: DefaultQueueName}, nil
}

// Record pushes one action record. Failures are logged and swallowed: the
// action feed is an observer, never a gate on game progress.
func (l *ActionLog) Record(code string, actor uuid.UUID, action string, payload map[string]interface{}) {
	rec := ActionRecord{
		GameCode:      code,
		ActorPlayerID: actor,
		ActionType:    action,
		ActionPayload: payload,
		Timestamp:     time.Now().UnixMilli(),
	}
	data, err := json.Marshal(rec)
	if err != nil {
		logrus.WithError(err).Error("failed to encode action record")
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := l.rdb.LPush(ctx, l.queue, data).Err(); err != nil {
		logrus.WithError(err).WithField("action", action).Warn("failed to push action record")
	}
}
