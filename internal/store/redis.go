package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"campusmark/internal/model"
)

// Redis wraps the redis client used as a per-user snapshot cache in
// front of the fetch-all query.
type Redis struct {
	Client *redis.Client
	TTL    time.Duration
}

// NewRedis connects to redis with short timeouts.
func NewRedis(addr string) *Redis {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  1 * time.Second,
		WriteTimeout: 1 * time.Second,
	})
	return &Redis{Client: client, TTL: 5 * time.Minute}
}

// Healthy verifies redis connectivity.
func (r *Redis) Healthy(ctx context.Context) bool {
	if r == nil || r.Client == nil {
		return false
	}
	return r.Client.Ping(ctx).Err() == nil
}

func snapshotKey(userID string) string {
	return "campusmark:snapshot:" + userID
}

// Snapshot returns the cached fetch-all response for a user, if any.
// Cache failures read as misses.
func (r *Redis) Snapshot(ctx context.Context, userID string) (model.Data, bool) {
	if r == nil || r.Client == nil {
		return model.Data{}, false
	}
	blob, err := r.Client.Get(ctx, snapshotKey(userID)).Result()
	if err != nil {
		return model.Data{}, false
	}
	var d model.Data
	if err := json.Unmarshal([]byte(blob), &d); err != nil {
		return model.Data{}, false
	}
	return d, true
}

// SetSnapshot caches a fetch-all response. Best effort.
func (r *Redis) SetSnapshot(ctx context.Context, userID string, d model.Data) {
	if r == nil || r.Client == nil {
		return
	}
	blob, err := json.Marshal(d)
	if err != nil {
		return
	}
	r.Client.Set(ctx, snapshotKey(userID), blob, r.TTL)
}

// InvalidateSnapshot drops the cached snapshot after any write for the
// user, so the next fetch sees the new documents.
func (r *Redis) InvalidateSnapshot(ctx context.Context, userID string) {
	if r == nil || r.Client == nil {
		return
	}
	r.Client.Del(ctx, snapshotKey(userID))
}
