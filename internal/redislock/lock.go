package redislock

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
)

// Redis provides owner-tagged locks with a TTL. An order mutation holds
// "order_mutex:<id>" while it runs; an exclusive buyout takes
// "exclusive_buy:<musicId>" so only one checkout can attempt the flip.
type Redis struct {
	Client *redis.Client
	Logger *log.Logger
}

func New(client *redis.Client) *Redis {
	return &Redis{
		Client: client,
		Logger: log.Default(),
	}
}

// lockTTL returns the lock duration from the environment or the default.
func (r *Redis) lockTTL() time.Duration {
	defaultDuration := 5 * time.Minute

	ttlStr := os.Getenv("LOCK_TTL_MINUTES")
	if ttlStr == "" {
		return defaultDuration
	}

	ttlMin, err := strconv.Atoi(ttlStr)
	if err != nil {
		r.Logger.Println("REDIS: Invalid LOCK_TTL_MINUTES value '" + ttlStr + "', using default 5 minutes")
		return defaultDuration
	}

	return time.Duration(ttlMin) * time.Minute
}

// Lock takes the key for owner. Returns false when someone else holds it.
func (r *Redis) Lock(key, owner string) (bool, error) {
	return r.Client.SetNX(context.Background(), key, owner, r.lockTTL()).Result()
}

// Unlock releases the key, but only if owner still holds it. Releasing an
// expired or foreign lock is a no-op.
func (r *Redis) Unlock(key, owner string) error {
	ctx := context.Background()
	val, err := r.Client.Get(ctx, key).Result()
	if err == redis.Nil {
		return nil // already released or expired
	}
	if err != nil {
		return err
	}
	if val == owner {
		_, err := r.Client.Del(ctx, key).Result()
		return err
	}
	return nil
}

// Holder reports who currently owns the key, or "" when unlocked.
func (r *Redis) Holder(key string) (string, error) {
	val, err := r.Client.Get(context.Background(), key).Result()
	if err == redis.Nil {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return val, nil
}

// OrderKey is the mutation lock key for an order.
func OrderKey(orderID string) string {
	return fmt.Sprintf("order_mutex:%s", orderID)
}

// ExclusiveKey is the buyout guard key for a music track.
func ExclusiveKey(musicID string) string {
	return fmt.Sprintf("exclusive_buy:%s", musicID)
}
