package redislock

import (
	"context"
	"log"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
)

// setupTestRedis creates a Redis client backed by miniredis, so tests need
// no real Redis server.
func setupTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to create miniredis: %v", err)
	}

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
	if err := client.Ping(context.Background()).Err(); err != nil {
		mr.Close()
		t.Fatalf("Failed to connect to miniredis: %v", err)
	}
	return client, mr
}

func cleanupTestRedis(client *redis.Client, mr *miniredis.Miniredis) {
	if client != nil {
		client.Close()
	}
	if mr != nil {
		mr.Close()
	}
}

func TestLockAndUnlock(t *testing.T) {
	client, mr := setupTestRedis(t)
	defer cleanupTestRedis(client, mr)

	r := &Redis{Client: client, Logger: log.Default()}
	key := OrderKey("order1")

	ok, err := r.Lock(key, "owner1")
	assert.NoError(t, err)
	assert.True(t, ok)

	holder, err := r.Holder(key)
	assert.NoError(t, err)
	assert.Equal(t, "owner1", holder)

	assert.NoError(t, r.Unlock(key, "owner1"))

	holder, err = r.Holder(key)
	assert.NoError(t, err)
	assert.Empty(t, holder)
}

func TestLockHeldByAnotherOwner(t *testing.T) {
	client, mr := setupTestRedis(t)
	defer cleanupTestRedis(client, mr)

	r := &Redis{Client: client, Logger: log.Default()}
	key := OrderKey("order1")

	ok, err := r.Lock(key, "owner1")
	assert.NoError(t, err)
	assert.True(t, ok)

	// Second taker loses while the first still holds the key.
	ok, err = r.Lock(key, "owner2")
	assert.NoError(t, err)
	assert.False(t, ok)
}

func TestUnlockForeignLockIsNoOp(t *testing.T) {
	client, mr := setupTestRedis(t)
	defer cleanupTestRedis(client, mr)

	r := &Redis{Client: client, Logger: log.Default()}
	key := ExclusiveKey("music1")

	ok, err := r.Lock(key, "buyer1")
	assert.NoError(t, err)
	assert.True(t, ok)

	assert.NoError(t, r.Unlock(key, "buyer2"))

	holder, err := r.Holder(key)
	assert.NoError(t, err)
	assert.Equal(t, "buyer1", holder)
}

func TestUnlockExpiredLock(t *testing.T) {
	client, mr := setupTestRedis(t)
	defer cleanupTestRedis(client, mr)

	r := &Redis{Client: client, Logger: log.Default()}
	key := ExclusiveKey("music1")

	ok, err := r.Lock(key, "buyer1")
	assert.NoError(t, err)
	assert.True(t, ok)

	mr.FastForward(r.lockTTL() * 2)

	// The key expired, so unlocking is a no-op and the key is free again.
	assert.NoError(t, r.Unlock(key, "buyer1"))

	ok, err = r.Lock(key, "buyer2")
	assert.NoError(t, err)
	assert.True(t, ok)
}
