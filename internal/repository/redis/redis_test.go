package redis

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"community_chat/internal/model"

	"github.com/redis/go-redis/v9"
)

// 需要本地 redis：REDIS_ADDR=127.0.0.1:6379 go test ./internal/repository/redis/
func newTestClient(t *testing.T) *redis.Client {
	t.Helper()
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	client, err := NewClient(context.Background(), addr, os.Getenv("REDIS_PASSWORD"), 15)
	if err != nil {
		t.Fatalf("connect redis: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func testID() uint64 {
	return uint64(time.Now().UnixNano() % 1_000_000_000)
}

func TestCommunityCacheRoundTrip(t *testing.T) {
	ctx := context.Background()
	cache := NewCommunityCache(newTestClient(t))
	id := testID()
	t.Cleanup(func() { _ = cache.Invalidate(ctx, id) })

	if _, ok, err := cache.Get(ctx, id); err != nil || ok {
		t.Fatalf("empty get: ok=%v err=%v", ok, err)
	}
	v := &model.CommunityView{ID: id, Name: "Builders", AdminID: 1, MemberCount: 2}
	if err := cache.Set(ctx, v); err != nil {
		t.Fatalf("set: %v", err)
	}
	got, ok, err := cache.Get(ctx, id)
	if err != nil || !ok || got.Name != "Builders" || got.MemberCount != 2 {
		t.Fatalf("get: %+v ok=%v err=%v", got, ok, err)
	}
	if err := cache.Invalidate(ctx, id); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	if _, ok, _ := cache.Get(ctx, id); ok {
		t.Fatalf("expected miss after invalidate")
	}
}

func TestCommunityCacheRebuildLock(t *testing.T) {
	ctx := context.Background()
	cache := NewCommunityCache(newTestClient(t))
	id := testID()

	got, err := cache.AcquireRebuild(ctx, id, "a")
	if err != nil || !got {
		t.Fatalf("first acquire: got=%v err=%v", got, err)
	}
	if got, _ := cache.AcquireRebuild(ctx, id, "b"); got {
		t.Fatalf("second acquire should fail while held")
	}
	// 别人的 token 释放不掉
	if err := cache.ReleaseRebuild(ctx, id, "b"); err != nil {
		t.Fatalf("release foreign: %v", err)
	}
	if got, _ := cache.AcquireRebuild(ctx, id, "b"); got {
		t.Fatalf("lock should still be held by a")
	}
	if err := cache.ReleaseRebuild(ctx, id, "a"); err != nil {
		t.Fatalf("release: %v", err)
	}
	if got, _ := cache.AcquireRebuild(ctx, id, "b"); !got {
		t.Fatalf("acquire after release should succeed")
	}
	_ = cache.ReleaseRebuild(ctx, id, "b")
}

func TestActivityCache(t *testing.T) {
	ctx := context.Background()
	cache := NewActivityCache(newTestClient(t))
	id := testID()
	t.Cleanup(func() { _ = cache.Invalidate(ctx, id) })

	if err := cache.Set(ctx, id, 5, model.Activity{MessageCount: 3, ActiveUserCount: 2}); err != nil {
		t.Fatalf("set: %v", err)
	}
	a, ok, err := cache.Get(ctx, id, 5)
	if err != nil || !ok || a.MessageCount != 3 || a.ActiveUserCount != 2 {
		t.Fatalf("get: %+v ok=%v err=%v", a, ok, err)
	}
	if _, ok, _ := cache.Get(ctx, id, 60); ok {
		t.Fatalf("other window should miss")
	}
	_ = cache.Invalidate(ctx, id)
	if _, ok, _ := cache.Get(ctx, id, 5); ok {
		t.Fatalf("expected miss after invalidate")
	}
}

func TestSessionRepository(t *testing.T) {
	ctx := context.Background()
	client := newTestClient(t)
	repo := NewSessionRepository(client)
	id := testID()
	key := fmt.Sprintf("%s:%d", UserTokenPrefix, id)
	t.Cleanup(func() { _ = client.Del(ctx, key).Err() })

	if _, err := repo.GetUserToken(ctx, id); !errors.Is(err, ErrTokenNotFound) {
		t.Fatalf("missing token: got %v", err)
	}
	if err := client.Set(ctx, key, "tok", time.Minute).Err(); err != nil {
		t.Fatalf("seed: %v", err)
	}
	tok, err := repo.GetUserToken(ctx, id)
	if err != nil || tok != "tok" {
		t.Fatalf("get: %q %v", tok, err)
	}
	if err := repo.ExtendUserToken(ctx, id); err != nil {
		t.Fatalf("extend: %v", err)
	}
	if ttl := client.TTL(ctx, key).Val(); ttl <= time.Minute {
		t.Fatalf("ttl should be extended, got %v", ttl)
	}
}
