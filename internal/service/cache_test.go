package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"community_chat/internal/model"
	"community_chat/internal/pkg"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type memCommunityCache struct {
	mu          sync.Mutex
	views       map[uint64]model.CommunityView
	locks       map[uint64]string
	sets        int
	invalidated []uint64
}

func newMemCommunityCache() *memCommunityCache {
	return &memCommunityCache{views: map[uint64]model.CommunityView{}, locks: map[uint64]string{}}
}

func (m *memCommunityCache) Get(_ context.Context, id uint64) (*model.CommunityView, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.views[id]
	if !ok {
		return nil, false, nil
	}
	return &v, true, nil
}

func (m *memCommunityCache) Set(_ context.Context, v *model.CommunityView) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.views[v.ID] = *v
	m.sets++
	return nil
}

func (m *memCommunityCache) Invalidate(_ context.Context, id uint64, _ ...time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.views, id)
	m.invalidated = append(m.invalidated, id)
	return nil
}

func (m *memCommunityCache) AcquireRebuild(_ context.Context, id uint64, token string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, held := m.locks[id]; held {
		return false, nil
	}
	m.locks[id] = token
	return true, nil
}

func (m *memCommunityCache) ReleaseRebuild(_ context.Context, id uint64, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.locks[id] == token {
		delete(m.locks, id)
	}
	return nil
}

// lockDownCache 分布式锁不可用，读写正常
type lockDownCache struct {
	*memCommunityCache
}

func (lockDownCache) AcquireRebuild(context.Context, uint64, string) (bool, error) {
	return false, errors.New("redis: connection refused")
}

type memActivityCache struct {
	mu     sync.Mutex
	values map[uint64]map[int]model.Activity
}

func (m *memActivityCache) Get(_ context.Context, communityID uint64, window int) (model.Activity, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.values[communityID][window]
	return a, ok, nil
}

func (m *memActivityCache) Set(_ context.Context, communityID uint64, window int, a model.Activity) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.values[communityID] == nil {
		m.values[communityID] = map[int]model.Activity{}
	}
	m.values[communityID][window] = a
	return nil
}

func (m *memActivityCache) Invalidate(_ context.Context, communityID uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, communityID)
	return nil
}

func TestCommunityGetUsesCache(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	cache := newMemCommunityCache()
	env.communities.cache = cache

	id := mustCreate(t, env, "Builders", alice)
	if _, err := env.communities.Get(ctx, id); err != nil {
		t.Fatalf("get: %v", err)
	}
	if _, err := env.communities.Get(ctx, id); err != nil {
		t.Fatalf("get: %v", err)
	}
	if cache.sets != 1 {
		t.Fatalf("expected one cache fill, got %d", cache.sets)
	}
	if len(cache.locks) != 0 {
		t.Fatalf("rebuild lock should be released")
	}

	mustJoin(t, env, id, bob)
	v, err := env.communities.Get(ctx, id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if v.MemberCount != 2 {
		t.Fatalf("join should invalidate cached view, member_count=%d", v.MemberCount)
	}

	if _, err := env.communities.Update(ctx, id, alice, "Builders Guild", ""); err != nil {
		t.Fatalf("update: %v", err)
	}
	v, _ = env.communities.Get(ctx, id)
	if v.Name != "Builders Guild" {
		t.Fatalf("update should invalidate cached view, name=%q", v.Name)
	}
}

func TestCommunityGetLogsRebuildLockError(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	core, logs := observer.New(zapcore.WarnLevel)
	env.communities.log = &pkg.Logger{SugaredLogger: zap.New(core).Sugar()}
	env.communities.cache = lockDownCache{newMemCommunityCache()}

	id := mustCreate(t, env, "Builders", alice)
	v, err := env.communities.Get(ctx, id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if v.Name != "Builders" || v.MemberCount != 1 {
		t.Fatalf("get: got %+v", v)
	}

	entries := logs.FilterMessage("acquire rebuild lock failed").All()
	if len(entries) != 1 {
		t.Fatalf("expected one lock warning, got %d", len(entries))
	}
	if entries[0].Level != zapcore.WarnLevel {
		t.Fatalf("lock warning level: got %v", entries[0].Level)
	}
	if got := entries[0].ContextMap()["community_id"]; got != id {
		t.Fatalf("lock warning community_id: got %v", got)
	}
}

func TestActivityCacheInvalidatedOnSend(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	cache := &memActivityCache{values: map[uint64]map[int]model.Activity{}}
	env.activity.cache = cache
	env.chat.activity = cache

	id := mustCreate(t, env, "Builders", alice)
	a, _ := env.activity.RecentActivity(ctx, id, 5)
	if a.MessageCount != 0 {
		t.Fatalf("initial: %+v", a)
	}
	if _, ok, _ := cache.Get(ctx, id, 5); !ok {
		t.Fatalf("result should be cached")
	}

	mustSend(t, env, id, alice, "hi")
	a, _ = env.activity.RecentActivity(ctx, id, 5)
	if a.MessageCount != 1 || a.ActiveUserCount != 1 {
		t.Fatalf("send should invalidate cached activity: %+v", a)
	}
}
