package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"community_chat/internal/model"

	"github.com/redis/go-redis/v9"
)

const (
	CommunityViewTTL       = 10 * time.Minute
	RebuildLockTTL         = 300 * time.Millisecond
	CommunityViewKeyPrefix = "community:view"    // 社区详情缓存
	RebuildLockKeyPrefix   = "lock:community:view" // 回源重建的分布式锁
)

// CommunityCache 社区详情的旁路缓存
type CommunityCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewCommunityCache(rdb *redis.Client) *CommunityCache {
	return &CommunityCache{rdb: rdb, ttl: CommunityViewTTL}
}

func (c *CommunityCache) key(id uint64) string {
	return fmt.Sprintf("%s:%d", CommunityViewKeyPrefix, id)
}

// Get 返回 (view, 命中, err)
func (c *CommunityCache) Get(ctx context.Context, id uint64) (*model.CommunityView, bool, error) {
	raw, err := c.rdb.Get(ctx, c.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var v model.CommunityView
	if err := json.Unmarshal(raw, &v); err != nil {
		// 脏数据直接删掉，交给回源重建
		_ = c.rdb.Del(ctx, c.key(id)).Err()
		return nil, false, nil
	}
	return &v, true, nil
}

func (c *CommunityCache) Set(ctx context.Context, v *model.CommunityView) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, c.key(v.ID), raw, c.ttl).Err()
}

// Invalidate 删除缓存，可选延迟二删，抵消并发回填窗口
func (c *CommunityCache) Invalidate(ctx context.Context, id uint64, delay ...time.Duration) error {
	key := c.key(id)
	if err := c.rdb.Del(ctx, key).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return err
	}
	if len(delay) > 0 && delay[0] > 0 {
		d := delay[0]
		go func() {
			t := time.NewTimer(d)
			defer t.Stop()
			<-t.C
			_ = c.rdb.Del(context.Background(), key).Err()
		}()
	}
	return nil
}

// AcquireRebuild 请求回源锁，避免缓存击穿时全部打到数据库
func (c *CommunityCache) AcquireRebuild(ctx context.Context, id uint64, token string) (bool, error) {
	key := fmt.Sprintf("%s:%d", RebuildLockKeyPrefix, id)
	return c.rdb.SetNX(ctx, key, token, RebuildLockTTL).Result()
}

var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
  return redis.call("del", KEYS[1])
else
  return 0
end`)

// ReleaseRebuild 用lua保证只释放自己的锁
func (c *CommunityCache) ReleaseRebuild(ctx context.Context, id uint64, token string) error {
	key := fmt.Sprintf("%s:%d", RebuildLockKeyPrefix, id)
	return releaseScript.Run(ctx, c.rdb, []string{key}, token).Err()
}
