package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"community_chat/internal/model"

	"github.com/redis/go-redis/v9"
)

const (
	ActivityTTL       = 5 * time.Second
	ActivityKeyPrefix = "chat:activity" // hash: field=窗口分钟数
)

type ActivityCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewActivityCache(rdb *redis.Client) *ActivityCache {
	return &ActivityCache{rdb: rdb, ttl: ActivityTTL}
}

func (c *ActivityCache) key(communityID uint64) string {
	return fmt.Sprintf("%s:%d", ActivityKeyPrefix, communityID)
}

func (c *ActivityCache) Get(ctx context.Context, communityID uint64, windowMinutes int) (model.Activity, bool, error) {
	var a model.Activity
	raw, err := c.rdb.HGet(ctx, c.key(communityID), strconv.Itoa(windowMinutes)).Bytes()
	if errors.Is(err, redis.Nil) {
		return a, false, nil
	}
	if err != nil {
		return a, false, err
	}
	if err := json.Unmarshal(raw, &a); err != nil {
		return a, false, nil
	}
	return a, true, nil
}

// Set 整个 hash 共用一个 TTL，新消息到来时直接整体删除
func (c *ActivityCache) Set(ctx context.Context, communityID uint64, windowMinutes int, a model.Activity) error {
	raw, err := json.Marshal(a)
	if err != nil {
		return err
	}
	key := c.key(communityID)
	_, err = c.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.HSet(ctx, key, strconv.Itoa(windowMinutes), raw)
		p.Expire(ctx, key, c.ttl)
		return nil
	})
	return err
}

func (c *ActivityCache) Invalidate(ctx context.Context, communityID uint64) error {
	return c.rdb.Del(ctx, c.key(communityID)).Err()
}
