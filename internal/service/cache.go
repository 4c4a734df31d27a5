package service

import (
	"context"
	"time"

	"community_chat/internal/model"
)

// CommunityCache 社区详情缓存，可为 nil（不启用 redis 时）
type CommunityCache interface {
	Get(ctx context.Context, id uint64) (*model.CommunityView, bool, error)
	Set(ctx context.Context, v *model.CommunityView) error
	Invalidate(ctx context.Context, id uint64, delay ...time.Duration) error
	AcquireRebuild(ctx context.Context, id uint64, token string) (bool, error)
	ReleaseRebuild(ctx context.Context, id uint64, token string) error
}

// ActivityCache 活跃度短缓存，可为 nil
type ActivityCache interface {
	Get(ctx context.Context, communityID uint64, windowMinutes int) (model.Activity, bool, error)
	Set(ctx context.Context, communityID uint64, windowMinutes int, a model.Activity) error
	Invalidate(ctx context.Context, communityID uint64) error
}
