package service

import (
	"context"
	"fmt"
	"time"

	"community_chat/internal/model"
	"community_chat/internal/pkg"
	"community_chat/internal/repository/rdb"

	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"
)

const (
	DefaultActivityWindow = 5
	MaxActivityWindow     = 24 * 60
)

// ActivityService 最近聊天活跃度，只读；调用方负责成员校验
type ActivityService struct {
	repo  *rdb.ChatRepository
	cache ActivityCache
	log   *pkg.Logger
	now   func() time.Time
}

func NewActivityService(db *gorm.DB, log *pkg.Logger, cache ActivityCache) *ActivityService {
	return &ActivityService{
		repo:  &rdb.ChatRepository{DB: db},
		cache: cache,
		log:   log.With("service", "ActivityService"),
		now:   rdb.Now,
	}
}

func (s *ActivityService) RecentActivity(ctx context.Context, communityID uint64, windowMinutes int) (a model.Activity, err error) {
	ctx, span := startSpan(ctx, "chat.activity", idAttr("community.id", communityID),
		attribute.Int("window.minutes", windowMinutes))
	defer func() { endSpan(span, err) }()

	if windowMinutes <= 0 || windowMinutes > MaxActivityWindow {
		return a, pkg.Validation(fmt.Sprintf("window must be between 1 and %d minutes", MaxActivityWindow))
	}
	if s.cache != nil {
		if cached, ok, cerr := s.cache.Get(ctx, communityID, windowMinutes); cerr == nil && ok {
			return cached, nil
		} else if cerr != nil {
			s.log.Warn("activity cache read failed", "community_id", communityID, "error", cerr)
		}
	}

	since := s.now().Add(-time.Duration(windowMinutes) * time.Minute)
	a, err = s.repo.Activity(ctx, communityID, since)
	if err != nil {
		return model.Activity{}, fmt.Errorf("recent activity: %w", err)
	}
	if s.cache != nil {
		if serr := s.cache.Set(ctx, communityID, windowMinutes, a); serr != nil {
			s.log.Warn("activity cache write failed", "community_id", communityID, "error", serr)
		}
	}
	return a, nil
}
