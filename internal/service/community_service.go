package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"community_chat/internal/model"
	"community_chat/internal/pkg"
	"community_chat/internal/repository/rdb"

	"gorm.io/gorm"
)

const (
	MaxCommunityNameLen  = 64
	MaxDescriptionLen    = 2000
	DefaultCommunityPage = 10
	MaxCommunityPage     = 50

	invalidateDelay = 500 * time.Millisecond
)

// CommunityService 社区目录：社区身份、管理员归属
type CommunityService struct {
	repo  *rdb.CommunityRepository
	cache CommunityCache
	log   *pkg.Logger
	now   func() time.Time
}

func NewCommunityService(db *gorm.DB, log *pkg.Logger, cache CommunityCache) *CommunityService {
	return &CommunityService{
		repo:  &rdb.CommunityRepository{DB: db},
		cache: cache,
		log:   log.With("service", "CommunityService"),
		now:   rdb.Now,
	}
}

func validateCommunityFields(name, description string) (string, string, error) {
	name = pkg.CleanText(name)
	description = pkg.CleanText(description)
	if name == "" {
		return "", "", pkg.Validation("community name is required")
	}
	if pkg.RuneLen(name) > MaxCommunityNameLen {
		return "", "", pkg.Validation(fmt.Sprintf("community name must be at most %d characters", MaxCommunityNameLen))
	}
	if pkg.RuneLen(description) > MaxDescriptionLen {
		return "", "", pkg.Validation(fmt.Sprintf("description must be at most %d characters", MaxDescriptionLen))
	}
	return name, description, nil
}

// Create 创建社区，管理员自动成为成员（同一事务）
func (s *CommunityService) Create(ctx context.Context, name, description string, adminID uint64) (id uint64, err error) {
	ctx, span := startSpan(ctx, "community.create", idAttr("user.id", adminID))
	defer func() { endSpan(span, err) }()

	if adminID == 0 {
		return 0, pkg.Validation("admin id is required")
	}
	name, description, err = validateCommunityFields(name, description)
	if err != nil {
		return 0, err
	}

	c := &model.Community{
		Name:        name,
		Description: description,
		AdminID:     adminID,
		CreatedAt:   s.now(),
	}
	if err = s.repo.Create(ctx, c); err != nil {
		if errors.Is(err, rdb.ErrDuplicate) {
			return 0, pkg.Conflict("community name already exists")
		}
		return 0, fmt.Errorf("create community: %w", err)
	}
	s.log.Info("community created", "community_id", c.ID, "user_id", adminID)
	return c.ID, nil
}

// Get 先读缓存；未命中时拿回源锁，拿不到锁短暂退避后再读一次缓存
func (s *CommunityService) Get(ctx context.Context, id uint64) (v *model.CommunityView, err error) {
	ctx, span := startSpan(ctx, "community.get", idAttr("community.id", id))
	defer func() { endSpan(span, err) }()

	if s.cache == nil {
		return s.load(ctx, id)
	}
	if v, ok, cerr := s.cache.Get(ctx, id); cerr == nil && ok {
		return v, nil
	} else if cerr != nil {
		s.log.Warn("community cache read failed", "community_id", id, "error", cerr)
		return s.load(ctx, id)
	}

	token := fmt.Sprintf("%d-%d", id, time.Now().UnixNano())
	got, lerr := s.cache.AcquireRebuild(ctx, id, token)
	if lerr != nil {
		s.log.Warn("acquire rebuild lock failed", "community_id", id, "error", lerr)
	}
	if got {
		defer func() {
			if rerr := s.cache.ReleaseRebuild(ctx, id, token); rerr != nil {
				s.log.Warn("release rebuild lock failed", "community_id", id, "error", rerr)
			}
		}()
		// 第二次检查
		if v, ok, cerr := s.cache.Get(ctx, id); cerr == nil && ok {
			return v, nil
		}
		v, err = s.load(ctx, id)
		if err != nil {
			return nil, err
		}
		if serr := s.cache.Set(ctx, v); serr != nil {
			s.log.Warn("community cache write failed", "community_id", id, "error", serr)
		}
		return v, nil
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(50 * time.Millisecond):
	}
	if v, ok, cerr := s.cache.Get(ctx, id); cerr == nil && ok {
		return v, nil
	}
	return s.load(ctx, id)
}

func (s *CommunityService) load(ctx context.Context, id uint64) (*model.CommunityView, error) {
	v, err := s.repo.FindView(ctx, id)
	if err != nil {
		if rdb.IsNotFound(err) {
			return nil, pkg.NotFound("community not found")
		}
		return nil, fmt.Errorf("find community: %w", err)
	}
	return v, nil
}

func (s *CommunityService) Exists(ctx context.Context, id uint64) (bool, error) {
	ok, err := s.repo.Exists(ctx, id)
	if err != nil {
		return false, fmt.Errorf("check community: %w", err)
	}
	return ok, nil
}

// CheckExists 不存在时返回 NotFound，供成员和聊天组件原样向上传递
func (s *CommunityService) CheckExists(ctx context.Context, id uint64) error {
	ok, err := s.Exists(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return pkg.NotFound("community not found")
	}
	return nil
}

func (s *CommunityService) List(ctx context.Context, search string, limit, offset int) (list []model.CommunityView, err error) {
	ctx, span := startSpan(ctx, "community.list")
	defer func() { endSpan(span, err) }()

	limit = pkg.ClampLimit(limit, DefaultCommunityPage, MaxCommunityPage)
	offset = pkg.ClampOffset(offset)
	list, err = s.repo.List(ctx, strings.TrimSpace(search), offset, limit)
	if err != nil {
		return nil, fmt.Errorf("list communities: %w", err)
	}
	return list, nil
}

// ListForUser 用户已加入的社区
func (s *CommunityService) ListForUser(ctx context.Context, userID uint64) (list []model.CommunityView, err error) {
	ctx, span := startSpan(ctx, "community.list_for_user", idAttr("user.id", userID))
	defer func() { endSpan(span, err) }()

	list, err = s.repo.ListByMember(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list user communities: %w", err)
	}
	return list, nil
}

// Update 只有管理员能改名称和描述
func (s *CommunityService) Update(ctx context.Context, id, callerID uint64, name, description string) (v *model.CommunityView, err error) {
	ctx, span := startSpan(ctx, "community.update", idAttr("community.id", id), idAttr("user.id", callerID))
	defer func() { endSpan(span, err) }()

	name, description, err = validateCommunityFields(name, description)
	if err != nil {
		return nil, err
	}
	affected, err := s.repo.UpdateByAdmin(ctx, id, callerID, name, description)
	if err != nil {
		if errors.Is(err, rdb.ErrDuplicate) {
			return nil, pkg.Conflict("community name already exists")
		}
		return nil, fmt.Errorf("update community: %w", err)
	}
	if affected == 0 {
		// 区分：不存在 / 无权限 / 内容未变化
		if err = s.checkAdmin(ctx, id, callerID, "only admin can update community details"); err != nil {
			return nil, err
		}
	}
	s.invalidate(ctx, id)
	s.log.Info("community updated", "community_id", id, "user_id", callerID)
	return s.load(ctx, id)
}

// Delete 只有管理员能删除，成员关系和聊天记录一起删除
func (s *CommunityService) Delete(ctx context.Context, id, callerID uint64) (err error) {
	ctx, span := startSpan(ctx, "community.delete", idAttr("community.id", id), idAttr("user.id", callerID))
	defer func() { endSpan(span, err) }()

	deleted, err := s.repo.DeleteByAdmin(ctx, id, callerID)
	if err != nil {
		return fmt.Errorf("delete community: %w", err)
	}
	if !deleted {
		if err = s.checkAdmin(ctx, id, callerID, "only admin can delete community"); err != nil {
			return err
		}
		// 并发删除：刚确认是管理员但行已不在
		return pkg.NotFound("community not found")
	}
	s.invalidate(ctx, id)
	s.log.Info("community deleted", "community_id", id, "user_id", callerID)
	return nil
}

func (s *CommunityService) checkAdmin(ctx context.Context, id, callerID uint64, forbiddenMsg string) error {
	c, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if rdb.IsNotFound(err) {
			return pkg.NotFound("community not found")
		}
		return fmt.Errorf("find community: %w", err)
	}
	if c.AdminID != callerID {
		return pkg.Forbidden(forbiddenMsg)
	}
	return nil
}

// adminOf 返回社区管理员 id
func (s *CommunityService) adminOf(ctx context.Context, id uint64) (uint64, error) {
	c, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if rdb.IsNotFound(err) {
			return 0, pkg.NotFound("community not found")
		}
		return 0, fmt.Errorf("find community: %w", err)
	}
	return c.AdminID, nil
}

func (s *CommunityService) invalidate(ctx context.Context, id uint64) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, id, invalidateDelay); err != nil {
		s.log.Warn("community cache invalidate failed", "community_id", id, "error", err)
	}
}
