package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"community_chat/internal/model"
	"community_chat/internal/pkg"
	"community_chat/internal/repository/rdb"

	"gorm.io/gorm"
)

const (
	DefaultMemberPage = 10
	MaxMemberPage     = 50
)

// MemberService 成员关系登记，IsMember 是其他组件的鉴权原语
type MemberService struct {
	repo        *rdb.MemberRepository
	communities *CommunityService
	log         *pkg.Logger
	now         func() time.Time
}

func NewMemberService(db *gorm.DB, log *pkg.Logger, communities *CommunityService) *MemberService {
	return &MemberService{
		repo:        &rdb.MemberRepository{DB: db},
		communities: communities,
		log:         log.With("service", "MemberService"),
		now:         rdb.Now,
	}
}

// IsMember 社区不存在时同样返回 false
func (s *MemberService) IsMember(ctx context.Context, communityID, userID uint64) (bool, error) {
	ok, err := s.repo.IsMember(ctx, communityID, userID)
	if err != nil {
		return false, fmt.Errorf("check membership: %w", err)
	}
	return ok, nil
}

// Join 不做幂等：重复加入以唯一索引冲突为准，返回 Conflict
func (s *MemberService) Join(ctx context.Context, communityID, userID uint64) (err error) {
	ctx, span := startSpan(ctx, "member.join", idAttr("community.id", communityID), idAttr("user.id", userID))
	defer func() { endSpan(span, err) }()

	if err = s.communities.CheckExists(ctx, communityID); err != nil {
		return err
	}
	err = s.repo.Insert(ctx, &model.CommunityMember{
		CommunityID: communityID,
		UserID:      userID,
		JoinedAt:    s.now(),
	})
	if err != nil {
		if errors.Is(err, rdb.ErrDuplicate) {
			return pkg.Conflict("user is already a member of this community")
		}
		// 校验存在之后社区被并发删除
		if errors.Is(err, rdb.ErrMissingParent) {
			return pkg.NotFound("community not found")
		}
		return fmt.Errorf("join community: %w", err)
	}
	s.communities.invalidate(ctx, communityID)
	s.log.Info("member joined", "community_id", communityID, "user_id", userID)
	return nil
}

// Leave 不检查是否为管理员；管理员退出会让社区失去"管理员必为成员"的约束，这里只记录告警
func (s *MemberService) Leave(ctx context.Context, communityID, userID uint64) (err error) {
	ctx, span := startSpan(ctx, "member.leave", idAttr("community.id", communityID), idAttr("user.id", userID))
	defer func() { endSpan(span, err) }()

	n, err := s.repo.Delete(ctx, communityID, userID)
	if err != nil {
		return fmt.Errorf("leave community: %w", err)
	}
	if n == 0 {
		return pkg.NotFound("user is not a member of this community")
	}
	s.communities.invalidate(ctx, communityID)
	s.log.Info("member left", "community_id", communityID, "user_id", userID)

	if adminID, aerr := s.communities.adminOf(ctx, communityID); aerr == nil && adminID == userID {
		s.log.Warn("community admin left their own community; admin is no longer a member",
			"community_id", communityID, "user_id", userID)
	}
	return nil
}

func (s *MemberService) ListMembers(ctx context.Context, communityID uint64, limit, offset int) (list []model.MemberView, err error) {
	ctx, span := startSpan(ctx, "member.list", idAttr("community.id", communityID))
	defer func() { endSpan(span, err) }()

	if err = s.communities.CheckExists(ctx, communityID); err != nil {
		return nil, err
	}
	limit = pkg.ClampLimit(limit, DefaultMemberPage, MaxMemberPage)
	list, err = s.repo.List(ctx, communityID, pkg.ClampOffset(offset), limit)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	return list, nil
}
