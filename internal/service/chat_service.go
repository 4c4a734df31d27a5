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
	MaxMessageLen      = 2000
	DefaultMessagePage = 50
	MaxMessagePage     = 100
)

// Cursor 向前翻页游标。Before 为零值表示从当前时间开始；BeforeID 为 0 时只按时间比较
type Cursor struct {
	Limit    int
	Before   time.Time
	BeforeID uint64
}

// Page 一页消息，按时间正序。NextBefore/NextBeforeID 指向本页最早的一条，用于继续向前翻
type Page struct {
	Messages     []model.MessageView `json:"messages"`
	NextBefore   time.Time           `json:"next_before"`
	NextBeforeID uint64              `json:"next_before_id"`
	HasMore      bool                `json:"has_more"`
}

// ChatService 社区聊天消息存储
type ChatService struct {
	repo        *rdb.ChatRepository
	communities *CommunityService
	members     *MemberService
	activity    ActivityCache
	log         *pkg.Logger
	now         func() time.Time
}

func NewChatService(db *gorm.DB, log *pkg.Logger, communities *CommunityService, members *MemberService, activity ActivityCache) *ChatService {
	return &ChatService{
		repo:        &rdb.ChatRepository{DB: db},
		communities: communities,
		members:     members,
		activity:    activity,
		log:         log.With("service", "ChatService"),
		now:         rdb.Now,
	}
}

func cleanMessage(text string) (string, error) {
	text = pkg.CleanText(text)
	if text == "" {
		return "", pkg.Validation("message cannot be empty")
	}
	if pkg.RuneLen(text) > MaxMessageLen {
		return "", pkg.Validation(fmt.Sprintf("message must be at most %d characters", MaxMessageLen))
	}
	return text, nil
}

// Send 发送消息：自带成员校验
func (s *ChatService) Send(ctx context.Context, communityID, userID uint64, text string) (v *model.MessageView, err error) {
	ctx, span := startSpan(ctx, "chat.send", idAttr("community.id", communityID), idAttr("user.id", userID))
	defer func() { endSpan(span, err) }()

	text, err = cleanMessage(text)
	if err != nil {
		return nil, err
	}
	ok, err := s.members.IsMember(ctx, communityID, userID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, pkg.Forbidden("only community members can send messages")
	}

	now := s.now()
	msg := &model.ChatMessage{
		CommunityID: communityID,
		UserID:      userID,
		Message:     text,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err = s.repo.Create(ctx, msg); err != nil {
		if errors.Is(err, rdb.ErrMissingParent) {
			return nil, pkg.NotFound("community not found")
		}
		return nil, fmt.Errorf("send message: %w", err)
	}
	s.invalidateActivity(ctx, communityID)
	s.log.Debug("message sent", "community_id", communityID, "message_id", msg.ID, "user_id", userID)
	return s.view(ctx, msg.ID)
}

// List 读消息不做成员校验（由 handler 层把关），只校验社区存在
// 先按时间倒序取 limit+1 条，再翻转成正序返回
func (s *ChatService) List(ctx context.Context, communityID uint64, cur Cursor) (p *Page, err error) {
	ctx, span := startSpan(ctx, "chat.list", idAttr("community.id", communityID))
	defer func() { endSpan(span, err) }()

	if err = s.communities.CheckExists(ctx, communityID); err != nil {
		return nil, err
	}
	limit := pkg.ClampLimit(cur.Limit, DefaultMessagePage, MaxMessagePage)
	before := cur.Before.UTC()
	if cur.Before.IsZero() {
		// 包含当前毫秒内刚写入的消息
		before = s.now().Add(time.Millisecond)
	}

	rows, err := s.repo.ListBefore(ctx, communityID, before, cur.BeforeID, limit+1)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	p = &Page{}
	if len(rows) > limit {
		p.HasMore = true
		rows = rows[:limit]
	}
	for i, j := 0, len(rows)-1; i < j; i, j = i+1, j-1 {
		rows[i], rows[j] = rows[j], rows[i]
	}
	p.Messages = rows
	if len(rows) > 0 {
		p.NextBefore = rows[0].CreatedAt
		p.NextBeforeID = rows[0].ID
	}
	return p, nil
}

// Edit 只有作者能编辑，管理员没有编辑权
func (s *ChatService) Edit(ctx context.Context, messageID, userID uint64, text string) (v *model.MessageView, err error) {
	ctx, span := startSpan(ctx, "chat.edit", idAttr("message.id", messageID), idAttr("user.id", userID))
	defer func() { endSpan(span, err) }()

	text, err = cleanMessage(text)
	if err != nil {
		return nil, err
	}
	affected, err := s.repo.UpdateByAuthor(ctx, messageID, userID, text)
	if err != nil {
		return nil, fmt.Errorf("edit message: %w", err)
	}
	if affected == 0 {
		msg, ferr := s.find(ctx, messageID)
		if ferr != nil {
			return nil, ferr
		}
		if msg.UserID != userID {
			return nil, pkg.Forbidden("you can only edit your own messages")
		}
	}
	v, err = s.view(ctx, messageID)
	if err != nil {
		return nil, err
	}
	s.invalidateActivity(ctx, v.CommunityID)
	s.log.Debug("message edited", "community_id", v.CommunityID, "message_id", messageID, "user_id", userID)
	return v, nil
}

// CommunityOf 消息所属社区，用于校验路由里的社区 id
func (s *ChatService) CommunityOf(ctx context.Context, messageID uint64) (uint64, error) {
	msg, err := s.find(ctx, messageID)
	if err != nil {
		return 0, err
	}
	return msg.CommunityID, nil
}

// Delete 作者本人或社区管理员可以删除，硬删除
func (s *ChatService) Delete(ctx context.Context, messageID, userID uint64) (err error) {
	ctx, span := startSpan(ctx, "chat.delete", idAttr("message.id", messageID), idAttr("user.id", userID))
	defer func() { endSpan(span, err) }()

	msg, err := s.find(ctx, messageID)
	if err != nil {
		return err
	}
	affected, err := s.repo.DeleteWithPermission(ctx, messageID, userID)
	if err != nil {
		return fmt.Errorf("delete message: %w", err)
	}
	if affected == 0 {
		// 可能是并发删除，也可能无权限
		if _, err = s.find(ctx, messageID); err != nil {
			return err
		}
		return pkg.Forbidden("you can only delete your own messages or messages in communities you admin")
	}
	s.invalidateActivity(ctx, msg.CommunityID)
	if msg.UserID != userID {
		s.log.Info("message deleted by community admin",
			"community_id", msg.CommunityID, "message_id", messageID, "user_id", userID, "author_id", msg.UserID)
	} else {
		s.log.Debug("message deleted", "community_id", msg.CommunityID, "message_id", messageID, "user_id", userID)
	}
	return nil
}

func (s *ChatService) find(ctx context.Context, id uint64) (*model.ChatMessage, error) {
	msg, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if rdb.IsNotFound(err) {
			return nil, pkg.NotFound("message not found")
		}
		return nil, fmt.Errorf("find message: %w", err)
	}
	return msg, nil
}

func (s *ChatService) view(ctx context.Context, id uint64) (*model.MessageView, error) {
	v, err := s.repo.FindView(ctx, id)
	if err != nil {
		if rdb.IsNotFound(err) {
			return nil, pkg.NotFound("message not found")
		}
		return nil, fmt.Errorf("find message: %w", err)
	}
	return v, nil
}

func (s *ChatService) invalidateActivity(ctx context.Context, communityID uint64) {
	if s.activity == nil {
		return
	}
	if err := s.activity.Invalidate(ctx, communityID); err != nil {
		s.log.Warn("activity cache invalidate failed", "community_id", communityID, "error", err)
	}
}
