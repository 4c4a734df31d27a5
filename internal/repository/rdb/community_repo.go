package rdb

import (
	"context"
	"strings"

	"community_chat/internal/model"

	"gorm.io/gorm"
)

type CommunityRepository struct {
	DB *gorm.DB
}

// 详情查询：管理员用户名 + 成员数（子查询实时计算，不落库）
const communityViewSelect = `c.id, c.name, c.description, c.admin_id, c.created_at,
	COALESCE(u.username, '') AS admin_username,
	(SELECT COUNT(*) FROM community_members m WHERE m.community_id = c.id) AS member_count`

func (r *CommunityRepository) viewQuery(ctx context.Context) *gorm.DB {
	return r.DB.WithContext(ctx).
		Table("communities AS c").
		Select(communityViewSelect).
		Joins("LEFT JOIN users u ON u.id = c.admin_id")
}

// Create 创建社区并在同一事务内写入管理员的成员关系，两行要么都提交要么都回滚
func (r *CommunityRepository) Create(ctx context.Context, c *model.Community) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(c).Error; err != nil {
			return translate(err)
		}
		mRepo := &MemberRepository{DB: tx}
		return mRepo.Insert(ctx, &model.CommunityMember{
			CommunityID: c.ID,
			UserID:      c.AdminID,
			JoinedAt:    c.CreatedAt,
		})
	})
}

func (r *CommunityRepository) FindByID(ctx context.Context, id uint64) (*model.Community, error) {
	var community model.Community
	err := r.DB.WithContext(ctx).First(&community, id).Error
	if err != nil {
		return nil, err
	}
	return &community, nil
}

func (r *CommunityRepository) Exists(ctx context.Context, id uint64) (bool, error) {
	var n int64
	err := r.DB.WithContext(ctx).Model(&model.Community{}).Where("id = ?", id).Count(&n).Error
	return n > 0, err
}

func (r *CommunityRepository) FindView(ctx context.Context, id uint64) (*model.CommunityView, error) {
	var v model.CommunityView
	if err := r.viewQuery(ctx).Where("c.id = ?", id).Take(&v).Error; err != nil {
		return nil, err
	}
	return &v, nil
}

// List 名称模糊搜索（大小写不敏感），按创建时间倒序
func (r *CommunityRepository) List(ctx context.Context, search string, offset, limit int) ([]model.CommunityView, error) {
	list := make([]model.CommunityView, 0)
	q := r.viewQuery(ctx)
	if search != "" {
		q = q.Where("LOWER(c.name) LIKE ? ESCAPE '!'", "%"+escapeLike(strings.ToLower(search))+"%")
	}
	err := q.Order("c.created_at DESC, c.id DESC").Offset(offset).Limit(limit).Find(&list).Error
	return list, err
}

// ListByMember 用户加入的社区
func (r *CommunityRepository) ListByMember(ctx context.Context, userID uint64) ([]model.CommunityView, error) {
	list := make([]model.CommunityView, 0)
	err := r.viewQuery(ctx).
		Joins("JOIN community_members cm ON cm.community_id = c.id").
		Where("cm.user_id = ?", userID).
		Order("c.created_at DESC, c.id DESC").
		Find(&list).Error
	return list, err
}

// UpdateByAdmin 带权限的一步更新；返回受影响行数，0 行时由调用方区分不存在/无权限/未变化
func (r *CommunityRepository) UpdateByAdmin(ctx context.Context, id, adminID uint64, name, description string) (int64, error) {
	tx := r.DB.WithContext(ctx).Model(&model.Community{}).
		Where("id = ? AND admin_id = ?", id, adminID).
		Updates(map[string]any{"name": name, "description": description, "updated_at": Now()})
	return tx.RowsAffected, translate(tx.Error)
}

// DeleteByAdmin 带权限的一步删除；成员关系和聊天记录由外键 ON DELETE CASCADE 一起删除
// 返回 false 表示不存在或无权限
func (r *CommunityRepository) DeleteByAdmin(ctx context.Context, id, adminID uint64) (bool, error) {
	res := r.DB.WithContext(ctx).
		Where("id = ? AND admin_id = ?", id, adminID).
		Delete(&model.Community{})
	return res.RowsAffected > 0, res.Error
}

func escapeLike(s string) string {
	r := strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")
	return r.Replace(s)
}
