package rdb

import (
	"context"

	"community_chat/internal/model"

	"gorm.io/gorm"
)

type MemberRepository struct {
	DB *gorm.DB
}

// Insert 普通插入，不做 DoNothing：重复加入由唯一索引 uk_community_user 拒绝并返回 ErrDuplicate
func (r *MemberRepository) Insert(ctx context.Context, member *model.CommunityMember) error {
	if member.JoinedAt.IsZero() {
		member.JoinedAt = Now()
	}
	return translate(r.DB.WithContext(ctx).Create(member).Error)
}

// Delete 返回删除的行数，0 表示本来就不是成员
func (r *MemberRepository) Delete(ctx context.Context, communityID, userID uint64) (int64, error) {
	tx := r.DB.WithContext(ctx).
		Where("community_id = ? AND user_id = ?", communityID, userID).
		Delete(&model.CommunityMember{})
	return tx.RowsAffected, tx.Error
}

func (r *MemberRepository) IsMember(ctx context.Context, communityID, userID uint64) (bool, error) {
	var count int64
	err := r.DB.WithContext(ctx).Model(&model.CommunityMember{}).
		Where("community_id = ? AND user_id = ?", communityID, userID).
		Count(&count).Error
	return count > 0, err
}

// List 成员列表，按加入时间倒序
func (r *MemberRepository) List(ctx context.Context, communityID uint64, offset, limit int) ([]model.MemberView, error) {
	list := make([]model.MemberView, 0)
	err := r.DB.WithContext(ctx).
		Table("community_members AS cm").
		Select("cm.user_id, COALESCE(u.username, '') AS username, COALESCE(u.email, '') AS email, cm.joined_at").
		Joins("LEFT JOIN users u ON u.id = cm.user_id").
		Where("cm.community_id = ?", communityID).
		Order("cm.joined_at DESC, cm.id DESC").
		Offset(offset).
		Limit(limit).
		Find(&list).Error
	return list, err
}
