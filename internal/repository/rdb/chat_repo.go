package rdb

import (
	"context"
	"time"

	"community_chat/internal/model"

	"gorm.io/gorm"
)

type ChatRepository struct {
	DB *gorm.DB
}

const messageViewSelect = `cc.id, cc.community_id, cc.user_id, cc.message, cc.created_at, cc.updated_at,
	COALESCE(u.username, '') AS username, COALESCE(u.email, '') AS email`

func (r *ChatRepository) viewQuery(ctx context.Context) *gorm.DB {
	return r.DB.WithContext(ctx).
		Table("community_chat AS cc").
		Select(messageViewSelect).
		Joins("LEFT JOIN users u ON u.id = cc.user_id")
}

func (r *ChatRepository) Create(ctx context.Context, msg *model.ChatMessage) error {
	return translate(r.DB.WithContext(ctx).Create(msg).Error)
}

func (r *ChatRepository) FindByID(ctx context.Context, id uint64) (*model.ChatMessage, error) {
	var msg model.ChatMessage
	if err := r.DB.WithContext(ctx).First(&msg, id).Error; err != nil {
		return nil, err
	}
	return &msg, nil
}

func (r *ChatRepository) FindView(ctx context.Context, id uint64) (*model.MessageView, error) {
	var v model.MessageView
	if err := r.viewQuery(ctx).Where("cc.id = ?", id).Take(&v).Error; err != nil {
		return nil, err
	}
	return &v, nil
}

// ListBefore 基于时间游标向前翻页：索引 (community_id, created_at, id)
// beforeID=0 时只比较时间；否则用 (created_at, id) 作为严格游标，同一毫秒内也不会重复或遗漏
// 返回结果为倒序（最新在前），由调用方翻转
func (r *ChatRepository) ListBefore(ctx context.Context, communityID uint64, before time.Time, beforeID uint64, limit int) ([]model.MessageView, error) {
	list := make([]model.MessageView, 0, limit)
	q := r.viewQuery(ctx).Where("cc.community_id = ?", communityID)
	if beforeID > 0 {
		q = q.Where("(cc.created_at < ? OR (cc.created_at = ? AND cc.id < ?))", before, before, beforeID)
	} else {
		q = q.Where("cc.created_at < ?", before)
	}
	err := q.Order("cc.created_at DESC, cc.id DESC").Limit(limit).Find(&list).Error
	return list, err
}

// UpdateByAuthor 只有作者本人能改，管理员没有编辑权
func (r *ChatRepository) UpdateByAuthor(ctx context.Context, id, userID uint64, text string) (int64, error) {
	tx := r.DB.WithContext(ctx).Model(&model.ChatMessage{}).
		Where("id = ? AND user_id = ?", id, userID).
		Updates(map[string]any{"message": text, "updated_at": Now()})
	return tx.RowsAffected, tx.Error
}

// DeleteWithPermission 带权限的一步硬删除：作者本人或所在社区的管理员
func (r *ChatRepository) DeleteWithPermission(ctx context.Context, id, operatorID uint64) (int64, error) {
	db := r.DB.WithContext(ctx)
	adminOf := db.Model(&model.Community{}).Select("id").Where("admin_id = ?", operatorID)
	tx := db.
		Where("id = ? AND (user_id = ? OR community_id IN (?))", id, operatorID, adminOf).
		Delete(&model.ChatMessage{})
	return tx.RowsAffected, tx.Error
}

// Activity 窗口内消息数和去重发言人数
func (r *ChatRepository) Activity(ctx context.Context, communityID uint64, since time.Time) (model.Activity, error) {
	var a model.Activity
	err := r.DB.WithContext(ctx).Model(&model.ChatMessage{}).
		Select("COUNT(*) AS message_count, COUNT(DISTINCT user_id) AS active_user_count").
		Where("community_id = ? AND created_at >= ?", communityID, since).
		Scan(&a).Error
	return a, err
}
