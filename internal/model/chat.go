package model

import "time"

// ChatMessage 社区聊天消息。游标索引 (community_id, created_at, id)；社区删除时外键级联删除
type ChatMessage struct {
	ID          uint64     `gorm:"primaryKey;autoIncrement;index:idx_chat_comm_time_id,priority:3"`
	CommunityID uint64     `gorm:"not null;index:idx_chat_comm_time_id,priority:1"`
	UserID      uint64     `gorm:"not null;index"`
	Message     string     `gorm:"type:text;not null"`
	CreatedAt   time.Time  `gorm:"not null;index:idx_chat_comm_time_id,priority:2"`
	UpdatedAt   time.Time
	Community   *Community `gorm:"foreignKey:CommunityID;constraint:OnDelete:CASCADE" json:"-"`
}

func (ChatMessage) TableName() string {
	return "community_chat"
}

// MessageView 带作者信息的消息
type MessageView struct {
	ID          uint64    `json:"id"`
	CommunityID uint64    `json:"community_id"`
	UserID      uint64    `json:"user_id"`
	Username    string    `json:"username"`
	Email       string    `json:"email"`
	Message     string    `json:"message"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Activity 最近窗口内的聊天活跃度
type Activity struct {
	MessageCount    int64 `json:"message_count"`
	ActiveUserCount int64 `json:"active_user_count"`
}
