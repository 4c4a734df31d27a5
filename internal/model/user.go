package model

import "time"

// User 由认证服务维护；这里建表只为聊天和成员列表关联用户名、邮箱
type User struct {
	ID        uint64 `gorm:"primaryKey"`
	Username  string `gorm:"uniqueIndex;size:32;not null"`
	Email     string `gorm:"uniqueIndex;size:64;not null"`
	CreatedAt time.Time
}
