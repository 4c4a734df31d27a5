package model

import "time"

type Community struct {
	ID          uint64    `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"uniqueIndex;size:64;not null" json:"name"`
	Description string    `gorm:"type:text" json:"description"`
	AdminID     uint64    `gorm:"not null;index" json:"admin_id"`
	CreatedAt   time.Time `gorm:"index" json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// CommunityMember 社区成员关系，(community_id, user_id) 唯一；社区删除时外键级联删除
type CommunityMember struct {
	ID          uint64     `gorm:"primaryKey"`
	CommunityID uint64     `gorm:"not null;index;uniqueIndex:uk_community_user"`
	UserID      uint64     `gorm:"not null;index;uniqueIndex:uk_community_user"`
	JoinedAt    time.Time  `gorm:"not null"`
	Community   *Community `gorm:"foreignKey:CommunityID;constraint:OnDelete:CASCADE" json:"-"`
}

// CommunityView 社区详情：附带管理员用户名和实时计算的成员数
type CommunityView struct {
	ID            uint64    `json:"id"`
	Name          string    `json:"name"`
	Description   string    `json:"description"`
	AdminID       uint64    `json:"admin_id"`
	AdminUsername string    `json:"admin_username"`
	MemberCount   int64     `json:"member_count"`
	CreatedAt     time.Time `json:"created_at"`
}

type MemberView struct {
	UserID   uint64    `json:"user_id"`
	Username string    `json:"username"`
	Email    string    `json:"email"`
	JoinedAt time.Time `json:"joined_at"`
}
