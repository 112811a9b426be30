package models

import (
	"time"

	"gorm.io/gorm"
)

// 用户表，软删除与线上数据保留策略保持一致。
type User struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	Name         string         `gorm:"size:64;not null" json:"name"`
	Email        string         `gorm:"uniqueIndex;size:128;not null" json:"email"`
	PasswordHash string         `gorm:"not null" json:"-"`
	Avatar       string         `gorm:"size:256" json:"avatar"`
	Bio          string         `gorm:"type:text" json:"bio"`
	Status       string         `gorm:"size:16;default:active" json:"status"`
	LastLoginAt  *time.Time     `json:"last_login_at,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
}

// 用户状态。
const (
	UserStatusActive  = "active"
	UserStatusBanned  = "banned"
	UserStatusOnline  = "online"
	UserStatusOffline = "offline"
)

// PublicProfile 是可以下发给对端的用户字段，凭证字段永远不出现在这里。
type PublicProfile struct {
	ID     uint   `json:"id"`
	Name   string `json:"name"`
	Avatar string `json:"avatar"`
}

func (u *User) Public() PublicProfile {
	return PublicProfile{ID: u.ID, Name: u.Name, Avatar: u.Avatar}
}

// 单聊会话。UserID/TargetID 定向存储一对参与者，同一对用户至多一行，
// 由 service 层 lookup-before-create 保证。
type Chat struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	UserID        uint      `gorm:"index:idx_chat_pair;not null" json:"userId"`
	TargetID      uint      `gorm:"index:idx_chat_pair;not null" json:"targetId"`
	LastMessageID *uint     `json:"lastMessageId"`
	UnreadCount   int       `gorm:"not null;default:0" json:"unreadCount"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Other 返回会话中 userID 的对端参与者。
func (c *Chat) Other(userID uint) uint {
	if c.UserID == userID {
		return c.TargetID
	}
	return c.UserID
}

// HasParticipant 判断 userID 是否为会话参与者。
func (c *Chat) HasParticipant(userID uint) bool {
	return c.UserID == userID || c.TargetID == userID
}

// 消息类型枚举。
const (
	MessageTypeText   = "text"
	MessageTypeImage  = "image"
	MessageTypeVoice  = "voice"
	MessageTypeFile   = "file"
	MessageTypeRevoke = "revoke"
)

// 单聊消息。type 一旦变为 revoke 即不可再变，content 同时清空。
type Message struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	ChatID    uint      `gorm:"index;not null" json:"chatId"`
	FromID    uint      `gorm:"index;not null" json:"fromId"`
	Type      string    `gorm:"size:16;default:text;not null" json:"type"`
	Content   *string   `gorm:"type:text" json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

type Group struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"size:128;not null" json:"name"`
	Avatar      string    `gorm:"size:256" json:"avatar"`
	Description string    `gorm:"type:text" json:"description"`
	MaxMembers  int       `gorm:"default:200" json:"maxMembers"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// 群成员角色枚举。
const (
	RoleOwner  = "owner"
	RoleAdmin  = "admin"
	RoleMember = "member"
)

type GroupMember struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	GroupID     uint       `gorm:"index:idx_member_pair;not null" json:"groupId"`
	UserID      uint       `gorm:"index:idx_member_pair;not null" json:"userId"`
	Role        string     `gorm:"size:16;default:member;not null" json:"role"`
	Nickname    string     `gorm:"size:64" json:"nickname"`
	MuteEndTime *time.Time `json:"muteEndTime"`
	CreatedAt   time.Time  `json:"created_at"`
}

// IsPrivileged 判断成员是否拥有群主/管理员权限。
func (m *GroupMember) IsPrivileged() bool {
	return m.Role == RoleOwner || m.Role == RoleAdmin
}

// IsMuted 判断成员在 now 时刻是否处于禁言期。
func (m *GroupMember) IsMuted(now time.Time) bool {
	return m.MuteEndTime != nil && m.MuteEndTime.After(now)
}

type GroupMessage struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	GroupID   uint      `gorm:"index;not null" json:"groupId"`
	FromID    uint      `gorm:"index;not null" json:"fromId"`
	Type      string    `gorm:"size:16;default:text;not null" json:"type"`
	Content   *string   `gorm:"type:text" json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

type RefreshToken struct {
	ID        uint      `gorm:"primaryKey"`
	UserID    uint      `gorm:"index;not null"`
	Token     string    `gorm:"uniqueIndex;size:128;not null"`
	ExpiresAt time.Time `gorm:"index;not null"`
	RevokedAt *time.Time
	CreatedAt time.Time
}
