package model

import "time"

// Conversation 会话主表，一对单聊会话由 PeerKey 唯一确定
type Conversation struct {
	ID            uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	PeerKey       string    `gorm:"uniqueIndex;type:varchar(64)" json:"peerKey"` // 小ID_大ID
	LastMessageID *string   `gorm:"type:varchar(32)" json:"lastMessageId"`       // Mongo 消息 _id
	LastMsgText   string    `gorm:"type:varchar(255)" json:"lastMsgText"`
	LastMsgType   string    `gorm:"type:varchar(16);not null;default:'text'" json:"lastMsgType"`
	LastSenderID  uint64    `gorm:"not null;default:0" json:"lastSenderId"`
	LastMessageAt time.Time `gorm:"index" json:"lastMessageAt"`
	MessageCount  uint64    `gorm:"not null;default:0" json:"messageCount"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

func (Conversation) TableName() string { return "conversations" }

// ConversationMember 会话成员表
type ConversationMember struct {
	ID             uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	ConversationID uint64    `gorm:"uniqueIndex:idx_conv_user" json:"conversationId"`
	UserID         uint64    `gorm:"uniqueIndex:idx_conv_user;index" json:"userId"`
	UnreadCount    uint64    `gorm:"not null;default:0" json:"unreadCount"`
	JoinedAt       time.Time `json:"joinedAt"`

	Conversation Conversation `gorm:"foreignKey:ConversationID;references:ID" json:"conversation"`
}

func (ConversationMember) TableName() string { return "conversation_members" }
