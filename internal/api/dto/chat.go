package dto

import "time"

// SendMessageReq 发送消息请求体
type SendMessageReq struct {
	ReceiverID     uint64 `json:"receiver_id"`
	ConversationID uint64 `json:"conversation_id"` // 可选，不传则按双方查找或创建
	Type           string `json:"type"`            // text/image/video/file/voice/gif
	Text           string `json:"text"`            // 文本内容
	ObjectKey      string `json:"object_key"`      // 媒体消息：上传接口返回的对象键
	GifURL         string `json:"gif_url"`         // GIF 消息
}

// MediaDTO 消息附件
type MediaDTO struct {
	URL      string `json:"url"`
	MimeType string `json:"mime_type"`
	FileName string `json:"file_name,omitempty"`
	FileSize int64  `json:"file_size,omitempty"`
}

// UserSummaryDTO 消息里携带的用户摘要
type UserSummaryDTO struct {
	ID        uint64 `json:"id"`
	Username  string `json:"username"`
	Nickname  string `json:"nickname"`
	AvatarURL string `json:"avatar_url"`
}

// MessageDTO 消息明细响应
type MessageDTO struct {
	ID                 string          `json:"id"`
	ConversationID     uint64          `json:"conversation_id"`
	SenderID           uint64          `json:"sender_id"`
	ReceiverID         uint64          `json:"receiver_id"`
	Type               string          `json:"type"`
	Sender             *UserSummaryDTO `json:"sender,omitempty"`
	Receiver           *UserSummaryDTO `json:"receiver,omitempty"`
	Text               string          `json:"text,omitempty"`
	Media              *MediaDTO       `json:"media,omitempty"`
	GifURL             string          `json:"gif_url,omitempty"`
	ReadBy             []uint64        `json:"read_by"`
	DeliveredTo        []uint64        `json:"delivered_to"`
	Deleted            bool            `json:"deleted"` // 对当前查看者是否渲染为占位符
	DeletedForEveryone bool            `json:"deleted_for_everyone"`
	CreatedAt          time.Time       `json:"created_at"`
}

// GetMessagesReq 历史消息分页请求
type GetMessagesReq struct {
	ConversationID uint64 `form:"conversation_id" binding:"required"`
	Page           int    `form:"page"`
	Size           int    `form:"size"`
}

// ConversationDTO 会话列表项响应
type ConversationDTO struct {
	ConversationID uint64    `json:"conversation_id"`
	PeerID         uint64    `json:"peer_id"`
	LastMessageID  *string   `json:"last_message_id"`
	LastMsgText    string    `json:"last_msg_text"`
	LastMsgType    string    `json:"last_msg_type"`
	LastSenderID   uint64    `json:"last_sender_id"`
	LastMessageAt  time.Time `json:"last_message_at"`
	UnreadCount    uint64    `json:"unread_count"`
}

// ContactDTO 侧边栏联系人：用户信息 + 会话摘要 + 在线状态
type ContactDTO struct {
	UserID        uint64    `json:"user_id"`
	Username      string    `json:"username"`
	Nickname      string    `json:"nickname"`
	AvatarURL     string    `json:"avatar_url"`
	Online        bool      `json:"online"`
	LastMsgText   string    `json:"last_msg_text,omitempty"`
	LastMsgType   string    `json:"last_msg_type,omitempty"`
	LastSenderID  uint64    `json:"last_sender_id,omitempty"`
	LastMessageAt time.Time `json:"last_message_at"`
	UnreadCount   uint64    `json:"unread_count"`
}

// UnreadTotalDTO 全局未读角标
type UnreadTotalDTO struct {
	Total int64 `json:"total"`
}

// MessageReadDTO 已读回执推送
type MessageReadDTO struct {
	MessageID      string `json:"message_id"`
	ConversationID uint64 `json:"conversation_id"`
	ReaderID       uint64 `json:"reader_id"`
}

// MessageDeletedDTO 删除事件推送
type MessageDeletedDTO struct {
	MessageID      string `json:"message_id"`
	ConversationID uint64 `json:"conversation_id"`
	DeletedBy      uint64 `json:"deleted_by"`
}

// MessageDeliveredDTO 送达回执推送
type MessageDeliveredDTO struct {
	MessageID      string `json:"message_id"`
	ConversationID uint64 `json:"conversation_id"`
	DeliveredTo    uint64 `json:"delivered_to"`
}
