package mongo

import (
	"time"
)

// Message MongoDB 消息明细模型
type Message struct {
	ID                 string    `bson:"_id,omitempty" json:"id"`               // ObjectID hex，插入时生成
	ConversationID     uint64    `bson:"conversation_id" json:"conversationId"` // 关联 MySQL 的会话 ID
	SenderID           uint64    `bson:"sender_id" json:"senderId"`
	ReceiverID         uint64    `bson:"receiver_id" json:"receiverId"`
	Type               string    `bson:"type" json:"type"` // text/image/video/file/voice/gif
	Text               string    `bson:"text,omitempty" json:"text"`
	Media              *Media    `bson:"media,omitempty" json:"media"`
	GifURL             string    `bson:"gif_url,omitempty" json:"gifUrl"` // 仅 type=gif 时有值
	ReadBy             []uint64  `bson:"read_by" json:"readBy"`           // 已读成员集合，创建时含发送者
	DeliveredTo        []uint64  `bson:"delivered_to" json:"deliveredTo"` // 实时事件已推送到的成员集合
	DeletedFor         []uint64  `bson:"deleted_for" json:"deletedFor"`   // 单方删除标记
	DeletedForEveryone bool      `bson:"deleted_for_everyone" json:"deletedForEveryone"`
	CreatedAt          time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt          time.Time `bson:"updated_at" json:"updatedAt"`
}

// Media 附件引用，上传阶段已落入 MinIO，这里只存结果
type Media struct {
	URL       string `bson:"url" json:"url"`
	ObjectKey string `bson:"object_key" json:"objectKey"`
	MimeType  string `bson:"mime_type" json:"mimeType"`
	FileName  string `bson:"file_name,omitempty" json:"fileName"`
	FileSize  int64  `bson:"file_size,omitempty" json:"fileSize"`
}

// ReadByContains 判断成员是否已读
func (m *Message) ReadByContains(userID uint64) bool {
	for _, id := range m.ReadBy {
		if id == userID {
			return true
		}
	}
	return false
}

// DeletedForViewer 判断消息对指定查看者是否应渲染为占位符
func (m *Message) DeletedForViewer(userID uint64) bool {
	if m.DeletedForEveryone {
		return true
	}
	for _, id := range m.DeletedFor {
		if id == userID {
			return true
		}
	}
	return false
}
