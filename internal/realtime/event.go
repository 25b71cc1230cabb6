package realtime

import (
	"github.com/goccy/go-json"
)

// 下行事件类型
const (
	EventOnlineUsers               = "onlineUsers"
	EventNewMessage                = "newMessage"
	EventMessageDelivered          = "messageDelivered"
	EventMessageRead               = "messageRead"
	EventMessageDeletedForMe       = "messageDeletedForMe"
	EventMessageDeletedForEveryone = "messageDeletedForEveryone"
	EventTyping                    = "typing"
	EventStopTyping                = "stopTyping"
)

// 上行事件类型（客户端经 WS 发送）
const (
	EventClientTyping     = "typing"
	EventClientStopTyping = "stopTyping"
)

// Event 统一下行帧：{"event":"newMessage","data":{...}}
type Event struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data,omitempty"`
}

// ClientEvent 客户端上行帧
type ClientEvent struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// TypingPayload typing/stopTyping 的载荷，双向共用
type TypingPayload struct {
	ConversationID uint64 `json:"conversationId"`
	SenderID       uint64 `json:"senderId"`
	ReceiverID     uint64 `json:"receiverId"`
}

// Encode 序列化事件，失败时返回 nil 由调用方丢弃
func (e *Event) Encode() []byte {
	data, err := json.Marshal(e)
	if err != nil {
		return nil
	}
	return data
}
