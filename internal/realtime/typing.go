package realtime

import (
	log "log/slog"

	"github.com/goccy/go-json"
)

// TypingRelay 输入状态中继：不落库不保序，对方离线直接丢弃
type TypingRelay struct {
	registry *Registry
}

func NewTypingRelay(registry *Registry) *TypingRelay {
	return &TypingRelay{registry: registry}
}

// HandleClientEvent 处理上行帧，非 typing 类事件忽略
func (s *TypingRelay) HandleClientEvent(userID uint64, raw []byte) {
	var evt ClientEvent
	if err := json.Unmarshal(raw, &evt); err != nil {
		log.Warn("WS 上行帧解析失败", "userID", userID, "err", err)
		return
	}

	switch evt.Event {
	case EventClientTyping, EventClientStopTyping:
		s.relay(userID, evt.Event, evt.Data)
	default:
		log.Warn("未知的上行事件", "userID", userID, "event", evt.Event)
	}
}

func (s *TypingRelay) relay(userID uint64, event string, data json.RawMessage) {
	var payload TypingPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		log.Warn("typing 载荷解析失败", "userID", userID, "err", err)
		return
	}

	// 发送者以连接身份为准，不信任载荷
	if payload.ConversationID == 0 || payload.ReceiverID == 0 || payload.ReceiverID == userID {
		return
	}
	payload.SenderID = userID

	if ok := s.registry.PushToUser(payload.ReceiverID, event, payload); !ok {
		log.Debug("typing 对方离线，丢弃", "senderID", userID, "receiverID", payload.ReceiverID)
	}
}
