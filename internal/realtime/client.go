package realtime

import (
	log "log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBufferSize = 64
)

// Client 单个用户的 WS 连接，读写各一个 goroutine
type Client struct {
	UserID uint64

	conn      *websocket.Conn
	send      chan []byte
	registry  *Registry
	done      chan struct{}
	closeOnce sync.Once
}

func newClient(userID uint64, conn *websocket.Conn, registry *Registry) *Client {
	return &Client{
		UserID:   userID,
		conn:     conn,
		send:     make(chan []byte, sendBufferSize),
		registry: registry,
		done:     make(chan struct{}),
	}
}

// Push 非阻塞投递，缓冲满时丢帧而不是拖垮其他连接
func (s *Client) Push(frame []byte) {
	if frame == nil {
		return
	}
	select {
	case s.send <- frame:
	default:
		log.Warn("WS 发送缓冲已满，丢弃消息", "userID", s.UserID)
	}
}

// readPump 读循环：处理上行事件并监听断开
func (s *Client) readPump(onEvent func(userID uint64, raw []byte)) {
	defer s.registry.Leave(s)

	s.conn.SetReadLimit(maxMessageSize)
	_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn("WS 读取异常", "userID", s.UserID, "err", err)
			}
			return
		}
		if onEvent != nil {
			onEvent(s.UserID, raw)
		}
	}
}

// writePump 写循环：串行写出并维持心跳
func (s *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = s.conn.Close()
	}()

	for {
		select {
		case frame, ok := <-s.send:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = s.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := s.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				log.Warn("WS 推送失败", "userID", s.UserID, "err", err)
				return
			}
		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-s.done:
			return
		}
	}
}

func (s *Client) close() {
	s.closeOnce.Do(func() {
		close(s.done)
		_ = s.conn.Close()
	})
}
