package realtime

import (
	log "log/slog"
	"sort"
	"sync"

	"github.com/gorilla/websocket"
)

// Registry 在线连接注册表：每用户至多一条连接，后连的顶掉先连的
type Registry struct {
	mu      sync.RWMutex
	clients map[uint64]*Client

	onEvent func(userID uint64, raw []byte)
	closed  bool
}

func NewRegistry() *Registry {
	return &Registry{
		clients: make(map[uint64]*Client),
	}
}

// SetEventHandler 注册上行事件回调（typing 中继），须在 Serve 前调用
func (s *Registry) SetEventHandler(fn func(userID uint64, raw []byte)) {
	s.onEvent = fn
}

// Serve 接管一条已升级的连接：注册、启动读写循环并阻塞到断开
// 同一用户的旧连接会被关闭替换
func (s *Registry) Serve(userID uint64, conn *websocket.Conn) {
	client := newClient(userID, conn, s)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		_ = conn.Close()
		return
	}
	if old, ok := s.clients[userID]; ok {
		old.close()
	}
	s.clients[userID] = client
	s.mu.Unlock()

	log.Info("用户上线", "userID", userID)
	s.broadcastOnlineUsers()

	go client.writePump()
	client.readPump(s.onEvent)
}

// Leave 摘除连接，仅当注册表里仍是这条连接时才生效
func (s *Registry) Leave(client *Client) {
	s.mu.Lock()
	current, ok := s.clients[client.UserID]
	if ok && current == client {
		delete(s.clients, client.UserID)
	}
	s.mu.Unlock()

	client.close()

	if ok && current == client {
		log.Info("用户下线", "userID", client.UserID)
		s.broadcastOnlineUsers()
	}
}

// IsOnline 用户是否在线
func (s *Registry) IsOnline(userID uint64) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.clients[userID]
	return ok
}

// OnlineUserIDs 当前在线用户 ID 列表，升序
func (s *Registry) OnlineUserIDs() []uint64 {
	s.mu.RLock()
	ids := make([]uint64, 0, len(s.clients))
	for id := range s.clients {
		ids = append(ids, id)
	}
	s.mu.RUnlock()

	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// PushToUser 向指定用户推送事件，离线时静默丢弃并返回 false
func (s *Registry) PushToUser(userID uint64, event string, data interface{}) bool {
	s.mu.RLock()
	client, ok := s.clients[userID]
	s.mu.RUnlock()

	if !ok {
		return false
	}
	client.Push((&Event{Event: event, Data: data}).Encode())
	return true
}

// broadcastOnlineUsers 在线列表变化时全量广播
func (s *Registry) broadcastOnlineUsers() {
	frame := (&Event{Event: EventOnlineUsers, Data: s.OnlineUserIDs()}).Encode()

	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, client := range s.clients {
		client.Push(frame)
	}
}

// Shutdown 关闭全部连接，之后的 Serve 直接拒绝
func (s *Registry) Shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	for _, client := range s.clients {
		client.close()
	}
	s.clients = make(map[uint64]*Client)
}
