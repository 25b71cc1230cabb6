package realtime

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type wsHarness struct {
	registry *Registry
	server   *httptest.Server
}

func newWSHarness(t *testing.T) *wsHarness {
	t.Helper()

	registry := NewRegistry()
	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool { return true },
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, err := strconv.ParseUint(r.URL.Query().Get("uid"), 10, 64)
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		registry.Serve(userID, conn)
	}))
	t.Cleanup(server.Close)

	return &wsHarness{registry: registry, server: server}
}

func (h *wsHarness) dial(t *testing.T, userID uint64) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(h.server.URL, "http") + "/?uid=" + strconv.FormatUint(userID, 10)
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	// 注册完成后才能看到在线状态
	waitFor(t, func() bool { return h.registry.IsOnline(userID) })
	return conn
}

type frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// readFrame 读取下一帧，超时即失败
func readFrame(t *testing.T, conn *websocket.Conn) frame {
	t.Helper()

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)

	var f frame
	require.NoError(t, json.Unmarshal(raw, &f))
	return f
}

// readUntil 跳过无关帧（主要是在线列表广播），直到读到目标事件
func readUntil(t *testing.T, conn *websocket.Conn, event string) frame {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		f := readFrame(t, conn)
		if f.Event == event {
			return f
		}
	}
	t.Fatalf("等待事件 %s 超时", event)
	return frame{}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("等待条件成立超时")
}

func onlineList(t *testing.T, f frame) []uint64 {
	t.Helper()

	require.Equal(t, EventOnlineUsers, f.Event)
	var ids []uint64
	require.NoError(t, json.Unmarshal(f.Data, &ids))
	return ids
}

func TestRegistry_Presence(t *testing.T) {
	h := newWSHarness(t)

	conn1 := h.dial(t, 1)
	assert.Equal(t, []uint64{1}, onlineList(t, readFrame(t, conn1)))

	conn2 := h.dial(t, 2)
	assert.Equal(t, []uint64{1, 2}, onlineList(t, readFrame(t, conn1)))
	assert.Equal(t, []uint64{1, 2}, onlineList(t, readFrame(t, conn2)))

	assert.True(t, h.registry.IsOnline(1))
	assert.True(t, h.registry.IsOnline(2))
	assert.Equal(t, []uint64{1, 2}, h.registry.OnlineUserIDs())

	// 断开后从在线列表摘除并广播
	_ = conn2.Close()
	waitFor(t, func() bool { return !h.registry.IsOnline(2) })
	assert.Equal(t, []uint64{1}, onlineList(t, readFrame(t, conn1)))
}

func TestRegistry_PushToUser(t *testing.T) {
	h := newWSHarness(t)

	conn := h.dial(t, 1)

	ok := h.registry.PushToUser(1, EventNewMessage, map[string]string{"text": "hi"})
	assert.True(t, ok)

	f := readUntil(t, conn, EventNewMessage)
	var payload map[string]string
	require.NoError(t, json.Unmarshal(f.Data, &payload))
	assert.Equal(t, "hi", payload["text"])

	// 离线用户静默丢弃
	assert.False(t, h.registry.PushToUser(99, EventNewMessage, nil))
}

func TestRegistry_ReplaceConnection(t *testing.T) {
	h := newWSHarness(t)

	connA := h.dial(t, 1)
	connB := h.dial(t, 1)

	// 旧连接被顶掉后读取应当报错，用户仍然在线
	_ = connA.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		if _, _, err := connA.ReadMessage(); err != nil {
			break
		}
	}
	assert.True(t, h.registry.IsOnline(1))

	require.True(t, h.registry.PushToUser(1, EventNewMessage, nil))
	f := readUntil(t, connB, EventNewMessage)
	assert.Equal(t, EventNewMessage, f.Event)
}

func TestRegistry_Shutdown(t *testing.T) {
	h := newWSHarness(t)

	conn := h.dial(t, 1)
	h.registry.Shutdown()

	assert.False(t, h.registry.IsOnline(1))
	assert.False(t, h.registry.PushToUser(1, EventNewMessage, nil))

	// 连接已被服务端关闭
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}

func TestTypingRelay(t *testing.T) {
	h := newWSHarness(t)
	relay := NewTypingRelay(h.registry)
	h.registry.SetEventHandler(relay.HandleClientEvent)

	conn1 := h.dial(t, 1)
	conn2 := h.dial(t, 2)

	t.Run("sender identity comes from the connection", func(t *testing.T) {
		err := conn1.WriteJSON(&Event{
			Event: EventClientTyping,
			Data:  TypingPayload{ConversationID: 5, SenderID: 999, ReceiverID: 2},
		})
		require.NoError(t, err)

		f := readUntil(t, conn2, EventTyping)
		var payload TypingPayload
		require.NoError(t, json.Unmarshal(f.Data, &payload))
		assert.Equal(t, uint64(5), payload.ConversationID)
		assert.Equal(t, uint64(1), payload.SenderID)
		assert.Equal(t, uint64(2), payload.ReceiverID)
	})

	t.Run("stop typing is relayed", func(t *testing.T) {
		err := conn1.WriteJSON(&Event{
			Event: EventClientStopTyping,
			Data:  TypingPayload{ConversationID: 5, ReceiverID: 2},
		})
		require.NoError(t, err)

		f := readUntil(t, conn2, EventStopTyping)
		var payload TypingPayload
		require.NoError(t, json.Unmarshal(f.Data, &payload))
		assert.Equal(t, uint64(1), payload.SenderID)
	})

	t.Run("invalid or offline receiver is dropped", func(t *testing.T) {
		// 缺会话、自己给自己、无接收者、接收者离线：都不产生下行帧
		for _, payload := range []TypingPayload{
			{ReceiverID: 2},
			{ConversationID: 5, ReceiverID: 1},
			{ConversationID: 5, ReceiverID: 0},
			{ConversationID: 5, ReceiverID: 99},
		} {
			require.NoError(t, conn1.WriteJSON(&Event{Event: EventClientTyping, Data: payload}))
		}

		// 之后的正常帧仍然能按序到达，说明坏帧只是被丢弃
		require.NoError(t, conn1.WriteJSON(&Event{
			Event: EventClientTyping,
			Data:  TypingPayload{ConversationID: 5, ReceiverID: 2},
		}))
		f := readUntil(t, conn2, EventTyping)
		var payload TypingPayload
		require.NoError(t, json.Unmarshal(f.Data, &payload))
		assert.Equal(t, uint64(1), payload.SenderID)
	})
}
