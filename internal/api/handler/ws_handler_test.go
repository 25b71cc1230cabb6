package handler

import (
	"Murmur/internal/api/config"
	"Murmur/internal/pkg/redis"
	"Murmur/internal/pkg/security"
	"Murmur/internal/realtime"
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type wsFixture struct {
	registry *realtime.Registry
	wsURL    string
}

func newWsFixture(t *testing.T) *wsFixture {
	t.Helper()

	mr := miniredis.RunT(t)
	require.NoError(t, redis.InitRedis(config.RedisConfig{Addr: mr.Addr()}))

	gin.SetMode(gin.TestMode)
	registry := realtime.NewRegistry()
	router := gin.New()
	router.GET("/ws", NewWsHandler(registry).Connect)

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	t.Cleanup(registry.Shutdown)

	return &wsFixture{
		registry: registry,
		wsURL:    "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws",
	}
}

func TestWsHandler_Connect(t *testing.T) {
	t.Run("happy path", func(t *testing.T) {
		f := newWsFixture(t)

		token, err := security.GenerateToken(7)
		require.NoError(t, err)

		conn, _, err := websocket.DefaultDialer.Dial(f.wsURL+"?token="+token, nil)
		require.NoError(t, err)
		defer conn.Close()

		require.Eventually(t, func() bool { return f.registry.IsOnline(7) },
			time.Second, 10*time.Millisecond)
	})

	t.Run("sad path - missing or invalid token", func(t *testing.T) {
		f := newWsFixture(t)

		_, _, err := websocket.DefaultDialer.Dial(f.wsURL, nil)
		assert.ErrorIs(t, err, websocket.ErrBadHandshake)

		_, _, err = websocket.DefaultDialer.Dial(f.wsURL+"?token=不是token", nil)
		assert.ErrorIs(t, err, websocket.ErrBadHandshake)
	})

	t.Run("sad path - blacklisted token cannot reconnect", func(t *testing.T) {
		f := newWsFixture(t)

		token, err := security.GenerateToken(7)
		require.NoError(t, err)

		// 登出把签名写进黑名单，之后同一 token 不能再开新连接
		signature, err := security.ExtractSignature(token)
		require.NoError(t, err)
		require.NoError(t, redis.SetWithExpiration(context.Background(), signature, "revoked", time.Minute))

		_, _, err = websocket.DefaultDialer.Dial(f.wsURL+"?token="+token, nil)
		assert.ErrorIs(t, err, websocket.ErrBadHandshake)
		assert.False(t, f.registry.IsOnline(7))
	})
}
