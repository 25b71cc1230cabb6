package handler

import (
	"Murmur/internal/pkg/redis"
	"Murmur/internal/pkg/response"
	"Murmur/internal/pkg/security"
	"Murmur/internal/realtime"
	"Murmur/internal/service"
	log "log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

type WsHandler struct {
	registry *realtime.Registry
}

func NewWsHandler(registry *realtime.Registry) *WsHandler {
	return &WsHandler{registry: registry}
}

// Connect WS 入口：浏览器原生 WebSocket 不带 Header，token 走 query
func (s *WsHandler) Connect(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		response.Error(c, service.UnauthorizedError)
		return
	}

	// 与 Header 鉴权同一套黑名单：登出后的 token 不能再开新连接
	signature, err := security.ExtractSignature(token)
	if err != nil {
		response.Error(c, service.UnauthorizedError)
		return
	}
	value, err := redis.GetValue(c.Request.Context(), signature)
	if err != nil {
		response.Error(c, service.UnExpectedError)
		return
	}
	if value != "" {
		response.Error(c, service.UnauthorizedError)
		return
	}

	claims, err := security.ValidateToken(token)
	if err != nil {
		log.Warn("WS 鉴权失败", "err", err)
		response.Error(c, service.UnauthorizedError)
		return
	}
	userID := claims.UserID

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error("WS 协议升级失败", "err", err)
		return
	}

	// 阻塞到连接断开，注册表负责读写循环与在线名单广播
	s.registry.Serve(userID, conn)
}
