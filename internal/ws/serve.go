package ws

import (
	"context"
	"net/http"

	"campushub/internal/auth"
	"campushub/internal/config"
	"campushub/internal/models"
	"campushub/internal/presence"
	"campushub/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Gateway 组装连接注册表、事件路由和投递 handler，对外暴露 /ws 端点。
type Gateway struct {
	cfg      config.Config
	registry *Registry
	router   *Router
	users    *service.UserService
	pstore   *presence.Store
}

// NewGateway 构造网关并注册全部事件 handler。
func NewGateway(cfg config.Config, registry *Registry, chats *service.ChatService, users *service.UserService, pstore *presence.Store) *Gateway {
	router := NewRouter()
	h := &handlers{chats: chats, users: users, presence: pstore, registry: registry}
	h.register(router)
	return &Gateway{
		cfg:      cfg,
		registry: registry,
		router:   router,
		users:    users,
		pstore:   pstore,
	}
}

// Registry 暴露注册表，REST 层查询在线状态时使用。
func (g *Gateway) Registry() *Registry { return g.registry }

// Serve 处理 WebSocket 握手。凭证无效的连接在升级前被拒绝，
// 不会被任何其他组件观察到。
func (g *Gateway) Serve() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.Query("token")
		if token == "" {
			authz := c.GetHeader("Authorization")
			if len(authz) > 7 && (authz[:7] == "Bearer " || authz[:7] == "bearer ") {
				token = authz[7:]
			}
		}
		if token == "" {
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}
		claims, err := auth.ParseAccessToken(token, g.cfg.JWTSecret)
		if err != nil {
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}
		user, err := g.users.FindByID(claims.UserID)
		if err != nil {
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}
		if user.Status == models.UserStatusBanned {
			c.AbortWithStatus(http.StatusForbidden)
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			return
		}

		client := newClient(user.ID, conn)
		g.registry.Register(user.ID, client)
		log.Info().Uint("user_id", user.ID).Msg("ws connected")

		// 连接建立即下发在线状态帧，客户端不需要等服务端轮询。
		g.registry.Push(user.ID, PresenceFrame{Type: EventPresence, Status: "online"})

		go client.writePump()
		client.readPump(g.router)

		// 只有摘掉的确实是本连接才写离线。被新连接替换时这里的收尾
		// 晚于 Register，乱写会把在线用户标成离线。
		if g.registry.Remove(user.ID, client) && g.pstore != nil {
			if err := g.pstore.Set(context.Background(), user.ID, "offline"); err != nil {
				log.Warn().Err(err).Uint("user_id", user.ID).Msg("presence store offline")
			}
		}
		log.Info().Uint("user_id", user.ID).Msg("ws disconnected")
	}
}
