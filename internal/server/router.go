package server

import (
	"net/http"
	"time"

	"campushub/internal/auth"
	"campushub/internal/config"
	"campushub/internal/metrics"
	"campushub/internal/mw"
	"campushub/internal/ws"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"
	"gorm.io/gorm"
)

// SetupRouter 统一初始化 Gin 中间件、REST API 以及 WebSocket 端点。
func SetupRouter(cfg config.Config, db *gorm.DB, h *Handler, gw *ws.Gateway) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(metrics.GinMiddleware())
	r.Use(mw.CORS(cfg.Env))
	// 控制单个 IP+路由的速率，避免社区环境被刷爆。
	r.Use(mw.RateLimit(rate.Every(time.Second/20), 40))

	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api/v1")

	api.POST("/auth/register", h.Register)
	api.POST("/auth/login", h.Login)
	api.POST("/auth/refresh", h.RefreshToken)

	// 需要 Bearer Token 的业务接口。
	authed := api.Group("")
	authed.Use(auth.AuthMiddleware(cfg, db))

	authed.GET("/users", h.ListUsers)
	authed.GET("/users/me", h.Me)
	authed.PUT("/users/profile", h.UpdateProfile)

	authed.GET("/chats", h.ListChats)
	authed.POST("/chats", h.CreateChat)
	authed.GET("/chats/:id/messages", h.ListChatMessages)
	authed.POST("/chats/:id/messages", h.SendChatMessage)
	authed.POST("/chats/:id/read", h.MarkChatRead)
	authed.POST("/chats/:id/messages/:messageId/revoke", h.RevokeChatMessage)

	authed.GET("/groups/:id/messages", h.ListGroupMessages)
	authed.POST("/groups/:id/messages", h.SendGroupMessage)
	authed.POST("/groups/:id/messages/:messageId/revoke", h.RevokeGroupMessage)

	r.GET("/ws", gw.Serve())

	return r
}
