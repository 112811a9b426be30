package server

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"campushub/internal/auth"
	"campushub/internal/models"
	"campushub/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// Handler 聚合所有 HTTP handler，依赖注入 service 层。
type Handler struct {
	userSvc  *service.UserService
	chatSvc  *service.ChatService
	groupSvc *service.GroupService
}

func NewHandler(userSvc *service.UserService, chatSvc *service.ChatService, groupSvc *service.GroupService) *Handler {
	return &Handler{userSvc: userSvc, chatSvc: chatSvc, groupSvc: groupSvc}
}

// Register 处理用户注册请求。
func (h *Handler) Register(c *gin.Context) {
	var req struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.TrimSpace(req.Email)
	if req.Name == "" || req.Email == "" || req.Password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	if len(req.Name) < 2 || len(req.Name) > 64 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid name"})
		return
	}
	if len(req.Password) < 6 || len(req.Password) > 128 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid password"})
		return
	}
	user, err := h.userSvc.Register(req.Name, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrEmailTaken) {
			c.JSON(http.StatusConflict, gin.H{"error": "email taken"})
			return
		}
		log.Error().Err(err).Str("email", req.Email).Msg("register")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create user"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": user.ID, "name": user.Name, "email": user.Email})
}

// Login 处理用户登录请求。
func (h *Handler) Login(c *gin.Context) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" || req.Password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	result, err := h.userSvc.Login(req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidCredentials):
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		case errors.Is(err, service.ErrAccountBanned):
			c.JSON(http.StatusForbidden, gin.H{"error": "account banned"})
		default:
			log.Error().Err(err).Str("email", req.Email).Msg("login")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "login failed"})
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"access_token":  result.AccessToken,
		"refresh_token": result.RefreshToken,
		"user":          gin.H{"id": result.User.ID, "name": result.User.Name, "email": result.User.Email, "avatar": result.User.Avatar},
	})
}

// RefreshToken 处理 token 刷新请求。
func (h *Handler) RefreshToken(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.RefreshToken == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	result, err := h.userSvc.RefreshTokens(req.RefreshToken)
	if err != nil {
		log.Warn().Err(err).Msg("refresh token")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid refresh token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"access_token": result.AccessToken, "refresh_token": result.RefreshToken})
}

// ListUsers 返回用户列表的公开信息。
func (h *Handler) ListUsers(c *gin.Context) {
	users, err := h.userSvc.List(100)
	if err != nil {
		log.Error().Err(err).Msg("list users")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list users"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users})
}

// Me 返回当前登录用户的完整资料（不含凭证字段）。
func (h *Handler) Me(c *gin.Context) {
	user, err := h.userSvc.FindByID(auth.GetUserID(c))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

// UpdateProfile 更新当前用户资料。
func (h *Handler) UpdateProfile(c *gin.Context) {
	var req struct {
		Name   string `json:"name"`
		Avatar string `json:"avatar"`
		Bio    string `json:"bio"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	user, err := h.userSvc.UpdateProfile(auth.GetUserID(c), req.Name, req.Avatar, req.Bio)
	if err != nil {
		log.Error().Err(err).Uint("user_id", auth.GetUserID(c)).Msg("update profile")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update profile"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

// ListChats 返回当前用户的会话列表。
func (h *Handler) ListChats(c *gin.Context) {
	chats, err := h.chatSvc.ListByUser(auth.GetUserID(c))
	if err != nil {
		log.Error().Err(err).Uint("user_id", auth.GetUserID(c)).Msg("list chats")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list chats"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"chats": chats})
}

// CreateChat 创建（或返回已存在的）与目标用户的会话。
func (h *Handler) CreateChat(c *gin.Context) {
	var req struct {
		TargetID uint `json:"targetId"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.TargetID == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	userID := auth.GetUserID(c)
	if req.TargetID == userID {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot chat with yourself"})
		return
	}
	chat, err := h.chatSvc.CreateOrGet(userID, req.TargetID)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "target not found"})
			return
		}
		log.Error().Err(err).Uint("user_id", userID).Uint("target_id", req.TargetID).Msg("create chat")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create chat"})
		return
	}
	target, err := h.userSvc.FindByID(chat.Other(userID))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create chat"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"chat": chat, "target": target.Public()})
}

// ListChatMessages 分页查询会话消息。
func (h *Handler) ListChatMessages(c *gin.Context) {
	chatID := pathID(c, "id")
	if chatID == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid chat id"})
		return
	}
	limit, beforeID := pageParams(c)
	msgs, err := h.chatSvc.ListMessages(chatID, auth.GetUserID(c), limit, beforeID)
	if err != nil {
		h.chatError(c, err, "list chat messages")
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}

// SendChatMessage 通过 REST 发送单聊消息，与 ws 路径共用同一业务入口。
func (h *Handler) SendChatMessage(c *gin.Context) {
	chatID := pathID(c, "id")
	if chatID == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid chat id"})
		return
	}
	var req struct {
		Type    string `json:"type"`
		Content string `json:"content"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Content == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	if req.Type == "" {
		req.Type = models.MessageTypeText
	}
	msg, _, err := h.chatSvc.SendMessage(chatID, auth.GetUserID(c), req.Type, req.Content)
	if err != nil {
		h.chatError(c, err, "send chat message")
		return
	}
	dto, err := h.chatSvc.HydrateMessage(msg)
	if err != nil {
		log.Error().Err(err).Uint("chat_id", chatID).Msg("hydrate message")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to send message"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": dto})
}

// MarkChatRead 将会话未读数清零。
func (h *Handler) MarkChatRead(c *gin.Context) {
	chatID := pathID(c, "id")
	if chatID == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid chat id"})
		return
	}
	if err := h.chatSvc.MarkRead(chatID, auth.GetUserID(c)); err != nil {
		h.chatError(c, err, "mark chat read")
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// RevokeChatMessage 撤回单聊消息。
func (h *Handler) RevokeChatMessage(c *gin.Context) {
	chatID := pathID(c, "id")
	messageID := pathID(c, "messageId")
	if chatID == 0 || messageID == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	msg, err := h.chatSvc.RevokeMessage(chatID, messageID, auth.GetUserID(c))
	if err != nil {
		h.chatError(c, err, "revoke chat message")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": msg})
}

// ListGroupMessages 分页查询群消息。
func (h *Handler) ListGroupMessages(c *gin.Context) {
	groupID := pathID(c, "id")
	if groupID == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid group id"})
		return
	}
	limit, beforeID := pageParams(c)
	msgs, err := h.groupSvc.ListMessages(groupID, auth.GetUserID(c), limit, beforeID)
	if err != nil {
		h.chatError(c, err, "list group messages")
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}

// SendGroupMessage 发送群消息，成员资格与禁言由 service 层校验。
func (h *Handler) SendGroupMessage(c *gin.Context) {
	groupID := pathID(c, "id")
	if groupID == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid group id"})
		return
	}
	var req struct {
		Type    string `json:"type"`
		Content string `json:"content"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Content == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	if req.Type == "" {
		req.Type = models.MessageTypeText
	}
	msg, err := h.groupSvc.SendMessage(groupID, auth.GetUserID(c), req.Type, req.Content)
	if err != nil {
		h.chatError(c, err, "send group message")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": msg})
}

// RevokeGroupMessage 撤回群消息。
func (h *Handler) RevokeGroupMessage(c *gin.Context) {
	groupID := pathID(c, "id")
	messageID := pathID(c, "messageId")
	if groupID == 0 || messageID == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	msg, err := h.groupSvc.RevokeMessage(groupID, messageID, auth.GetUserID(c))
	if err != nil {
		h.chatError(c, err, "revoke group message")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": msg})
}

// chatError 把 service 层的业务错误映射到 HTTP 状态码。
func (h *Handler) chatError(c *gin.Context, err error, op string) {
	switch {
	case errors.Is(err, service.ErrChatNotFound), errors.Is(err, service.ErrMessageNotFound),
		errors.Is(err, service.ErrGroupNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrNotParticipant), errors.Is(err, service.ErrNotMember),
		errors.Is(err, service.ErrNotSender), errors.Is(err, service.ErrMuted),
		errors.Is(err, service.ErrRevokeWindow):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrAlreadyRevoked), errors.Is(err, service.ErrInvalidMessageType):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		log.Error().Err(err).Msg(op)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "server error"})
	}
}

func pathID(c *gin.Context, name string) uint {
	v, err := strconv.Atoi(c.Param(name))
	if err != nil || v <= 0 {
		return 0
	}
	return uint(v)
}

func pageParams(c *gin.Context) (limit int, beforeID uint) {
	limitStr := c.Query("limit")
	if limitStr == "" {
		limitStr = "50"
	}
	limit, _ = strconv.Atoi(limitStr)
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if bid := c.Query("before_id"); bid != "" {
		if v, err := strconv.Atoi(bid); err == nil && v > 0 {
			beforeID = uint(v)
		}
	}
	return limit, beforeID
}
