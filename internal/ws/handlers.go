package ws

import (
	"context"
	"errors"

	"campushub/internal/models"
	"campushub/internal/presence"
	"campushub/internal/service"

	"github.com/rs/zerolog/log"
)

var errBadEvent = errors.New("missing required fields")

// handlers 承载三类聊天事件的业务处理，依赖 service 层做持久化，
// 通过 registry 解析接收方 transport 完成推送。
type handlers struct {
	chats    *service.ChatService
	users    *service.UserService
	presence *presence.Store
	registry *Registry
}

func (h *handlers) register(r *Router) {
	r.Handle(EventChat, h.handleChat)
	r.Handle(EventPresence, h.handlePresence)
	r.Handle(EventTyping, h.handleTyping)
}

// handleChat 持久化消息并推送给对端。对端不在线不是错误，
// 消息已落库，对方重连或轮询历史时可见。
func (h *handlers) handleChat(sender *Client, evt *Event) error {
	if evt.ChatID == 0 || evt.Data == nil || evt.Data.Content == "" {
		return errBadEvent
	}
	msg, chat, err := h.chats.SendMessage(evt.ChatID, sender.UserID(), evt.Data.Type, evt.Data.Content)
	if err != nil {
		return err
	}
	dto, err := h.chats.HydrateMessage(msg)
	if err != nil {
		return err
	}
	h.registry.Push(chat.Other(sender.UserID()), ChatFrame{Type: EventChat, ChatID: chat.ID, Data: dto})
	return nil
}

// validPresenceStatus 限定事件可写的状态值。status 列同时承载封禁等
// 管理态，客户端自报的值只允许在线/离线两种。
func validPresenceStatus(s string) bool {
	return s == models.UserStatusOnline || s == models.UserStatusOffline
}

// handlePresence 更新发送者状态并向其所有会话的对端扇出。
// 扇出规模是会话数量级，校园社区的联系人规模下可接受。
func (h *handlers) handlePresence(sender *Client, evt *Event) error {
	if !validPresenceStatus(evt.Status) {
		return errBadEvent
	}
	if err := h.users.UpdateStatus(sender.UserID(), evt.Status); err != nil {
		return err
	}
	if h.presence != nil {
		if err := h.presence.Set(context.Background(), sender.UserID(), evt.Status); err != nil {
			log.Warn().Err(err).Uint("user_id", sender.UserID()).Msg("presence store set")
		}
	}
	chats, err := h.chats.ChatsOf(sender.UserID())
	if err != nil {
		return err
	}
	frame := PresenceFrame{Type: EventPresence, UserID: sender.UserID(), Status: evt.Status}
	for _, c := range chats {
		h.registry.Push(c.Other(sender.UserID()), frame)
	}
	return nil
}

// handleTyping 无状态转发输入状态，不落库。
func (h *handlers) handleTyping(sender *Client, evt *Event) error {
	if evt.ChatID == 0 {
		return errBadEvent
	}
	chat, err := h.chats.FindByID(evt.ChatID)
	if err != nil {
		return err
	}
	if !chat.HasParticipant(sender.UserID()) {
		return service.ErrNotParticipant
	}
	h.registry.Push(chat.Other(sender.UserID()), TypingFrame{
		Type:   EventTyping,
		ChatID: chat.ID,
		UserID: sender.UserID(),
		Typing: evt.Typing,
	})
	return nil
}
