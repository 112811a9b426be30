package service

import (
	"errors"
	"time"

	"campushub/internal/models"

	"gorm.io/gorm"
)

// RevokeWindow 普通发送者撤回消息的时间窗口。
const RevokeWindow = 2 * time.Minute

// ChatService 封装单聊会话与消息的业务逻辑。
type ChatService struct {
	db *gorm.DB
}

func NewChatService(db *gorm.DB) *ChatService {
	return &ChatService{db: db}
}

// FindByID 按 ID 查找会话。
func (s *ChatService) FindByID(chatID uint) (*models.Chat, error) {
	var chat models.Chat
	if err := s.db.First(&chat, chatID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrChatNotFound
		}
		return nil, err
	}
	return &chat, nil
}

// FindByParticipants 查找一对用户间的会话，方向无关。
func (s *ChatService) FindByParticipants(a, b uint) (*models.Chat, error) {
	var chat models.Chat
	err := s.db.Where("(user_id = ? AND target_id = ?) OR (user_id = ? AND target_id = ?)", a, b, b, a).
		First(&chat).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrChatNotFound
		}
		return nil, err
	}
	return &chat, nil
}

// CreateOrGet 返回一对用户间的会话，不存在则创建。
// 同一对用户至多一行由这里的先查后建保证。
func (s *ChatService) CreateOrGet(userID, targetID uint) (*models.Chat, error) {
	chat, err := s.FindByParticipants(userID, targetID)
	if err == nil {
		return chat, nil
	}
	if !errors.Is(err, ErrChatNotFound) {
		return nil, err
	}
	var target models.User
	if err := s.db.First(&target, targetID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	created := models.Chat{UserID: userID, TargetID: targetID, UnreadCount: 0}
	if err := s.db.Create(&created).Error; err != nil {
		return nil, err
	}
	return &created, nil
}

// ChatDTO 是对外输出的会话数据，附带对端用户的公开信息。
type ChatDTO struct {
	ID            uint                 `json:"id"`
	UserID        uint                 `json:"userId"`
	TargetID      uint                 `json:"targetId"`
	LastMessageID *uint                `json:"lastMessageId"`
	UnreadCount   int                  `json:"unreadCount"`
	Target        models.PublicProfile `json:"target"`
}

// ListByUser 返回用户参与的全部会话。
func (s *ChatService) ListByUser(userID uint) ([]ChatDTO, error) {
	var chats []models.Chat
	if err := s.db.Where("user_id = ? OR target_id = ?", userID, userID).
		Order("updated_at desc").Find(&chats).Error; err != nil {
		return nil, err
	}
	out := make([]ChatDTO, 0, len(chats))
	for _, c := range chats {
		var target models.User
		if err := s.db.First(&target, c.Other(userID)).Error; err != nil {
			continue
		}
		out = append(out, ChatDTO{
			ID:            c.ID,
			UserID:        c.UserID,
			TargetID:      c.TargetID,
			LastMessageID: c.LastMessageID,
			UnreadCount:   c.UnreadCount,
			Target:        target.Public(),
		})
	}
	return out, nil
}

// ChatsOf 返回用户参与的全部会话原始行，供 presence 扇出使用。
func (s *ChatService) ChatsOf(userID uint) ([]models.Chat, error) {
	var chats []models.Chat
	if err := s.db.Where("user_id = ? OR target_id = ?", userID, userID).Find(&chats).Error; err != nil {
		return nil, err
	}
	return chats, nil
}

func validMessageType(t string) bool {
	switch t {
	case models.MessageTypeText, models.MessageTypeImage, models.MessageTypeVoice, models.MessageTypeFile:
		return true
	}
	return false
}

// SendMessage 校验发送者身份后写入消息，并维护会话的 lastMessageId 与未读数。
// 未读数记在接收方视角：发送方是会话创建者时 +1，发送方是 target 时保持不变，
// 清零只发生在显式的已读标记里。
func (s *ChatService) SendMessage(chatID, fromID uint, msgType string, content string) (*models.Message, *models.Chat, error) {
	if !validMessageType(msgType) {
		return nil, nil, ErrInvalidMessageType
	}
	chat, err := s.FindByID(chatID)
	if err != nil {
		return nil, nil, err
	}
	if !chat.HasParticipant(fromID) {
		return nil, nil, ErrNotParticipant
	}

	msg := models.Message{ChatID: chatID, FromID: fromID, Type: msgType, Content: &content}
	if err := s.db.Create(&msg).Error; err != nil {
		return nil, nil, err
	}

	updates := map[string]interface{}{"last_message_id": msg.ID}
	if fromID == chat.UserID {
		updates["unread_count"] = chat.UnreadCount + 1
	}
	if err := s.db.Model(&models.Chat{}).Where("id = ?", chatID).Updates(updates).Error; err != nil {
		return nil, nil, err
	}
	chat.LastMessageID = &msg.ID
	if fromID == chat.UserID {
		chat.UnreadCount++
	}
	return &msg, chat, nil
}

// MarkRead 将会话未读数清零，调用者必须是参与者。
func (s *ChatService) MarkRead(chatID, userID uint) error {
	chat, err := s.FindByID(chatID)
	if err != nil {
		return err
	}
	if !chat.HasParticipant(userID) {
		return ErrNotParticipant
	}
	return s.db.Model(&models.Chat{}).Where("id = ?", chatID).Update("unread_count", 0).Error
}

// MessageDTO 是对外输出的消息数据，附带发送者公开信息。
type MessageDTO struct {
	ID        uint                 `json:"id"`
	ChatID    uint                 `json:"chatId"`
	FromID    uint                 `json:"fromId"`
	Type      string               `json:"type"`
	Content   *string              `json:"content"`
	CreatedAt time.Time            `json:"createdAt"`
	From      models.PublicProfile `json:"from"`
}

// ListMessages 分页查询会话消息，按 id 升序返回。
// 读取方是未读计数的归属方时顺带清零，模拟进入会话即已读。
func (s *ChatService) ListMessages(chatID, userID uint, limit int, beforeID uint) ([]MessageDTO, error) {
	chat, err := s.FindByID(chatID)
	if err != nil {
		return nil, err
	}
	if !chat.HasParticipant(userID) {
		return nil, ErrNotParticipant
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	q := s.db.Where("chat_id = ?", chatID)
	if beforeID > 0 {
		q = q.Where("id < ?", beforeID)
	}
	var msgs []models.Message
	if err := q.Order("id desc").Limit(limit).Find(&msgs).Error; err != nil {
		return nil, err
	}
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}

	profiles, err := s.resolveProfiles(msgs)
	if err != nil {
		return nil, err
	}
	out := make([]MessageDTO, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, MessageDTO{
			ID:        m.ID,
			ChatID:    m.ChatID,
			FromID:    m.FromID,
			Type:      m.Type,
			Content:   m.Content,
			CreatedAt: m.CreatedAt,
			From:      profiles[m.FromID],
		})
	}

	if userID == chat.TargetID && chat.UnreadCount > 0 {
		if err := s.db.Model(&models.Chat{}).Where("id = ?", chatID).Update("unread_count", 0).Error; err != nil {
			return nil, err
		}
	}
	return out, nil
}

// RevokeMessage 撤回单聊消息。只有发送者本人可以撤回，且必须在时间窗口内。
// 已撤回的消息保持 type=revoke、content=null，不会被二次修改。
func (s *ChatService) RevokeMessage(chatID, messageID, actorID uint) (*models.Message, error) {
	var msg models.Message
	if err := s.db.Where("id = ? AND chat_id = ?", messageID, chatID).First(&msg).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMessageNotFound
		}
		return nil, err
	}
	if msg.Type == models.MessageTypeRevoke {
		return nil, ErrAlreadyRevoked
	}
	if msg.FromID != actorID {
		return nil, ErrNotSender
	}
	if time.Since(msg.CreatedAt) > RevokeWindow {
		return nil, ErrRevokeWindow
	}
	if err := s.db.Model(&models.Message{}).Where("id = ?", msg.ID).
		Updates(map[string]interface{}{"type": models.MessageTypeRevoke, "content": nil}).Error; err != nil {
		return nil, err
	}
	msg.Type = models.MessageTypeRevoke
	msg.Content = nil
	return &msg, nil
}

// HydrateMessage 把消息和发送者公开信息拼成下发结构。
func (s *ChatService) HydrateMessage(msg *models.Message) (*MessageDTO, error) {
	var from models.User
	if err := s.db.First(&from, msg.FromID).Error; err != nil {
		return nil, err
	}
	return &MessageDTO{
		ID:        msg.ID,
		ChatID:    msg.ChatID,
		FromID:    msg.FromID,
		Type:      msg.Type,
		Content:   msg.Content,
		CreatedAt: msg.CreatedAt,
		From:      from.Public(),
	}, nil
}

// resolveProfiles 批量获取消息涉及的发送者公开信息。
func (s *ChatService) resolveProfiles(msgs []models.Message) (map[uint]models.PublicProfile, error) {
	seen := make(map[uint]struct{}, len(msgs))
	userIDs := make([]uint, 0, len(msgs))
	for _, m := range msgs {
		if _, ok := seen[m.FromID]; ok {
			continue
		}
		seen[m.FromID] = struct{}{}
		userIDs = append(userIDs, m.FromID)
	}

	profiles := make(map[uint]models.PublicProfile, len(userIDs))
	if len(userIDs) > 0 {
		var users []models.User
		if err := s.db.Select("id", "name", "avatar").Where("id IN ?", userIDs).Find(&users).Error; err != nil {
			return nil, err
		}
		for _, u := range users {
			profiles[u.ID] = u.Public()
		}
	}
	return profiles, nil
}
