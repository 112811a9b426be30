package service

import (
	"errors"
	"time"

	"campushub/internal/models"

	"gorm.io/gorm"
)

// GroupService 封装群聊成员与消息的业务逻辑。
type GroupService struct {
	db *gorm.DB
}

func NewGroupService(db *gorm.DB) *GroupService {
	return &GroupService{db: db}
}

// FindMembership 查找用户在群内的成员记录。
func (s *GroupService) FindMembership(groupID, userID uint) (*models.GroupMember, error) {
	var member models.GroupMember
	err := s.db.Where("group_id = ? AND user_id = ?", groupID, userID).First(&member).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotMember
		}
		return nil, err
	}
	return &member, nil
}

// SendMessage 校验成员资格与禁言状态后写入群消息。
func (s *GroupService) SendMessage(groupID, fromID uint, msgType string, content string) (*models.GroupMessage, error) {
	if !validMessageType(msgType) {
		return nil, ErrInvalidMessageType
	}
	member, err := s.FindMembership(groupID, fromID)
	if err != nil {
		return nil, err
	}
	if member.IsMuted(time.Now()) {
		return nil, ErrMuted
	}
	msg := models.GroupMessage{GroupID: groupID, FromID: fromID, Type: msgType, Content: &content}
	if err := s.db.Create(&msg).Error; err != nil {
		return nil, err
	}
	return &msg, nil
}

// GroupMessageDTO 是对外输出的群消息数据。
type GroupMessageDTO struct {
	ID        uint                 `json:"id"`
	GroupID   uint                 `json:"groupId"`
	FromID    uint                 `json:"fromId"`
	Type      string               `json:"type"`
	Content   *string              `json:"content"`
	CreatedAt time.Time            `json:"createdAt"`
	From      models.PublicProfile `json:"from"`
}

// ListMessages 分页查询群消息，仅群成员可读，按 id 升序返回。
func (s *GroupService) ListMessages(groupID, userID uint, limit int, beforeID uint) ([]GroupMessageDTO, error) {
	if _, err := s.FindMembership(groupID, userID); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	q := s.db.Where("group_id = ?", groupID)
	if beforeID > 0 {
		q = q.Where("id < ?", beforeID)
	}
	var msgs []models.GroupMessage
	if err := q.Order("id desc").Limit(limit).Find(&msgs).Error; err != nil {
		return nil, err
	}
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}

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

	out := make([]GroupMessageDTO, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, GroupMessageDTO{
			ID:        m.ID,
			GroupID:   m.GroupID,
			FromID:    m.FromID,
			Type:      m.Type,
			Content:   m.Content,
			CreatedAt: m.CreatedAt,
			From:      profiles[m.FromID],
		})
	}
	return out, nil
}

// RevokeMessage 撤回群消息。发送者本人在时间窗口内可撤回自己的消息；
// 群主/管理员可随时撤回任意消息，不受窗口限制。
func (s *GroupService) RevokeMessage(groupID, messageID, actorID uint) (*models.GroupMessage, error) {
	var msg models.GroupMessage
	if err := s.db.Where("id = ? AND group_id = ?", messageID, groupID).First(&msg).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMessageNotFound
		}
		return nil, err
	}
	if msg.Type == models.MessageTypeRevoke {
		return nil, ErrAlreadyRevoked
	}

	member, err := s.FindMembership(groupID, actorID)
	if err != nil {
		return nil, err
	}
	if msg.FromID != actorID && !member.IsPrivileged() {
		return nil, ErrNotSender
	}
	if msg.FromID == actorID && !member.IsPrivileged() && time.Since(msg.CreatedAt) > RevokeWindow {
		return nil, ErrRevokeWindow
	}

	if err := s.db.Model(&models.GroupMessage{}).Where("id = ?", msg.ID).
		Updates(map[string]interface{}{"type": models.MessageTypeRevoke, "content": nil}).Error; err != nil {
		return nil, err
	}
	msg.Type = models.MessageTypeRevoke
	msg.Content = nil
	return &msg, nil
}
