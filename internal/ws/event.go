package ws

import "campushub/internal/service"

// 事件类型，与前端约定的 type 判别字段一一对应。
const (
	EventChat     = "chat"
	EventPresence = "presence"
	EventTyping   = "typing"
)

// Event 入站事件。一帧一个 JSON 对象，type 决定其余字段的含义。
type Event struct {
	Type   string          `json:"type"`
	ChatID uint            `json:"chatId,omitempty"`
	Status string          `json:"status,omitempty"`
	Typing bool            `json:"typing,omitempty"`
	Data   *MessagePayload `json:"data,omitempty"`
}

// MessagePayload chat 事件携带的消息体。
type MessagePayload struct {
	Type    string `json:"type"`
	Content string `json:"content"`
}

// ChatFrame 服务端下发的聊天消息帧，data 内含完整消息与发送者公开信息。
type ChatFrame struct {
	Type   string              `json:"type"`
	ChatID uint                `json:"chatId"`
	Data   *service.MessageDTO `json:"data"`
}

// PresenceFrame 服务端下发的在线状态帧。初始连接帧省略 userId。
type PresenceFrame struct {
	Type   string `json:"type"`
	UserID uint   `json:"userId,omitempty"`
	Status string `json:"status"`
}

// TypingFrame 服务端转发的输入状态帧。
type TypingFrame struct {
	Type   string `json:"type"`
	ChatID uint   `json:"chatId"`
	UserID uint   `json:"userId"`
	Typing bool   `json:"typing"`
}
