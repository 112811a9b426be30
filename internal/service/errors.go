package service

import "errors"

// 业务层通用错误，handler 可根据错误类型映射到合适的 HTTP 状态码。
var (
	ErrEmailTaken         = errors.New("email taken")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserNotFound       = errors.New("user not found")
	ErrAccountBanned      = errors.New("account banned")
	ErrChatNotFound       = errors.New("chat not found")
	ErrNotParticipant     = errors.New("not a chat participant")
	ErrMessageNotFound    = errors.New("message not found")
	ErrNotSender          = errors.New("not the message sender")
	ErrAlreadyRevoked     = errors.New("message already revoked")
	ErrRevokeWindow       = errors.New("revoke window expired")
	ErrGroupNotFound      = errors.New("group not found")
	ErrNotMember          = errors.New("not a group member")
	ErrMuted              = errors.New("member is muted")
	ErrInvalidMessageType = errors.New("invalid message type")
)
