package ws

import (
	"encoding/json"

	"campushub/internal/metrics"

	"github.com/rs/zerolog/log"
)

// HandlerFunc 处理一个入站事件。返回的 error 只用于记录，
// 永远不会传播到 transport，连接保持打开。
type HandlerFunc func(sender *Client, evt *Event) error

// Router 按事件 type 字符串派发到注册的 handler。
// 未知类型丢弃并记日志，不回错误帧也不断开连接。
type Router struct {
	handlers map[string]HandlerFunc
}

func NewRouter() *Router {
	return &Router{handlers: make(map[string]HandlerFunc)}
}

// Handle 注册 type 对应的 handler，重复注册以后者为准。
func (r *Router) Handle(eventType string, fn HandlerFunc) {
	r.handlers[eventType] = fn
}

// Dispatch 解码并派发一帧。所有失败都在这里收口：解码失败、未知类型、
// handler 出错或 panic 均只记录，发送方连接不受影响。
func (r *Router) Dispatch(sender *Client, raw []byte) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Error().Interface("panic", rec).Uint("user_id", sender.UserID()).Msg("ws handler panic")
		}
	}()

	var evt Event
	if err := json.Unmarshal(raw, &evt); err != nil {
		metrics.WsDropsTotal.WithLabelValues("bad_payload").Inc()
		log.Warn().Err(err).Uint("user_id", sender.UserID()).Msg("ws drop: undecodable frame")
		return
	}

	fn, ok := r.handlers[evt.Type]
	if !ok {
		metrics.WsDropsTotal.WithLabelValues("unknown_type").Inc()
		log.Warn().Str("type", evt.Type).Uint("user_id", sender.UserID()).Msg("ws drop: unknown event type")
		return
	}

	metrics.WsEventsTotal.WithLabelValues(evt.Type).Inc()
	if err := fn(sender, &evt); err != nil {
		metrics.WsDropsTotal.WithLabelValues("handler_error").Inc()
		log.Warn().Err(err).Str("type", evt.Type).Uint("user_id", sender.UserID()).Msg("ws handler")
	}
}
