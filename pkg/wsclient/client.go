// Package wsclient 是网关的 Go 客户端：维护一条逻辑连接，断开后指数退避
// 自动重连，并把收到的事件按 type 派发给订阅者。
package wsclient

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// State 连接状态机：disconnected → connecting → connected →
// (断开) reconnecting → connecting | gave-up。
type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateReconnecting
	StateGaveUp
)

const (
	maxReconnectAttempts = 5
	baseReconnectDelay   = time.Second
	maxReconnectDelay    = 30 * time.Second
)

// ErrNotConnected 未连接时调用 Send 返回。消息不会被缓冲，至多一次投递。
var ErrNotConnected = errors.New("wsclient: not connected")

// Handler 接收一帧完整的事件 JSON。
type Handler func(frame json.RawMessage)

type subscriber struct {
	id int
	fn Handler
}

// Client 维护到网关的一条逻辑连接。所有方法并发安全。
type Client struct {
	url    string
	dialer *websocket.Dialer

	mu         sync.Mutex
	token      string
	conn       *websocket.Conn
	state      State
	attempts   int
	timer      *time.Timer
	userClosed bool
	nextSubID  int
	handlers   map[string][]subscriber
}

// New 创建客户端，url 形如 ws://host:port/ws。
func New(url string) *Client {
	return &Client{
		url:      url,
		dialer:   websocket.DefaultDialer,
		handlers: make(map[string][]subscriber),
	}
}

// State 返回当前连接状态。
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Connect 建立连接，已连接或正在连接时为 no-op。凭证通过 ?token= 传递。
func (c *Client) Connect(token string) {
	c.mu.Lock()
	if c.state == StateConnected || c.state == StateConnecting {
		c.mu.Unlock()
		return
	}
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.token = token
	c.userClosed = false
	c.attempts = 0
	c.state = StateConnecting
	c.mu.Unlock()

	go c.dial()
}

func (c *Client) dial() {
	c.mu.Lock()
	url := c.url + "?token=" + c.token
	c.mu.Unlock()

	conn, _, err := c.dialer.Dial(url, nil)
	if err != nil {
		log.Warn().Err(err).Msg("wsclient: dial failed")
		c.onClosed()
		return
	}

	c.mu.Lock()
	if c.userClosed {
		c.mu.Unlock()
		_ = conn.Close()
		return
	}
	c.conn = conn
	c.state = StateConnected
	c.attempts = 0
	c.mu.Unlock()

	// 连接建立立即宣告在线，不等服务端询问。
	if err := c.Send(map[string]interface{}{"type": "presence", "status": "online"}); err != nil {
		log.Warn().Err(err).Msg("wsclient: announce online")
	}

	go c.readLoop(conn)
}

func (c *Client) readLoop(conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			break
		}
		c.dispatch(data)
	}
	_ = conn.Close()
	c.onClosed()
}

// onClosed 处理连接断开：用户主动断开则停住，否则按指数退避调度重连，
// 连续失败 maxReconnectAttempts 次后进入 gave-up，需手动重连。
func (c *Client) onClosed() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.conn = nil
	if c.userClosed {
		c.state = StateDisconnected
		return
	}
	if c.attempts >= maxReconnectAttempts {
		c.state = StateGaveUp
		log.Warn().Msg("wsclient: max reconnection attempts reached")
		return
	}

	c.attempts++
	delay := backoffDelay(c.attempts)
	c.state = StateReconnecting
	log.Info().Int("attempt", c.attempts).Dur("delay", delay).Msg("wsclient: scheduling reconnect")
	c.timer = time.AfterFunc(delay, func() {
		c.mu.Lock()
		if c.state != StateReconnecting {
			c.mu.Unlock()
			return
		}
		c.state = StateConnecting
		c.mu.Unlock()
		c.dial()
	})
}

// backoffDelay 第 attempt 次重连的等待时长：min(1s × 2^attempt, 30s)。
func backoffDelay(attempt int) time.Duration {
	d := baseReconnectDelay << uint(attempt)
	if d > maxReconnectDelay {
		d = maxReconnectDelay
	}
	return d
}

// Send 发送一个事件。未连接时记 warning 并返回 ErrNotConnected，
// 不缓冲、不补发。
func (c *Client) Send(v interface{}) error {
	c.mu.Lock()
	conn := c.conn
	connected := c.state == StateConnected
	c.mu.Unlock()

	if !connected || conn == nil {
		log.Warn().Msg("wsclient: send while not connected, dropped")
		return ErrNotConnected
	}
	return conn.WriteJSON(v)
}

// On 订阅某一事件类型，同一类型允许多个订阅者，按注册顺序派发。
// 返回取消订阅的函数。
func (c *Client) On(eventType string, fn Handler) func() {
	c.mu.Lock()
	c.nextSubID++
	id := c.nextSubID
	c.handlers[eventType] = append(c.handlers[eventType], subscriber{id: id, fn: fn})
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		subs := c.handlers[eventType]
		for i, s := range subs {
			if s.id == id {
				c.handlers[eventType] = append(subs[:i], subs[i+1:]...)
				break
			}
		}
	}
}

// dispatch 按帧内 type 字段派发给订阅者。单个订阅者 panic 被吞掉，
// 不影响其余订阅者。
func (c *Client) dispatch(data []byte) {
	var envelope struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		log.Warn().Err(err).Msg("wsclient: undecodable frame")
		return
	}

	c.mu.Lock()
	subs := make([]subscriber, len(c.handlers[envelope.Type]))
	copy(subs, c.handlers[envelope.Type])
	c.mu.Unlock()

	for _, s := range subs {
		func() {
			defer func() {
				if rec := recover(); rec != nil {
					log.Error().Interface("panic", rec).Str("type", envelope.Type).Msg("wsclient: handler panic")
				}
			}()
			s.fn(json.RawMessage(data))
		}()
	}
}

// Disconnect 主动断开，幂等。取消挂起的重连调度并关闭底层连接。
func (c *Client) Disconnect() {
	c.mu.Lock()
	c.userClosed = true
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	conn := c.conn
	c.conn = nil
	c.state = StateDisconnected
	c.mu.Unlock()

	if conn != nil {
		_ = conn.Close()
	}
}
