package ws

import (
	"encoding/json"
	"sync"

	"campushub/internal/metrics"

	"github.com/rs/zerolog/log"
)

// Registry 维护用户 ID 到活跃连接的映射，同一用户最多一条活跃连接。
// 由组合根构造并注入，不做包级单例。
type Registry struct {
	mu      sync.RWMutex
	clients map[uint]*Client
}

func NewRegistry() *Registry {
	return &Registry{clients: make(map[uint]*Client)}
}

// Register 安装 userID 的连接映射。同一用户已有连接时先关闭旧连接再替换，
// 避免被覆盖的 transport 泄漏。
func (r *Registry) Register(userID uint, c *Client) {
	r.mu.Lock()
	old, ok := r.clients[userID]
	r.clients[userID] = c
	r.mu.Unlock()

	if ok && old != c {
		old.Close()
	} else if !ok {
		metrics.WsConnections.Inc()
	}
}

// Lookup 返回 userID 的活跃连接，不在线是正常情况而非错误。
func (r *Registry) Lookup(userID uint) (*Client, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.clients[userID]
	return c, ok
}

// Remove 幂等移除映射，返回是否真的摘掉了该 handle。只有当前存储的 handle
// 与传入一致才会删除，旧连接迟到的关闭不能误伤新连接；调用方据返回值决定
// 是否执行下线收尾。
func (r *Registry) Remove(userID uint, c *Client) bool {
	r.mu.Lock()
	cur, ok := r.clients[userID]
	evicted := ok && cur == c
	if evicted {
		delete(r.clients, userID)
	}
	r.mu.Unlock()

	if evicted {
		metrics.WsConnections.Dec()
	}
	return evicted
}

// Count 返回当前活跃连接数。
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.clients)
}

// Push 向 userID 的活跃连接推送一帧 JSON。对端不在线或发送缓冲已满时
// 返回 false，调用方按尽力投递语义处理，不重试。
func (r *Registry) Push(userID uint, v interface{}) bool {
	c, ok := r.Lookup(userID)
	if !ok {
		return false
	}
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Uint("user_id", userID).Msg("push marshal")
		return false
	}
	if !c.Send(b) {
		log.Warn().Uint("user_id", userID).Msg("push dropped: send buffer full or closed")
		return false
	}
	return true
}
