package presence

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Keys: campus:presence:<userID> -> {"status":...,"last_seen":...}，带 TTL，
// 进程崩溃后陈旧的在线状态会自然过期。
const defaultTTL = 5 * time.Minute

// Store 把用户在线状态写入 Redis，供轮询接口和后续多实例部署读取。
type Store struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

type Record struct {
	Status   string `json:"status"`
	LastSeen int64  `json:"last_seen"`
}

func NewStore(client *redis.Client, prefix string) *Store {
	if prefix == "" {
		prefix = "campus"
	}
	return &Store{client: client, prefix: prefix, ttl: defaultTTL}
}

func (s *Store) key(userID uint) string {
	return fmt.Sprintf("%s:presence:%d", s.prefix, userID)
}

// Set 记录用户状态，offline 不带 TTL，作为最后已知状态保留。
func (s *Store) Set(ctx context.Context, userID uint, status string) error {
	rec := Record{Status: status, LastSeen: time.Now().Unix()}
	b, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	ttl := s.ttl
	if status == "offline" {
		ttl = 0
	}
	return s.client.Set(ctx, s.key(userID), b, ttl).Err()
}

// Get 读取用户状态，键不存在视为 offline。
func (s *Store) Get(ctx context.Context, userID uint) (Record, error) {
	b, err := s.client.Get(ctx, s.key(userID)).Bytes()
	if err == redis.Nil {
		return Record{Status: "offline"}, nil
	}
	if err != nil {
		return Record{}, err
	}
	var rec Record
	if err := json.Unmarshal(b, &rec); err != nil {
		return Record{}, err
	}
	return rec, nil
}

// Touch 刷新在线 TTL，由连接的心跳周期调用。
func (s *Store) Touch(ctx context.Context, userID uint) error {
	return s.client.Expire(ctx, s.key(userID), s.ttl).Err()
}
