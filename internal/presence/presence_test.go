package presence

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	client := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("skip: redis not available: %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return NewStore(client, "campus-test")
}

func TestStore_SetGet(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	const userID = 42

	if err := s.Set(ctx, userID, "online"); err != nil {
		t.Fatalf("Set error: %v", err)
	}
	rec, err := s.Get(ctx, userID)
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if rec.Status != "online" {
		t.Errorf("Status = %q, want online", rec.Status)
	}
	if rec.LastSeen == 0 {
		t.Error("LastSeen not recorded")
	}

	if err := s.Set(ctx, userID, "offline"); err != nil {
		t.Fatalf("Set offline error: %v", err)
	}
	rec, _ = s.Get(ctx, userID)
	if rec.Status != "offline" {
		t.Errorf("Status = %q, want offline", rec.Status)
	}
	// offline 不带 TTL，作为最后已知状态保留
	ttl, err := s.client.TTL(ctx, s.key(userID)).Result()
	if err != nil {
		t.Fatalf("TTL error: %v", err)
	}
	if ttl > 0 {
		t.Errorf("offline key has TTL %v, want none", ttl)
	}
}

func TestStore_MissingUserIsOffline(t *testing.T) {
	s := testStore(t)

	rec, err := s.Get(context.Background(), 999999999)
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if rec.Status != "offline" {
		t.Errorf("missing user Status = %q, want offline", rec.Status)
	}
}

func TestStore_Touch(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	const userID = 43

	if err := s.Set(ctx, userID, "online"); err != nil {
		t.Fatalf("Set error: %v", err)
	}
	if err := s.Touch(ctx, userID); err != nil {
		t.Fatalf("Touch error: %v", err)
	}
	ttl, err := s.client.TTL(ctx, s.key(userID)).Result()
	if err != nil {
		t.Fatalf("TTL error: %v", err)
	}
	if ttl <= 0 || ttl > defaultTTL {
		t.Errorf("TTL after Touch = %v", ttl)
	}
}
