package service

import (
	"fmt"
	"testing"
	"time"

	"campushub/internal/config"
	"campushub/internal/db"
	"campushub/internal/models"

	"gorm.io/gorm"
)

// testDB 建立测试数据库连接，本地没有库就跳过。
func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	gdb, err := db.Connect("host=localhost user=postgres password=postgres dbname=campushub port=5432 sslmode=disable TimeZone=UTC")
	if err != nil {
		t.Skipf("skip: db not available: %v", err)
	}
	if err := db.Migrate(gdb); err != nil {
		t.Skipf("skip: migrate failed: %v", err)
	}
	return gdb
}

func testConfig() config.Config {
	return config.Config{JWTSecret: "test-secret", Env: "dev", AccessTokenTTLMinutes: 15, RefreshTokenTTLDays: 7}
}

// makeUser 注册一个邮箱唯一的测试用户。
func makeUser(t *testing.T, users *UserService, tag string) *models.User {
	t.Helper()
	email := fmt.Sprintf("%s-%d@test.local", tag, time.Now().UnixNano())
	u, err := users.Register(tag, email, "password123")
	if err != nil {
		t.Fatalf("Register(%s) error: %v", tag, err)
	}
	return u
}
