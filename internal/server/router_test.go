package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"campushub/internal/config"
	"campushub/internal/db"
	"campushub/internal/service"
	"campushub/internal/ws"

	"github.com/gin-gonic/gin"
)

func setupTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := config.Config{Port: "0", JWTSecret: "secret", Env: "dev", AccessTokenTTLMinutes: 15, RefreshTokenTTLDays: 7}
	gdb, err := db.Connect("host=localhost user=postgres password=postgres dbname=campushub port=5432 sslmode=disable TimeZone=UTC")
	if err != nil {
		t.Skipf("skip: db not available: %v", err)
	}
	if err := db.Migrate(gdb); err != nil {
		t.Skipf("skip: migrate failed: %v", err)
	}

	users := service.NewUserService(gdb, cfg)
	chats := service.NewChatService(gdb)
	groups := service.NewGroupService(gdb)
	gw := ws.NewGateway(cfg, ws.NewRegistry(), chats, users, nil)
	h := NewHandler(users, chats, groups)

	return SetupRouter(cfg, gdb, h, gw)
}

func TestHealthz(t *testing.T) {
	engine := setupTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}

func TestAuthedRoutesRequireToken(t *testing.T) {
	engine := setupTestRouter(t)

	for _, path := range []string{"/api/v1/users/me", "/api/v1/chats"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, req)

		if w.Code != http.StatusUnauthorized {
			t.Errorf("GET %s without token: got %d, want 401", path, w.Code)
		}
	}
}

func TestWsRejectsMissingToken(t *testing.T) {
	engine := setupTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/ws", nil)
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("ws handshake without token: got %d, want 401", w.Code)
	}
}
