package wsclient

import (
	"encoding/json"
	"testing"
	"time"
)

func TestBackoffDelay(t *testing.T) {
	cases := []struct {
		attempt int
		want    time.Duration
	}{
		{1, 2 * time.Second},
		{2, 4 * time.Second},
		{3, 8 * time.Second},
		{4, 16 * time.Second},
		{5, 30 * time.Second}, // 32s 被钳到上限
	}
	for _, c := range cases {
		if got := backoffDelay(c.attempt); got != c.want {
			t.Errorf("backoffDelay(%d) = %v, want %v", c.attempt, got, c.want)
		}
	}
}

func TestSendWhileDisconnected(t *testing.T) {
	c := New("ws://127.0.0.1:0/ws")
	if err := c.Send(map[string]string{"type": "typing"}); err != ErrNotConnected {
		t.Errorf("Send while disconnected: got %v, want ErrNotConnected", err)
	}
}

func TestOnDispatchOrder(t *testing.T) {
	c := New("ws://127.0.0.1:0/ws")

	var order []int
	c.On("chat", func(json.RawMessage) { order = append(order, 1) })
	c.On("chat", func(json.RawMessage) { order = append(order, 2) })
	c.On("presence", func(json.RawMessage) { order = append(order, 99) })

	c.dispatch([]byte(`{"type":"chat","chatId":1}`))

	if len(order) != 2 || order[0] != 1 || order[1] != 2 {
		t.Errorf("dispatch order = %v, want [1 2]", order)
	}
}

func TestOnUnsubscribe(t *testing.T) {
	c := New("ws://127.0.0.1:0/ws")

	called := 0
	off := c.On("chat", func(json.RawMessage) { called++ })
	keep := 0
	c.On("chat", func(json.RawMessage) { keep++ })

	c.dispatch([]byte(`{"type":"chat"}`))
	off()
	c.dispatch([]byte(`{"type":"chat"}`))

	if called != 1 {
		t.Errorf("unsubscribed handler called %d times, want 1", called)
	}
	if keep != 2 {
		t.Errorf("remaining handler called %d times, want 2", keep)
	}
}

func TestDispatchPanicContained(t *testing.T) {
	c := New("ws://127.0.0.1:0/ws")

	after := false
	c.On("chat", func(json.RawMessage) { panic("subscriber bug") })
	c.On("chat", func(json.RawMessage) { after = true })

	c.dispatch([]byte(`{"type":"chat"}`))

	if !after {
		t.Error("panic in one subscriber blocked the next")
	}
}

func TestDispatchBadFrame(t *testing.T) {
	c := New("ws://127.0.0.1:0/ws")

	called := false
	c.On("chat", func(json.RawMessage) { called = true })

	c.dispatch([]byte(`garbage`))
	c.dispatch([]byte(`{"type":"unknown"}`))

	if called {
		t.Error("handler called for frames it did not subscribe to")
	}
}

func TestReconnectStateMachine(t *testing.T) {
	c := New("ws://127.0.0.1:0/ws")

	// 非用户断开：每次失败推进一次退避调度
	for i := 1; i <= maxReconnectAttempts; i++ {
		c.onClosed()
		if c.State() != StateReconnecting {
			t.Fatalf("after failure %d: state = %v, want reconnecting", i, c.State())
		}
		c.mu.Lock()
		if c.attempts != i {
			t.Fatalf("after failure %d: attempts = %d", i, c.attempts)
		}
		if c.timer != nil {
			c.timer.Stop()
		}
		c.mu.Unlock()
	}

	// 第六次失败放弃
	c.onClosed()
	if c.State() != StateGaveUp {
		t.Fatalf("after exhausting retries: state = %v, want gave-up", c.State())
	}

	// 手动 Connect 重置计数并重新进入 connecting
	c.Connect("token")
	if got := c.State(); got != StateConnecting && got != StateReconnecting {
		t.Errorf("Connect after gave-up: state = %v", got)
	}
	c.Disconnect()
	if c.State() != StateDisconnected {
		t.Errorf("Disconnect: state = %v, want disconnected", c.State())
	}
	// 幂等
	c.Disconnect()
}

func TestUserDisconnectStopsReconnect(t *testing.T) {
	c := New("ws://127.0.0.1:0/ws")

	c.mu.Lock()
	c.userClosed = true
	c.mu.Unlock()

	c.onClosed()
	if c.State() != StateDisconnected {
		t.Errorf("onClosed after user disconnect: state = %v, want disconnected", c.State())
	}
	c.mu.Lock()
	if c.timer != nil {
		t.Error("reconnect timer scheduled after user disconnect")
		c.timer.Stop()
	}
	c.mu.Unlock()
}
