package ws

import "testing"

func TestValidPresenceStatus(t *testing.T) {
	cases := map[string]bool{
		"online":  true,
		"offline": true,
		"":        false,
		"banned":  false,
		"active":  false,
		"away":    false,
	}
	for status, want := range cases {
		if got := validPresenceStatus(status); got != want {
			t.Errorf("validPresenceStatus(%q) = %v, want %v", status, got, want)
		}
	}
}

// 管理态不能通过 presence 事件自报，在任何存储被触碰之前就拒绝。
func TestHandlePresence_RejectsNonPresenceStatus(t *testing.T) {
	h := &handlers{}
	sender := newClient(1, nil)

	for _, status := range []string{"", "banned", "active"} {
		evt := &Event{Type: EventPresence, Status: status}
		if err := h.handlePresence(sender, evt); err == nil {
			t.Errorf("status %q accepted", status)
		}
	}
}
