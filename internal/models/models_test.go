package models

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestChatOther(t *testing.T) {
	c := Chat{UserID: 1, TargetID: 2}
	if c.Other(1) != 2 {
		t.Error("Other(1) should be 2")
	}
	if c.Other(2) != 1 {
		t.Error("Other(2) should be 1")
	}
}

func TestChatHasParticipant(t *testing.T) {
	c := Chat{UserID: 1, TargetID: 2}
	if !c.HasParticipant(1) || !c.HasParticipant(2) {
		t.Error("participants should be recognized")
	}
	if c.HasParticipant(3) {
		t.Error("outsider should not be a participant")
	}
}

func TestGroupMemberIsMuted(t *testing.T) {
	now := time.Now()

	m := GroupMember{}
	if m.IsMuted(now) {
		t.Error("nil MuteEndTime should not be muted")
	}

	future := now.Add(time.Hour)
	m.MuteEndTime = &future
	if !m.IsMuted(now) {
		t.Error("future MuteEndTime should be muted")
	}

	past := now.Add(-time.Hour)
	m.MuteEndTime = &past
	if m.IsMuted(now) {
		t.Error("past MuteEndTime should not be muted")
	}
}

func TestGroupMemberIsPrivileged(t *testing.T) {
	cases := map[string]bool{
		RoleOwner:  true,
		RoleAdmin:  true,
		RoleMember: false,
	}
	for role, want := range cases {
		m := GroupMember{Role: role}
		if m.IsPrivileged() != want {
			t.Errorf("IsPrivileged(%s) = %v, want %v", role, !want, want)
		}
	}
}

// 下发给对端的数据永远不能带出凭证字段。
func TestPublicProfileOmitsCredentials(t *testing.T) {
	u := User{ID: 1, Name: "alice", Avatar: "a.png", Email: "a@test.local", PasswordHash: "secret-hash"}

	data, err := json.Marshal(u.Public())
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	s := string(data)
	if strings.Contains(s, "secret-hash") || strings.Contains(s, "password") {
		t.Errorf("public profile leaked credentials: %s", s)
	}
	if strings.Contains(s, "a@test.local") {
		t.Errorf("public profile leaked email: %s", s)
	}
}
