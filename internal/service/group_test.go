package service

import (
	"errors"
	"testing"
	"time"

	"campushub/internal/models"

	"gorm.io/gorm"
)

// makeGroup 建群并按 role 加入成员。
func makeGroup(t *testing.T, gdb *gorm.DB, members map[uint]string) *models.Group {
	t.Helper()
	g := models.Group{Name: "test-group"}
	if err := gdb.Create(&g).Error; err != nil {
		t.Fatalf("create group: %v", err)
	}
	for userID, role := range members {
		m := models.GroupMember{GroupID: g.ID, UserID: userID, Role: role}
		if err := gdb.Create(&m).Error; err != nil {
			t.Fatalf("create member: %v", err)
		}
	}
	return &g
}

func TestGroupSendMessage_Membership(t *testing.T) {
	gdb := testDB(t)
	users := NewUserService(gdb, testConfig())
	groups := NewGroupService(gdb)

	member := makeUser(t, users, "member")
	outsider := makeUser(t, users, "outsider")
	g := makeGroup(t, gdb, map[uint]string{member.ID: models.RoleMember})

	if _, err := groups.SendMessage(g.ID, member.ID, models.MessageTypeText, "hi all"); err != nil {
		t.Fatalf("member send error: %v", err)
	}
	if _, err := groups.SendMessage(g.ID, outsider.ID, models.MessageTypeText, "hi"); !errors.Is(err, ErrNotMember) {
		t.Errorf("outsider send: got %v, want ErrNotMember", err)
	}
}

func TestGroupSendMessage_Muted(t *testing.T) {
	gdb := testDB(t)
	users := NewUserService(gdb, testConfig())
	groups := NewGroupService(gdb)

	muted := makeUser(t, users, "muted")
	g := makeGroup(t, gdb, map[uint]string{muted.ID: models.RoleMember})

	until := time.Now().Add(time.Hour)
	if err := gdb.Model(&models.GroupMember{}).
		Where("group_id = ? AND user_id = ?", g.ID, muted.ID).
		Update("mute_end_time", &until).Error; err != nil {
		t.Fatalf("set mute: %v", err)
	}

	if _, err := groups.SendMessage(g.ID, muted.ID, models.MessageTypeText, "x"); !errors.Is(err, ErrMuted) {
		t.Errorf("muted send: got %v, want ErrMuted", err)
	}

	// 禁言到期后恢复发言
	past := time.Now().Add(-time.Minute)
	if err := gdb.Model(&models.GroupMember{}).
		Where("group_id = ? AND user_id = ?", g.ID, muted.ID).
		Update("mute_end_time", &past).Error; err != nil {
		t.Fatalf("expire mute: %v", err)
	}
	if _, err := groups.SendMessage(g.ID, muted.ID, models.MessageTypeText, "back"); err != nil {
		t.Errorf("send after mute expiry error: %v", err)
	}
}

func TestGroupRevokeMessage_PrivilegeBypass(t *testing.T) {
	gdb := testDB(t)
	users := NewUserService(gdb, testConfig())
	groups := NewGroupService(gdb)

	owner := makeUser(t, users, "owner")
	member := makeUser(t, users, "member")
	other := makeUser(t, users, "other")
	g := makeGroup(t, gdb, map[uint]string{
		owner.ID:  models.RoleOwner,
		member.ID: models.RoleMember,
		other.ID:  models.RoleMember,
	})

	msg, err := groups.SendMessage(g.ID, member.ID, models.MessageTypeText, "delete me")
	if err != nil {
		t.Fatalf("SendMessage error: %v", err)
	}

	// 普通成员不能撤回别人的消息
	if _, err := groups.RevokeMessage(g.ID, msg.ID, other.ID); !errors.Is(err, ErrNotSender) {
		t.Errorf("peer revoke: got %v, want ErrNotSender", err)
	}

	// 群主可以撤回任意消息，且不受时间窗口限制
	stale := time.Now().Add(-RevokeWindow - time.Hour)
	if err := gdb.Model(&models.GroupMessage{}).Where("id = ?", msg.ID).Update("created_at", stale).Error; err != nil {
		t.Fatalf("backdate message: %v", err)
	}
	revoked, err := groups.RevokeMessage(g.ID, msg.ID, owner.ID)
	if err != nil {
		t.Fatalf("owner revoke error: %v", err)
	}
	if revoked.Type != models.MessageTypeRevoke {
		t.Errorf("revoked type = %q, want revoke", revoked.Type)
	}

	if _, err := groups.RevokeMessage(g.ID, msg.ID, owner.ID); !errors.Is(err, ErrAlreadyRevoked) {
		t.Errorf("second revoke: got %v, want ErrAlreadyRevoked", err)
	}
}

func TestGroupRevokeMessage_SenderWindow(t *testing.T) {
	gdb := testDB(t)
	users := NewUserService(gdb, testConfig())
	groups := NewGroupService(gdb)

	member := makeUser(t, users, "member")
	g := makeGroup(t, gdb, map[uint]string{member.ID: models.RoleMember})

	msg, err := groups.SendMessage(g.ID, member.ID, models.MessageTypeText, "typo")
	if err != nil {
		t.Fatalf("SendMessage error: %v", err)
	}
	if _, err := groups.RevokeMessage(g.ID, msg.ID, member.ID); err != nil {
		t.Fatalf("revoke within window error: %v", err)
	}

	late, err := groups.SendMessage(g.ID, member.ID, models.MessageTypeText, "old typo")
	if err != nil {
		t.Fatalf("SendMessage error: %v", err)
	}
	stale := time.Now().Add(-RevokeWindow - time.Minute)
	if err := gdb.Model(&models.GroupMessage{}).Where("id = ?", late.ID).Update("created_at", stale).Error; err != nil {
		t.Fatalf("backdate message: %v", err)
	}
	if _, err := groups.RevokeMessage(g.ID, late.ID, member.ID); !errors.Is(err, ErrRevokeWindow) {
		t.Errorf("expired revoke: got %v, want ErrRevokeWindow", err)
	}
}
