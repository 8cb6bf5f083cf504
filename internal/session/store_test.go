package session

import (
	"testing"
	"time"
)

func TestAllowCommandCooldown(t *testing.T) {
	t.Parallel()

	now := time.Unix(1_700_000_000, 0)
	s := NewStore(5 * time.Second)
	s.now = func() time.Time { return now }

	if ok, _ := s.AllowCommand(1); !ok {
		t.Fatalf("first command must pass")
	}
	now = now.Add(2 * time.Second)
	ok, left := s.AllowCommand(1)
	if ok {
		t.Fatalf("second command within cooldown must be rejected")
	}
	if left != 3*time.Second {
		t.Fatalf("unexpected remaining cooldown %v", left)
	}
	if ok, _ := s.AllowCommand(2); !ok {
		t.Fatalf("cooldown is per user")
	}
	now = now.Add(4 * time.Second)
	if ok, _ := s.AllowCommand(1); !ok {
		t.Fatalf("command after cooldown must pass")
	}
}

func TestAwaiting(t *testing.T) {
	t.Parallel()

	s := NewStore(time.Second)
	if _, ok := s.Awaiting(1); ok {
		t.Fatalf("nothing awaited yet")
	}
	s.SetAwaiting(1, Awaiting{Kind: AwaitWelcomeMessage, GroupID: -100})
	a, ok := s.Awaiting(1)
	if !ok || a.GroupID != -100 || a.Kind != AwaitWelcomeMessage {
		t.Fatalf("unexpected awaiting %+v %v", a, ok)
	}
	if !s.ClearAwaiting(1) {
		t.Fatalf("clear must report existing state")
	}
	if s.ClearAwaiting(1) {
		t.Fatalf("second clear must report nothing")
	}
}

func TestNoticeOnce(t *testing.T) {
	t.Parallel()

	s := NewStore(time.Second)
	if !s.NoticeOnce("rights", -100) {
		t.Fatalf("first notice must pass")
	}
	if s.NoticeOnce("rights", -100) {
		t.Fatalf("repeated notice must be suppressed")
	}
	if !s.NoticeOnce("rights", -200) {
		t.Fatalf("notices are per chat")
	}
}
