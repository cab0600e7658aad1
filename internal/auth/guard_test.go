package auth

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"genbot/internal/storage"
)

type staticLister struct {
	groups map[int64]struct{}
	err    error
}

func (s staticLister) ListAllowedGroups(context.Context) (map[int64]struct{}, error) {
	return s.groups, s.err
}

func TestPrivateChatNeverAuthorized(t *testing.T) {
	g := NewGuard(staticLister{groups: map[int64]struct{}{42: {}}}, 1)

	ok, err := g.IsAuthorized(context.Background(), "private", 42)
	if err != nil {
		t.Fatalf("authorize private: %v", err)
	}
	if ok {
		t.Fatalf("private chat must never be authorized, even when listed")
	}
}

func TestGroupAuthorizedOnlyWhenListed(t *testing.T) {
	g := NewGuard(staticLister{groups: map[int64]struct{}{12345: {}}}, 1)

	ok, err := g.IsAuthorized(context.Background(), "supergroup", 12345)
	if err != nil || !ok {
		t.Fatalf("expected listed group authorized, got ok=%v err=%v", ok, err)
	}

	ok, err = g.IsAuthorized(context.Background(), "supergroup", 67890)
	if err != nil || ok {
		t.Fatalf("expected unlisted group rejected, got ok=%v err=%v", ok, err)
	}
}

func TestStoreFaultFailsClosed(t *testing.T) {
	fault := errors.New("disk gone")
	g := NewGuard(staticLister{err: fault}, 1)

	ok, err := g.IsAuthorized(context.Background(), "group", 12345)
	if ok {
		t.Fatalf("store fault must fail closed")
	}
	if !errors.Is(err, fault) {
		t.Fatalf("expected underlying fault returned, got %v", err)
	}
}

func TestOwnerCommandGate(t *testing.T) {
	g := NewGuard(staticLister{}, 777)

	if !g.AllowsOwnerCommand("private", 777) {
		t.Fatalf("owner in private chat must pass")
	}
	if g.AllowsOwnerCommand("supergroup", 777) {
		t.Fatalf("owner command from a group must be rejected even for the owner")
	}
	if g.AllowsOwnerCommand("private", 778) {
		t.Fatalf("non-owner must be rejected")
	}
	if g.IsOwner(0) {
		t.Fatalf("zero user id must never be owner")
	}
}

// Grant/revoke flow against the real store: after /allow 12345, that group
// passes authorization and an ungranted group does not.
func TestGrantRevokeScenario(t *testing.T) {
	ctx := context.Background()
	dsn := "file:" + filepath.Join(t.TempDir(), "bot.db")
	s, err := storage.Open(ctx, "sqlite", dsn, true, "")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer s.Close()

	g := NewGuard(s, 777)

	if err := s.AddAllowedGroup(ctx, 12345, 777); err != nil {
		t.Fatalf("grant: %v", err)
	}

	ok, err := g.IsAuthorized(ctx, "supergroup", 12345)
	if err != nil || !ok {
		t.Fatalf("granted group should authorize, got ok=%v err=%v", ok, err)
	}
	ok, err = g.IsAuthorized(ctx, "supergroup", 67890)
	if err != nil || ok {
		t.Fatalf("never-granted group should be rejected, got ok=%v err=%v", ok, err)
	}

	removed, err := s.RemoveAllowedGroup(ctx, 12345)
	if err != nil || !removed {
		t.Fatalf("revoke: removed=%v err=%v", removed, err)
	}
	ok, err = g.IsAuthorized(ctx, "supergroup", 12345)
	if err != nil || ok {
		t.Fatalf("revoked group should be rejected immediately, got ok=%v err=%v", ok, err)
	}
}
