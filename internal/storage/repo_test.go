package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	dsn := "file:" + filepath.Join(t.TempDir(), "bot.db")
	s, err := Open(context.Background(), "sqlite", dsn, true, "")
	if err != nil {
		t.Fatalf("open test store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestAddAllowedGroupIdempotent(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.AddAllowedGroup(ctx, 12345, 1); err != nil {
		t.Fatalf("add group: %v", err)
	}
	if err := s.AddAllowedGroup(ctx, 12345, 2); err != nil {
		t.Fatalf("re-add group: %v", err)
	}

	groups, err := s.ListAllowedGroups(ctx)
	if err != nil {
		t.Fatalf("list groups: %v", err)
	}
	if len(groups) != 1 {
		t.Fatalf("expected 1 group after repeated grant, got %d", len(groups))
	}
	if _, ok := groups[12345]; !ok {
		t.Fatalf("group 12345 missing from allow-list")
	}

	details, err := s.ListAllowedGroupDetails(ctx)
	if err != nil {
		t.Fatalf("list group details: %v", err)
	}
	if len(details) != 1 || details[0].AddedBy != 2 {
		t.Fatalf("expected added_by refreshed to 2, got %+v", details)
	}
}

func TestRemoveAllowedGroup(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	removed, err := s.RemoveAllowedGroup(ctx, 999)
	if err != nil {
		t.Fatalf("remove absent group: %v", err)
	}
	if removed {
		t.Fatalf("expected removed=false for a group that was never granted")
	}

	if err := s.AddAllowedGroup(ctx, 999, 1); err != nil {
		t.Fatalf("add group: %v", err)
	}
	removed, err = s.RemoveAllowedGroup(ctx, 999)
	if err != nil {
		t.Fatalf("remove group: %v", err)
	}
	if !removed {
		t.Fatalf("expected removed=true for a granted group")
	}

	groups, err := s.ListAllowedGroups(ctx)
	if err != nil {
		t.Fatalf("list groups: %v", err)
	}
	if _, ok := groups[999]; ok {
		t.Fatalf("group 999 still present after revoke")
	}
}

func TestRecordUsageUpdatesSummary(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	gid := int64(-100500)

	for i := 0; i < 3; i++ {
		err := s.RecordUsage(ctx, UsageRecord{
			UserID:    42,
			Username:  "alice",
			FirstName: "Alice",
			GroupID:   &gid,
			Command:   "ai",
		})
		if err != nil {
			t.Fatalf("record usage #%d: %v", i, err)
		}
	}

	gs, err := s.GetGroupStats(ctx, gid)
	if err != nil {
		t.Fatalf("get group stats: %v", err)
	}
	if gs.TotalCommands != 3 {
		t.Fatalf("expected total_commands=3, got %d", gs.TotalCommands)
	}
	if gs.LastActive.IsZero() {
		t.Fatalf("expected last_active to be set")
	}
}

func TestRecordUsagePrivateChatSkipsSummary(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	err := s.RecordUsage(ctx, UsageRecord{UserID: 7, Command: "start"})
	if err != nil {
		t.Fatalf("record private usage: %v", err)
	}

	if _, err := s.GetGroupStats(ctx, 0); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for untouched summary, got %v", err)
	}
}

func TestListAllowedGroupsUnavailable(t *testing.T) {
	s := openTestStore(t)
	_ = s.Close()

	_, err := s.ListAllowedGroups(context.Background())
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable after close, got %v", err)
	}
}
