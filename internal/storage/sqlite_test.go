package storage

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open(:memory:) failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

type record struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

func decode(t *testing.T, raw json.RawMessage) record {
	t.Helper()
	var r record
	if err := json.Unmarshal(raw, &r); err != nil {
		t.Fatalf("unmarshal %s: %v", raw, err)
	}
	return r
}

// TestMigrationsIdempotent runs Open twice on the same database and verifies
// the schema_version count stays correct (migration not re-applied).
func TestMigrationsIdempotent(t *testing.T) {
	dir := t.TempDir()

	s1, err := Open(dir)
	if err != nil {
		t.Fatalf("first Open failed: %v", err)
	}
	v1, err := s1.AppliedMigrations()
	if err != nil {
		t.Fatalf("AppliedMigrations: %v", err)
	}
	s1.Close()

	s2, err := Open(dir)
	if err != nil {
		t.Fatalf("second Open failed: %v", err)
	}
	defer s2.Close()

	v2, err := s2.AppliedMigrations()
	if err != nil {
		t.Fatalf("AppliedMigrations: %v", err)
	}

	if len(v1) == 0 {
		t.Fatal("expected at least one applied migration")
	}
	if len(v1) != len(v2) {
		t.Errorf("migration count changed: %d -> %d", len(v1), len(v2))
	}
}

// TestCollectionsProvisioned verifies every collection table exists after Open.
func TestCollectionsProvisioned(t *testing.T) {
	s := openTestStore(t)

	for _, c := range Collections {
		var count int
		err := s.db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?", string(c)).Scan(&count)
		if err != nil {
			t.Fatalf("querying sqlite_master for %q: %v", c, err)
		}
		if count != 1 {
			t.Errorf("collection %q not provisioned", c)
		}
	}
}

func TestOpen_Unavailable(t *testing.T) {
	// A regular file where the data directory should be.
	blocker := filepath.Join(t.TempDir(), "blocker")
	if err := os.WriteFile(blocker, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := Open(filepath.Join(blocker, "data"))
	if !errors.Is(err, ErrStorageUnavailable) {
		t.Fatalf("Open error = %v, want ErrStorageUnavailable", err)
	}
}

func TestGetAll_Empty(t *testing.T) {
	s := openTestStore(t)

	got, err := s.GetAll(context.Background(), Services)
	if err != nil {
		t.Fatalf("GetAll: %v", err)
	}
	if got == nil {
		t.Error("GetAll returned nil, want empty slice")
	}
	if len(got) != 0 {
		t.Errorf("len = %d, want 0", len(got))
	}
}

func TestPut_UpsertsByID(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.Put(ctx, Resources, "1", record{ID: "1", Title: "first"}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := s.Put(ctx, Resources, "2", record{ID: "2", Title: "second"}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := s.Put(ctx, Resources, "1", record{ID: "1", Title: "rewritten"}); err != nil {
		t.Fatalf("Put: %v", err)
	}

	all, err := s.GetAll(ctx, Resources)
	if err != nil {
		t.Fatalf("GetAll: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("len = %d, want 2", len(all))
	}

	raw, err := s.Get(ctx, Resources, "1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got := decode(t, raw).Title; got != "rewritten" {
		t.Errorf("Title = %q, want %q", got, "rewritten")
	}
}

func TestPut_EmptyID(t *testing.T) {
	s := openTestStore(t)
	if err := s.Put(context.Background(), Services, "", record{}); err == nil {
		t.Fatal("expected error for empty id")
	}
}

func TestRemove(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.Put(ctx, Auth, "current_session", record{ID: "current_session"}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := s.Remove(ctx, Auth, "current_session"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, err := s.Get(ctx, Auth, "current_session"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get after Remove error = %v, want ErrNotFound", err)
	}

	// Removing again is a no-op.
	if err := s.Remove(ctx, Auth, "current_session"); err != nil {
		t.Errorf("second Remove: %v", err)
	}
}

func TestUnknownCollection(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if _, err := s.GetAll(ctx, Collection("users; DROP TABLE auth")); !errors.Is(err, ErrUnknownCollection) {
		t.Errorf("GetAll error = %v, want ErrUnknownCollection", err)
	}
	if err := s.Put(ctx, Collection("nope"), "x", record{}); !errors.Is(err, ErrUnknownCollection) {
		t.Errorf("Put error = %v, want ErrUnknownCollection", err)
	}
}

// TestDurableAcrossReopen verifies records survive closing and reopening the store.
func TestDurableAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	s1, err := Open(dir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := s1.Put(ctx, Services, "a", record{ID: "a", Title: "A"}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	s1.Close()

	s2, err := Open(dir)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s2.Close()

	n, err := s2.Count(ctx, Services)
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if n != 1 {
		t.Errorf("Count = %d, want 1", n)
	}
}
