package denylist

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func openMemory(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStore_AddContainsList(t *testing.T) {
	s := openMemory(t)
	ctx := context.Background()

	added, err := s.Add(ctx, "1001", "used a solver")
	if err != nil || !added {
		t.Fatalf("expected first add to succeed, got %v, %v", added, err)
	}
	added, err = s.Add(ctx, "1001", "again")
	if err != nil || added {
		t.Fatalf("expected duplicate add to be ignored, got %v, %v", added, err)
	}
	if _, err := s.Add(ctx, "1002", ""); err != nil {
		t.Fatalf("add: %v", err)
	}

	for uid, want := range map[string]bool{"1001": true, "1002": true, "1003": false} {
		got, err := s.Contains(ctx, uid)
		if err != nil {
			t.Fatalf("contains %s: %v", uid, err)
		}
		if got != want {
			t.Fatalf("expected contains(%s)=%v, got %v", uid, want, got)
		}
	}

	entries, err := s.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	var uids, reasons []string
	for _, e := range entries {
		uids = append(uids, e.UID)
		reasons = append(reasons, e.Reason)
		if e.CreatedAt.IsZero() {
			t.Fatalf("expected a creation time for %s", e.UID)
		}
	}
	if diff := cmp.Diff([]string{"1001", "1002"}, uids); diff != "" {
		t.Fatalf("uids mismatch (-want +got):\n%s", diff)
	}
	if reasons[0] != "used a solver" {
		t.Fatalf("expected the first reason to be kept, got %q", reasons[0])
	}
}

func TestStore_RejectsEmptyUID(t *testing.T) {
	s := openMemory(t)
	if _, err := s.Add(context.Background(), "  ", "x"); !errors.Is(err, ErrEmptyUID) {
		t.Fatalf("expected ErrEmptyUID, got %v", err)
	}
}

func TestStore_PersistsAcrossOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "bans.db")
	ctx := context.Background()

	s, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := s.Add(ctx, "2001", "afk"); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	s, err = Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close()
	if ok, err := s.Contains(ctx, "2001"); err != nil || !ok {
		t.Fatalf("expected 2001 to survive a reopen, got %v, %v", ok, err)
	}
}

func TestOpen_EmptyPath(t *testing.T) {
	if _, err := Open(""); err == nil {
		t.Fatal("expected an error for an empty path")
	}
}
