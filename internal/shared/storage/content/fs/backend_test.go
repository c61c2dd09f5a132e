package fs

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"resume-store/internal/shared/storage/content"
)

func newTestBackend(t *testing.T) *Backend {
	t.Helper()
	return New(t.TempDir(), "tester")
}

func TestPutGetRoundTrip(t *testing.T) {
	b := newTestBackend(t)
	ctx := context.Background()

	res, err := b.Put(ctx, "data/resume.json", []byte(`{"v":1}`), "create", "")
	if err != nil {
		t.Fatalf("Put: %v", err)
	}

	data, rev, err := b.Get(ctx, "data/resume.json", "")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(data) != `{"v":1}` {
		t.Fatalf("content = %s", data)
	}
	if rev != res.Revision {
		t.Fatalf("revision mismatch: %q vs %q", rev, res.Revision)
	}
}

func TestRevisionIsContentHash(t *testing.T) {
	b1 := newTestBackend(t)
	b2 := newTestBackend(t)
	ctx := context.Background()

	r1, err := b1.Put(ctx, "doc.json", []byte("same"), "msg", "")
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	r2, err := b2.Put(ctx, "doc.json", []byte("same"), "msg", "")
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if r1.Revision != r2.Revision {
		t.Fatalf("identical content produced different revisions: %q vs %q", r1.Revision, r2.Revision)
	}
}

func TestPutCASConflicts(t *testing.T) {
	b := newTestBackend(t)
	ctx := context.Background()

	res, err := b.Put(ctx, "doc.json", []byte("a"), "create", "")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := b.Put(ctx, "doc.json", []byte("b"), "msg", ""); !errors.Is(err, content.ErrConcurrentModification) {
		t.Fatalf("create over existing: expected ErrConcurrentModification, got %v", err)
	}
	if _, err := b.Put(ctx, "doc.json", []byte("b"), "msg", "stale"); !errors.Is(err, content.ErrConcurrentModification) {
		t.Fatalf("stale revision: expected ErrConcurrentModification, got %v", err)
	}
	if _, err := b.Put(ctx, "missing.json", []byte("b"), "msg", res.Revision); !errors.Is(err, content.ErrConcurrentModification) {
		t.Fatalf("update missing: expected ErrConcurrentModification, got %v", err)
	}

	if _, err := b.Put(ctx, "doc.json", []byte("b"), "update", res.Revision); err != nil {
		t.Fatalf("valid update: %v", err)
	}
}

func TestHistorySnapshots(t *testing.T) {
	b := newTestBackend(t)
	ctx := context.Background()

	r1, err := b.Put(ctx, "doc.json", []byte("v1"), "first", "")
	if err != nil {
		t.Fatalf("put v1: %v", err)
	}
	if _, err := b.Put(ctx, "doc.json", []byte("v2"), "second", r1.Revision); err != nil {
		t.Fatalf("put v2: %v", err)
	}

	revs, err := b.ListRevisions(ctx, "doc.json", 0)
	if err != nil {
		t.Fatalf("ListRevisions: %v", err)
	}
	if len(revs) != 2 {
		t.Fatalf("expected 2 revisions, got %d", len(revs))
	}
	if revs[0].Message != "second" || revs[1].Message != "first" {
		t.Fatalf("order wrong: %+v", revs)
	}
	if revs[0].SHA == "" || revs[0].Author != "tester" || revs[0].Date.IsZero() {
		t.Fatalf("metadata missing: %+v", revs[0])
	}

	data, _, err := b.Get(ctx, "doc.json", revs[1].SHA)
	if err != nil {
		t.Fatalf("Get at ref: %v", err)
	}
	if string(data) != "v1" {
		t.Fatalf("historical content = %s", data)
	}

	if _, _, err := b.Get(ctx, "doc.json", "unknown"); !errors.Is(err, content.ErrRevisionNotFound) {
		t.Fatalf("expected ErrRevisionNotFound, got %v", err)
	}
}

func TestListSkipsDirsAndTempFiles(t *testing.T) {
	base := t.TempDir()
	b := New(base, "tester")
	ctx := context.Background()

	if _, err := b.Put(ctx, "backups/a.json", []byte("x"), "seed", ""); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := os.MkdirAll(filepath.Join(base, "backups", "nested"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(base, "backups", "leftover.tmp"), []byte("x"), 0o644); err != nil {
		t.Fatalf("write tmp: %v", err)
	}

	paths, err := b.List(ctx, "backups")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(paths) != 1 || paths[0] != "backups/a.json" {
		t.Fatalf("List = %v", paths)
	}

	paths, err = b.List(ctx, "absent")
	if err != nil {
		t.Fatalf("List absent: %v", err)
	}
	if len(paths) != 0 {
		t.Fatalf("expected empty list, got %v", paths)
	}
}

func TestDeleteRemovesFileAndHistory(t *testing.T) {
	b := newTestBackend(t)
	ctx := context.Background()

	if _, err := b.Put(ctx, "doc.json", []byte("x"), "seed", ""); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := b.Delete(ctx, "doc.json", "remove"); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	if _, _, err := b.Get(ctx, "doc.json", ""); !errors.Is(err, content.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	revs, err := b.ListRevisions(ctx, "doc.json", 0)
	if err != nil {
		t.Fatalf("ListRevisions: %v", err)
	}
	if len(revs) != 0 {
		t.Fatalf("history survived delete: %+v", revs)
	}

	if err := b.Delete(ctx, "doc.json", "again"); !errors.Is(err, content.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on double delete, got %v", err)
	}
}

func TestCleanKeyRejectsEscapes(t *testing.T) {
	tests := []string{"", ".", "..", "../etc/passwd", "/etc/passwd", "a/../../b"}
	for _, key := range tests {
		if _, err := cleanKey(key); err == nil {
			t.Fatalf("cleanKey(%q) accepted", key)
		}
	}
	if clean, err := cleanKey("data/./resume.json"); err != nil || clean != "data/resume.json" {
		t.Fatalf("cleanKey normalize = %q, %v", clean, err)
	}
}
