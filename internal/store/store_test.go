package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"resume-store/internal/resume"
	"resume-store/internal/shared/storage/content"
	"resume-store/internal/shared/storage/content/memory"
)

const (
	testPath      = "data/resume.json"
	testBackupDir = "data/backups"
)

func newTestStore(t *testing.T) (*DocumentStore, *memory.Backend) {
	t.Helper()
	backend := memory.New("test")
	return NewDocumentStore(backend, testPath, testBackupDir, 0), backend
}

// flakyBackend fails Puts under a path prefix so tests can exercise the
// best-effort backup paths.
type flakyBackend struct {
	content.Backend
	failPutPrefix string
}

func (f *flakyBackend) Put(ctx context.Context, path string, data []byte, message, expectedRevision string) (content.PutResult, error) {
	if f.failPutPrefix != "" && strings.HasPrefix(path, f.failPutPrefix) {
		return content.PutResult{}, fmt.Errorf("%w: injected failure", content.ErrBackendUnavailable)
	}
	return f.Backend.Put(ctx, path, data, message, expectedRevision)
}

func TestReadAbsentReturnsDefault(t *testing.T) {
	store, _ := newTestStore(t)

	doc, rev, err := store.Read(context.Background())
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if rev != "" {
		t.Fatalf("expected empty revision for absent document, got %q", rev)
	}
	if doc.SchemaVersion != resume.SchemaVersion || doc.Experience == nil {
		t.Fatalf("expected default document, got %+v", doc)
	}
}

func TestWriteAndReadRoundTrip(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	doc := resume.DefaultDocument()
	doc.PersonalInfo.Name = "Ada Lovelace"

	res, err := store.Write(ctx, doc, "")
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if res.Revision == "" || res.CommitID == "" {
		t.Fatalf("expected revision and commit id, got %+v", res)
	}

	got, rev, err := store.Read(ctx)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if rev != res.Revision {
		t.Fatalf("revision mismatch: read %q, write returned %q", rev, res.Revision)
	}
	if got.PersonalInfo.Name != "Ada Lovelace" {
		t.Fatalf("name = %q", got.PersonalInfo.Name)
	}
}

func TestWriteStampsSchemaVersion(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	var doc resume.Document
	doc.PersonalInfo.Name = "Ada"
	if _, err := store.Write(ctx, doc, ""); err != nil {
		t.Fatalf("Write: %v", err)
	}

	got, _, err := store.Read(ctx)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if got.SchemaVersion != resume.SchemaVersion {
		t.Fatalf("schema version = %d, want %d", got.SchemaVersion, resume.SchemaVersion)
	}
}

func TestStaleWriteConflict(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	doc := resume.DefaultDocument()
	doc.PersonalInfo.Name = "first"
	res, err := store.Write(ctx, doc, "")
	if err != nil {
		t.Fatalf("seed write: %v", err)
	}
	staleRev := res.Revision

	doc.PersonalInfo.Name = "second"
	if _, err := store.Write(ctx, doc, staleRev); err != nil {
		t.Fatalf("fresh write: %v", err)
	}

	doc.PersonalInfo.Name = "stale"
	_, err = store.Write(ctx, doc, staleRev)
	if !errors.Is(err, content.ErrConcurrentModification) {
		t.Fatalf("expected ErrConcurrentModification, got %v", err)
	}

	got, _, err := store.Read(ctx)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if got.PersonalInfo.Name != "second" {
		t.Fatalf("conflicting write mutated state: name = %q", got.PersonalInfo.Name)
	}
}

func TestWriteAuto(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	doc := resume.DefaultDocument()
	doc.PersonalInfo.Name = "v1"
	if _, err := store.WriteAuto(ctx, doc); err != nil {
		t.Fatalf("WriteAuto create: %v", err)
	}
	doc.PersonalInfo.Name = "v2"
	if _, err := store.WriteAuto(ctx, doc); err != nil {
		t.Fatalf("WriteAuto update: %v", err)
	}

	got, _, err := store.Read(ctx)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if got.PersonalInfo.Name != "v2" {
		t.Fatalf("name = %q", got.PersonalInfo.Name)
	}
}

func TestBackupWritesTimestampedSnapshot(t *testing.T) {
	store, backend := newTestStore(t)
	ctx := context.Background()

	doc := resume.DefaultDocument()
	doc.PersonalInfo.Name = "Ada"
	path, err := store.Backup(ctx, doc)
	if err != nil {
		t.Fatalf("Backup: %v", err)
	}
	if !strings.HasPrefix(path, testBackupDir+"/resume-backup-") || !strings.HasSuffix(path, ".json") {
		t.Fatalf("unexpected backup path %q", path)
	}
	name := strings.TrimPrefix(path, testBackupDir+"/")
	if strings.Contains(name, ":") || strings.Count(name, ".") != 1 {
		t.Fatalf("backup name not filesystem-safe: %q", name)
	}

	data, _, err := backend.Get(ctx, path, "")
	if err != nil {
		t.Fatalf("backup missing from backend: %v", err)
	}
	if !strings.Contains(string(data), "Ada") {
		t.Fatalf("backup content wrong: %s", data)
	}
}

func TestBackupFailureIsNonFatal(t *testing.T) {
	backend := &flakyBackend{Backend: memory.New("test"), failPutPrefix: testBackupDir + "/"}
	store := NewDocumentStore(backend, testPath, testBackupDir, 0)
	ctx := context.Background()

	doc := resume.DefaultDocument()
	doc.PersonalInfo.Name = "Ada"
	if _, err := store.Write(ctx, doc, ""); err != nil {
		t.Fatalf("seed write: %v", err)
	}

	// Reset takes a best-effort backup first; the injected backup failure
	// must not abort the reset itself.
	if _, err := store.Reset(ctx); err != nil {
		t.Fatalf("Reset with failing backup: %v", err)
	}

	got, _, err := store.Read(ctx)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if got.PersonalInfo.Name != "" {
		t.Fatalf("expected default document after reset, got name %q", got.PersonalInfo.Name)
	}
}

func TestResetBacksUpAndWritesDefault(t *testing.T) {
	store, backend := newTestStore(t)
	ctx := context.Background()

	doc := resume.DefaultDocument()
	doc.PersonalInfo.Name = "Ada"
	if _, err := store.Write(ctx, doc, ""); err != nil {
		t.Fatalf("seed write: %v", err)
	}

	if _, err := store.Reset(ctx); err != nil {
		t.Fatalf("Reset: %v", err)
	}

	backups, err := backend.List(ctx, testBackupDir)
	if err != nil {
		t.Fatalf("List backups: %v", err)
	}
	if len(backups) != 1 {
		t.Fatalf("expected 1 backup, got %d", len(backups))
	}
	data, _, err := backend.Get(ctx, backups[0], "")
	if err != nil {
		t.Fatalf("Get backup: %v", err)
	}
	if !strings.Contains(string(data), "Ada") {
		t.Fatalf("backup does not hold pre-reset content: %s", data)
	}

	got, _, err := store.Read(ctx)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if got.PersonalInfo.Name != "" || len(got.Experience) != 0 {
		t.Fatalf("expected default document, got %+v", got)
	}
}

func TestBackupRetentionPrunesOldest(t *testing.T) {
	backend := memory.New("test")
	store := NewDocumentStore(backend, testPath, testBackupDir, 2)
	ctx := context.Background()

	doc := resume.DefaultDocument()
	var paths []string
	for i := 0; i < 4; i++ {
		path, err := store.Backup(ctx, doc)
		if err != nil {
			t.Fatalf("Backup %d: %v", i, err)
		}
		paths = append(paths, path)
		// Backup names carry millisecond precision; keep them distinct.
		time.Sleep(2 * time.Millisecond)
	}

	remaining, err := backend.List(ctx, testBackupDir)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(remaining) != 2 {
		t.Fatalf("expected 2 backups after prune, got %d: %v", len(remaining), remaining)
	}
	if remaining[0] != paths[2] || remaining[1] != paths[3] {
		t.Fatalf("prune kept wrong backups: %v, want %v", remaining, paths[2:])
	}
}

func TestBackupTimestampIsFilesystemSafe(t *testing.T) {
	ts := backupTimestamp(time.Date(2026, 8, 30, 13, 45, 9, 120_000_000, time.UTC))
	if ts != "2026-08-30T13-45-09-120Z" {
		t.Fatalf("backupTimestamp = %q", ts)
	}
}
