// Package store implements the versioned resume document layer: optimistic
// concurrency over a whole-file content backend, sub-resource editing,
// backups and point-in-time restore.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"resume-store/internal/resume"
	"resume-store/internal/shared/storage/content"
	"resume-store/internal/shared/telemetry"
)

// DocumentStore is the single choke point for reading and writing the resume
// document at a fixed path. Every mutation goes through its CAS write; it
// never retries a conflict on the caller's behalf.
type DocumentStore struct {
	Backend   content.Backend
	Path      string
	BackupDir string

	// Retention caps the number of backups kept on the side path.
	// Zero keeps everything, the legacy behavior.
	Retention int
}

// NewDocumentStore wires a store over the given backend.
func NewDocumentStore(backend content.Backend, path, backupDir string, retention int) *DocumentStore {
	return &DocumentStore{
		Backend:   backend,
		Path:      path,
		BackupDir: backupDir,
		Retention: retention,
	}
}

// Read returns the live document and its CAS revision. A missing document is
// not an error: it reads as the default document with an empty revision, and
// the empty revision tells Write to create the file.
func (s *DocumentStore) Read(ctx context.Context) (resume.Document, string, error) {
	data, rev, err := s.Backend.Get(ctx, s.Path, "")
	if err != nil {
		if errors.Is(err, content.ErrNotFound) {
			return resume.DefaultDocument(), "", nil
		}
		return resume.Document{}, "", err
	}
	var doc resume.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return resume.Document{}, "", fmt.Errorf("decode stored document: %w", err)
	}
	return doc, rev, nil
}

// Write serializes the document and CAS-replaces the live file. A revision
// mismatch surfaces as content.ErrConcurrentModification; the caller decides
// whether to re-read and retry.
func (s *DocumentStore) Write(ctx context.Context, doc resume.Document, expectedRevision string) (content.PutResult, error) {
	message := "Update resume data - " + time.Now().UTC().Format(time.RFC3339)
	return s.write(ctx, doc, message, expectedRevision)
}

// WriteAuto re-reads the live revision immediately before writing. It shrinks
// the conflict window but is not safe under concurrent writers; use it only
// for low-contention, single-writer flows.
func (s *DocumentStore) WriteAuto(ctx context.Context, doc resume.Document) (content.PutResult, error) {
	_, rev, err := s.Read(ctx)
	if err != nil {
		return content.PutResult{}, err
	}
	return s.Write(ctx, doc, rev)
}

// Backup writes a timestamped snapshot of the document to the side path and
// prunes old backups past the retention limit. Callers treat failures as
// non-fatal; see BackupQuietly.
func (s *DocumentStore) Backup(ctx context.Context, doc resume.Document) (string, error) {
	data, err := marshalDocument(doc)
	if err != nil {
		return "", err
	}
	ts := backupTimestamp(time.Now().UTC())
	path := s.BackupDir + "/resume-backup-" + ts + ".json"
	if _, err := s.Backend.Put(ctx, path, data, "Backup resume data - "+ts, ""); err != nil {
		return "", err
	}
	s.prune(ctx)
	return path, nil
}

// BackupQuietly takes a best-effort backup: failures are logged at warn level
// and never abort the mutating operation they precede.
func (s *DocumentStore) BackupQuietly(ctx context.Context, doc resume.Document) {
	if _, err := s.Backup(ctx, doc); err != nil {
		telemetry.Warn("resume backup failed", map[string]any{
			"path": s.Path,
			"err":  err.Error(),
		})
	}
}

// Reset backs up the current content best-effort and writes the default
// document over it.
func (s *DocumentStore) Reset(ctx context.Context) (content.PutResult, error) {
	doc, rev, err := s.Read(ctx)
	if err != nil {
		return content.PutResult{}, err
	}
	s.BackupQuietly(ctx, doc)
	message := "Reset resume data - " + time.Now().UTC().Format(time.RFC3339)
	return s.write(ctx, resume.DefaultDocument(), message, rev)
}

func (s *DocumentStore) write(ctx context.Context, doc resume.Document, message, expectedRevision string) (content.PutResult, error) {
	if doc.SchemaVersion == 0 {
		doc.SchemaVersion = resume.SchemaVersion
	}
	data, err := marshalDocument(doc)
	if err != nil {
		return content.PutResult{}, err
	}
	return s.Backend.Put(ctx, s.Path, data, message, expectedRevision)
}

// writeRaw replaces the live file with exact bytes, bypassing the model. Used
// by restore, which must reproduce a historical state verbatim.
func (s *DocumentStore) writeRaw(ctx context.Context, data []byte, message, expectedRevision string) (content.PutResult, error) {
	return s.Backend.Put(ctx, s.Path, data, message, expectedRevision)
}

func (s *DocumentStore) prune(ctx context.Context) {
	if s.Retention <= 0 {
		return
	}
	paths, err := s.Backend.List(ctx, s.BackupDir)
	if err != nil {
		telemetry.Warn("backup prune list failed", map[string]any{"dir": s.BackupDir, "err": err.Error()})
		return
	}
	var backups []string
	for _, p := range paths {
		if strings.HasPrefix(p, s.BackupDir+"/resume-backup-") {
			backups = append(backups, p)
		}
	}
	// Backup names embed a sortable timestamp, so ascending order is oldest
	// first.
	for len(backups) > s.Retention {
		victim := backups[0]
		backups = backups[1:]
		if err := s.Backend.Delete(ctx, victim, "Prune resume backup"); err != nil {
			telemetry.Warn("backup prune delete failed", map[string]any{"path": victim, "err": err.Error()})
		}
	}
}

func marshalDocument(doc resume.Document) ([]byte, error) {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	return data, nil
}

// backupTimestamp renders t the way the legacy system named its backups: an
// ISO timestamp with ':' and '.' replaced so it is filesystem-safe and sorts
// lexicographically.
func backupTimestamp(t time.Time) string {
	iso := t.Format("2006-01-02T15:04:05.000Z")
	return strings.NewReplacer(":", "-", ".", "-").Replace(iso)
}
