// Package fs implements the content backend on the local filesystem: the
// live file under a base directory, a content hash as the CAS token, and a
// side history directory holding one snapshot per successful put.
package fs

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"resume-store/internal/shared/storage/content"
)

const historyDirName = ".history"

// Backend implements content.Backend rooted at a base directory. A process
// mutex serializes the read-compare-write inside Put; cross-process CAS is
// best-effort, which matches the single-admin deployments this backend is
// meant for.
type Backend struct {
	mu      sync.Mutex
	baseDir string
	author  string
}

// snapshotEnvelope is the on-disk history record for one put.
type snapshotEnvelope struct {
	Commit  string    `json:"commit"`
	Message string    `json:"message"`
	Author  string    `json:"author"`
	Date    time.Time `json:"date"`
	Content []byte    `json:"content"`
}

// New constructs a filesystem-backed content store rooted at baseDir.
func New(baseDir, author string) *Backend {
	return &Backend{baseDir: baseDir, author: author}
}

// Get reads the live file, or a historical snapshot when ref names a commit
// id from ListRevisions. The returned revision is the content hash.
func (b *Backend) Get(ctx context.Context, path, ref string) ([]byte, string, error) {
	if err := ctx.Err(); err != nil {
		return nil, "", err
	}
	clean, err := cleanKey(path)
	if err != nil {
		return nil, "", err
	}

	if ref != "" {
		env, err := b.findSnapshot(clean, ref)
		if err != nil {
			return nil, "", err
		}
		return env.Content, hashContent(env.Content), nil
	}

	data, err := os.ReadFile(filepath.Join(b.baseDir, clean))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, "", fmt.Errorf("%w: %s", content.ErrNotFound, path)
		}
		return nil, "", fmt.Errorf("%w: read %s: %v", content.ErrBackendUnavailable, path, err)
	}
	return data, hashContent(data), nil
}

// Put compares the live content hash against the expected revision, then
// atomically replaces the file and records a history snapshot.
func (b *Backend) Put(ctx context.Context, path string, data []byte, message, expectedRevision string) (content.PutResult, error) {
	if err := ctx.Err(); err != nil {
		return content.PutResult{}, err
	}
	clean, err := cleanKey(path)
	if err != nil {
		return content.PutResult{}, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	fullPath := filepath.Join(b.baseDir, clean)
	current, readErr := os.ReadFile(fullPath)
	switch {
	case readErr == nil && expectedRevision == "":
		return content.PutResult{}, fmt.Errorf("%w: %s already exists", content.ErrConcurrentModification, path)
	case readErr == nil && hashContent(current) != expectedRevision:
		return content.PutResult{}, fmt.Errorf("%w: %s", content.ErrConcurrentModification, path)
	case readErr != nil && !os.IsNotExist(readErr):
		return content.PutResult{}, fmt.Errorf("%w: read %s: %v", content.ErrBackendUnavailable, path, readErr)
	case os.IsNotExist(readErr) && expectedRevision != "":
		return content.PutResult{}, fmt.Errorf("%w: %s does not exist", content.ErrConcurrentModification, path)
	}

	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return content.PutResult{}, fmt.Errorf("%w: mkdir: %v", content.ErrBackendUnavailable, err)
	}
	tmp := fullPath + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return content.PutResult{}, fmt.Errorf("%w: write %s: %v", content.ErrBackendUnavailable, path, err)
	}
	if err := os.Rename(tmp, fullPath); err != nil {
		return content.PutResult{}, fmt.Errorf("%w: rename %s: %v", content.ErrBackendUnavailable, path, err)
	}

	commit := uuid.NewString()
	if err := b.recordSnapshot(clean, snapshotEnvelope{
		Commit:  commit,
		Message: message,
		Author:  b.author,
		Date:    time.Now().UTC(),
		Content: data,
	}); err != nil {
		return content.PutResult{}, err
	}

	return content.PutResult{Revision: hashContent(data), CommitID: commit}, nil
}

// ListRevisions returns up to limit snapshots for path, newest first.
func (b *Backend) ListRevisions(ctx context.Context, path string, limit int) ([]content.Revision, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	clean, err := cleanKey(path)
	if err != nil {
		return nil, err
	}
	names, err := b.snapshotNames(clean)
	if err != nil {
		return nil, err
	}
	if limit <= 0 || limit > len(names) {
		limit = len(names)
	}

	out := make([]content.Revision, 0, limit)
	for _, name := range names[:limit] {
		env, err := b.readSnapshot(clean, name)
		if err != nil {
			return nil, err
		}
		out = append(out, content.Revision{
			SHA:     env.Commit,
			Message: env.Message,
			Author:  env.Author,
			Date:    env.Date,
		})
	}
	return out, nil
}

// List returns the full paths of files directly under dir.
func (b *Backend) List(ctx context.Context, dir string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	clean, err := cleanKey(dir)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(filepath.Join(b.baseDir, clean))
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("%w: list %s: %v", content.ErrBackendUnavailable, dir, err)
	}

	var out []string
	for _, entry := range entries {
		if entry.IsDir() || strings.HasSuffix(entry.Name(), ".tmp") {
			continue
		}
		out = append(out, strings.TrimSuffix(dir, "/")+"/"+entry.Name())
	}
	sort.Strings(out)
	return out, nil
}

// Delete removes the file and its snapshot history.
func (b *Backend) Delete(ctx context.Context, path, message string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	clean, err := cleanKey(path)
	if err != nil {
		return err
	}
	if err := os.Remove(filepath.Join(b.baseDir, clean)); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", content.ErrNotFound, path)
		}
		return fmt.Errorf("%w: remove %s: %v", content.ErrBackendUnavailable, path, err)
	}
	_ = os.RemoveAll(b.historyDir(clean))
	return nil
}

func (b *Backend) historyDir(clean string) string {
	return filepath.Join(b.baseDir, historyDirName, clean)
}

func (b *Backend) recordSnapshot(clean string, env snapshotEnvelope) error {
	dir := b.historyDir(clean)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("%w: mkdir history: %v", content.ErrBackendUnavailable, err)
	}
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	name := fmt.Sprintf("%020d-%s.json", env.Date.UnixNano(), env.Commit)
	if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
		return fmt.Errorf("%w: write snapshot: %v", content.ErrBackendUnavailable, err)
	}
	return nil
}

// snapshotNames returns snapshot file names for a path, newest first. Names
// embed a zero-padded nanosecond timestamp, so reverse-lexicographic order is
// reverse-chronological.
func (b *Backend) snapshotNames(clean string) ([]string, error) {
	entries, err := os.ReadDir(b.historyDir(clean))
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("%w: read history: %v", content.ErrBackendUnavailable, err)
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".json") {
			names = append(names, entry.Name())
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(names)))
	return names, nil
}

func (b *Backend) readSnapshot(clean, name string) (snapshotEnvelope, error) {
	data, err := os.ReadFile(filepath.Join(b.historyDir(clean), name))
	if err != nil {
		return snapshotEnvelope{}, fmt.Errorf("%w: read snapshot: %v", content.ErrBackendUnavailable, err)
	}
	var env snapshotEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return snapshotEnvelope{}, fmt.Errorf("decode snapshot %s: %w", name, err)
	}
	return env, nil
}

func (b *Backend) findSnapshot(clean, ref string) (snapshotEnvelope, error) {
	names, err := b.snapshotNames(clean)
	if err != nil {
		return snapshotEnvelope{}, err
	}
	suffix := "-" + ref + ".json"
	for _, name := range names {
		if strings.HasSuffix(name, suffix) {
			return b.readSnapshot(clean, name)
		}
	}
	return snapshotEnvelope{}, fmt.Errorf("%w: %s@%s", content.ErrRevisionNotFound, clean, ref)
}

func hashContent(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func cleanKey(key string) (string, error) {
	clean := filepath.Clean(strings.TrimSpace(key))
	if clean == "" || clean == "." || strings.HasPrefix(clean, "..") || filepath.IsAbs(clean) {
		return "", fmt.Errorf("%w: invalid path %q", content.ErrNotFound, key)
	}
	return clean, nil
}

var _ content.Backend = (*Backend)(nil)
