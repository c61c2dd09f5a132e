// Package memory implements the content backend in process memory. It is
// used by tests and as a throwaway dev backend; it carries the full CAS and
// history semantics of the real adapters.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"resume-store/internal/shared/storage/content"
)

// Backend stores files in memory and is safe for concurrent use.
type Backend struct {
	mu     sync.RWMutex
	author string
	files  map[string]*file
}

type file struct {
	data     []byte
	revision string
	history  []snapshot // newest first
}

type snapshot struct {
	rev      content.Revision
	data     []byte
	revision string
}

// New constructs an empty in-memory backend. Commits are attributed to author.
func New(author string) *Backend {
	return &Backend{
		author: author,
		files:  make(map[string]*file),
	}
}

// Get returns content and CAS revision; a non-empty ref resolves against the
// path's history.
func (b *Backend) Get(ctx context.Context, path, ref string) ([]byte, string, error) {
	if err := ctx.Err(); err != nil {
		return nil, "", err
	}
	b.mu.RLock()
	defer b.mu.RUnlock()

	f, ok := b.files[path]
	if !ok {
		if ref != "" {
			return nil, "", fmt.Errorf("%w: %s@%s", content.ErrRevisionNotFound, path, ref)
		}
		return nil, "", fmt.Errorf("%w: %s", content.ErrNotFound, path)
	}
	if ref == "" {
		return append([]byte(nil), f.data...), f.revision, nil
	}
	for _, s := range f.history {
		if s.rev.SHA == ref {
			return append([]byte(nil), s.data...), s.revision, nil
		}
	}
	return nil, "", fmt.Errorf("%w: %s@%s", content.ErrRevisionNotFound, path, ref)
}

// Put performs a CAS replace and records the new state in the path's history.
func (b *Backend) Put(ctx context.Context, path string, data []byte, message, expectedRevision string) (content.PutResult, error) {
	if err := ctx.Err(); err != nil {
		return content.PutResult{}, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	f, exists := b.files[path]
	switch {
	case !exists && expectedRevision != "":
		return content.PutResult{}, fmt.Errorf("%w: %s does not exist", content.ErrConcurrentModification, path)
	case exists && expectedRevision == "":
		return content.PutResult{}, fmt.Errorf("%w: %s already exists", content.ErrConcurrentModification, path)
	case exists && f.revision != expectedRevision:
		return content.PutResult{}, fmt.Errorf("%w: %s", content.ErrConcurrentModification, path)
	}

	if !exists {
		f = &file{}
		b.files[path] = f
	}
	f.data = append([]byte(nil), data...)
	f.revision = uuid.NewString()

	commit := uuid.NewString()
	f.history = append([]snapshot{{
		rev: content.Revision{
			SHA:     commit,
			Message: message,
			Author:  b.author,
			Date:    time.Now().UTC(),
		},
		data:     append([]byte(nil), data...),
		revision: f.revision,
	}}, f.history...)

	return content.PutResult{Revision: f.revision, CommitID: commit}, nil
}

// ListRevisions returns up to limit revisions for path, newest first.
func (b *Backend) ListRevisions(ctx context.Context, path string, limit int) ([]content.Revision, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b.mu.RLock()
	defer b.mu.RUnlock()

	f, ok := b.files[path]
	if !ok {
		return []content.Revision{}, nil
	}
	if limit <= 0 || limit > len(f.history) {
		limit = len(f.history)
	}
	out := make([]content.Revision, limit)
	for i := 0; i < limit; i++ {
		out[i] = f.history[i].rev
	}
	return out, nil
}

// List returns the full paths of files directly under dir, sorted ascending.
func (b *Backend) List(ctx context.Context, dir string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b.mu.RLock()
	defer b.mu.RUnlock()

	prefix := strings.TrimSuffix(dir, "/") + "/"
	var out []string
	for path := range b.files {
		if strings.HasPrefix(path, prefix) && !strings.Contains(strings.TrimPrefix(path, prefix), "/") {
			out = append(out, path)
		}
	}
	sort.Strings(out)
	return out, nil
}

// Delete removes path and its history.
func (b *Backend) Delete(ctx context.Context, path, message string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.files[path]; !ok {
		return fmt.Errorf("%w: %s", content.ErrNotFound, path)
	}
	delete(b.files, path)
	return nil
}

var _ content.Backend = (*Backend)(nil)
