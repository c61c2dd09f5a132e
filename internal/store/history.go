package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"resume-store/internal/resume"
	"resume-store/internal/shared/storage/content"
)

const defaultHistoryLimit = 10

// History exposes the document's change history and point-in-time restore.
// Restore funnels through the DocumentStore write path: it is an ordinary
// CAS write whose content happens to be a historical state.
type History struct {
	Store *DocumentStore
}

// List returns up to limit revision records for the document, newest first.
func (h *History) List(ctx context.Context, limit int) ([]content.Revision, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	return h.Store.Backend.ListRevisions(ctx, h.Store.Path, limit)
}

// ReadAt returns the document as it existed at the given revision ref.
func (h *History) ReadAt(ctx context.Context, ref string) (resume.Document, error) {
	raw, err := h.fetchAt(ctx, ref)
	if err != nil {
		return resume.Document{}, err
	}
	var doc resume.Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return resume.Document{}, fmt.Errorf("decode document at %s: %w", ref, err)
	}
	return doc, nil
}

// Restore makes the live content equal to what it was at ref, guarded by the
// live document's current revision. The historical ref is resolved first, so
// an unknown ref fails before any backup or write happens; the pre-restore
// live content is backed up best-effort.
func (h *History) Restore(ctx context.Context, ref string) (content.PutResult, error) {
	raw, err := h.fetchAt(ctx, ref)
	if err != nil {
		return content.PutResult{}, err
	}

	live, rev, err := h.Store.Read(ctx)
	if err != nil {
		return content.PutResult{}, err
	}
	h.Store.BackupQuietly(ctx, live)

	message := "Restore resume data from commit " + shortRef(ref)
	return h.Store.writeRaw(ctx, raw, message, rev)
}

func (h *History) fetchAt(ctx context.Context, ref string) ([]byte, error) {
	if ref == "" {
		return nil, fmt.Errorf("%w: revision ref is required", resume.ErrInvalidInput)
	}
	raw, _, err := h.Store.Backend.Get(ctx, h.Store.Path, ref)
	if err != nil {
		if errors.Is(err, content.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", content.ErrRevisionNotFound, ref)
		}
		return nil, err
	}
	return raw, nil
}

func shortRef(ref string) string {
	if len(ref) > 7 {
		return ref[:7]
	}
	return ref
}
