// Package content defines the contract for the versioned file store that
// backs the resume document: whole-file read and CAS-guarded replace, plus a
// per-path revision history.
package content

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound indicates the path does not exist at the live ref.
	ErrNotFound = errors.New("not found")

	// ErrRevisionNotFound indicates a historical ref could not be resolved.
	ErrRevisionNotFound = errors.New("revision not found")

	// ErrConcurrentModification indicates the expected revision no longer
	// matches the stored one; the caller must re-read and retry.
	ErrConcurrentModification = errors.New("concurrent modification")

	// ErrBackendUnavailable indicates a transport, auth or rate-limit
	// failure of the backing store.
	ErrBackendUnavailable = errors.New("backend unavailable")
)

// Revision describes one historical state of a path, newest first in listings.
type Revision struct {
	SHA     string    `json:"sha"`
	Message string    `json:"message"`
	Author  string    `json:"author"`
	Date    time.Time `json:"date"`
	URL     string    `json:"url,omitempty"`
}

// PutResult reports the outcome of a successful CAS replace.
type PutResult struct {
	Revision string `json:"revision"`
	CommitID string `json:"commit"`
	URL      string `json:"url,omitempty"`
}

// Backend is the whole-file store the document layer is built on. The
// revision string returned by Get is the CAS token expected by Put; the SHA
// in a Revision is the ref accepted by Get for point-in-time reads.
type Backend interface {
	// Get returns the content and CAS revision of path. A non-empty ref
	// selects a historical state from ListRevisions instead of the live one.
	Get(ctx context.Context, path, ref string) ([]byte, string, error)

	// Put replaces the content of path if expectedRevision still matches
	// the stored revision. An empty expectedRevision means "create; the
	// path must not already exist".
	Put(ctx context.Context, path string, data []byte, message, expectedRevision string) (PutResult, error)

	// ListRevisions returns up to limit revision descriptors for path,
	// newest first.
	ListRevisions(ctx context.Context, path string, limit int) ([]Revision, error)

	// List returns the full paths of entries directly under dir, sorted
	// ascending. Used by backup retention.
	List(ctx context.Context, dir string) ([]string, error)

	// Delete removes path. Used by backup retention only; the live
	// document is never deleted, only reset.
	Delete(ctx context.Context, path, message string) error
}
