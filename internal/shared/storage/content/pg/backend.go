// Package pg implements the content backend on Postgres: a live table keyed
// by path whose revision column is the CAS token, plus an append-only
// revisions table serving history reads.
package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"resume-store/internal/shared/storage/content"
)

// Backend implements content.Backend over a *sql.DB opened with the pgx
// stdlib driver. Schema lives in internal/shared/storage/db/migrations.
type Backend struct {
	DB     *sql.DB
	Author string
}

// New constructs a Postgres-backed content store. Commits are attributed to
// author.
func New(db *sql.DB, author string) *Backend {
	return &Backend{DB: db, Author: author}
}

// Get returns the live content and revision of path, or a historical state
// when ref names a commit id from ListRevisions.
func (b *Backend) Get(ctx context.Context, path, ref string) ([]byte, string, error) {
	if ref != "" {
		const query = `
SELECT content, revision
FROM resume_document_revisions
WHERE path = $1 AND commit_id = $2
LIMIT 1`
		var data []byte
		var revision string
		err := b.DB.QueryRowContext(ctx, query, path, ref).Scan(&data, &revision)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, "", fmt.Errorf("%w: %s@%s", content.ErrRevisionNotFound, path, ref)
			}
			return nil, "", wrapDBErr("get revision", err)
		}
		return data, revision, nil
	}

	const query = `
SELECT content, revision
FROM resume_documents
WHERE path = $1
LIMIT 1`
	var data []byte
	var revision string
	err := b.DB.QueryRowContext(ctx, query, path).Scan(&data, &revision)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, "", fmt.Errorf("%w: %s", content.ErrNotFound, path)
		}
		return nil, "", wrapDBErr("get document", err)
	}
	return data, revision, nil
}

// Put CAS-replaces the live row and appends a revision row in one
// transaction. The guarded UPDATE (or conflict-free INSERT) is what
// serializes competing writers: at most one CAS against a given revision
// succeeds.
func (b *Backend) Put(ctx context.Context, path string, data []byte, message, expectedRevision string) (content.PutResult, error) {
	revision := uuid.NewString()
	commitID := uuid.NewString()
	now := time.Now().UTC()

	tx, err := b.DB.BeginTx(ctx, nil)
	if err != nil {
		return content.PutResult{}, wrapDBErr("begin", err)
	}
	defer tx.Rollback()

	var res sql.Result
	if expectedRevision == "" {
		const insert = `
INSERT INTO resume_documents (path, content, revision, updated_at)
VALUES ($1, $2, $3, $4)
ON CONFLICT (path) DO NOTHING`
		res, err = tx.ExecContext(ctx, insert, path, data, revision, now)
	} else {
		const update = `
UPDATE resume_documents
SET content = $1, revision = $2, updated_at = $3
WHERE path = $4 AND revision = $5`
		res, err = tx.ExecContext(ctx, update, data, revision, now, path, expectedRevision)
	}
	if err != nil {
		return content.PutResult{}, wrapDBErr("put document", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return content.PutResult{}, wrapDBErr("put document", err)
	}
	if affected == 0 {
		return content.PutResult{}, fmt.Errorf("%w: %s", content.ErrConcurrentModification, path)
	}

	const insertRevision = `
INSERT INTO resume_document_revisions (path, revision, commit_id, author, message, content, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`
	if _, err := tx.ExecContext(ctx, insertRevision, path, revision, commitID, b.Author, message, data, now); err != nil {
		return content.PutResult{}, wrapDBErr("record revision", err)
	}

	if err := tx.Commit(); err != nil {
		return content.PutResult{}, wrapDBErr("commit", err)
	}
	return content.PutResult{Revision: revision, CommitID: commitID}, nil
}

// ListRevisions returns up to limit revision records for path, newest first.
func (b *Backend) ListRevisions(ctx context.Context, path string, limit int) ([]content.Revision, error) {
	if limit <= 0 {
		limit = 10
	}
	const query = `
SELECT commit_id, author, message, created_at
FROM resume_document_revisions
WHERE path = $1
ORDER BY created_at DESC, id DESC
LIMIT $2`
	rows, err := b.DB.QueryContext(ctx, query, path, limit)
	if err != nil {
		return nil, wrapDBErr("list revisions", err)
	}
	defer rows.Close()

	var out []content.Revision
	for rows.Next() {
		var rev content.Revision
		if err := rows.Scan(&rev.SHA, &rev.Author, &rev.Message, &rev.Date); err != nil {
			return nil, wrapDBErr("scan revision", err)
		}
		out = append(out, rev)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDBErr("list revisions", err)
	}
	return out, nil
}

// List returns the full paths of documents directly under dir.
func (b *Backend) List(ctx context.Context, dir string) ([]string, error) {
	prefix := strings.TrimSuffix(dir, "/") + "/"
	const query = `
SELECT path
FROM resume_documents
WHERE path LIKE $1 AND path NOT LIKE $2
ORDER BY path ASC`
	rows, err := b.DB.QueryContext(ctx, query, prefix+"%", prefix+"%/%")
	if err != nil {
		return nil, wrapDBErr("list", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var path string
		if err := rows.Scan(&path); err != nil {
			return nil, wrapDBErr("scan path", err)
		}
		out = append(out, path)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDBErr("list", err)
	}
	return out, nil
}

// Delete removes a document row and its recorded revisions.
func (b *Backend) Delete(ctx context.Context, path, message string) error {
	tx, err := b.DB.BeginTx(ctx, nil)
	if err != nil {
		return wrapDBErr("begin", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `DELETE FROM resume_documents WHERE path = $1`, path)
	if err != nil {
		return wrapDBErr("delete document", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return wrapDBErr("delete document", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s", content.ErrNotFound, path)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM resume_document_revisions WHERE path = $1`, path); err != nil {
		return wrapDBErr("delete revisions", err)
	}
	return wrapDBErr("commit", tx.Commit())
}

func wrapDBErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %s: %v", content.ErrBackendUnavailable, op, err)
}

var _ content.Backend = (*Backend)(nil)
