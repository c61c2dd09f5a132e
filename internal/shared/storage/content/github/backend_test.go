package github

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"resume-store/internal/shared/storage/content"
)

// newTestBackend points the client at a fake API server.
func newTestBackend(t *testing.T, handler http.Handler) *Backend {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	b, err := New(context.Background(), Config{
		Token:   "test-token",
		Owner:   "octocat",
		Repo:    "resume-data",
		Branch:  "main",
		BaseURL: srv.URL,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return b
}

const contentsPath = "/api/v3/repos/octocat/resume-data/contents/data/resume.json"

func TestNewRequiresCoordinates(t *testing.T) {
	if _, err := New(context.Background(), Config{Owner: "octocat"}); err == nil {
		t.Fatalf("expected error for missing repo")
	}
	if _, err := New(context.Background(), Config{Repo: "resume-data"}); err == nil {
		t.Fatalf("expected error for missing owner")
	}
}

func TestGetDecodesContentAndSHA(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc(contentsPath, func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("ref"); got != "main" {
			t.Errorf("ref = %q, want main", got)
		}
		fmt.Fprintf(w, `{
			"type": "file",
			"name": "resume.json",
			"path": "data/resume.json",
			"sha": "blob-sha-1",
			"encoding": "base64",
			"content": %q
		}`, base64.StdEncoding.EncodeToString([]byte(`{"v":1}`)))
	})
	b := newTestBackend(t, mux)

	data, rev, err := b.Get(context.Background(), "data/resume.json", "")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(data) != `{"v":1}` {
		t.Fatalf("content = %s", data)
	}
	if rev != "blob-sha-1" {
		t.Fatalf("revision = %q", rev)
	}
}

func TestGetAtRefPassesCommitSHA(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc(contentsPath, func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("ref"); got != "commit-sha" {
			t.Errorf("ref = %q, want commit-sha", got)
		}
		fmt.Fprintf(w, `{"type":"file","sha":"old-blob","encoding":"base64","content":%q}`,
			base64.StdEncoding.EncodeToString([]byte("old")))
	})
	b := newTestBackend(t, mux)

	data, _, err := b.Get(context.Background(), "data/resume.json", "commit-sha")
	if err != nil {
		t.Fatalf("Get at ref: %v", err)
	}
	if string(data) != "old" {
		t.Fatalf("content = %s", data)
	}
}

func TestGetClassifies404(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc(contentsPath, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"message": "Not Found"}`)
	})
	b := newTestBackend(t, mux)

	if _, _, err := b.Get(context.Background(), "data/resume.json", ""); !errors.Is(err, content.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, _, err := b.Get(context.Background(), "data/resume.json", "gone-sha"); !errors.Is(err, content.ErrRevisionNotFound) {
		t.Fatalf("expected ErrRevisionNotFound, got %v", err)
	}
}

func TestPutCreateAndUpdate(t *testing.T) {
	var gotBody map[string]any
	mux := http.NewServeMux()
	mux.HandleFunc(contentsPath, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut {
			t.Errorf("method = %s", r.Method)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode body: %v", err)
		}
		fmt.Fprint(w, `{
			"content": {"sha": "new-blob-sha"},
			"commit": {"sha": "new-commit-sha", "html_url": "https://example.test/commit"}
		}`)
	})
	b := newTestBackend(t, mux)
	ctx := context.Background()

	res, err := b.Put(ctx, "data/resume.json", []byte(`{"v":1}`), "Update resume data - now", "")
	if err != nil {
		t.Fatalf("Put create: %v", err)
	}
	if res.Revision != "new-blob-sha" || res.CommitID != "new-commit-sha" {
		t.Fatalf("result = %+v", res)
	}
	if _, ok := gotBody["sha"]; ok {
		t.Fatalf("create sent a sha: %v", gotBody)
	}
	if gotBody["branch"] != "main" {
		t.Fatalf("branch = %v", gotBody["branch"])
	}

	if _, err := b.Put(ctx, "data/resume.json", []byte(`{"v":2}`), "msg", "old-blob-sha"); err != nil {
		t.Fatalf("Put update: %v", err)
	}
	if gotBody["sha"] != "old-blob-sha" {
		t.Fatalf("update did not send expected sha: %v", gotBody)
	}
}

func TestPutStaleSHAConflicts(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc(contentsPath, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		fmt.Fprint(w, `{"message": "data/resume.json does not match"}`)
	})
	b := newTestBackend(t, mux)

	_, err := b.Put(context.Background(), "data/resume.json", []byte("x"), "msg", "stale-sha")
	if !errors.Is(err, content.ErrConcurrentModification) {
		t.Fatalf("expected ErrConcurrentModification, got %v", err)
	}
}

func TestPut422Conflicts(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc(contentsPath, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		fmt.Fprint(w, `{"message": "sha wasn't supplied"}`)
	})
	b := newTestBackend(t, mux)

	_, err := b.Put(context.Background(), "data/resume.json", []byte("x"), "msg", "")
	if !errors.Is(err, content.ErrConcurrentModification) {
		t.Fatalf("expected ErrConcurrentModification, got %v", err)
	}
}

func TestListRevisions(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v3/repos/octocat/resume-data/commits", func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("path"); got != "data/resume.json" {
			t.Errorf("path = %q", got)
		}
		fmt.Fprint(w, `[
			{"sha": "c2", "html_url": "https://example.test/c2",
			 "commit": {"message": "second", "author": {"name": "octocat", "date": "2026-08-30T10:00:00Z"}}},
			{"sha": "c1", "html_url": "https://example.test/c1",
			 "commit": {"message": "first", "author": {"name": "octocat", "date": "2026-08-29T10:00:00Z"}}}
		]`)
	})
	b := newTestBackend(t, mux)

	revs, err := b.ListRevisions(context.Background(), "data/resume.json", 2)
	if err != nil {
		t.Fatalf("ListRevisions: %v", err)
	}
	if len(revs) != 2 {
		t.Fatalf("expected 2 revisions, got %d", len(revs))
	}
	if revs[0].SHA != "c2" || revs[0].Message != "second" || revs[0].Author != "octocat" {
		t.Fatalf("revision = %+v", revs[0])
	}
	if revs[0].Date.IsZero() {
		t.Fatalf("date missing: %+v", revs[0])
	}
}

func TestListReturnsFilesOnly(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v3/repos/octocat/resume-data/contents/data/backups", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[
			{"type": "file", "path": "data/backups/resume-backup-1.json"},
			{"type": "dir", "path": "data/backups/nested"},
			{"type": "file", "path": "data/backups/resume-backup-2.json"}
		]`)
	})
	b := newTestBackend(t, mux)

	paths, err := b.List(context.Background(), "data/backups")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(paths) != 2 || paths[0] != "data/backups/resume-backup-1.json" {
		t.Fatalf("List = %v", paths)
	}
}

func TestListMissingDirIsEmpty(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v3/repos/octocat/resume-data/contents/data/backups", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"message": "Not Found"}`)
	})
	b := newTestBackend(t, mux)

	paths, err := b.List(context.Background(), "data/backups")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(paths) != 0 {
		t.Fatalf("expected empty list, got %v", paths)
	}
}

func TestDeleteResolvesSHAFirst(t *testing.T) {
	var deleteBody map[string]any
	mux := http.NewServeMux()
	mux.HandleFunc(contentsPath, func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			fmt.Fprintf(w, `{"type":"file","sha":"live-sha","encoding":"base64","content":%q}`,
				base64.StdEncoding.EncodeToString([]byte("x")))
		case http.MethodDelete:
			if err := json.NewDecoder(r.Body).Decode(&deleteBody); err != nil {
				t.Errorf("decode body: %v", err)
			}
			fmt.Fprint(w, `{"commit": {"sha": "del-commit"}}`)
		default:
			t.Errorf("method = %s", r.Method)
		}
	})
	b := newTestBackend(t, mux)

	if err := b.Delete(context.Background(), "data/resume.json", "prune"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if deleteBody["sha"] != "live-sha" {
		t.Fatalf("delete did not carry resolved sha: %v", deleteBody)
	}
}

func TestServerErrorIsBackendUnavailable(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc(contentsPath, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	b := newTestBackend(t, mux)

	if _, _, err := b.Get(context.Background(), "data/resume.json", ""); !errors.Is(err, content.ErrBackendUnavailable) {
		t.Fatalf("expected ErrBackendUnavailable, got %v", err)
	}
}
