// Package github adapts the GitHub Contents API to the content backend
// contract. The blob SHA of the stored file is the CAS token; commit SHAs
// from the file's history serve as point-in-time refs.
package github

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	gogithub "github.com/google/go-github/v66/github"
	"golang.org/x/oauth2"

	"resume-store/internal/shared/storage/content"
)

const defaultTimeout = 30 * time.Second

// Config carries the coordinates of the backing repository. BaseURL is only
// set for GitHub Enterprise or tests.
type Config struct {
	Token   string
	Owner   string
	Repo    string
	Branch  string
	BaseURL string
}

// Backend implements content.Backend over one GitHub repository.
type Backend struct {
	client *gogithub.Client
	owner  string
	repo   string
	branch string
}

// New constructs a GitHub-backed content store with a token-authenticated
// client. The client is injected into the backend here, never read from
// package state.
func New(ctx context.Context, cfg Config) (*Backend, error) {
	if cfg.Owner == "" || cfg.Repo == "" {
		return nil, fmt.Errorf("github owner and repo are required")
	}

	var httpClient *http.Client
	if cfg.Token != "" {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.Token})
		httpClient = oauth2.NewClient(ctx, ts)
	} else {
		httpClient = &http.Client{}
	}
	httpClient.Timeout = defaultTimeout

	client := gogithub.NewClient(httpClient)
	if cfg.BaseURL != "" {
		var err error
		client, err = client.WithEnterpriseURLs(cfg.BaseURL, cfg.BaseURL)
		if err != nil {
			return nil, fmt.Errorf("github base url: %w", err)
		}
	}

	return &Backend{
		client: client,
		owner:  cfg.Owner,
		repo:   cfg.Repo,
		branch: cfg.Branch,
	}, nil
}

// Get fetches the file content and blob SHA, optionally at a historical
// commit ref.
func (b *Backend) Get(ctx context.Context, path, ref string) ([]byte, string, error) {
	opts := &gogithub.RepositoryContentGetOptions{Ref: b.refOrBranch(ref)}
	file, _, _, err := b.client.Repositories.GetContents(ctx, b.owner, b.repo, path, opts)
	if err != nil {
		return nil, "", b.classify(err, path, ref)
	}
	if file == nil {
		return nil, "", fmt.Errorf("%w: %s is a directory", content.ErrNotFound, path)
	}
	decoded, err := file.GetContent()
	if err != nil {
		return nil, "", fmt.Errorf("decode content of %s: %w", path, err)
	}
	return []byte(decoded), file.GetSHA(), nil
}

// Put creates or CAS-replaces the file. GitHub enforces the swap server-side:
// a stale blob SHA is rejected with a conflict.
func (b *Backend) Put(ctx context.Context, path string, data []byte, message, expectedRevision string) (content.PutResult, error) {
	opts := &gogithub.RepositoryContentFileOptions{
		Message: gogithub.String(message),
		Content: data,
	}
	if b.branch != "" {
		opts.Branch = gogithub.String(b.branch)
	}

	var (
		resp *gogithub.RepositoryContentResponse
		err  error
	)
	if expectedRevision == "" {
		resp, _, err = b.client.Repositories.CreateFile(ctx, b.owner, b.repo, path, opts)
	} else {
		opts.SHA = gogithub.String(expectedRevision)
		resp, _, err = b.client.Repositories.UpdateFile(ctx, b.owner, b.repo, path, opts)
	}
	if err != nil {
		return content.PutResult{}, b.classify(err, path, "")
	}

	out := content.PutResult{
		CommitID: resp.Commit.GetSHA(),
		URL:      resp.Commit.GetHTMLURL(),
	}
	if resp.Content != nil {
		out.Revision = resp.Content.GetSHA()
	}
	return out, nil
}

// ListRevisions returns the commits that touched the file, newest first.
func (b *Backend) ListRevisions(ctx context.Context, path string, limit int) ([]content.Revision, error) {
	opts := &gogithub.CommitsListOptions{
		Path:        path,
		SHA:         b.branch,
		ListOptions: gogithub.ListOptions{PerPage: limit},
	}
	commits, _, err := b.client.Repositories.ListCommits(ctx, b.owner, b.repo, opts)
	if err != nil {
		return nil, b.classify(err, path, "")
	}

	out := make([]content.Revision, 0, len(commits))
	for _, c := range commits {
		rev := content.Revision{
			SHA: c.GetSHA(),
			URL: c.GetHTMLURL(),
		}
		if inner := c.GetCommit(); inner != nil {
			rev.Message = inner.GetMessage()
			if author := inner.GetAuthor(); author != nil {
				rev.Author = author.GetName()
				rev.Date = author.GetDate().Time
			}
		}
		out = append(out, rev)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

// List returns the full paths of entries directly under dir.
func (b *Backend) List(ctx context.Context, dir string) ([]string, error) {
	opts := &gogithub.RepositoryContentGetOptions{Ref: b.branch}
	_, entries, _, err := b.client.Repositories.GetContents(ctx, b.owner, b.repo, dir, opts)
	if err != nil {
		classified := b.classify(err, dir, "")
		if errors.Is(classified, content.ErrNotFound) {
			return []string{}, nil
		}
		return nil, classified
	}
	out := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.GetType() == "file" {
			out = append(out, entry.GetPath())
		}
	}
	return out, nil
}

// Delete removes the file, resolving its current blob SHA first.
func (b *Backend) Delete(ctx context.Context, path, message string) error {
	_, sha, err := b.Get(ctx, path, "")
	if err != nil {
		return err
	}
	opts := &gogithub.RepositoryContentFileOptions{
		Message: gogithub.String(message),
		SHA:     gogithub.String(sha),
	}
	if b.branch != "" {
		opts.Branch = gogithub.String(b.branch)
	}
	if _, _, err := b.client.Repositories.DeleteFile(ctx, b.owner, b.repo, path, opts); err != nil {
		return b.classify(err, path, "")
	}
	return nil
}

func (b *Backend) refOrBranch(ref string) string {
	if ref != "" {
		return ref
	}
	return b.branch
}

// classify maps GitHub API failures onto the backend error taxonomy.
func (b *Backend) classify(err error, path, ref string) error {
	var rateErr *gogithub.RateLimitError
	if errors.As(err, &rateErr) {
		return fmt.Errorf("%w: rate limited until %s", content.ErrBackendUnavailable, rateErr.Rate.Reset.Time.Format(time.RFC3339))
	}
	var abuseErr *gogithub.AbuseRateLimitError
	if errors.As(err, &abuseErr) {
		return fmt.Errorf("%w: secondary rate limit", content.ErrBackendUnavailable)
	}

	var ghErr *gogithub.ErrorResponse
	if errors.As(err, &ghErr) && ghErr.Response != nil {
		switch ghErr.Response.StatusCode {
		case http.StatusNotFound:
			if ref != "" {
				return fmt.Errorf("%w: %s@%s", content.ErrRevisionNotFound, path, ref)
			}
			return fmt.Errorf("%w: %s", content.ErrNotFound, path)
		case http.StatusConflict, http.StatusUnprocessableEntity:
			return fmt.Errorf("%w: %s: %v", content.ErrConcurrentModification, path, ghErr.Message)
		}
	}
	return fmt.Errorf("%w: %v", content.ErrBackendUnavailable, err)
}

var _ content.Backend = (*Backend)(nil)
