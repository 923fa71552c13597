// Package github provides a minimal GitHub REST v3 client covering the
// endpoints the digest pipeline needs: commit listing, commit detail, commit
// comparison, and the contents API for reads and upsert writes.
package github

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	apperrors "notedigest/pkg/errors"

	"notedigest/pkg/config"
)

// Client talks to the GitHub REST API for a single owner/repo pair.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
	owner      string
	repo       string
	logger     *slog.Logger
}

// NewClient creates a Client from the GitHub configuration.
func NewClient(cfg config.GitHubConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		token:      cfg.Token,
		owner:      cfg.Owner,
		repo:       cfg.Repo,
		logger:     slog.Default().With("component", "github-client", "repo", cfg.Owner+"/"+cfg.Repo),
	}
}

// Commit is one entry of a commit listing.
type Commit struct {
	SHA    string     `json:"sha"`
	Commit CommitMeta `json:"commit"`
}

// CommitMeta carries the committer timestamp of a commit.
type CommitMeta struct {
	Committer CommitActor `json:"committer"`
}

// CommitActor is the committer identity block of a commit.
type CommitActor struct {
	Date time.Time `json:"date"`
}

// CommitFile is one changed file inside a commit or comparison.
type CommitFile struct {
	Filename string `json:"filename"`
	Patch    string `json:"patch"`
}

// CommitDetail is a single commit with its changed files.
type CommitDetail struct {
	SHA   string       `json:"sha"`
	Files []CommitFile `json:"files"`
}

// Comparison is the result of comparing two commits.
type Comparison struct {
	Files []CommitFile `json:"files"`
}

// Content is a contents-API entry. Content is base64 when Type is "file".
type Content struct {
	Type     string `json:"type"`
	Content  string `json:"content"`
	Encoding string `json:"encoding"`
	SHA      string `json:"sha"`
}

// Decode returns the decoded file body. Only regular files carry content;
// symlinks and submodules do not.
func (c *Content) Decode() (string, error) {
	raw := strings.ReplaceAll(c.Content, "\n", "")
	body, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return "", fmt.Errorf("decoding content: %w", err)
	}
	return string(body), nil
}

// ListCommitsSince returns the commits whose committer timestamp is at or
// after the given instant.
func (c *Client) ListCommitsSince(ctx context.Context, since time.Time) ([]Commit, error) {
	q := url.Values{"since": {since.UTC().Format(time.RFC3339)}}
	var commits []Commit
	if err := c.get(ctx, c.repoPath("commits")+"?"+q.Encode(), &commits); err != nil {
		return nil, fmt.Errorf("listing commits since %s: %w", since.Format(time.RFC3339), err)
	}
	return commits, nil
}

// ListCommitsForPath returns every commit touching the given path, most
// recent first.
func (c *Client) ListCommitsForPath(ctx context.Context, path string) ([]Commit, error) {
	q := url.Values{"path": {path}}
	var commits []Commit
	if err := c.get(ctx, c.repoPath("commits")+"?"+q.Encode(), &commits); err != nil {
		return nil, fmt.Errorf("listing commits for %s: %w", path, err)
	}
	return commits, nil
}

// GetCommit returns a single commit with its changed files.
func (c *Client) GetCommit(ctx context.Context, sha string) (*CommitDetail, error) {
	var detail CommitDetail
	if err := c.get(ctx, c.repoPath("commits/"+sha), &detail); err != nil {
		return nil, fmt.Errorf("getting commit %s: %w", sha, err)
	}
	return &detail, nil
}

// CompareCommits returns the file-level differences between base and head.
func (c *Client) CompareCommits(ctx context.Context, base, head string) (*Comparison, error) {
	var cmp Comparison
	if err := c.get(ctx, c.repoPath("compare/"+url.PathEscape(base)+"..."+url.PathEscape(head)), &cmp); err != nil {
		return nil, fmt.Errorf("comparing %s...%s: %w", base, head, err)
	}
	return &cmp, nil
}

// GetContent fetches a contents-API entry for the given path. A 404 is
// returned as apperrors.ErrNotFound so callers can skip deleted files.
func (c *Client) GetContent(ctx context.Context, path string) (*Content, error) {
	var content Content
	if err := c.get(ctx, c.repoPath("contents/"+escapePath(path)), &content); err != nil {
		return nil, fmt.Errorf("getting content %s: %w", path, err)
	}
	return &content, nil
}

// CreateOrUpdateFile writes body to path with the given commit message.
// When the path already exists its blob SHA is included, which makes the
// write an upsert.
func (c *Client) CreateOrUpdateFile(ctx context.Context, path, message, body string) error {
	payload := map[string]string{
		"message": message,
		"content": base64.StdEncoding.EncodeToString([]byte(body)),
	}
	existing, err := c.GetContent(ctx, path)
	switch {
	case err == nil:
		payload["sha"] = existing.SHA
	case apperrors.HTTPStatusCode(err) == http.StatusNotFound:
		// First write of the day, nothing to replace.
	default:
		return fmt.Errorf("checking existing file %s: %w", path, err)
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshaling contents request: %w", err)
	}
	if err := c.do(ctx, http.MethodPut, c.repoPath("contents/"+escapePath(path)), bytes.NewReader(raw), nil); err != nil {
		return fmt.Errorf("writing file %s: %w", path, err)
	}
	c.logger.Info("file written", "path", path)
	return nil
}

func (c *Client) repoPath(suffix string) string {
	return fmt.Sprintf("/repos/%s/%s/%s", c.owner, c.repo, suffix)
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodGet, path, nil, out)
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return apperrors.New(apperrors.ErrNotFound, http.StatusNotFound, path)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return apperrors.Newf(apperrors.ErrInternal, resp.StatusCode,
			"%s %s: status %d: %s", method, path, resp.StatusCode, strings.TrimSpace(string(snippet)))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response of %s %s: %w", method, path, err)
	}
	return nil
}

// escapePath escapes each segment of a repository path while keeping the
// slashes that separate directories.
func escapePath(path string) string {
	parts := strings.Split(path, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return strings.Join(parts, "/")
}
