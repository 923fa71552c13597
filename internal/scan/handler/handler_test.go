package handler

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"notedigest/internal/pipeline"
	"notedigest/internal/runlog"
	"notedigest/internal/scan/dispatcher"
	"notedigest/internal/scan/links"
	"notedigest/internal/scan/scanner"
	"notedigest/pkg/config"
	apperrors "notedigest/pkg/errors"
	"notedigest/pkg/github"
	"notedigest/pkg/kafka"
)

// fakeHost serves two documents created within the window; one body carries
// two candidate links.
type fakeHost struct{}

func (fakeHost) ListCommitsSince(ctx context.Context, since time.Time) ([]github.Commit, error) {
	return []github.Commit{recentCommit()}, nil
}

func (fakeHost) ListCommitsForPath(ctx context.Context, path string) ([]github.Commit, error) {
	return []github.Commit{recentCommit()}, nil
}

func (fakeHost) GetCommit(ctx context.Context, sha string) (*github.CommitDetail, error) {
	return &github.CommitDetail{SHA: sha, Files: []github.CommitFile{
		{Filename: "today.md"},
		{Filename: "reading.md"},
	}}, nil
}

func (fakeHost) CompareCommits(ctx context.Context, base, head string) (*github.Comparison, error) {
	return &github.Comparison{}, nil
}

func (fakeHost) GetContent(ctx context.Context, path string) (*github.Content, error) {
	body := "Plain thoughts, no links."
	if path == "reading.md" {
		body = "Read https://example.com/deep-dive and https://google.com today."
	}
	return &github.Content{
		Type:    "file",
		Content: base64.StdEncoding.EncodeToString([]byte(body)),
	}, nil
}

func recentCommit() github.Commit {
	return github.Commit{
		SHA:    "c1",
		Commit: github.CommitMeta{Committer: github.CommitActor{Date: time.Now().Add(-time.Hour)}},
	}
}

type fakeClassifier struct{}

func (fakeClassifier) GenerateJSON(ctx context.Context, prompt string, input any) (json.RawMessage, error) {
	return json.RawMessage(`{"usefulUrls": ["https://example.com/deep-dive"]}`), nil
}

func (fakeClassifier) GenerateText(ctx context.Context, prompt string) (string, error) {
	return "", nil
}

type fakePublisher struct {
	events []kafka.Event
}

func (f *fakePublisher) Publish(ctx context.Context, event kafka.Event) error {
	f.events = append(f.events, event)
	return nil
}

func testConfig(environment string) *config.Config {
	return &config.Config{
		Environment: environment,
		Server:      config.ServerConfig{TriggerSecret: "cron-secret"},
		Digest: config.DigestConfig{
			Queue:      "q",
			Extension:  ".md",
			Window:     24 * time.Hour,
			RunTimeout: time.Minute,
		},
	}
}

func newTestHandler(cfg *config.Config, pub *fakePublisher) *Handler {
	sc := scanner.New(fakeHost{}, cfg.Digest)
	filter := links.NewFilter(fakeClassifier{})
	disp := dispatcher.New(pub, "signing-key", nil)
	return New(sc, filter, disp, runlog.NewStore(nil), nil, cfg)
}

func TestScanFansOutAndRespondsOK(t *testing.T) {
	pub := &fakePublisher{}
	h := newTestHandler(testConfig("development"), pub)

	rec := httptest.NewRecorder()
	h.Scan(rec, httptest.NewRequest(http.MethodGet, "/api/v1/digest/scan", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Status string `json:"status"`
		RunID  string `json:"run_id"`
		Items  int    `json:"items"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.Status != "ok" || resp.RunID == "" {
		t.Errorf("response = %+v", resp)
	}
	// Two documents, one retained link, one terminal item.
	if resp.Items != 4 || len(pub.events) != 4 {
		t.Fatalf("items = %d, events = %d, want 4", resp.Items, len(pub.events))
	}

	last, err := kafka.DecodeJSON[pipeline.Envelope](mustMarshal(t, pub.events[3].Value))
	if err != nil {
		t.Fatalf("decoding last envelope: %v", err)
	}
	if last.Route != pipeline.RouteDigest {
		t.Errorf("last route = %q, want terminal", last.Route)
	}
}

func TestScanRejectsMissingBearerInProduction(t *testing.T) {
	pub := &fakePublisher{}
	h := newTestHandler(testConfig("production"), pub)

	rec := httptest.NewRecorder()
	h.Scan(rec, httptest.NewRequest(http.MethodGet, "/api/v1/digest/scan", nil))

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	if len(pub.events) != 0 {
		t.Error("unauthorized request caused a fan-out")
	}
}

func TestScanAcceptsBearerInProduction(t *testing.T) {
	pub := &fakePublisher{}
	h := newTestHandler(testConfig("production"), pub)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/digest/scan", nil)
	req.Header.Set("Authorization", "Bearer cron-secret")
	rec := httptest.NewRecorder()
	h.Scan(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
}

func TestScanEmptySecretNeverAuthorizes(t *testing.T) {
	cfg := testConfig("production")
	cfg.Server.TriggerSecret = ""
	h := newTestHandler(cfg, &fakePublisher{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/digest/scan", nil)
	req.Header.Set("Authorization", "Bearer ")
	rec := httptest.NewRecorder()
	h.Scan(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestScanReportsStageFailure(t *testing.T) {
	cfg := testConfig("development")
	pub := &fakePublisher{}
	sc := scanner.New(failingHost{}, cfg.Digest)
	h := New(sc, links.NewFilter(fakeClassifier{}), dispatcher.New(pub, "k", nil), runlog.NewStore(nil), nil, cfg)

	rec := httptest.NewRecorder()
	h.Scan(rec, httptest.NewRequest(http.MethodGet, "/api/v1/digest/scan", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	if len(pub.events) != 0 {
		t.Error("failed scan still published work items")
	}
}

type failingHost struct{}

func (failingHost) ListCommitsSince(ctx context.Context, since time.Time) ([]github.Commit, error) {
	return nil, apperrors.New(apperrors.ErrInternal, 500, "listing failed")
}

func (failingHost) ListCommitsForPath(ctx context.Context, path string) ([]github.Commit, error) {
	return nil, nil
}

func (failingHost) GetCommit(ctx context.Context, sha string) (*github.CommitDetail, error) {
	return nil, nil
}

func (failingHost) CompareCommits(ctx context.Context, base, head string) (*github.Comparison, error) {
	return nil, nil
}

func (failingHost) GetContent(ctx context.Context, path string) (*github.Content, error) {
	return nil, nil
}

func mustMarshal(t *testing.T, v any) []byte {
	t.Helper()
	raw, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshaling: %v", err)
	}
	return raw
}
