package pipeline

import (
	"errors"
	"testing"

	apperrors "notedigest/pkg/errors"
)

func TestSealVerifyRoundTrip(t *testing.T) {
	item := WorkItem{
		Kind:  KindNote,
		RunID: "run-1",
		Keys:  NewBucketKeys("daily-note-queue", "run-1"),
		Note:  &Document{Filename: "ideas.md", Body: "some body"},
	}

	env, err := Seal(RouteSummarizeNote, item, "secret")
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}
	if err := env.Verify("secret"); err != nil {
		t.Fatalf("Verify: %v", err)
	}
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	env, err := Seal(RouteDigest, WorkItem{Kind: KindTerminal, RunID: "run-1"}, "secret")
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}
	err = env.Verify("other-secret")
	if !errors.Is(err, apperrors.ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature, got %v", err)
	}
}

func TestVerifyRejectsTamperedPayload(t *testing.T) {
	env, err := Seal(RouteSummarizeURL, WorkItem{Kind: KindURL, RunID: "run-1", URL: "https://example.com"}, "secret")
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}
	env.Payload = []byte(`{"kind":"url","run_id":"run-1","url":"https://evil.example"}`)
	if err := env.Verify("secret"); !errors.Is(err, apperrors.ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature, got %v", err)
	}
}

func TestVerifyRejectsRerouting(t *testing.T) {
	env, err := Seal(RouteSummarizeNote, WorkItem{Kind: KindNote, RunID: "run-1"}, "secret")
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}
	// The route is part of the signed bytes, so redirecting a message to a
	// different handler invalidates it.
	env.Route = RouteDigest
	if err := env.Verify("secret"); !errors.Is(err, apperrors.ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature, got %v", err)
	}
}

func TestNewBucketKeys(t *testing.T) {
	keys := NewBucketKeys("daily-note-queue", "abc-123")
	if keys.NotesKey != "daily-note-queue:abc-123:notes" {
		t.Errorf("NotesKey = %q", keys.NotesKey)
	}
	if keys.URLsKey != "daily-note-queue:abc-123:urls" {
		t.Errorf("URLsKey = %q", keys.URLsKey)
	}
}

func TestWorkItemItemID(t *testing.T) {
	tests := []struct {
		name string
		item WorkItem
		want string
	}{
		{"note", WorkItem{Kind: KindNote, Note: &Document{Filename: "a.md"}}, "a.md"},
		{"diff", WorkItem{Kind: KindDiff, Diff: &Diff{Filename: "b.md"}}, "b.md"},
		{"url", WorkItem{Kind: KindURL, URL: "https://example.com/post"}, "https://example.com/post"},
		{"terminal", WorkItem{Kind: KindTerminal}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.item.ItemID(); got != tt.want {
				t.Errorf("ItemID() = %q, want %q", got, tt.want)
			}
		})
	}
}
