package summarize

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"notedigest/internal/pipeline"
)

type fakeTerminal struct {
	calls int
	last  pipeline.WorkItem
	err   error
}

func (f *fakeTerminal) HandleTerminal(ctx context.Context, item pipeline.WorkItem) error {
	f.calls++
	f.last = item
	return f.err
}

func sealedMessage(t *testing.T, route string, item pipeline.WorkItem, secret string) []byte {
	t.Helper()
	env, err := pipeline.Seal(route, item, secret)
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}
	raw, err := json.Marshal(env)
	if err != nil {
		t.Fatalf("marshaling envelope: %v", err)
	}
	return raw
}

func TestHandlerRoutesNoteToWorker(t *testing.T) {
	store := newFakeStore()
	worker := NewWorker(&fakeLLM{summary: "s"}, store, NewPageFetcher(time.Second), nil)
	handler := NewHandler(worker, &fakeTerminal{}, "secret", nil)

	item := testItem(pipeline.KindNote)
	msg := sealedMessage(t, pipeline.RouteSummarizeNote, item, "secret")
	if err := handler(context.Background(), []byte("run-1"), msg); err != nil {
		t.Fatalf("handler: %v", err)
	}
	if len(store.entries) != 1 {
		t.Errorf("store entries = %v, want one summary", store.entries)
	}
}

func TestHandlerRoutesTerminalToSynthesizer(t *testing.T) {
	worker := NewWorker(&fakeLLM{summary: "s"}, newFakeStore(), NewPageFetcher(time.Second), nil)
	terminal := &fakeTerminal{}
	handler := NewHandler(worker, terminal, "secret", nil)

	item := testItem(pipeline.KindTerminal)
	msg := sealedMessage(t, pipeline.RouteDigest, item, "secret")
	if err := handler(context.Background(), []byte("run-1"), msg); err != nil {
		t.Fatalf("handler: %v", err)
	}
	if terminal.calls != 1 {
		t.Fatalf("terminal calls = %d, want 1", terminal.calls)
	}
	if terminal.last.Keys != item.Keys {
		t.Errorf("terminal item keys = %+v, want %+v", terminal.last.Keys, item.Keys)
	}
}

func TestHandlerDropsBadSignature(t *testing.T) {
	store := newFakeStore()
	worker := NewWorker(&fakeLLM{summary: "s"}, store, NewPageFetcher(time.Second), nil)
	terminal := &fakeTerminal{}
	handler := NewHandler(worker, terminal, "secret", nil)

	msg := sealedMessage(t, pipeline.RouteSummarizeNote, testItem(pipeline.KindNote), "wrong-secret")
	// Dropped, not redelivered: a forged message can never become valid.
	if err := handler(context.Background(), []byte("run-1"), msg); err != nil {
		t.Fatalf("handler returned %v, want nil (drop)", err)
	}
	if len(store.entries) != 0 {
		t.Errorf("forged message was processed: %v", store.entries)
	}
	if terminal.calls != 0 {
		t.Error("forged message reached the terminal handler")
	}
}

func TestHandlerDropsUndecodableMessage(t *testing.T) {
	worker := NewWorker(&fakeLLM{summary: "s"}, newFakeStore(), NewPageFetcher(time.Second), nil)
	handler := NewHandler(worker, &fakeTerminal{}, "secret", nil)

	if err := handler(context.Background(), nil, []byte("not json")); err != nil {
		t.Fatalf("handler returned %v, want nil (drop)", err)
	}
}

func TestHandlerDropsUnknownRoute(t *testing.T) {
	worker := NewWorker(&fakeLLM{summary: "s"}, newFakeStore(), NewPageFetcher(time.Second), nil)
	handler := NewHandler(worker, &fakeTerminal{}, "secret", nil)

	msg := sealedMessage(t, "notes/unknown", testItem(pipeline.KindNote), "secret")
	if err := handler(context.Background(), nil, msg); err != nil {
		t.Fatalf("handler returned %v, want nil (drop)", err)
	}
}

func TestHandlerReturnsProcessingErrorForRedelivery(t *testing.T) {
	store := newFakeStore()
	store.err = errors.New("redis down")
	worker := NewWorker(&fakeLLM{summary: "s"}, store, NewPageFetcher(time.Second), nil)
	handler := NewHandler(worker, &fakeTerminal{}, "secret", nil)

	msg := sealedMessage(t, pipeline.RouteSummarizeNote, testItem(pipeline.KindNote), "secret")
	if err := handler(context.Background(), nil, msg); err == nil {
		t.Fatal("expected processing error to propagate for redelivery")
	}
}
