package dispatcher

import (
	"context"
	"errors"
	"testing"

	"notedigest/internal/pipeline"
	"notedigest/pkg/kafka"
)

// fakePublisher records published events, optionally failing after a number
// of successful publishes.
type fakePublisher struct {
	events    []kafka.Event
	failAfter int
}

func (f *fakePublisher) Publish(ctx context.Context, event kafka.Event) error {
	if f.failAfter > 0 && len(f.events) >= f.failAfter {
		return errors.New("broker unavailable")
	}
	f.events = append(f.events, event)
	return nil
}

func (f *fakePublisher) envelopes(t *testing.T) []pipeline.Envelope {
	t.Helper()
	envs := make([]pipeline.Envelope, len(f.events))
	for i, ev := range f.events {
		env, ok := ev.Value.(pipeline.Envelope)
		if !ok {
			t.Fatalf("event %d value is %T, want Envelope", i, ev.Value)
		}
		envs[i] = env
	}
	return envs
}

func testChanges() *pipeline.Changes {
	return &pipeline.Changes{
		Documents: []pipeline.Document{{Filename: "a.md", Body: "body a"}},
		Diffs:     []pipeline.Diff{{Filename: "b.md", Patch: "patch b"}},
	}
}

func TestDispatchPublishesUnitsThenTerminal(t *testing.T) {
	pub := &fakePublisher{}
	d := New(pub, "secret", nil)
	keys := pipeline.NewBucketKeys("q", "run-1")

	urls := []string{"https://example.com/post"}
	published, err := d.Dispatch(context.Background(), "run-1", keys, testChanges(), urls)
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if published != 4 {
		t.Fatalf("published = %d, want 4 (3 units + terminal)", published)
	}

	envs := pub.envelopes(t)
	last := envs[len(envs)-1]
	if last.Route != pipeline.RouteDigest {
		t.Errorf("last route = %q, want %q", last.Route, pipeline.RouteDigest)
	}
	for i, env := range envs[:len(envs)-1] {
		if env.Route == pipeline.RouteDigest {
			t.Errorf("terminal item published at position %d, want last", i)
		}
	}
}

func TestDispatchKeysEveryMessageByRunID(t *testing.T) {
	pub := &fakePublisher{}
	d := New(pub, "secret", nil)
	keys := pipeline.NewBucketKeys("q", "run-7")

	if _, err := d.Dispatch(context.Background(), "run-7", keys, testChanges(), nil); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	for i, ev := range pub.events {
		if ev.Key != "run-7" {
			t.Errorf("event %d key = %q, want run-7", i, ev.Key)
		}
	}
}

func TestDispatchSealsVerifiableEnvelopes(t *testing.T) {
	pub := &fakePublisher{}
	d := New(pub, "signing-key", nil)
	keys := pipeline.NewBucketKeys("q", "run-1")

	if _, err := d.Dispatch(context.Background(), "run-1", keys, testChanges(), []string{"https://example.com"}); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	for i, env := range pub.envelopes(t) {
		if err := env.Verify("signing-key"); err != nil {
			t.Errorf("envelope %d failed verification: %v", i, err)
		}
	}
}

func TestDispatchEveryItemCarriesSharedKeys(t *testing.T) {
	pub := &fakePublisher{}
	d := New(pub, "secret", nil)
	keys := pipeline.NewBucketKeys("q", "run-1")

	if _, err := d.Dispatch(context.Background(), "run-1", keys, testChanges(), []string{"https://example.com"}); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	for i, env := range pub.envelopes(t) {
		item, err := kafka.DecodeJSON[pipeline.WorkItem](env.Payload)
		if err != nil {
			t.Fatalf("decoding item %d: %v", i, err)
		}
		if item.Keys != keys {
			t.Errorf("item %d keys = %+v, want %+v", i, item.Keys, keys)
		}
		if item.RunID != "run-1" {
			t.Errorf("item %d run id = %q", i, item.RunID)
		}
	}
}

func TestDispatchAbortsOnPublishFailure(t *testing.T) {
	pub := &fakePublisher{failAfter: 1}
	d := New(pub, "secret", nil)
	keys := pipeline.NewBucketKeys("q", "run-1")

	published, err := d.Dispatch(context.Background(), "run-1", keys, testChanges(), nil)
	if err == nil {
		t.Fatal("expected error after publish failure")
	}
	if published != 1 {
		t.Errorf("published = %d, want 1", published)
	}
	// The terminal item must never be published for an aborted run.
	for _, env := range pub.envelopes(t) {
		if env.Route == pipeline.RouteDigest {
			t.Error("terminal item published despite aborted fan-out")
		}
	}
}
