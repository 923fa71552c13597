// Package dispatcher publishes one signed work item per document, diff, and
// retained link to the work queue, followed by exactly one terminal item
// carrying the run's bucket keys. The terminal item is last by enqueue order;
// that ordering says nothing about when unit items finish processing.
package dispatcher

import (
	"context"
	"fmt"
	"log/slog"

	"notedigest/internal/pipeline"
	"notedigest/pkg/kafka"
	"notedigest/pkg/logger"
	"notedigest/pkg/metrics"
)

// Publisher is the queue surface the dispatcher writes to.
type Publisher interface {
	Publish(ctx context.Context, event kafka.Event) error
}

// Dispatcher fans a run's work out to the queue.
type Dispatcher struct {
	pub     Publisher
	secret  string
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// New creates a Dispatcher signing every envelope with the given secret.
// metrics may be nil in tests.
func New(pub Publisher, secret string, m *metrics.Metrics) *Dispatcher {
	return &Dispatcher{
		pub:     pub,
		secret:  secret,
		metrics: m,
		logger:  slog.Default().With("component", "dispatcher"),
	}
}

// Dispatch publishes all notes, then all diffs, then all URLs, then the
// terminal item, every message keyed by the run ID so they share a partition.
// It returns the number of messages published; any publish failure aborts
// the run.
func (d *Dispatcher) Dispatch(ctx context.Context, runID string, keys pipeline.BucketKeys, changes *pipeline.Changes, urls []string) (int, error) {
	log := logger.FromContext(ctx).With("component", "dispatcher")
	published := 0

	publish := func(route string, item pipeline.WorkItem) error {
		env, err := pipeline.Seal(route, item, d.secret)
		if err != nil {
			return err
		}
		if err := d.pub.Publish(ctx, kafka.Event{Key: runID, Value: env}); err != nil {
			return fmt.Errorf("publishing %s item: %w", item.Kind, err)
		}
		published++
		if d.metrics != nil {
			d.metrics.WorkItemsPublished.WithLabelValues(string(item.Kind)).Inc()
		}
		return nil
	}

	for i := range changes.Documents {
		doc := changes.Documents[i]
		item := pipeline.WorkItem{Kind: pipeline.KindNote, RunID: runID, Keys: keys, Note: &doc}
		if err := publish(pipeline.RouteSummarizeNote, item); err != nil {
			return published, err
		}
	}
	for i := range changes.Diffs {
		diff := changes.Diffs[i]
		item := pipeline.WorkItem{Kind: pipeline.KindDiff, RunID: runID, Keys: keys, Diff: &diff}
		if err := publish(pipeline.RouteSummarizeDiff, item); err != nil {
			return published, err
		}
	}
	for _, u := range urls {
		item := pipeline.WorkItem{Kind: pipeline.KindURL, RunID: runID, Keys: keys, URL: u}
		if err := publish(pipeline.RouteSummarizeURL, item); err != nil {
			return published, err
		}
	}

	terminal := pipeline.WorkItem{Kind: pipeline.KindTerminal, RunID: runID, Keys: keys}
	if err := publish(pipeline.RouteDigest, terminal); err != nil {
		return published, err
	}

	log.Info("run dispatched",
		"notes", len(changes.Documents),
		"diffs", len(changes.Diffs),
		"urls", len(urls),
		"messages", published,
	)
	return published, nil
}
