// Package summarize implements the worker side of the fan-out: each work
// item produces one normalized text summary written into the run's result
// bucket, keyed by filename or URL. Workers only ever write their own entry,
// which keeps concurrent writes commutative.
package summarize

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"notedigest/internal/pipeline"
	"notedigest/pkg/llm"
	"notedigest/pkg/logger"
	"notedigest/pkg/metrics"
	"notedigest/pkg/resilience"
)

// Store is the bucket-write surface workers need.
type Store interface {
	HSet(ctx context.Context, key, field, value string) error
}

// Worker produces summaries for individual work items.
type Worker struct {
	llm     llm.Client
	store   Store
	pages   *PageFetcher
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewWorker creates a Worker. metrics may be nil in tests.
func NewWorker(client llm.Client, store Store, pages *PageFetcher, m *metrics.Metrics) *Worker {
	return &Worker{
		llm:     client,
		store:   store,
		pages:   pages,
		metrics: m,
		logger:  slog.Default().With("component", "summarize-worker"),
	}
}

// SummarizeNote summarizes a full document body into the notes bucket.
func (w *Worker) SummarizeNote(ctx context.Context, item pipeline.WorkItem) error {
	summary, err := w.generate(ctx, notePrompt(item.Note.Filename, item.Note.Body))
	if err != nil {
		return fmt.Errorf("summarizing note %s: %w", item.Note.Filename, err)
	}
	result := pipeline.NoteResult{Title: item.Note.Filename, Summary: summary}
	return w.write(ctx, item.Keys.NotesKey, item.Note.Filename, result, "note")
}

// SummarizeDiff summarizes a unified patch into the notes bucket.
func (w *Worker) SummarizeDiff(ctx context.Context, item pipeline.WorkItem) error {
	summary, err := w.generate(ctx, diffPrompt(item.Diff.Patch))
	if err != nil {
		return fmt.Errorf("summarizing diff %s: %w", item.Diff.Filename, err)
	}
	result := pipeline.NoteResult{Title: item.Diff.Filename, Summary: summary}
	return w.write(ctx, item.Keys.NotesKey, item.Diff.Filename, result, "diff")
}

// SummarizeURL fetches the link target and summarizes it into the URL
// bucket. An unreachable page is an item failure, the message is redelivered
// rather than poisoning the run.
func (w *Worker) SummarizeURL(ctx context.Context, item pipeline.WorkItem) error {
	title, text, err := w.pages.Fetch(ctx, item.URL)
	if err != nil {
		return err
	}
	summary, err := w.generate(ctx, urlPrompt(item.URL, title, text))
	if err != nil {
		return fmt.Errorf("summarizing url %s: %w", item.URL, err)
	}
	result := pipeline.URLResult{Title: title, Summary: summary}
	return w.write(ctx, item.Keys.URLsKey, item.URL, result, "url")
}

func (w *Worker) generate(ctx context.Context, prompt string) (string, error) {
	var summary string
	err := resilience.Retry(ctx, "summarize", resilience.RetryConfig{MaxAttempts: 3}, func() error {
		var genErr error
		summary, genErr = w.llm.GenerateText(ctx, prompt)
		return genErr
	})
	return summary, err
}

func (w *Worker) write(ctx context.Context, bucket, field string, result any, kind string) error {
	value, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshaling %s result: %w", kind, err)
	}
	if err := w.store.HSet(ctx, bucket, field, string(value)); err != nil {
		return err
	}
	if w.metrics != nil {
		w.metrics.SummariesWritten.WithLabelValues(kind).Inc()
	}
	logger.FromContext(ctx).Info("summary written", "kind", kind, "bucket", bucket, "item", field)
	return nil
}
