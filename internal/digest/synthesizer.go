package digest

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"path"
	"time"

	"golang.org/x/sync/singleflight"

	"notedigest/internal/pipeline"
	"notedigest/internal/runlog"
	"notedigest/pkg/config"
	"notedigest/pkg/llm"
	"notedigest/pkg/logger"
	"notedigest/pkg/metrics"
	"notedigest/pkg/resilience"
)

// Store is the bucket-read surface the synthesizer needs.
type Store interface {
	HGetAll(ctx context.Context, key string) (map[string]string, error)
}

// Writer persists the rendered document.
type Writer interface {
	CreateOrUpdateFile(ctx context.Context, path, message, body string) error
}

// Synthesizer handles the terminal work item: it reads whatever both buckets
// hold at trigger time (late workers simply miss the digest), generates the
// structured digest, renders the document, and writes it out. Re-invocation
// with the same buckets produces equivalent output and never mutates them.
type Synthesizer struct {
	store      Store
	llm        llm.Client
	writer     Writer
	runs       *runlog.Store
	cfg        config.DigestConfig
	production bool
	metrics    *metrics.Metrics
	logger     *slog.Logger
	now        func() time.Time

	// group collapses concurrently redelivered terminal items for the same
	// run into one synthesis.
	group singleflight.Group
}

// New creates a Synthesizer. metrics may be nil in tests.
func New(store Store, client llm.Client, writer Writer, runs *runlog.Store, cfg config.DigestConfig, production bool, m *metrics.Metrics) *Synthesizer {
	return &Synthesizer{
		store:      store,
		llm:        client,
		writer:     writer,
		runs:       runs,
		cfg:        cfg,
		production: production,
		metrics:    m,
		logger:     slog.Default().With("component", "synthesizer"),
		now:        time.Now,
	}
}

// HandleTerminal runs the fan-in synthesis for the run named by the item's
// bucket keys.
func (s *Synthesizer) HandleTerminal(ctx context.Context, item pipeline.WorkItem) error {
	_, err, _ := s.group.Do(item.Keys.NotesKey, func() (any, error) {
		return nil, s.synthesize(ctx, item)
	})

	log := logger.FromContext(ctx)
	if err != nil {
		log.Error("digest run failed", "error", err)
		if dbErr := s.runs.MarkFailed(ctx, item.RunID, err.Error()); dbErr != nil {
			log.Error("failed to record run failure", "error", dbErr)
		}
		s.countRun("failed")
		return err
	}
	if dbErr := s.runs.MarkCompleted(ctx, item.RunID); dbErr != nil {
		log.Error("failed to record run completion", "error", dbErr)
	}
	s.countRun("completed")
	return nil
}

func (s *Synthesizer) synthesize(ctx context.Context, item pipeline.WorkItem) error {
	return resilience.WithTimeout(ctx, s.cfg.RunTimeout, "digest run", func(ctx context.Context) error {
		log := logger.FromContext(ctx).With("component", "synthesizer")

		notes, err := s.readNotes(ctx, item.Keys.NotesKey)
		if err != nil {
			return err
		}
		urls, err := s.readURLs(ctx, item.Keys.URLsKey)
		if err != nil {
			return err
		}
		log.Info("buckets read", "notes", len(notes), "urls", len(urls))
		if s.metrics != nil {
			s.metrics.BucketEntriesRead.WithLabelValues("notes").Observe(float64(len(notes)))
			s.metrics.BucketEntriesRead.WithLabelValues("urls").Observe(float64(len(urls)))
		}

		prompt := digestPrompt(notesProjection(notes), urlsProjection(urls))
		var raw string
		err = resilience.Retry(ctx, "digest generation", resilience.RetryConfig{MaxAttempts: 2}, func() error {
			var genErr error
			raw, genErr = s.llm.GenerateText(ctx, prompt)
			return genErr
		})
		if err != nil {
			return fmt.Errorf("generating digest: %w", err)
		}

		parsed, err := Parse(raw)
		if err != nil {
			return err
		}

		date := s.now()
		body := Render(date, parsed, notes, urls, s.cfg.Extension)
		filename := s.filename(date)
		target := path.Join(s.cfg.Folder, filename)
		// The write is an upsert keyed by date, safe to retry.
		err = resilience.Retry(ctx, "digest persist", resilience.RetryConfig{MaxAttempts: 3}, func() error {
			return s.writer.CreateOrUpdateFile(ctx, target, "Add "+filename, body)
		})
		if err != nil {
			return fmt.Errorf("persisting digest: %w", err)
		}

		log.Info("digest persisted", "path", target, "notes", len(notes), "urls", len(urls))
		return nil
	})
}

// filename builds "<prefix> YYYY-MM-DD[-DEV].md". The suffix keeps
// non-production runs from colliding with the real daily document.
func (s *Synthesizer) filename(date time.Time) string {
	suffix := ""
	if !s.production {
		suffix = "-DEV"
	}
	return fmt.Sprintf("%s %s%s%s", s.cfg.SummaryName, date.Format("2006-01-02"), suffix, s.cfg.Extension)
}

// readNotes decodes the notes bucket. Entries that fail to decode are
// logged and skipped, one bad entry must not sink the whole digest.
func (s *Synthesizer) readNotes(ctx context.Context, key string) (map[string]pipeline.NoteResult, error) {
	entries, err := s.store.HGetAll(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("reading notes bucket: %w", err)
	}
	notes := make(map[string]pipeline.NoteResult, len(entries))
	for field, value := range entries {
		var result pipeline.NoteResult
		if err := json.Unmarshal([]byte(value), &result); err != nil {
			s.logger.Error("malformed notes bucket entry, skipping", "field", field, "error", err)
			continue
		}
		notes[field] = result
	}
	return notes, nil
}

func (s *Synthesizer) readURLs(ctx context.Context, key string) (map[string]pipeline.URLResult, error) {
	entries, err := s.store.HGetAll(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("reading urls bucket: %w", err)
	}
	urls := make(map[string]pipeline.URLResult, len(entries))
	for field, value := range entries {
		var result pipeline.URLResult
		if err := json.Unmarshal([]byte(value), &result); err != nil {
			s.logger.Error("malformed urls bucket entry, skipping", "field", field, "error", err)
			continue
		}
		urls[field] = result
	}
	return urls, nil
}

// notesProjection orders note summaries by filename for the prompt.
func notesProjection(notes map[string]pipeline.NoteResult) []pipeline.NoteResult {
	projection := make([]pipeline.NoteResult, 0, len(notes))
	for _, filename := range sortedKeys(notes) {
		projection = append(projection, pipeline.NoteResult{
			Title:   filename,
			Summary: notes[filename].Summary,
		})
	}
	return projection
}

// urlsProjection flattens URL summaries into title plus "url: summary" lines
// for the prompt.
func urlsProjection(urls map[string]pipeline.URLResult) []pipeline.NoteResult {
	projection := make([]pipeline.NoteResult, 0, len(urls))
	for _, url := range sortedKeys(urls) {
		entry := urls[url]
		projection = append(projection, pipeline.NoteResult{
			Title:   entry.Title,
			Summary: fmt.Sprintf("%s: %s", url, entry.Summary),
		})
	}
	return projection
}

func (s *Synthesizer) countRun(status string) {
	if s.metrics != nil {
		s.metrics.DigestRunsTotal.WithLabelValues(status).Inc()
	}
}
