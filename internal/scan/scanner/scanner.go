// Package scanner discovers repository content changed within the trailing
// scan window and classifies each changed file as a whole document (no
// version predates the window) or a diff (the file existed before). Pure
// read-only discovery; nothing is published from here.
package scanner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"notedigest/internal/pipeline"
	"notedigest/pkg/config"
	apperrors "notedigest/pkg/errors"
	"notedigest/pkg/github"
	"notedigest/pkg/logger"
)

// Host is the repository-host surface the scanner reads from.
type Host interface {
	ListCommitsSince(ctx context.Context, since time.Time) ([]github.Commit, error)
	ListCommitsForPath(ctx context.Context, path string) ([]github.Commit, error)
	GetCommit(ctx context.Context, sha string) (*github.CommitDetail, error)
	CompareCommits(ctx context.Context, base, head string) (*github.Comparison, error)
	GetContent(ctx context.Context, path string) (*github.Content, error)
}

// Scanner queries the repository host for recent changes.
type Scanner struct {
	host   Host
	cfg    config.DigestConfig
	logger *slog.Logger
	now    func() time.Time
}

// New creates a Scanner for the configured window and exclusion terms.
func New(host Host, cfg config.DigestConfig) *Scanner {
	return &Scanner{
		host:   host,
		cfg:    cfg,
		logger: slog.Default().With("component", "scanner"),
		now:    time.Now,
	}
}

// Scan lists commits in the window, resolves the deduplicated set of changed
// tracked files, and classifies each into a document or a diff. Per-file
// failures are logged and skipped; only the initial commit listing is fatal.
func (s *Scanner) Scan(ctx context.Context) (*pipeline.Changes, error) {
	windowStart := s.now().Add(-s.cfg.Window)
	log := logger.FromContext(ctx).With("component", "scanner")

	commits, err := s.host.ListCommitsSince(ctx, windowStart)
	if err != nil {
		return nil, fmt.Errorf("%w: listing recent commits: %w", apperrors.ErrStageFailed, err)
	}

	changed := make(map[string]struct{})
	for _, commit := range commits {
		detail, err := s.host.GetCommit(ctx, commit.SHA)
		if err != nil {
			log.Error("failed to fetch commit detail, skipping", "sha", commit.SHA, "error", err)
			continue
		}
		for _, file := range detail.Files {
			if s.tracked(file.Filename) {
				changed[file.Filename] = struct{}{}
			}
		}
	}

	filenames := make([]string, 0, len(changed))
	for name := range changed {
		filenames = append(filenames, name)
	}
	sort.Strings(filenames)

	changes := &pipeline.Changes{}
	for _, name := range filenames {
		if err := s.classify(ctx, name, windowStart, changes); err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				log.Info("file not found, possibly deleted", "filename", name)
			} else {
				log.Error("failed to classify file, skipping", "filename", name, "error", err)
			}
		}
	}

	log.Info("scan complete",
		"window_start", windowStart.UTC().Format(time.RFC3339),
		"documents", len(changes.Documents),
		"diffs", len(changes.Diffs),
	)
	return changes, nil
}

// tracked reports whether a filename carries the content extension and hits
// no exclusion term.
func (s *Scanner) tracked(filename string) bool {
	if !strings.HasSuffix(filename, s.cfg.Extension) {
		return false
	}
	for _, term := range s.cfg.ExclusionTerms() {
		if strings.Contains(filename, term) {
			return false
		}
	}
	return true
}

// classify appends the file to exactly one of the two change lists, or to
// neither when it must be skipped (deleted, non-regular, patchless).
//
// The decision inspects only the single earliest commit touching the path:
// a file deleted and re-added under the same name before the window is
// treated as new even though older history exists. This mirrors the source
// behavior on purpose.
func (s *Scanner) classify(ctx context.Context, filename string, windowStart time.Time, changes *pipeline.Changes) error {
	history, err := s.host.ListCommitsForPath(ctx, filename)
	if err != nil {
		return fmt.Errorf("listing history: %w", err)
	}
	if len(history) == 0 {
		return nil
	}

	earliest := history[0].Commit.Committer.Date
	for _, commit := range history[1:] {
		if commit.Commit.Committer.Date.Before(earliest) {
			earliest = commit.Commit.Committer.Date
		}
	}

	// Earliest commit exactly at the window boundary counts as new.
	if !earliest.Before(windowStart) {
		return s.appendDocument(ctx, filename, changes)
	}
	return s.appendDiff(ctx, filename, history[0].SHA, changes)
}

func (s *Scanner) appendDocument(ctx context.Context, filename string, changes *pipeline.Changes) error {
	content, err := s.host.GetContent(ctx, filename)
	if err != nil {
		return err
	}
	switch content.Type {
	case "file":
		body, err := content.Decode()
		if err != nil {
			return err
		}
		changes.Documents = append(changes.Documents, pipeline.Document{Filename: filename, Body: body})
	case "symlink", "submodule":
		s.logger.Info("non-regular file, skipping", "filename", filename, "type", content.Type)
	default:
		s.logger.Warn("unexpected content type, skipping", "filename", filename, "type", content.Type)
	}
	return nil
}

func (s *Scanner) appendDiff(ctx context.Context, filename, latest string, changes *pipeline.Changes) error {
	cmp, err := s.host.CompareCommits(ctx, latest+"~1", latest)
	if err != nil {
		return err
	}
	for _, file := range cmp.Files {
		if file.Filename == filename && file.Patch != "" {
			changes.Diffs = append(changes.Diffs, pipeline.Diff{Filename: filename, Patch: file.Patch})
			return nil
		}
	}
	// Binary or rename-only change: nothing to summarize.
	s.logger.Info("no patch for changed file, skipping", "filename", filename)
	return nil
}
