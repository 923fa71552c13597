// Package pipeline defines the shared message schema of the digest pipeline:
// the work items carried by the queue, the result-bucket key pair that ties a
// run's workers to its synthesizer, and the signed envelope every message
// travels in.
//
// These types cross the service boundary between the scanner and the worker
// processes, so they live outside either service's package.
package pipeline

import "fmt"

// Kind discriminates the work-item union.
type Kind string

const (
	// KindNote summarizes the full body of a newly created document.
	KindNote Kind = "note"
	// KindDiff summarizes the patch of a document that predates the window.
	KindDiff Kind = "diff"
	// KindURL fetches and summarizes an external link.
	KindURL Kind = "url"
	// KindTerminal signals that the enqueue phase is complete. It carries
	// only the bucket keys; the synthesizer reads whatever the buckets hold
	// when it arrives.
	KindTerminal Kind = "terminal"
)

// Document is the full content of a file that first appeared within the scan
// window.
type Document struct {
	Filename string `json:"filename"`
	Body     string `json:"body"`
}

// Diff is the unified patch of a file that existed before the window and was
// modified within it.
type Diff struct {
	Filename string `json:"filename"`
	Patch    string `json:"patch"`
}

// Changes is the scanner's output. A filename appears in at most one of the
// two lists.
type Changes struct {
	Documents []Document
	Diffs     []Diff
}

// BucketKeys names the two per-run result buckets: one for note and diff
// summaries, one for URL summaries. Every work item of a run carries the
// same pair, so workers and the synthesizer agree on where results live.
type BucketKeys struct {
	NotesKey string `json:"notesKey"`
	URLsKey  string `json:"urlsKey"`
}

// NewBucketKeys derives the key pair for one run from the logical queue name
// and the run identifier.
func NewBucketKeys(queue, runID string) BucketKeys {
	return BucketKeys{
		NotesKey: fmt.Sprintf("%s:%s:notes", queue, runID),
		URLsKey:  fmt.Sprintf("%s:%s:urls", queue, runID),
	}
}

// WorkItem is the unit of queue transport. Exactly one of Note, Diff, URL is
// set for unit kinds; Terminal items carry only RunID and Keys.
type WorkItem struct {
	Kind  Kind       `json:"kind"`
	RunID string     `json:"run_id"`
	Keys  BucketKeys `json:"keys"`

	Note *Document `json:"note,omitempty"`
	Diff *Diff     `json:"diff,omitempty"`
	URL  string    `json:"url,omitempty"`
}

// ItemID returns the bucket field the item's result is stored under: the
// filename for notes and diffs, the URL for links.
func (w WorkItem) ItemID() string {
	switch w.Kind {
	case KindNote:
		return w.Note.Filename
	case KindDiff:
		return w.Diff.Filename
	case KindURL:
		return w.URL
	default:
		return ""
	}
}

// NoteResult is a worker's summary of a document or diff, stored JSON-encoded
// in the notes bucket keyed by filename.
type NoteResult struct {
	Title   string `json:"title"`
	Summary string `json:"summary"`
}

// URLResult is a worker's summary of an external link, stored JSON-encoded in
// the URL bucket keyed by the URL itself.
type URLResult struct {
	Title   string `json:"title"`
	Summary string `json:"summary"`
}
