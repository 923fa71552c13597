package links

import (
	"reflect"
	"testing"

	"notedigest/internal/pipeline"
)

func TestExtractFromDocumentsAndDiffs(t *testing.T) {
	changes := &pipeline.Changes{
		Documents: []pipeline.Document{
			{Filename: "a.md", Body: "Read https://example.com/post today.\nAlso http://other.test/x"},
		},
		Diffs: []pipeline.Diff{
			{Filename: "b.md", Patch: "+ added https://example.com/second"},
		},
	}

	got := Extract(changes)
	want := []string{
		"https://example.com/post",
		"http://other.test/x",
		"https://example.com/second",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Extract() = %v, want %v", got, want)
	}
}

func TestExtractTrimsSentencePunctuation(t *testing.T) {
	changes := &pipeline.Changes{
		Documents: []pipeline.Document{
			{Body: "see https://example.com/a, then https://example.com/b."},
		},
	}
	got := Extract(changes)
	want := []string{"https://example.com/a", "https://example.com/b"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Extract() = %v, want %v", got, want)
	}
}

func TestExtractStopsAtMarkdownDelimiters(t *testing.T) {
	changes := &pipeline.Changes{
		Documents: []pipeline.Document{
			{Body: "[link](https://example.com/linked) and <https://example.com/angled>"},
		},
	}
	got := Extract(changes)
	want := []string{"https://example.com/linked", "https://example.com/angled"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Extract() = %v, want %v", got, want)
	}
}

func TestExtractKeepsDuplicates(t *testing.T) {
	changes := &pipeline.Changes{
		Documents: []pipeline.Document{
			{Body: "https://example.com/x"},
			{Body: "https://example.com/x"},
		},
	}
	if got := Extract(changes); len(got) != 2 {
		t.Errorf("Extract() kept %d urls, want 2", len(got))
	}
}

func TestExtractEmptyChanges(t *testing.T) {
	if got := Extract(&pipeline.Changes{}); len(got) != 0 {
		t.Errorf("Extract() = %v, want empty", got)
	}
}
