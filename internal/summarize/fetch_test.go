package summarize

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestFetchExtractsTitleAndText(t *testing.T) {
	page := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html>
<head><title> A Long Read </title><script>var tracked = true;</script></head>
<body><h1>A Long Read</h1><p>First paragraph.</p><style>p { color: red }</style></body>
</html>`)
	}))
	defer page.Close()

	f := NewPageFetcher(time.Second)
	title, text, err := f.Fetch(context.Background(), page.URL)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if title != "A Long Read" {
		t.Errorf("title = %q", title)
	}
	if !strings.Contains(text, "First paragraph.") {
		t.Errorf("text missing body content: %q", text)
	}
	if strings.Contains(text, "tracked") || strings.Contains(text, "color") {
		t.Errorf("script/style leaked into text: %q", text)
	}
	if strings.Contains(text, "<") {
		t.Errorf("markup leaked into text: %q", text)
	}
}

func TestFetchTitleFallsBackToURL(t *testing.T) {
	page := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `plain text, no markup at all`)
	}))
	defer page.Close()

	f := NewPageFetcher(time.Second)
	title, _, err := f.Fetch(context.Background(), page.URL)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if title != page.URL {
		t.Errorf("title = %q, want the url", title)
	}
}

func TestFetchNonSuccessStatusFails(t *testing.T) {
	page := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer page.Close()

	f := NewPageFetcher(time.Second)
	if _, _, err := f.Fetch(context.Background(), page.URL); err == nil {
		t.Fatal("expected error for 404 page")
	}
}
