package digest

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"notedigest/internal/pipeline"
)

// Render produces the final Markdown document: the structured digest
// sections, then a Notes section (only when the notes bucket had entries),
// then a Urls section (only when the URL bucket had entries). Bucket entries
// are emitted in sorted key order so the output is byte-identical for fixed
// inputs.
func Render(date time.Time, d *Digest, notes map[string]pipeline.NoteResult, urls map[string]pipeline.URLResult, extension string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Daily Summary for %s\n", date.Format("January 2, 2006"))
	b.WriteString("## Overall Summary\n")
	b.WriteString(d.OverallSummary)
	b.WriteString("\n")
	writeBulletSection(&b, "Interesting Ideas", d.InterestingIdeas)
	writeBulletSection(&b, "Common Themes", d.CommonThemes)
	writeBulletSection(&b, "Questions for Exploration", d.QuestionsForExploration)
	writeBulletSection(&b, "Next Steps", d.NextSteps)

	if len(notes) > 0 {
		b.WriteString("\n---\n\n## Notes\n")
		for _, filename := range sortedKeys(notes) {
			title := strings.TrimSuffix(filename, extension)
			summary := stripSummaryMarkers(notes[filename].Summary)
			fmt.Fprintf(&b, "\n### %s\n%s\n", title, summary)
		}
	}

	if len(urls) > 0 {
		b.WriteString("\n---\n\n## Urls\n")
		for _, url := range sortedKeys(urls) {
			entry := urls[url]
			if entry.Summary != "" {
				fmt.Fprintf(&b, "- [%s](%s): %s\n", entry.Title, url, entry.Summary)
			} else {
				fmt.Fprintf(&b, "- [%s](%s)\n", entry.Title, url)
			}
		}
	}

	return b.String()
}

func writeBulletSection(b *strings.Builder, heading string, items []string) {
	fmt.Fprintf(b, "## %s\n", heading)
	for _, item := range items {
		fmt.Fprintf(b, "- %s\n", item)
	}
}

// stripSummaryMarkers removes literal <summary> wrapper tags some models
// emit around their output.
func stripSummaryMarkers(s string) string {
	s = strings.ReplaceAll(s, "<summary>", "")
	s = strings.ReplaceAll(s, "</summary>", "")
	return strings.TrimSpace(s)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
