// Package links extracts candidate URLs from changed content and filters
// them through the classification service, keeping only links judged
// contentful.
package links

import (
	"regexp"
	"strings"

	"notedigest/internal/pipeline"
)

// urlPattern matches scheme://host/path URL tokens. Trailing sentence
// punctuation is trimmed afterwards since the pattern is greedy.
var urlPattern = regexp.MustCompile(`https?://[^\s<>"'\x60\)\]]+`)

// Extract returns every URL token found in the document bodies and diff
// patches, in input order. Duplicates are allowed at this stage; the
// classifier sees the flat list.
func Extract(changes *pipeline.Changes) []string {
	var urls []string
	for _, doc := range changes.Documents {
		urls = append(urls, extractFrom(doc.Body)...)
	}
	for _, diff := range changes.Diffs {
		urls = append(urls, extractFrom(diff.Patch)...)
	}
	return urls
}

func extractFrom(text string) []string {
	matches := urlPattern.FindAllString(text, -1)
	for i, m := range matches {
		matches[i] = strings.TrimRight(m, ".,;:!?")
	}
	return matches
}
