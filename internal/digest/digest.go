// Package digest implements the fan-in side of the pipeline: on the
// terminal work item it drains both result buckets, asks the digest service
// for one structured summary of everything collected so far, and renders and
// persists the final Markdown document.
package digest

import (
	"encoding/json"
	"regexp"
	"strings"

	apperrors "notedigest/pkg/errors"
)

// Digest is the structured output expected from the digest service.
type Digest struct {
	OverallSummary          string   `json:"overallSummary"`
	InterestingIdeas        []string `json:"interestingIdeas"`
	CommonThemes            []string `json:"commonThemes"`
	QuestionsForExploration []string `json:"questionsForExploration"`
	NextSteps               []string `json:"nextSteps"`
}

var fencePattern = regexp.MustCompile("(?s)```(?:json)?\\s*(\\{.*?\\})\\s*```")

// Parse decodes the digest service's free-text response into a Digest. The
// direct decode is tried first; on failure a structured-extraction pass
// looks for an embedded JSON object in the raw text. Both failing fails the
// run, nothing is rendered from a partial digest.
func Parse(raw string) (*Digest, error) {
	if d, err := decode([]byte(raw)); err == nil {
		return d, nil
	}
	for _, candidate := range extractCandidates(raw) {
		if d, err := decode([]byte(candidate)); err == nil {
			return d, nil
		}
	}
	return nil, apperrors.New(apperrors.ErrBadModelOutput, 500, "digest response matched no known shape")
}

// decode unmarshals and validates the Digest shape. Every key must be
// present; pointer fields distinguish a missing key from an empty value.
func decode(raw []byte) (*Digest, error) {
	var shape struct {
		OverallSummary          *string   `json:"overallSummary"`
		InterestingIdeas        *[]string `json:"interestingIdeas"`
		CommonThemes            *[]string `json:"commonThemes"`
		QuestionsForExploration *[]string `json:"questionsForExploration"`
		NextSteps               *[]string `json:"nextSteps"`
	}
	if err := json.Unmarshal(raw, &shape); err != nil {
		return nil, err
	}
	if shape.OverallSummary == nil || shape.InterestingIdeas == nil || shape.CommonThemes == nil ||
		shape.QuestionsForExploration == nil || shape.NextSteps == nil {
		return nil, apperrors.New(apperrors.ErrBadModelOutput, 500, "digest response missing required keys")
	}
	return &Digest{
		OverallSummary:          *shape.OverallSummary,
		InterestingIdeas:        *shape.InterestingIdeas,
		CommonThemes:            *shape.CommonThemes,
		QuestionsForExploration: *shape.QuestionsForExploration,
		NextSteps:               *shape.NextSteps,
	}, nil
}

// extractCandidates returns embedded JSON object candidates from free text:
// fenced code blocks first, then the outermost brace span.
func extractCandidates(raw string) []string {
	var candidates []string
	for _, m := range fencePattern.FindAllStringSubmatch(raw, -1) {
		candidates = append(candidates, m[1])
	}
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start >= 0 && end > start {
		candidates = append(candidates, raw[start:end+1])
	}
	return candidates
}
