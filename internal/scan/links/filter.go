package links

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	apperrors "notedigest/pkg/errors"
	"notedigest/pkg/llm"
)

const classifierPrompt = `You will be given an array of URLs. Your job is to return the urls that represent valuable content, not the ones that are generic (like google.com, yahoo.com, nytimes.com, cnn.com, etc.), redirects, generic, shortened, and otherwise not useful. Return urls in this JSON format: {"usefulUrls": string[]}`

// Filter submits candidate URLs to the classification service and keeps the
// ones it returns.
type Filter struct {
	llm    llm.Client
	logger *slog.Logger
}

// NewFilter creates a Filter backed by the given completion client.
func NewFilter(client llm.Client) *Filter {
	return &Filter{
		llm:    client,
		logger: slog.Default().With("component", "link-filter"),
	}
}

// Filter returns the classifier's usefulUrls list, in the order the
// classifier returned it. An empty input skips the service call. A response
// that does not match the expected shape fails the run.
func (f *Filter) Filter(ctx context.Context, urls []string) ([]string, error) {
	if len(urls) == 0 {
		return nil, nil
	}

	raw, err := f.llm.GenerateJSON(ctx, classifierPrompt, urls)
	if err != nil {
		return nil, fmt.Errorf("%w: classifying urls: %w", apperrors.ErrStageFailed, err)
	}

	// The usefulUrls key must be present; a pointer slice distinguishes a
	// missing key from an empty list.
	var resp struct {
		UsefulUrls *[]string `json:"usefulUrls"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, apperrors.Newf(apperrors.ErrBadModelOutput, 500, "classifier response is not JSON: %v", err)
	}
	if resp.UsefulUrls == nil {
		return nil, apperrors.New(apperrors.ErrBadModelOutput, 500, "classifier response missing usefulUrls")
	}

	f.logger.Info("links filtered", "candidates", len(urls), "retained", len(*resp.UsefulUrls))
	return *resp.UsefulUrls, nil
}
