// Package llm wraps the language-model completion service behind a small
// interface so pipeline stages can be tested against fakes. The production
// implementation is backed by the official genai client.
package llm

import (
	"context"
	"encoding/json"
	"errors"
)

// ErrEmptyResponse is returned when the model produced no usable candidate.
var ErrEmptyResponse = errors.New("llm: empty model response")

// Client is the completion surface the pipeline depends on. GenerateJSON
// asks for an application/json response and returns the raw bytes;
// GenerateText returns free text (the digest service contract).
type Client interface {
	GenerateJSON(ctx context.Context, prompt string, input any) (json.RawMessage, error)
	GenerateText(ctx context.Context, prompt string) (string, error)
}
