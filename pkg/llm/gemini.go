package llm

import (
	"context"
	"encoding/json"
	"fmt"

	genai "google.golang.org/genai"

	"notedigest/pkg/config"
)

// Gemini is a thin wrapper around the official genai client. It only covers
// the API call itself; retries and timing live at the call sites.
type Gemini struct {
	cli       *genai.Client
	model     string
	maxTokens int
}

// NewGemini creates a Gemini client for the given model. The genai client
// reads GEMINI_API_KEY from the environment when cfg.APIKey is empty.
func NewGemini(ctx context.Context, cfg config.LLMConfig, model string) (*Gemini, error) {
	cc := &genai.ClientConfig{Backend: genai.BackendGeminiAPI}
	if cfg.APIKey != "" {
		cc.APIKey = cfg.APIKey
	}
	cli, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("creating genai client: %w", err)
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 4000
	}
	return &Gemini{cli: cli, model: model, maxTokens: maxTokens}, nil
}

// GenerateJSON concatenates prompt and JSON-serialised input, asks for
// application/json, and returns the model's JSON as a raw message.
func (g *Gemini) GenerateJSON(ctx context.Context, prompt string, input any) (json.RawMessage, error) {
	in, _ := json.MarshalIndent(input, "", "  ")
	full := prompt + "\n\n[INPUT JSON]\n" + string(in)

	resp, err := g.cli.Models.GenerateContent(ctx, g.model,
		[]*genai.Content{{Parts: []*genai.Part{{Text: full}}}},
		&genai.GenerateContentConfig{
			ResponseMIMEType: "application/json",
			MaxOutputTokens:  int32(g.maxTokens),
		},
	)
	if err != nil {
		return nil, err
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return nil, ErrEmptyResponse
	}
	return json.RawMessage(resp.Candidates[0].Content.Parts[0].Text), nil
}

// GenerateText sends the prompt as-is and returns the first candidate's text.
func (g *Gemini) GenerateText(ctx context.Context, prompt string) (string, error) {
	resp, err := g.cli.Models.GenerateContent(ctx, g.model,
		[]*genai.Content{{Parts: []*genai.Part{{Text: prompt}}}},
		&genai.GenerateContentConfig{MaxOutputTokens: int32(g.maxTokens)},
	)
	if err != nil {
		return "", err
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", ErrEmptyResponse
	}
	return resp.Candidates[0].Content.Parts[0].Text, nil
}
