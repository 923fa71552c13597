package links

import (
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"testing"

	apperrors "notedigest/pkg/errors"
)

// fakeLLM returns a canned JSON response and records the input it was given.
type fakeLLM struct {
	response string
	err      error
	gotInput any
}

func (f *fakeLLM) GenerateJSON(ctx context.Context, prompt string, input any) (json.RawMessage, error) {
	f.gotInput = input
	if f.err != nil {
		return nil, f.err
	}
	return json.RawMessage(f.response), nil
}

func (f *fakeLLM) GenerateText(ctx context.Context, prompt string) (string, error) {
	return "", errors.New("not used")
}

func TestFilterKeepsClassifierSelection(t *testing.T) {
	fake := &fakeLLM{response: `{"usefulUrls": ["https://example.com/deep-dive"]}`}
	f := NewFilter(fake)

	candidates := []string{"https://example.com/deep-dive", "https://google.com"}
	got, err := f.Filter(context.Background(), candidates)
	if err != nil {
		t.Fatalf("Filter: %v", err)
	}
	want := []string{"https://example.com/deep-dive"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Filter() = %v, want %v", got, want)
	}
	if !reflect.DeepEqual(fake.gotInput, candidates) {
		t.Errorf("classifier saw %v, want %v", fake.gotInput, candidates)
	}
}

func TestFilterEmptyInputSkipsCall(t *testing.T) {
	fake := &fakeLLM{err: errors.New("should not be called")}
	f := NewFilter(fake)

	got, err := f.Filter(context.Background(), nil)
	if err != nil {
		t.Fatalf("Filter: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("Filter() = %v, want empty", got)
	}
}

func TestFilterAcceptsEmptySelection(t *testing.T) {
	f := NewFilter(&fakeLLM{response: `{"usefulUrls": []}`})

	got, err := f.Filter(context.Background(), []string{"https://google.com"})
	if err != nil {
		t.Fatalf("Filter: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("Filter() = %v, want empty", got)
	}
}

func TestFilterRejectsMissingKey(t *testing.T) {
	f := NewFilter(&fakeLLM{response: `{"urls": ["https://example.com"]}`})

	_, err := f.Filter(context.Background(), []string{"https://example.com"})
	if !errors.Is(err, apperrors.ErrBadModelOutput) {
		t.Fatalf("expected ErrBadModelOutput, got %v", err)
	}
}

func TestFilterRejectsNonJSON(t *testing.T) {
	f := NewFilter(&fakeLLM{response: `here are your urls!`})

	_, err := f.Filter(context.Background(), []string{"https://example.com"})
	if !errors.Is(err, apperrors.ErrBadModelOutput) {
		t.Fatalf("expected ErrBadModelOutput, got %v", err)
	}
}

func TestFilterWrapsServiceError(t *testing.T) {
	f := NewFilter(&fakeLLM{err: errors.New("boom")})

	_, err := f.Filter(context.Background(), []string{"https://example.com"})
	if !errors.Is(err, apperrors.ErrStageFailed) {
		t.Fatalf("expected ErrStageFailed, got %v", err)
	}
}
