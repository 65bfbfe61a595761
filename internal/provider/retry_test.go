package provider

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nyzhi-com/nyzhi/internal/message"
)

// scriptedProvider replays one chunk script per Stream call.
type scriptedProvider struct {
	scripts [][]message.StreamChunk
	calls   int
}

func (p *scriptedProvider) Name() string { return "scripted" }

func (p *scriptedProvider) ListModels(_ context.Context) ([]ModelInfo, error) {
	return nil, nil
}

func (p *scriptedProvider) Stream(_ context.Context, _ CompletionOptions) <-chan message.StreamChunk {
	var script []message.StreamChunk
	if p.calls < len(p.scripts) {
		script = p.scripts[p.calls]
	}
	p.calls++

	ch := make(chan message.StreamChunk, len(script))
	for _, chunk := range script {
		ch <- chunk
	}
	close(ch)
	return ch
}

func collect(ch <-chan message.StreamChunk) (chunks []message.StreamChunk) {
	for c := range ch {
		chunks = append(chunks, c)
	}
	return chunks
}

func TestWithRetry_RetriesTransientError(t *testing.T) {
	transient := &APIError{Status: 503, Message: "overloaded"}
	p := &scriptedProvider{
		scripts: [][]message.StreamChunk{
			{{Type: message.ChunkTypeError, Error: transient}},
			{
				{Type: message.ChunkTypeText, Text: "ok"},
				{Type: message.ChunkTypeDone},
			},
		},
	}

	wrapped := WithRetry(p, RetrySettings{MaxAttempts: 3, Initial: time.Millisecond})
	chunks := collect(wrapped.Stream(context.Background(), CompletionOptions{}))

	if p.calls != 2 {
		t.Errorf("calls = %d, want 2", p.calls)
	}
	if len(chunks) != 2 || chunks[0].Text != "ok" {
		t.Errorf("chunks = %+v", chunks)
	}
}

func TestWithRetry_FatalClientErrorNotRetried(t *testing.T) {
	fatal := &APIError{Status: 400, Message: "bad request"}
	p := &scriptedProvider{
		scripts: [][]message.StreamChunk{
			{{Type: message.ChunkTypeError, Error: fatal}},
		},
	}

	wrapped := WithRetry(p, RetrySettings{MaxAttempts: 3, Initial: time.Millisecond})
	chunks := collect(wrapped.Stream(context.Background(), CompletionOptions{}))

	if p.calls != 1 {
		t.Errorf("calls = %d, want 1 (no retry on 4xx)", p.calls)
	}
	if len(chunks) != 1 || chunks[0].Type != message.ChunkTypeError {
		t.Errorf("chunks = %+v", chunks)
	}
}

func TestWithRetry_ExhaustionSurfacesError(t *testing.T) {
	transient := &APIError{Status: 500, Message: "boom"}
	p := &scriptedProvider{
		scripts: [][]message.StreamChunk{
			{{Type: message.ChunkTypeError, Error: transient}},
			{{Type: message.ChunkTypeError, Error: transient}},
			{{Type: message.ChunkTypeError, Error: transient}},
		},
	}

	wrapped := WithRetry(p, RetrySettings{MaxAttempts: 3, Initial: time.Millisecond})
	chunks := collect(wrapped.Stream(context.Background(), CompletionOptions{}))

	if p.calls != 3 {
		t.Errorf("calls = %d, want 3", p.calls)
	}
	last := chunks[len(chunks)-1]
	if last.Type != message.ChunkTypeError {
		t.Errorf("expected trailing error chunk, got %+v", last)
	}
}

func TestWithRetry_NoRetryAfterContentForwarded(t *testing.T) {
	transient := &APIError{Status: 500, Message: "mid-stream break"}
	p := &scriptedProvider{
		scripts: [][]message.StreamChunk{
			{
				{Type: message.ChunkTypeText, Text: "partial"},
				{Type: message.ChunkTypeError, Error: transient},
			},
		},
	}

	wrapped := WithRetry(p, RetrySettings{MaxAttempts: 3, Initial: time.Millisecond})
	chunks := collect(wrapped.Stream(context.Background(), CompletionOptions{}))

	if p.calls != 1 {
		t.Errorf("calls = %d, want 1 (content already forwarded)", p.calls)
	}
	if chunks[len(chunks)-1].Type != message.ChunkTypeError {
		t.Error("mid-stream break must surface as an error chunk")
	}
}

func TestIsRetryable(t *testing.T) {
	if !IsRetryable(&APIError{Status: 503}) || !IsRetryable(&APIError{Status: 429}) {
		t.Error("5xx and 429 are retryable")
	}
	if IsRetryable(&APIError{Status: 404}) {
		t.Error("4xx is not retryable")
	}
	if !IsRetryable(errors.New("unexpected EOF")) {
		t.Error("stream breaks are retryable")
	}
}

func TestIsContextOverflow(t *testing.T) {
	if !IsContextOverflow(errors.New("prompt is too long: maximum context length exceeded")) {
		t.Error("overflow signal not detected")
	}
	if IsContextOverflow(errors.New("rate limited")) {
		t.Error("false positive")
	}
}

func TestBackoffDelay_RetryAfterHonored(t *testing.T) {
	err := &APIError{Status: 429, RetryAfter: 2 * time.Second}
	if got := backoffDelay(RetrySettings{Initial: time.Millisecond}, 0, err); got != 2*time.Second {
		t.Errorf("delay = %v, want Retry-After", got)
	}

	err = &APIError{Status: 429}
	if got := backoffDelay(RetrySettings{Initial: time.Millisecond}, 0, err); got != time.Second {
		t.Errorf("429 without Retry-After = %v, want 1s", got)
	}
}

func TestBackoffDelay_JitterBounds(t *testing.T) {
	settings := RetrySettings{Initial: 100 * time.Millisecond}
	err := &APIError{Status: 500}
	for i := 0; i < 20; i++ {
		d := backoffDelay(settings, 1, err)
		// attempt 1: base 200ms, jitter ±20%.
		if d < 160*time.Millisecond || d > 240*time.Millisecond {
			t.Fatalf("delay %v outside jitter bounds", d)
		}
	}
}

func TestComplete_CollectsStream(t *testing.T) {
	p := &scriptedProvider{
		scripts: [][]message.StreamChunk{
			{
				{Type: message.ChunkTypeText, Text: "hel"},
				{Type: message.ChunkTypeText, Text: "lo"},
				{Type: message.ChunkTypeDone},
			},
		},
	}

	resp, err := Complete(context.Background(), p, CompletionOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Content != "hello" {
		t.Errorf("content = %q", resp.Content)
	}
}
