package provider

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/nyzhi-com/nyzhi/internal/log"
	"github.com/nyzhi-com/nyzhi/internal/message"
)

// RetrySettings controls retry behavior for transient provider failures.
type RetrySettings struct {
	MaxAttempts int           `json:"max_attempts"`
	Initial     time.Duration `json:"initial_ms"`
}

// DefaultRetrySettings matches the runtime defaults.
func DefaultRetrySettings() RetrySettings {
	return RetrySettings{MaxAttempts: 3, Initial: time.Second}
}

// APIError carries an HTTP status from a provider so callers can classify it.
type APIError struct {
	Status     int
	Message    string
	RetryAfter time.Duration // from Retry-After, when present
}

func (e *APIError) Error() string {
	return fmt.Sprintf("provider error (HTTP %d): %s", e.Status, e.Message)
}

// IsRetryable reports whether err is a transient provider failure:
// HTTP 5xx, HTTP 429, or a broken stream.
func IsRetryable(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status >= 500 || apiErr.Status == 429
	}
	// Stream breaks surface as transport-level errors without a status.
	msg := err.Error()
	return strings.Contains(msg, "unexpected EOF") ||
		strings.Contains(msg, "connection reset") ||
		strings.Contains(msg, "stream error")
}

// IsContextOverflow reports whether err indicates the request exceeded the
// model's context window. This triggers compaction upstream, not a retry.
func IsContextOverflow(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "context window") ||
		strings.Contains(msg, "context length") ||
		strings.Contains(msg, "prompt is too long") ||
		strings.Contains(msg, "maximum context")
}

// backoffDelay computes the delay before attempt n (0-based), with ±20%
// jitter. A 429 with Retry-After overrides the computed delay.
func backoffDelay(settings RetrySettings, attempt int, err error) time.Duration {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Status == 429 {
		if apiErr.RetryAfter > 0 {
			return apiErr.RetryAfter
		}
		return time.Second
	}

	delay := settings.Initial
	for i := 0; i < attempt; i++ {
		delay *= 2
	}
	jitter := 0.8 + rand.Float64()*0.4
	return time.Duration(float64(delay) * jitter)
}

// retrying wraps an LLMProvider with retry-on-transient-failure semantics.
// Only attempts that fail before producing any content are restarted, so
// callers always observe a single coherent stream.
type retrying struct {
	inner    LLMProvider
	settings RetrySettings
}

// WithRetry wraps a provider with the given retry settings.
func WithRetry(p LLMProvider, settings RetrySettings) LLMProvider {
	if settings.MaxAttempts <= 0 {
		settings = DefaultRetrySettings()
	}
	return &retrying{inner: p, settings: settings}
}

func (r *retrying) Name() string { return r.inner.Name() }

func (r *retrying) ListModels(ctx context.Context) ([]ModelInfo, error) {
	return r.inner.ListModels(ctx)
}

func (r *retrying) Stream(ctx context.Context, opts CompletionOptions) <-chan message.StreamChunk {
	out := make(chan message.StreamChunk)

	go func() {
		defer close(out)

		var lastErr error
		for attempt := 0; attempt < r.settings.MaxAttempts; attempt++ {
			if attempt > 0 {
				delay := backoffDelay(r.settings, attempt-1, lastErr)
				log.Logger().Warn(fmt.Sprintf("[retry] %s attempt %d after %s: %v",
					r.inner.Name(), attempt+1, delay.Round(time.Millisecond), lastErr))
				select {
				case <-ctx.Done():
					out <- message.StreamChunk{Type: message.ChunkTypeError, Error: ctx.Err()}
					return
				case <-time.After(delay):
				}
			}

			// Forward chunks live. A failure after content has already been
			// forwarded cannot be transparently retried; only errors that
			// arrive before the first content chunk restart the stream.
			lastErr = nil
			forwarded := false
			for chunk := range r.inner.Stream(ctx, opts) {
				if chunk.Type == message.ChunkTypeError {
					lastErr = chunk.Error
					break
				}
				forwarded = true
				select {
				case <-ctx.Done():
					return
				case out <- chunk:
				}
			}

			if lastErr == nil {
				return
			}

			if forwarded || !IsRetryable(lastErr) || ctx.Err() != nil {
				break
			}
		}

		out <- message.StreamChunk{Type: message.ChunkTypeError, Error: lastErr}
	}()

	return out
}
