package llm

import (
	"encoding/json"
	"fmt"
	"time"
)

// ErrRateLimit indicates the vendor rate-limited the request (429). The
// retry decorator honors RetryAfter before the next attempt.
type ErrRateLimit struct {
	RetryAfter time.Duration
	Err        error
}

func (e *ErrRateLimit) Error() string {
	return fmt.Sprintf("rate limited (retry after %s): %v", e.RetryAfter, e.Err)
}

func (e *ErrRateLimit) Unwrap() error { return e.Err }

// ErrInvalidResponse indicates the model's output does not conform to
// the requested schema, e.g. a verdict missing required grading fields.
// Content carries the raw output so the tutor can attempt salvage.
type ErrInvalidResponse struct {
	Content json.RawMessage
	Err     error
}

func (e *ErrInvalidResponse) Error() string {
	return fmt.Sprintf("model output does not match schema: %v", e.Err)
}

func (e *ErrInvalidResponse) Unwrap() error { return e.Err }

// ErrProviderUnavailable indicates the vendor is down or unreachable.
// The tutor answers such turns with a fallback verdict instead of failing
// the learner's request.
type ErrProviderUnavailable struct {
	Err error
}

func (e *ErrProviderUnavailable) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("model provider unavailable: %v", e.Err)
	}
	return "model provider unavailable"
}

func (e *ErrProviderUnavailable) Unwrap() error { return e.Err }

// ErrMaxTokensExceeded indicates the model stopped at the MaxTokens cap,
// so the verdict JSON is likely cut off mid-object. Never retried.
type ErrMaxTokensExceeded struct {
	Content json.RawMessage
}

func (e *ErrMaxTokensExceeded) Error() string {
	return "model response truncated at token limit"
}
