package docmodel

import (
	"errors"
	"fmt"
)

// Sentinels for the three error classes. Match with errors.Is.
var (
	ErrInvalidInput = errors.New("invalid input")
	ErrProvider     = errors.New("provider error")
	ErrMerge        = errors.New("merge error")
)

// AppError carries a class sentinel and a message.
type AppError struct {
	Code    error
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() []error {
	if e.Cause != nil {
		return []error{e.Code, e.Cause}
	}
	return []error{e.Code}
}

// InvalidInputf reports malformed parameters.
func InvalidInputf(format string, args ...any) error {
	return &AppError{Code: ErrInvalidInput, Message: fmt.Sprintf(format, args...)}
}

// MergeErrorf reports a structural inconsistency in a chunk sequence.
func MergeErrorf(format string, args ...any) error {
	return &AppError{Code: ErrMerge, Message: fmt.Sprintf(format, args...)}
}

// ProviderError is a failure from an external analysis or labeling service.
// Chunk is -1 when the call was not chunk-scoped.
type ProviderError struct {
	Provider string
	Chunk    int
	Range    PageRange
	Err      error
}

func (e *ProviderError) Error() string {
	if e.Chunk < 0 {
		return fmt.Sprintf("%s: %s: %v", ErrProvider, e.Provider, e.Err)
	}
	return fmt.Sprintf("%s: %s: chunk %d pages %s: %v", ErrProvider, e.Provider, e.Chunk+1, e.Range, e.Err)
}

func (e *ProviderError) Unwrap() []error { return []error{ErrProvider, e.Err} }

// NewProviderError wraps err for a chunk-scoped call. A nil err returns nil.
func NewProviderError(provider string, chunk int, r PageRange, err error) error {
	if err == nil {
		return nil
	}
	var pe *ProviderError
	if errors.As(err, &pe) {
		return err
	}
	return &ProviderError{Provider: provider, Chunk: chunk, Range: r, Err: err}
}

// RetryableError marks a transient provider failure (429, 5xx).
type RetryableError struct {
	StatusCode int
	Message    string
}

func (e *RetryableError) Error() string {
	return fmt.Sprintf("retryable error (HTTP %d): %s", e.StatusCode, e.Message)
}

// IsRetryableStatus reports whether an HTTP status is worth retrying.
func IsRetryableStatus(code int) bool {
	return code == 429 || code >= 500
}
