package forensic

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"
)

// ErrEmptyInput is returned when telemetry text is empty or whitespace.
var ErrEmptyInput = errors.New("empty input")

// ErrDecode is the sentinel matched by every decode failure.
var ErrDecode = errors.New("failed to decode forensic analysis output")

// ErrNoImage is returned when an image request completes without image data.
var ErrNoImage = errors.New("visual evidence generation failed")

// DecodeError reports that no schema-conforming report could be extracted
// from a provider response.
type DecodeError struct {
	// Segments is the number of text segments that were tried.
	Segments int
	// Err is the last parse or validation error, if any.
	Err error
}

func (e *DecodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("dossier corruption: %v (%d segments tried): %v", ErrDecode, e.Segments, e.Err)
	}
	return fmt.Sprintf("dossier corruption: %v (%d segments tried)", ErrDecode, e.Segments)
}

// Is reports ErrDecode as a match so callers can use errors.Is.
func (e *DecodeError) Is(target error) bool {
	return target == ErrDecode
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// GenerationError reports that an image provider returned no usable image.
type GenerationError struct {
	Model string
	Err   error
}

func (e *GenerationError) Error() string {
	if e.Model != "" {
		return fmt.Sprintf("%s: %v", e.Model, e.Err)
	}
	return e.Err.Error()
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}

// ErrorCategory classifies provider errors by how they should be handled.
type ErrorCategory string

const (
	// ErrorTransient indicates a temporary failure such as a rate limit or
	// server overload.
	ErrorTransient ErrorCategory = "transient"

	// ErrorPermanent indicates a failure that will not resolve on its own,
	// such as an invalid API key or exhausted quota.
	ErrorPermanent ErrorCategory = "permanent"

	// ErrorUserInput indicates the request itself was rejected.
	ErrorUserInput ErrorCategory = "user_input"
)

// CategorizedError is an error that carries provider failure metadata.
type CategorizedError interface {
	error
	Category() ErrorCategory
	StatusCode() int
	RetryAfter() time.Duration
}

// Error is a categorized provider error. The provider's original error stays
// reachable through Unwrap.
type Error struct {
	Msg        string
	Cat        ErrorCategory
	Code       int           // HTTP status code, 0 if not applicable
	RetryDelay time.Duration // from Retry-After header, 0 if not available
	Cause      error
}

// Error returns the error message.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Cause)
	}
	return e.Msg
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Category returns the error category.
func (e *Error) Category() ErrorCategory {
	return e.Cat
}

// StatusCode returns the HTTP status code, or 0 if not applicable.
func (e *Error) StatusCode() int {
	return e.Code
}

// RetryAfter returns the suggested retry delay, or 0 if not available.
func (e *Error) RetryAfter() time.Duration {
	return e.RetryDelay
}

// NewProviderError creates a categorized error for an HTTP status code.
func NewProviderError(msg string, statusCode int, cause error) *Error {
	return &Error{
		Msg:   msg,
		Cat:   CategorizeStatus(statusCode),
		Code:  statusCode,
		Cause: cause,
	}
}

// NewProviderErrorWithRetry creates a transient error carrying the delay the
// server asked for.
func NewProviderErrorWithRetry(msg string, statusCode int, retryAfter time.Duration, cause error) *Error {
	return &Error{
		Msg:        msg,
		Cat:        ErrorTransient,
		Code:       statusCode,
		RetryDelay: retryAfter,
		Cause:      cause,
	}
}

// ParseRetryAfter extracts the Retry-After duration from an HTTP response.
// Returns 0 if the header is not present or cannot be parsed.
func ParseRetryAfter(resp *http.Response) time.Duration {
	if resp == nil {
		return 0
	}

	header := resp.Header.Get("Retry-After")
	if header == "" {
		return 0
	}

	// Seconds is the common form.
	if seconds, err := strconv.Atoi(header); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}

	// HTTP-date (RFC 7231)
	if t, err := http.ParseTime(header); err == nil {
		if delay := time.Until(t); delay > 0 {
			return delay
		}
	}

	return 0
}

// RetryAfterOf returns the suggested retry delay from a categorized error, or 0.
func RetryAfterOf(err error) time.Duration {
	var ce CategorizedError
	if errors.As(err, &ce) {
		return ce.RetryAfter()
	}
	return 0
}

// CategorizeStatus maps an HTTP status code to an error category.
func CategorizeStatus(code int) ErrorCategory {
	switch {
	case code == 429:
		return ErrorTransient
	case code >= 500 && code < 600:
		return ErrorTransient
	case code == 401 || code == 403:
		return ErrorPermanent
	case code == 400 || code == 404 || code == 422:
		return ErrorUserInput
	default:
		return ErrorPermanent
	}
}

// IsTransient returns true if the error is categorized as transient.
func IsTransient(err error) bool {
	return categoryOf(err) == ErrorTransient
}

// IsPermanent returns true if the error is categorized as permanent.
func IsPermanent(err error) bool {
	return categoryOf(err) == ErrorPermanent
}

// IsUserInput returns true if the error is categorized as user input error.
func IsUserInput(err error) bool {
	return categoryOf(err) == ErrorUserInput
}

// StatusCodeOf returns the HTTP status code from a categorized error, or 0.
func StatusCodeOf(err error) int {
	var ce CategorizedError
	if errors.As(err, &ce) {
		return ce.StatusCode()
	}
	return 0
}

func categoryOf(err error) ErrorCategory {
	var ce CategorizedError
	if errors.As(err, &ce) {
		return ce.Category()
	}
	return ""
}
