package google

import (
	"errors"
	"fmt"

	"github.com/parmira/forensic"
	"google.golang.org/genai"
)

// BlockedError indicates the request was blocked by content filtering.
type BlockedError struct {
	Reason string
}

func (e *BlockedError) Error() string {
	return fmt.Sprintf("request blocked: %s", e.Reason)
}

// wrapError categorizes a GenAI API error by its status code.
// Google's genai.APIError doesn't expose headers, so Retry-After is not available.
// Non-API errors (network failures) are returned unchanged.
func wrapError(err error) error {
	if err == nil {
		return nil
	}

	var apiErr genai.APIError
	if !errors.As(err, &apiErr) {
		return err
	}
	return forensic.NewProviderError("google api error", apiErr.Code, err)
}
