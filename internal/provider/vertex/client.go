package vertex

import (
	"context"
	"errors"

	"github.com/parmira/forensic/internal/provider/google"
)

// ErrMissingProject is returned when no Google Cloud project is configured.
var ErrMissingProject = errors.New("vertex: project and location are required")

// New creates a Gemini client on the Vertex AI backend for project and
// location. Options are the Google client options, so model overrides
// work the same way on both backends.
func New(ctx context.Context, project, location string, opts ...google.ClientOption) (*google.Client, error) {
	if project == "" || location == "" {
		return nil, ErrMissingProject
	}
	opts = append(opts, google.WithVertexAI(project, location))
	return google.New(ctx, "", opts...)
}
