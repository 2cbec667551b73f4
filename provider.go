package forensic

import (
	"context"
	"errors"
	"io"
)

// Provider identifies an AI provider.
type Provider string

// String returns the provider identifier.
func (p Provider) String() string { return string(p) }

// Supported providers.
const (
	ProviderGoogle    Provider = "google"
	ProviderAnthropic Provider = "anthropic"
	ProviderOpenAI    Provider = "openai"
)

// Auditor runs one forensic audit over raw telemetry text.
// The text is forwarded as-is; validation is left to the provider.
type Auditor interface {
	Audit(ctx context.Context, telemetry string, opts ...Option) (*AuditResult, error)
}

// ImageRenderer renders a single evidence image from a free-text prompt.
type ImageRenderer interface {
	RenderImage(ctx context.Context, prompt string, opts ...ImageOption) (*Image, error)
}

// AuditResult is the decoded outcome of one audit call.
type AuditResult struct {
	Report *ForensicReport
	// Plot is the first image the provider attached, typically a diagnostic
	// chart produced by executed code. Nil when none was returned.
	Plot *Image
	// Trace holds the output of any code the provider executed, in order.
	Trace []string
}

// Gateway bundles the two provider capabilities an audit workflow needs.
// Renderer may be nil, in which case evidence generation is skipped.
type Gateway struct {
	Auditor  Auditor
	Renderer ImageRenderer
}

// Close releases backends that hold resources, such as a spawned MCP
// server. Backends that do not implement io.Closer are left alone.
func (g *Gateway) Close() error {
	if g == nil {
		return nil
	}
	var errs []error
	if c, ok := g.Auditor.(io.Closer); ok {
		errs = append(errs, c.Close())
	}
	if c, ok := g.Renderer.(io.Closer); ok && any(g.Renderer) != any(g.Auditor) {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}
