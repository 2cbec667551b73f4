package client

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/parmira/forensic"
	"github.com/parmira/forensic/internal/provider/anthropic"
	"github.com/parmira/forensic/internal/provider/google"
	"github.com/parmira/forensic/internal/provider/openai"
	"github.com/parmira/forensic/internal/provider/vertex"
	"github.com/parmira/forensic/internal/retry"
	"github.com/parmira/forensic/mcp"
)

const (
	// ProviderNone disables image rendering.
	ProviderNone forensic.Provider = "none"

	// ProviderVertex serves Gemini audits and images through Vertex AI.
	ProviderVertex forensic.Provider = "vertex"

	// ProviderMCP delegates audits to a forensic MCP server started as a
	// subprocess.
	ProviderMCP forensic.Provider = "mcp"
)

// APIKeys holds API keys for different providers.
// Only configure keys for providers you intend to use.
type APIKeys struct {
	Google    string
	Anthropic string
	OpenAI    string
}

// VertexConfig identifies the Google Cloud project used by ProviderVertex.
// Authentication uses Application Default Credentials.
type VertexConfig struct {
	Project  string
	Location string
}

// Config holds configuration for assembling a gateway.
type Config struct {
	// APIKeys contains authentication keys for each provider.
	APIKeys APIKeys

	// AuditProvider selects the forensic analysis backend. Defaults to Google.
	AuditProvider forensic.Provider

	// ImageProvider selects the evidence image backend. Defaults to Google.
	// ProviderNone leaves the gateway without a renderer.
	ImageProvider forensic.Provider

	// Vertex configures ProviderVertex.
	Vertex VertexConfig

	// MCPCommand is the server command line used by ProviderMCP.
	MCPCommand []string

	// AuditModel and ImageModel override the backend defaults when set.
	AuditModel string
	ImageModel string

	// ThinkingBudget is the reasoning token budget for audits. Zero uses
	// [forensic.DefaultThinkingBudget].
	ThinkingBudget int

	// AspectRatio is the evidence image aspect ratio. Empty uses
	// [forensic.DefaultAspectRatio].
	AspectRatio string

	// MaxAttempts bounds how often a call is tried when the provider fails
	// transiently. Zero or one disables retries.
	MaxAttempts int

	// Events is an optional channel for receiving provider call events.
	Events chan<- Event
}

// ErrMissingAPIKey is returned when a provider is selected but no API key
// is configured for it.
type ErrMissingAPIKey struct {
	Provider string
	Role     string
}

func (e *ErrMissingAPIKey) Error() string {
	if e.Role != "" {
		return fmt.Sprintf("no API key configured for %s (required by %s backend)", e.Provider, e.Role)
	}
	return fmt.Sprintf("no API key configured for %s", e.Provider)
}

// ErrFeatureNotSupported is returned when a provider cannot serve the
// requested role.
type ErrFeatureNotSupported struct {
	Provider string
	Feature  string
}

func (e *ErrFeatureNotSupported) Error() string {
	return fmt.Sprintf("%s provider does not support %s", e.Provider, e.Feature)
}

// New builds a gateway from cfg. Provider clients are created eagerly so
// configuration mistakes surface at startup.
func New(ctx context.Context, cfg Config) (*forensic.Gateway, error) {
	if cfg.AuditProvider == "" {
		cfg.AuditProvider = forensic.ProviderGoogle
	}
	if cfg.ImageProvider == "" {
		cfg.ImageProvider = forensic.ProviderGoogle
	}

	var googleClient *google.Client
	getGoogle := func(role string) (*google.Client, error) {
		if googleClient != nil {
			return googleClient, nil
		}
		if cfg.APIKeys.Google == "" {
			return nil, &ErrMissingAPIKey{Provider: "google", Role: role}
		}
		c, err := google.New(ctx, cfg.APIKeys.Google,
			google.WithModel(google.ChatModel(cfg.AuditModel)),
			google.WithImageModel(google.ImageModel(cfg.ImageModel)),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Google client: %w", err)
		}
		googleClient = c
		return c, nil
	}

	var vertexClient *google.Client
	getVertex := func() (*google.Client, error) {
		if vertexClient != nil {
			return vertexClient, nil
		}
		c, err := vertex.New(ctx, cfg.Vertex.Project, cfg.Vertex.Location,
			google.WithModel(google.ChatModel(cfg.AuditModel)),
			google.WithImageModel(google.ImageModel(cfg.ImageModel)),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Vertex AI client: %w", err)
		}
		vertexClient = c
		return c, nil
	}

	var auditor forensic.Auditor
	switch cfg.AuditProvider {
	case forensic.ProviderGoogle:
		c, err := getGoogle("audit")
		if err != nil {
			return nil, err
		}
		auditor = c
	case ProviderVertex:
		c, err := getVertex()
		if err != nil {
			return nil, err
		}
		auditor = c
	case forensic.ProviderAnthropic:
		if cfg.APIKeys.Anthropic == "" {
			return nil, &ErrMissingAPIKey{Provider: "anthropic", Role: "audit"}
		}
		auditor = anthropic.New(cfg.APIKeys.Anthropic, anthropic.WithModel(anthropic.ChatModel(cfg.AuditModel)))
	case ProviderMCP:
		if len(cfg.MCPCommand) == 0 {
			return nil, fmt.Errorf("no MCP server command configured for mcp audit provider")
		}
		remote, err := mcp.NewRemoteAuditor(ctx, cfg.MCPCommand[0], os.Environ(), cfg.MCPCommand[1:]...)
		if err != nil {
			return nil, err
		}
		auditor = remote
	case forensic.ProviderOpenAI:
		return nil, &ErrFeatureNotSupported{Provider: "openai", Feature: "audit"}
	default:
		return nil, fmt.Errorf("unsupported audit provider: %s", cfg.AuditProvider)
	}

	built := false
	defer func() {
		if !built {
			_ = (&forensic.Gateway{Auditor: auditor}).Close()
		}
	}()

	var renderer forensic.ImageRenderer
	switch cfg.ImageProvider {
	case ProviderNone:
	case forensic.ProviderGoogle:
		c, err := getGoogle("image")
		if err != nil {
			return nil, err
		}
		renderer = c
	case ProviderVertex:
		c, err := getVertex()
		if err != nil {
			return nil, err
		}
		renderer = c
	case forensic.ProviderOpenAI:
		if cfg.APIKeys.OpenAI == "" {
			return nil, &ErrMissingAPIKey{Provider: "openai", Role: "image"}
		}
		renderer = openai.New(cfg.APIKeys.OpenAI, openai.WithModel(openai.ImageModel(cfg.ImageModel)))
	case forensic.ProviderAnthropic:
		return nil, &ErrFeatureNotSupported{Provider: "anthropic", Feature: "image"}
	default:
		return nil, fmt.Errorf("unsupported image provider: %s", cfg.ImageProvider)
	}

	built = true
	return Wrap(auditor, renderer, cfg), nil
}

// Wrap builds a gateway around existing backends, applying the budget,
// aspect ratio and event settings from cfg. It is used by New and by
// callers that supply their own backends.
func Wrap(auditor forensic.Auditor, renderer forensic.ImageRenderer, cfg Config) *forensic.Gateway {
	policy := retry.DefaultConfig().WithMaxAttempts(cfg.MaxAttempts)
	gw := &forensic.Gateway{
		Auditor: &observedAuditor{
			next:     auditor,
			provider: cfg.AuditProvider,
			events:   cfg.Events,
			budget:   cfg.ThinkingBudget,
			retry:    policy,
		},
	}
	if renderer != nil {
		gw.Renderer = &observedRenderer{
			next:     renderer,
			provider: cfg.ImageProvider,
			events:   cfg.Events,
			ratio:    cfg.AspectRatio,
			retry:    policy,
		}
	}
	return gw
}

type observedAuditor struct {
	next     forensic.Auditor
	provider forensic.Provider
	events   chan<- Event
	budget   int
	retry    retry.Config
}

func (a *observedAuditor) Audit(ctx context.Context, telemetry string, opts ...forensic.Option) (*forensic.AuditResult, error) {
	// Configured defaults go first so per-call options override them.
	if a.budget > 0 {
		opts = append([]forensic.Option{forensic.WithThinkingBudget(a.budget)}, opts...)
	}
	start := time.Now()
	emit(a.events, Event{Type: EventRequestStart, Operation: OperationAudit, Provider: a.provider})

	res, err := retry.Do(ctx, a.retry, retryNotifier(a.events, OperationAudit, a.provider), func() (*forensic.AuditResult, error) {
		return a.next.Audit(ctx, telemetry, opts...)
	})
	if err != nil {
		emit(a.events, Event{Type: EventRequestError, Operation: OperationAudit, Provider: a.provider, Duration: time.Since(start), Error: err})
		return nil, err
	}

	ev := Event{Type: EventRequestComplete, Operation: OperationAudit, Provider: a.provider, Duration: time.Since(start)}
	if res.Report != nil {
		ev.Verdict = res.Report.Verdict
	}
	emit(a.events, ev)
	return res, nil
}

// Close closes the wrapped backend if it holds resources.
func (a *observedAuditor) Close() error {
	if c, ok := a.next.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

type observedRenderer struct {
	next     forensic.ImageRenderer
	provider forensic.Provider
	events   chan<- Event
	ratio    string
	retry    retry.Config
}

func (r *observedRenderer) RenderImage(ctx context.Context, prompt string, opts ...forensic.ImageOption) (*forensic.Image, error) {
	if r.ratio != "" {
		opts = append([]forensic.ImageOption{forensic.WithAspectRatio(r.ratio)}, opts...)
	}
	start := time.Now()
	emit(r.events, Event{Type: EventRequestStart, Operation: OperationRender, Provider: r.provider})

	img, err := retry.Do(ctx, r.retry, retryNotifier(r.events, OperationRender, r.provider), func() (*forensic.Image, error) {
		return r.next.RenderImage(ctx, prompt, opts...)
	})
	if err != nil {
		emit(r.events, Event{Type: EventRequestError, Operation: OperationRender, Provider: r.provider, Duration: time.Since(start), Error: err})
		return nil, err
	}
	emit(r.events, Event{Type: EventRequestComplete, Operation: OperationRender, Provider: r.provider, Duration: time.Since(start)})
	return img, nil
}

// Close closes the wrapped backend if it holds resources.
func (r *observedRenderer) Close() error {
	if c, ok := r.next.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

func retryNotifier(events chan<- Event, operation string, provider forensic.Provider) func(retry.Attempt) {
	return func(a retry.Attempt) {
		emit(events, Event{
			Type:      EventRetry,
			Operation: operation,
			Provider:  provider,
			Error:     a.Err,
			Attempt:   a.Number,
			Delay:     a.Delay,
		})
	}
}

var (
	_ forensic.Auditor       = (*observedAuditor)(nil)
	_ forensic.ImageRenderer = (*observedRenderer)(nil)
)
