package anthropic

import (
	"context"
	"errors"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/parmira/forensic"
)

// reportToolName is the synthetic tool Claude is forced to call with the report.
const reportToolName = "submit_forensic_report"

// defaultMaxTokens bounds the report length.
const defaultMaxTokens = 8192

// ChatModel represents an Anthropic model used for audits.
type ChatModel string

const (
	ClaudeOpus45   ChatModel = "claude-opus-4-5"
	ClaudeSonnet45 ChatModel = "claude-sonnet-4-5"
	ClaudeHaiku45  ChatModel = "claude-haiku-4-5"

	// DefaultChatModel is the recommended default model.
	DefaultChatModel ChatModel = ClaudeSonnet45
)

// String returns the model identifier string.
func (m ChatModel) String() string { return string(m) }

// Client wraps the Anthropic SDK.
type Client struct {
	client *anthropic.Client
	model  ChatModel
}

// New creates a new Anthropic client with the given API key.
func New(apiKey string, opts ...ClientOption) *Client {
	client := anthropic.NewClient(option.WithAPIKey(apiKey))
	c := &Client{
		client: &client,
		model:  DefaultChatModel,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ClientOption configures the Anthropic client.
type ClientOption func(*Client)

// WithModel sets the default model for requests.
func WithModel(model ChatModel) ClientOption {
	return func(c *Client) {
		if model != "" {
			c.model = model
		}
	}
}

// Audit sends raw telemetry for forensic analysis and decodes the report.
func (c *Client) Audit(ctx context.Context, telemetry string, opts ...forensic.Option) (*forensic.AuditResult, error) {
	if forensic.Blank(telemetry) {
		return nil, forensic.ErrEmptyInput
	}
	options := forensic.ApplyOptions(opts...)
	model := c.model
	if options.Model != "" {
		model = ChatModel(options.Model)
	}

	resp, err := c.client.Messages.New(ctx, buildParams(model, telemetry, options))
	if err != nil {
		return nil, wrapError(err)
	}
	return forensic.Decode(toPayload(resp.Content))
}

func buildParams(model ChatModel, telemetry string, options *forensic.Options) anthropic.MessageNewParams {
	tool, choice := reportTool()
	return anthropic.MessageNewParams{
		Model:     anthropic.Model(model.String()),
		MaxTokens: defaultMaxTokens,
		System:    []anthropic.TextBlockParam{{Text: options.Universe.Instruction()}},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(forensic.Prompt(telemetry))),
		},
		Tools:      []anthropic.ToolUnionParam{tool},
		ToolChoice: choice,
	}
}

// toPayload puts the forced tool input first so it wins decode precedence,
// followed by any free text the model emitted.
func toPayload(blocks []anthropic.ContentBlockUnion) forensic.Payload {
	var c forensic.Candidate
	var text []forensic.Part
	for _, block := range blocks {
		switch block.Type {
		case "tool_use":
			if block.Name == reportToolName {
				c.Parts = append(c.Parts, forensic.Part{Text: string(block.Input)})
			}
		case "text":
			text = append(text, forensic.Part{Text: block.Text})
		}
	}
	c.Parts = append(c.Parts, text...)
	return forensic.Payload{Candidates: []forensic.Candidate{c}}
}

func wrapError(err error) error {
	var apiErr *anthropic.Error
	if !errors.As(err, &apiErr) {
		return err
	}
	if delay := forensic.ParseRetryAfter(apiErr.Response); delay > 0 {
		return forensic.NewProviderErrorWithRetry("anthropic api error", apiErr.StatusCode, delay, err)
	}
	return forensic.NewProviderError("anthropic api error", apiErr.StatusCode, err)
}

var _ forensic.Auditor = (*Client)(nil)
