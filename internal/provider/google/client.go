package google

import (
	"context"
	"strings"

	"github.com/parmira/forensic"
	"google.golang.org/genai"
)

// Client wraps the Google GenAI SDK.
type Client struct {
	client     *genai.Client
	model      ChatModel
	imageModel ImageModel
}

// New creates a new Google GenAI client with the given API key.
func New(ctx context.Context, apiKey string, opts ...ClientOption) (*Client, error) {
	cfg := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	c := &Client{
		model:      DefaultChatModel,
		imageModel: DefaultImageModel,
	}
	for _, opt := range opts {
		opt(c, cfg)
	}
	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, err
	}
	c.client = client
	return c, nil
}

// ClientOption configures the Google client.
type ClientOption func(*Client, *genai.ClientConfig)

// WithModel sets the default audit model.
func WithModel(model ChatModel) ClientOption {
	return func(c *Client, _ *genai.ClientConfig) {
		if model != "" {
			c.model = model
		}
	}
}

// WithImageModel sets the default evidence image model.
func WithImageModel(model ImageModel) ClientOption {
	return func(c *Client, _ *genai.ClientConfig) {
		if model != "" {
			c.imageModel = model
		}
	}
}

// WithVertexAI switches the client to the Vertex AI backend, authenticated
// with Application Default Credentials instead of an API key.
func WithVertexAI(project, location string) ClientOption {
	return func(_ *Client, cfg *genai.ClientConfig) {
		cfg.Backend = genai.BackendVertexAI
		cfg.APIKey = ""
		cfg.Project = project
		cfg.Location = location
	}
}

// WithBaseURL points the SDK at a different API endpoint.
func WithBaseURL(url string) ClientOption {
	return func(_ *Client, cfg *genai.ClientConfig) {
		cfg.HTTPOptions.BaseURL = url
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

	resp, err := c.client.Models.GenerateContent(ctx, model.String(),
		genai.Text(forensic.Prompt(telemetry)), auditConfig(options))
	if err != nil {
		return nil, wrapError(err)
	}
	if err := blocked(resp); err != nil {
		return nil, err
	}
	return forensic.Decode(toPayload(resp))
}

// RenderImage generates one evidence image from prompt.
func (c *Client) RenderImage(ctx context.Context, prompt string, opts ...forensic.ImageOption) (*forensic.Image, error) {
	if forensic.Blank(prompt) {
		return nil, forensic.ErrEmptyInput
	}
	options := forensic.ApplyImageOptions(opts...)
	model := c.imageModel
	if options.Model != "" {
		model = ImageModel(options.Model)
	}

	resp, err := c.client.Models.GenerateContent(ctx, model.String(), genai.Text(prompt), imageConfig(options))
	if err != nil {
		return nil, wrapError(err)
	}
	if err := blocked(resp); err != nil {
		return nil, err
	}

	if img := firstImage(resp); img != nil {
		return img, nil
	}
	return nil, &forensic.GenerationError{Model: model.String(), Err: forensic.ErrNoImage}
}

func auditConfig(options *forensic.Options) *genai.GenerateContentConfig {
	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(options.Universe.Instruction(), genai.RoleUser),
		ResponseMIMEType:  "application/json",
		ResponseSchema:    ConvertJSONSchemaToGenaiSchema(forensic.ReportSchema()),
	}
	if !options.DisableCodeExecution {
		config.Tools = []*genai.Tool{{CodeExecution: &genai.ToolCodeExecution{}}}
	}
	if options.ThinkingBudget > 0 {
		config.ThinkingConfig = &genai.ThinkingConfig{
			ThinkingBudget: genai.Ptr(int32(options.ThinkingBudget)),
		}
	}
	return config
}

func imageConfig(options *forensic.ImageOptions) *genai.GenerateContentConfig {
	return &genai.GenerateContentConfig{
		ImageConfig: &genai.ImageConfig{AspectRatio: options.AspectRatio},
	}
}

// toPayload converts a GenAI response into the provider-neutral payload.
func toPayload(resp *genai.GenerateContentResponse) forensic.Payload {
	var p forensic.Payload
	if resp == nil {
		return p
	}
	for _, cand := range resp.Candidates {
		if cand == nil || cand.Content == nil {
			continue
		}
		var c forensic.Candidate
		for _, part := range cand.Content.Parts {
			if part == nil {
				continue
			}
			switch {
			case part.InlineData != nil:
				c.Parts = append(c.Parts, forensic.Part{InlineData: &forensic.Image{
					MIMEType: part.InlineData.MIMEType,
					Data:     part.InlineData.Data,
				}})
			case part.CodeExecutionResult != nil:
				if out := strings.TrimSpace(part.CodeExecutionResult.Output); out != "" {
					c.Parts = append(c.Parts, forensic.Part{CodeOutput: out})
				}
			case part.Text != "":
				c.Parts = append(c.Parts, forensic.Part{Text: part.Text, Thought: part.Thought})
			}
		}
		p.Candidates = append(p.Candidates, c)
	}
	return p
}

// firstImage returns the first inline data part of the first candidate.
func firstImage(resp *genai.GenerateContentResponse) *forensic.Image {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil
	}
	for _, part := range resp.Candidates[0].Content.Parts {
		if part == nil || part.InlineData == nil || len(part.InlineData.Data) == 0 {
			continue
		}
		mime := part.InlineData.MIMEType
		if mime == "" {
			mime = forensic.DefaultImageMIMEType
		}
		return &forensic.Image{MIMEType: mime, Data: part.InlineData.Data}
	}
	return nil
}

func blocked(resp *genai.GenerateContentResponse) error {
	if resp != nil && resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
		return &BlockedError{Reason: string(resp.PromptFeedback.BlockReason)}
	}
	return nil
}

var (
	_ forensic.Auditor       = (*Client)(nil)
	_ forensic.ImageRenderer = (*Client)(nil)
)
