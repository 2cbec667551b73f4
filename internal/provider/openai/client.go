// Package openai implements [forensic.ImageRenderer] on the OpenAI Images API.
package openai

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/parmira/forensic"
)

// ImageModel represents an OpenAI image generation model.
type ImageModel string

const (
	DallE3    ImageModel = "dall-e-3"
	GPTImage1 ImageModel = "gpt-image-1"

	// DefaultImageModel is the recommended default image model.
	DefaultImageModel ImageModel = DallE3
)

// String returns the model identifier string.
func (m ImageModel) String() string { return string(m) }

// Client wraps the OpenAI SDK.
type Client struct {
	client *openai.Client
	model  ImageModel
}

// New creates a new OpenAI client with the given API key.
func New(apiKey string, opts ...ClientOption) *Client {
	client := openai.NewClient(option.WithAPIKey(apiKey))
	c := &Client{
		client: &client,
		model:  DefaultImageModel,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ClientOption configures the OpenAI client.
type ClientOption func(*Client)

// WithModel sets the default image model.
func WithModel(model ImageModel) ClientOption {
	return func(c *Client) {
		if model != "" {
			c.model = model
		}
	}
}

// RenderImage generates one evidence image from prompt.
func (c *Client) RenderImage(ctx context.Context, prompt string, opts ...forensic.ImageOption) (*forensic.Image, error) {
	if forensic.Blank(prompt) {
		return nil, forensic.ErrEmptyInput
	}
	options := forensic.ApplyImageOptions(opts...)
	model := c.model
	if options.Model != "" {
		model = ImageModel(options.Model)
	}

	resp, err := c.client.Images.Generate(ctx, buildParams(model, prompt, options))
	if err != nil {
		return nil, wrapError(err)
	}

	for _, img := range resp.Data {
		if img.B64JSON == "" {
			continue
		}
		data, err := base64.StdEncoding.DecodeString(img.B64JSON)
		if err != nil {
			return nil, &forensic.GenerationError{Model: model.String(), Err: fmt.Errorf("decode image: %w", err)}
		}
		return &forensic.Image{MIMEType: "image/png", Data: data}, nil
	}
	return nil, &forensic.GenerationError{Model: model.String(), Err: forensic.ErrNoImage}
}

func buildParams(model ImageModel, prompt string, options *forensic.ImageOptions) openai.ImageGenerateParams {
	params := openai.ImageGenerateParams{
		Model:  openai.ImageModel(model.String()),
		Prompt: prompt,
		N:      openai.Int(1),
		Size:   openai.ImageGenerateParamsSize(sizeFor(options.AspectRatio)),
	}
	// gpt-image-1 always returns base64 and rejects response_format.
	if model != GPTImage1 {
		params.ResponseFormat = openai.ImageGenerateParamsResponseFormatB64JSON
	}
	return params
}

// sizeFor maps an aspect ratio onto the nearest DALL-E 3 size.
func sizeFor(ratio string) string {
	switch ratio {
	case "16:9", "4:3", "3:2":
		return "1792x1024"
	case "9:16", "3:4", "2:3":
		return "1024x1792"
	default:
		return "1024x1024"
	}
}

func wrapError(err error) error {
	var apiErr *openai.Error
	if !errors.As(err, &apiErr) {
		return err
	}
	if delay := forensic.ParseRetryAfter(apiErr.Response); delay > 0 {
		return forensic.NewProviderErrorWithRetry("openai api error", apiErr.StatusCode, delay, err)
	}
	return forensic.NewProviderError("openai api error", apiErr.StatusCode, err)
}

var _ forensic.ImageRenderer = (*Client)(nil)
