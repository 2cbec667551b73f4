package forensic

// DefaultThinkingBudget bounds the provider's internal reasoning allowance
// for an audit, in tokens.
const DefaultThinkingBudget = 24000

// DefaultAspectRatio is the aspect ratio requested for evidence images.
const DefaultAspectRatio = "16:9"

// Options contains configuration for an audit request.
type Options struct {
	Model          string
	ThinkingBudget int
	// DisableCodeExecution turns off the provider's sandboxed code tool.
	DisableCodeExecution bool
	Universe             *Universe
}

// Option is a functional option for configuring audit requests.
type Option func(*Options)

// WithModel sets the model to use for the audit.
func WithModel(model string) Option {
	return func(o *Options) {
		o.Model = model
	}
}

// WithThinkingBudget sets the reasoning token allowance.
func WithThinkingBudget(n int) Option {
	return func(o *Options) {
		o.ThinkingBudget = n
	}
}

// WithoutCodeExecution disables the code execution tool.
func WithoutCodeExecution() Option {
	return func(o *Options) {
		o.DisableCodeExecution = true
	}
}

// WithUniverse overrides the constants the audit treats as ground truth.
func WithUniverse(u Universe) Option {
	return func(o *Options) {
		o.Universe = &u
	}
}

// ApplyOptions applies functional options to an Options struct.
// Unset fields take their defaults.
func ApplyOptions(opts ...Option) *Options {
	o := &Options{ThinkingBudget: DefaultThinkingBudget}
	for _, opt := range opts {
		opt(o)
	}
	if o.Universe == nil {
		u := DefaultUniverse
		o.Universe = &u
	}
	return o
}

// ImageOptions contains configuration for an evidence image request.
type ImageOptions struct {
	Model       string
	AspectRatio string
}

// ImageOption is a functional option for configuring image requests.
type ImageOption func(*ImageOptions)

// WithImageModel sets the model to use for image generation.
func WithImageModel(model string) ImageOption {
	return func(o *ImageOptions) {
		o.Model = model
	}
}

// WithAspectRatio sets the aspect ratio, e.g. "16:9" or "1:1".
func WithAspectRatio(ratio string) ImageOption {
	return func(o *ImageOptions) {
		o.AspectRatio = ratio
	}
}

// ApplyImageOptions applies functional options to an ImageOptions struct.
func ApplyImageOptions(opts ...ImageOption) *ImageOptions {
	o := &ImageOptions{AspectRatio: DefaultAspectRatio}
	for _, opt := range opts {
		opt(o)
	}
	return o
}
