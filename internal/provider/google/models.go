package google

// ChatModel represents a Gemini model used for audits.
type ChatModel string

const (
	Gemini3FlashPreview ChatModel = "gemini-3-flash-preview"
	Gemini3ProPreview   ChatModel = "gemini-3-pro-preview"
	Gemini25Pro         ChatModel = "gemini-2.5-pro"
	Gemini25Flash       ChatModel = "gemini-2.5-flash"

	// DefaultChatModel supports code execution, structured output and
	// thinking budgets in one request.
	DefaultChatModel ChatModel = Gemini3FlashPreview
)

// String returns the model identifier string.
func (m ChatModel) String() string { return string(m) }

// ImageModel represents a Gemini model that returns inline images.
type ImageModel string

const (
	Gemini25FlashImage  ImageModel = "gemini-2.5-flash-image"
	Gemini3ProImagePrev ImageModel = "gemini-3-pro-image-preview"

	// DefaultImageModel is the recommended default image model.
	DefaultImageModel ImageModel = Gemini25FlashImage
)

// String returns the model identifier string.
func (m ImageModel) String() string { return string(m) }
