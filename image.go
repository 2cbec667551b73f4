package forensic

import (
	"encoding/base64"
	"strings"
)

// DefaultImageMIMEType is assumed when a provider omits the MIME type of
// inline image data.
const DefaultImageMIMEType = "image/png"

// Image is binary image data returned by a provider.
type Image struct {
	MIMEType string
	Data     []byte
}

// DataURL encodes the image as a data URL suitable for an <img> src.
func (i *Image) DataURL() string {
	if i == nil || len(i.Data) == 0 {
		return ""
	}
	return "data:" + i.mimeType() + ";base64," + base64.StdEncoding.EncodeToString(i.Data)
}

// Extension returns a file extension for the image's MIME type.
func (i *Image) Extension() string {
	switch i.mimeType() {
	case "image/jpeg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	case "image/gif":
		return ".gif"
	default:
		return ".png"
	}
}

func (i *Image) mimeType() string {
	if i.MIMEType == "" {
		return DefaultImageMIMEType
	}
	return i.MIMEType
}

// isImageMIME reports whether mime names an image type.
func isImageMIME(mime string) bool {
	return strings.HasPrefix(strings.ToLower(mime), "image/")
}
