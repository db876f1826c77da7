// Package assets loads the images composited onto a card: the school logo
// and student photos.
package assets

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"strings"

	_ "golang.org/x/image/webp"
)

var (
	// ErrUnsupportedImage is returned for bytes no registered decoder accepts.
	ErrUnsupportedImage = errors.New("assets: unsupported image format")
	// ErrInvalidDataURL is returned for malformed data URLs.
	ErrInvalidDataURL = errors.New("assets: invalid data url")
)

// DecodeImage decodes PNG, JPEG, GIF or WebP bytes.
func DecodeImage(data []byte) (image.Image, error) {
	if len(data) == 0 {
		return nil, ErrUnsupportedImage
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		if errors.Is(err, image.ErrFormat) {
			return nil, ErrUnsupportedImage
		}
		return nil, fmt.Errorf("assets: decode image: %w", err)
	}
	return img, nil
}

// ParseDataURL extracts the payload of a base64 data URL such as
// "data:image/png;base64,...". Plain base64 text is accepted as well.
func ParseDataURL(raw string) ([]byte, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	payload := raw
	if strings.HasPrefix(raw, "data:") {
		meta, data, ok := strings.Cut(raw[len("data:"):], ",")
		if !ok || !strings.HasSuffix(meta, ";base64") {
			return nil, ErrInvalidDataURL
		}
		payload = data
	}
	decoded, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDataURL, err)
	}
	return decoded, nil
}

// Sniff reports the MIME type of an image payload, or "" if unknown.
func Sniff(data []byte) string {
	_, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return ""
	}
	return "image/" + format
}
