package dspacex

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
)

// Thumbnail is an encoded sample image as sent by the server
type Thumbnail struct {
	Data   string `json:"data"`
	Width  int    `json:"width,omitempty"`
	Height int    `json:"height,omitempty"`
}

// Decode decodes the base64 payload into an image (PNG, JPEG or BMP)
func (t Thumbnail) Decode() (image.Image, error) {
	raw, err := base64.StdEncoding.DecodeString(t.Data)
	if err != nil {
		return nil, fmt.Errorf("decode thumbnail base64: %w", err)
	}
	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("decode thumbnail image: %w", err)
	}
	return img, nil
}
