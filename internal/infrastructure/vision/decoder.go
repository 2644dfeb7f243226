//go:build !gocv
// +build !gocv

package vision

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"trichoscope/internal/domain/entity"
	"trichoscope/internal/domain/port"
)

// ImageDecoder декодирует снимки средствами image и golang.org/x/image
type ImageDecoder struct {
	MaxPixels int
}

// NewImageDecoder создаёт декодер с ограничением на число пикселей
func NewImageDecoder(maxPixels int) *ImageDecoder {
	return &ImageDecoder{MaxPixels: maxPixels}
}

// Decode проверяет размеры по заголовку и только потом декодирует пиксели
func (d *ImageDecoder) Decode(data []byte) (image.Image, string, error) {
	if len(data) == 0 {
		return nil, "", fmt.Errorf("%w: empty payload", entity.ErrInvalidImage)
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", entity.ErrInvalidImage, err)
	}
	if err := d.checkSize(cfg.Width, cfg.Height); err != nil {
		return nil, "", err
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", entity.ErrInvalidImage, err)
	}
	return img, format, nil
}

func (d *ImageDecoder) checkSize(w, h int) error {
	if w <= 0 || h <= 0 {
		return fmt.Errorf("%w: image has no pixels (%dx%d)", entity.ErrInvalidImage, w, h)
	}
	if d.MaxPixels > 0 && w*h > d.MaxPixels {
		return fmt.Errorf("%w: image is too large (%dx%d)", entity.ErrInvalidImage, w, h)
	}
	return nil
}

// Проверка реализации интерфейса
var _ port.ImageDecoder = (*ImageDecoder)(nil)
