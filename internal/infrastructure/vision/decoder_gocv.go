//go:build gocv
// +build gocv

package vision

import (
	"fmt"
	"image"
	"net/http"
	"strings"

	"gocv.io/x/gocv"

	"trichoscope/internal/domain/entity"
	"trichoscope/internal/domain/port"
)

// ImageDecoder декодирует снимки через OpenCV (сборка с тегом gocv)
type ImageDecoder struct {
	MaxPixels int
}

// NewImageDecoder создаёт декодер с ограничением на число пикселей
func NewImageDecoder(maxPixels int) *ImageDecoder {
	return &ImageDecoder{MaxPixels: maxPixels}
}

// Decode превращает байты в gocv.Mat и затем в image.Image
func (d *ImageDecoder) Decode(data []byte) (image.Image, string, error) {
	if len(data) == 0 {
		return nil, "", fmt.Errorf("%w: empty payload", entity.ErrInvalidImage)
	}

	mat, err := gocv.IMDecode(data, gocv.IMReadColor)
	if err != nil || mat.Empty() {
		if !mat.Empty() {
			mat.Close()
		}
		return nil, "", fmt.Errorf("%w: failed to decode image", entity.ErrInvalidImage)
	}
	defer mat.Close()

	if err := d.checkSize(mat.Cols(), mat.Rows()); err != nil {
		return nil, "", err
	}

	img, err := mat.ToImage()
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", entity.ErrInvalidImage, err)
	}
	return img, formatOf(data), nil
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

// formatOf имя формата по сигнатуре, в тех же терминах что image.Decode
func formatOf(data []byte) string {
	ct := http.DetectContentType(data)
	if i := strings.IndexByte(ct, '/'); i >= 0 {
		return ct[i+1:]
	}
	return ct
}

// Проверка реализации интерфейса
var _ port.ImageDecoder = (*ImageDecoder)(nil)
