package port

import "image"

// ImageDecoder интерфейс декодера исходных снимков
type ImageDecoder interface {
	// Decode возвращает изображение и имя формата
	Decode(data []byte) (image.Image, string, error)
}
