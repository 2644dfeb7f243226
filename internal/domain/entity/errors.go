package entity

import "errors"

var (
	// ErrInvalidImage исходное изображение не удалось декодировать
	ErrInvalidImage = errors.New("invalid image")
	// ErrExternalService сбой внешнего ИИ-детектора (сеть, ключ, квота)
	ErrExternalService = errors.New("external service error")
	// ErrExport не удалось собрать итоговое изображение
	ErrExport = errors.New("export failed")

	ErrSessionNotFound   = errors.New("session not found")
	ErrNoImage           = errors.New("no image loaded")
	ErrInvalidAnnotation = errors.New("invalid annotation")
	ErrInvalidViewport   = errors.New("invalid viewport")
	ErrImageReplaced     = errors.New("image was replaced")
)
