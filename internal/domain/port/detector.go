package port

import (
	"context"

	"trichoscope/internal/domain/entity"
)

// AnnotationDetector интерфейс внешнего ИИ-детектора волос
type AnnotationDetector interface {
	// Detect анализирует изображение и возвращает предложенные отметки.
	// mimeType всегда один из форматов, которые принимает детектор (PNG, JPEG, WebP).
	// Пустой результат не является ошибкой; ошибка означает сбой запроса.
	Detect(ctx context.Context, imageData []byte, mimeType string) ([]entity.ProposedAnnotation, error)
}
