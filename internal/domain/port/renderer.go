package port

import (
	"image"

	"trichoscope/internal/domain/entity"
)

// Renderer рисует отметки поверх снимка
type Renderer interface {
	// RenderLive строит кадр интерактивного просмотра в текущем масштабе.
	// pointer задаёт позицию курсора в координатах изображения, nil если курсора нет.
	RenderLive(src image.Image, snap entity.Snapshot, pointer *entity.Point) *image.RGBA

	// ComposeExport собирает итоговый снимок: исходник, все отметки и панель отчёта.
	// Если панель нарисовать не удалось, возвращает ошибку.
	ComposeExport(src image.Image, snap entity.Snapshot, report entity.Report) (*image.RGBA, error)
}
