package entity

import "fmt"

const (
	DefaultZoom        = 1.0
	DefaultBrushRadius = 5.0
)

// Point точка на плоскости
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Viewport временное состояние просмотра. На сохранённые отметки влияет
// только как источник значений по умолчанию при постановке новой.
type Viewport struct {
	Zoom        float64     `json:"zoom"`
	BrushRadius float64     `json:"brush_radius"`
	ActiveKind  FeatureKind `json:"active_kind"`
}

// DefaultViewport начальное состояние просмотра для нового снимка
func DefaultViewport() Viewport {
	return Viewport{
		Zoom:        DefaultZoom,
		BrushRadius: DefaultBrushRadius,
		ActiveKind:  VellusHair,
	}
}

// Validate проверяет инварианты: масштаб и радиус кисти положительны
func (v Viewport) Validate() error {
	if !isFinite(v.Zoom) || v.Zoom <= 0 {
		return fmt.Errorf("%w: zoom %v", ErrInvalidViewport, v.Zoom)
	}
	if !isFinite(v.BrushRadius) || v.BrushRadius <= 0 {
		return fmt.Errorf("%w: brush radius %v", ErrInvalidViewport, v.BrushRadius)
	}
	if !v.ActiveKind.Valid() {
		return fmt.Errorf("%w: active kind %d", ErrInvalidViewport, int(v.ActiveKind))
	}
	return nil
}

// Mapper переводит координаты экрана в координаты исходного изображения и обратно.
// Отметки всегда хранятся в координатах изображения, поэтому смена масштаба их не сдвигает.
type Mapper struct {
	Origin Point   // смещение контейнера на экране
	Zoom   float64 // текущий масштаб
}

// MapperFor возвращает преобразование для текущего масштаба просмотра
func (v Viewport) MapperFor(origin Point) Mapper {
	return Mapper{Origin: origin, Zoom: v.Zoom}
}

// ToImage: image = (display - origin) / zoom
func (m Mapper) ToImage(display Point) Point {
	return Point{
		X: (display.X - m.Origin.X) / m.Zoom,
		Y: (display.Y - m.Origin.Y) / m.Zoom,
	}
}

// ToDisplay: display = origin + image * zoom
func (m Mapper) ToDisplay(p Point) Point {
	return Point{
		X: m.Origin.X + p.X*m.Zoom,
		Y: m.Origin.Y + p.Y*m.Zoom,
	}
}
