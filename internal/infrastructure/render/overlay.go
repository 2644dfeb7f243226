package render

import (
	"image"
	"image/color"
	"math"

	"golang.org/x/image/draw"

	"trichoscope/internal/domain/entity"
)

const (
	markerOpacity  = 0.7
	strokeOpacity  = 0.8
	previewOpacity = 0.25
	strokeWidth    = 1.0
)

var strokeColor = color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}

// DrawMarkers рисует отметки в масштабе 1:1 в порядке вставки:
// поздние отметки перекрывают ранние.
func DrawMarkers(dst draw.Image, annotations []entity.Annotation) {
	for _, a := range annotations {
		f, ok := a.Kind.Feature()
		if !ok {
			continue
		}
		c := a.Center()
		fillCircle(dst, c, a.Radius, f.Color, markerOpacity)
		strokeCircle(dst, c, a.Radius, strokeColor, strokeOpacity)
	}
}

// fillCircle закрашивает круг цветом c с заданной непрозрачностью
func fillCircle(dst draw.Image, center entity.Point, r float64, c color.RGBA, opacity float64) {
	m := &circleMask{cx: center.X, cy: center.Y, inner: -1, outer: r}
	paint(dst, m, c, opacity)
}

// strokeCircle рисует контур толщиной strokeWidth, центрированный на окружности радиуса r
func strokeCircle(dst draw.Image, center entity.Point, r float64, c color.RGBA, opacity float64) {
	half := strokeWidth / 2
	m := &circleMask{cx: center.X, cy: center.Y, inner: r - half, outer: r + half}
	paint(dst, m, c, opacity)
}

func paint(dst draw.Image, m *circleMask, c color.RGBA, opacity float64) {
	rect := m.Bounds().Intersect(dst.Bounds())
	if rect.Empty() {
		return
	}
	src := image.NewUniform(withOpacity(c, opacity))
	draw.DrawMask(dst, rect, src, image.Point{}, m, rect.Min, draw.Over)
}

func withOpacity(c color.RGBA, opacity float64) color.NRGBA {
	return color.NRGBA{R: c.R, G: c.G, B: c.B, A: uint8(math.Round(float64(c.A) * opacity))}
}

// circleMask маска кольца inner < d <= outer; при inner < 0 сплошной круг.
// Пиксель попадает в маску, если его центр лежит внутри.
type circleMask struct {
	cx, cy       float64
	inner, outer float64
}

func (m *circleMask) ColorModel() color.Model {
	return color.AlphaModel
}

func (m *circleMask) Bounds() image.Rectangle {
	return image.Rect(
		int(math.Floor(m.cx-m.outer)),
		int(math.Floor(m.cy-m.outer)),
		int(math.Ceil(m.cx+m.outer))+1,
		int(math.Ceil(m.cy+m.outer))+1,
	)
}

func (m *circleMask) At(x, y int) color.Color {
	dx := float64(x) + 0.5 - m.cx
	dy := float64(y) + 0.5 - m.cy
	d2 := dx*dx + dy*dy
	if d2 > m.outer*m.outer {
		return color.Alpha{}
	}
	if m.inner >= 0 && d2 <= m.inner*m.inner {
		return color.Alpha{}
	}
	return color.Alpha{A: 0xff}
}
