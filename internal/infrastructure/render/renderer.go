package render

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"

	"trichoscope/internal/domain/entity"
	"trichoscope/internal/domain/port"
)

// PanelStyle параметры панели отчёта на экспортируемом снимке
type PanelStyle struct {
	Padding    int
	LineHeight int
	FontSize   float64
	Width      int
	Background color.RGBA
	Opacity    float64
	Text       color.RGBA
}

// DefaultPanelStyle панель в правом верхнем углу, как в веб-версии отчёта
func DefaultPanelStyle() PanelStyle {
	return PanelStyle{
		Padding:    20,
		LineHeight: 28,
		FontSize:   22,
		Width:      430,
		Background: color.RGBA{R: 0x1f, G: 0x29, B: 0x37, A: 0xff}, // gray-800
		Opacity:    0.85,
		Text:       color.RGBA{R: 0xf3, G: 0xf4, B: 0xf6, A: 0xff}, // gray-100
	}
}

// Renderer рисует живой кадр просмотра и итоговый снимок для экспорта
type Renderer struct {
	Panel PanelStyle
	font  *opentype.Font
}

// NewRenderer загружает встроенный жирный шрифт Go для текста отчёта
func NewRenderer(panel PanelStyle) (*Renderer, error) {
	f, err := opentype.Parse(gobold.TTF)
	if err != nil {
		return nil, fmt.Errorf("parse report font: %w", err)
	}
	return &Renderer{Panel: panel, font: f}, nil
}

// RenderLive исходник и отметки рисуются 1:1, затем кадр масштабируется до zoom.
// Превью кисти рисуется уже в экранных пикселях и не сохраняется.
func (r *Renderer) RenderLive(src image.Image, snap entity.Snapshot, pointer *entity.Point) *image.RGBA {
	base := copyImage(src)
	if snap.ShowAnnotations {
		DrawMarkers(base, snap.Annotations)
	}

	zoom := snap.Viewport.Zoom
	out := base
	if zoom != 1 {
		w := scaledSide(base.Bounds().Dx(), zoom)
		h := scaledSide(base.Bounds().Dy(), zoom)
		out = image.NewRGBA(image.Rect(0, 0, w, h))
		draw.ApproxBiLinear.Scale(out, out.Bounds(), base, base.Bounds(), draw.Src, nil)
	}

	if pointer != nil {
		m := snap.Viewport.MapperFor(entity.Point{})
		fillCircle(out, m.ToDisplay(*pointer), snap.Viewport.BrushRadius, snap.Viewport.ActiveKind.Color(), previewOpacity)
	}
	return out
}

// ComposeExport исходник в родном разрешении, все отметки (переключатель
// видимости игнорируется) и панель отчёта. Снимок без панели не возвращается.
func (r *Renderer) ComposeExport(src image.Image, snap entity.Snapshot, report entity.Report) (*image.RGBA, error) {
	out := copyImage(src)
	DrawMarkers(out, snap.Annotations)
	if err := r.drawPanel(out, report.Lines(snap.PatientID)); err != nil {
		return nil, err
	}
	return out, nil
}

// drawPanel полупрозрачная панель у правого верхнего края с текстом отчёта
func (r *Renderer) drawPanel(dst *image.RGBA, lines []string) error {
	p := r.Panel
	if p.FontSize <= 0 {
		return fmt.Errorf("report panel: font size must be positive, got %v", p.FontSize)
	}
	boxHeight := len(lines)*p.LineHeight + p.Padding
	startX := dst.Bounds().Dx() - p.Width - p.Padding
	startY := p.Padding

	box := image.Rect(startX, startY, startX+p.Width, startY+boxHeight)
	bg := image.NewUniform(withOpacity(p.Background, p.Opacity))
	draw.Draw(dst, box.Intersect(dst.Bounds()), bg, image.Point{}, draw.Over)

	// opentype.Face не потокобезопасен, поэтому создаётся на каждый вызов
	face, err := opentype.NewFace(r.font, &opentype.FaceOptions{
		Size:    p.FontSize,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return fmt.Errorf("report panel: create font face: %w", err)
	}
	defer face.Close()

	d := &font.Drawer{Dst: dst, Src: image.NewUniform(p.Text), Face: face}
	for i, line := range lines {
		if line == "" {
			continue
		}
		d.Dot = fixed.P(startX+p.Padding/2, startY+p.Padding+i*p.LineHeight)
		d.DrawString(line)
	}
	return nil
}

// copyImage копия исходника в RGBA с началом координат в (0, 0)
func copyImage(src image.Image) *image.RGBA {
	b := src.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(out, out.Bounds(), src, b.Min, draw.Src)
	return out
}

func scaledSide(side int, zoom float64) int {
	n := int(math.Round(float64(side) * zoom))
	if n < 1 {
		return 1
	}
	return n
}

// Проверка реализации интерфейса
var _ port.Renderer = (*Renderer)(nil)
