package render

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/require"

	"trichoscope/internal/domain/entity"
)

func blackCanvas(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := 3; i < len(img.Pix); i += 4 {
		img.Pix[i] = 0xff
	}
	return img
}

func annotation(t *testing.T, x, y float64, kind entity.FeatureKind, r float64) entity.Annotation {
	t.Helper()
	a, err := entity.NewAnnotation(x, y, kind, r)
	require.NoError(t, err)
	return a
}

func requireRGB(t *testing.T, want color.RGBA, got color.Color, delta float64) {
	t.Helper()
	c := color.RGBAModel.Convert(got).(color.RGBA)
	require.InDelta(t, want.R, c.R, delta, "red")
	require.InDelta(t, want.G, c.G, delta, "green")
	require.InDelta(t, want.B, c.B, delta, "blue")
}

func TestDrawMarkers_FillAt70Percent(t *testing.T) {
	img := blackCanvas(40, 40)
	DrawMarkers(img, []entity.Annotation{annotation(t, 20, 20, entity.TerminalHair, 8)})

	// #f87171 поверх чёрного с альфой 0.7
	requireRGB(t, color.RGBA{R: 174, G: 79, B: 79}, img.At(20, 20), 2)
	// вне круга пиксель не тронут
	requireRGB(t, color.RGBA{}, img.At(2, 2), 0)
}

func TestDrawMarkers_StrokeOnCircumference(t *testing.T) {
	img := blackCanvas(40, 40)
	DrawMarkers(img, []entity.Annotation{annotation(t, 20, 20, entity.VellusHair, 8)})

	// пиксель (27, 19) лежит на окружности радиуса 8: белый контур 80% поверх заливки
	edge := color.RGBAModel.Convert(img.At(27, 19)).(color.RGBA)
	inner := color.RGBAModel.Convert(img.At(20, 20)).(color.RGBA)
	require.Greater(t, edge.R, inner.R)
	require.Greater(t, edge.B, inner.B)
}

func TestDrawMarkers_LaterOccludesEarlier(t *testing.T) {
	first := annotation(t, 20, 20, entity.VellusHair, 6)
	second := annotation(t, 20, 20, entity.TerminalHair, 6)

	a := blackCanvas(40, 40)
	DrawMarkers(a, []entity.Annotation{first, second})
	b := blackCanvas(40, 40)
	DrawMarkers(b, []entity.Annotation{second, first})

	ca := color.RGBAModel.Convert(a.At(20, 20)).(color.RGBA)
	cb := color.RGBAModel.Convert(b.At(20, 20)).(color.RGBA)
	require.NotEqual(t, ca, cb)
	// сверху красный terminal
	require.Greater(t, ca.R, ca.G)
	// сверху зелёный vellus
	require.Greater(t, cb.G, cb.R)
}

func TestDrawMarkers_ClipsAtEdges(t *testing.T) {
	img := blackCanvas(10, 10)
	require.NotPanics(t, func() {
		DrawMarkers(img, []entity.Annotation{
			annotation(t, 0, 0, entity.AnagenHair, 6),
			annotation(t, 500, 500, entity.AnagenHair, 6),
		})
	})
}

func TestDrawMarkers_Idempotent(t *testing.T) {
	anns := []entity.Annotation{annotation(t, 5, 5, entity.FollicularUnit1, 3)}
	a := blackCanvas(12, 12)
	b := blackCanvas(12, 12)
	DrawMarkers(a, anns)
	DrawMarkers(b, anns)
	require.Equal(t, a.Pix, b.Pix)
}
