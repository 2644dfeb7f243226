package app

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"trichoscope/internal/domain/entity"
)

func TestSessionService_OpenRejectsUndecodableImage(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.sessions.Open(context.Background(), []byte("not an image"))
	require.ErrorIs(t, err, entity.ErrInvalidImage)
}

func TestSessionService_OpenReportsDimensions(t *testing.T) {
	env := newTestEnv(t)

	state, err := env.sessions.Open(context.Background(), pngBytes(t, 64, 48))
	require.NoError(t, err)
	require.NotEmpty(t, state.ID)
	require.Equal(t, 64, state.ImageWidth)
	require.Equal(t, 48, state.ImageHeight)
	require.Equal(t, "png", state.ImageFormat)
	require.Empty(t, state.Annotations)
	require.Equal(t, "N/A", state.Report.VellusToTerminalRatio)
}

func TestSessionService_PlaceAtMapsDisplayToImage(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	id := env.open(t, 200, 200)

	zoom := 2.5
	_, err := env.sessions.UpdateViewport(ctx, id, ViewportPatch{Zoom: &zoom})
	require.NoError(t, err)

	a, report, err := env.sessions.PlaceAt(ctx, id, entity.Point{X: 260, Y: 135}, entity.Point{X: 10, Y: 10}, nil, 0)
	require.NoError(t, err)
	require.InDelta(t, 100, a.X, 1e-9)
	require.InDelta(t, 50, a.Y, 1e-9)
	require.Equal(t, entity.VellusHair, a.Kind)
	require.Equal(t, entity.DefaultBrushRadius, a.Radius)
	require.Equal(t, 1, report.Count(entity.VellusHair))

	// повторный зум не сдвигает сохранённые координаты
	zoom = 0.5
	state, err := env.sessions.UpdateViewport(ctx, id, ViewportPatch{Zoom: &zoom})
	require.NoError(t, err)
	require.Equal(t, a, state.Annotations[0])
	display := state.Viewport.MapperFor(entity.Point{}).ToDisplay(a.Center())
	require.Equal(t, entity.Point{X: 50, Y: 25}, display)
}

func TestSessionService_PlaceRejectsClickOutsideImage(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	id := env.open(t, 50, 50)

	_, _, err := env.sessions.PlaceAt(ctx, id, entity.Point{X: 5, Y: 5}, entity.Point{X: 10, Y: 10}, nil, 0)
	require.ErrorIs(t, err, entity.ErrInvalidAnnotation)

	state, err := env.sessions.State(ctx, id)
	require.NoError(t, err)
	require.Empty(t, state.Annotations)
}

func TestSessionService_UndoInReverseOrder(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	id := env.open(t, 100, 100)

	kinds := []entity.FeatureKind{entity.TerminalHair, entity.FollicularUnit1, entity.AnagenHair}
	var placed []entity.Annotation
	for i := range kinds {
		a, _, err := env.sessions.PlaceNative(ctx, id, entity.Point{X: float64(i * 10), Y: 5}, &kinds[i], 4)
		require.NoError(t, err)
		placed = append(placed, a)
	}

	for i := len(placed) - 1; i >= 0; i-- {
		undone, _, err := env.sessions.Undo(ctx, id)
		require.NoError(t, err)
		require.NotNil(t, undone)
		require.Equal(t, placed[i], *undone)
	}

	undone, report, err := env.sessions.Undo(ctx, id)
	require.NoError(t, err)
	require.Nil(t, undone)
	require.Zero(t, report.TotalHairCount)
}

func TestSessionService_ClearAndImport(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	id := env.open(t, 100, 100)

	_, _, err := env.sessions.PlaceNative(ctx, id, entity.Point{X: 1, Y: 1}, nil, 0)
	require.NoError(t, err)

	report, err := env.sessions.Clear(ctx, id)
	require.NoError(t, err)
	require.Zero(t, report.Count(entity.VellusHair))

	report, err = env.sessions.Clear(ctx, id)
	require.NoError(t, err)
	require.Zero(t, report.TotalHairCount)

	state, err := env.sessions.Import(ctx, id, []AnnotationInput{
		{X: 1, Y: 2, Kind: kindOf(entity.FollicularUnit1), Radius: 4},
		{X: 3, Y: 4, Kind: kindOf(entity.FollicularUnit1), Radius: 4},
		{X: 5, Y: 6, Kind: kindOf(entity.FollicularUnit2), Radius: 4},
		{X: 7, Y: 8, Kind: kindOf(entity.FollicularUnit3Plus), Radius: 4},
	})
	require.NoError(t, err)
	require.Len(t, state.Annotations, 4)
	require.Equal(t, "1.75", state.Report.AvgHairsPerFU)

	_, err = env.sessions.Import(ctx, id, []AnnotationInput{{X: -1, Y: 0, Kind: kindOf(entity.VellusHair), Radius: 1}})
	require.ErrorIs(t, err, entity.ErrInvalidAnnotation)
	state, err = env.sessions.State(ctx, id)
	require.NoError(t, err)
	require.Len(t, state.Annotations, 4)
}

func kindOf(k entity.FeatureKind) *entity.FeatureKind {
	return &k
}

func TestSessionService_ImportRejectsMissingKind(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	id := env.open(t, 100, 100)

	var items []AnnotationInput
	require.NoError(t, json.Unmarshal([]byte(`[{"x": 1, "y": 1, "kind": "terminal", "radius": 3}, {"x": 10, "y": 10, "radius": 3}]`), &items))

	_, err := env.sessions.Import(ctx, id, items)
	require.ErrorIs(t, err, entity.ErrInvalidAnnotation)
	require.ErrorContains(t, err, "annotation #1")
	require.ErrorContains(t, err, "kind is required")

	var unknown []AnnotationInput
	require.Error(t, json.Unmarshal([]byte(`[{"x": 1, "y": 1, "kind": "eyebrow", "radius": 3}]`), &unknown))

	state, err := env.sessions.State(ctx, id)
	require.NoError(t, err)
	require.Empty(t, state.Annotations)
}

func TestSessionService_ImportRejectsPointsOutsideImage(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	id := env.open(t, 100, 100)

	placed, _, err := env.sessions.PlaceNative(ctx, id, entity.Point{X: 5, Y: 5}, nil, 0)
	require.NoError(t, err)

	_, err = env.sessions.Import(ctx, id, []AnnotationInput{
		{X: 50, Y: 50, Kind: kindOf(entity.TerminalHair), Radius: 4},
		{X: 5000, Y: 5000, Kind: kindOf(entity.TerminalHair), Radius: 4},
	})
	require.ErrorIs(t, err, entity.ErrInvalidAnnotation)
	require.ErrorContains(t, err, "outside 100x100 image")

	state, err := env.sessions.State(ctx, id)
	require.NoError(t, err)
	require.Equal(t, []entity.Annotation{placed}, state.Annotations)
}

func TestSessionService_UpdateViewportIsAllOrNothing(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	id := env.open(t, 10, 10)

	zoom, brush := 3.0, -1.0
	_, err := env.sessions.UpdateViewport(ctx, id, ViewportPatch{Zoom: &zoom, BrushRadius: &brush})
	require.ErrorIs(t, err, entity.ErrInvalidViewport)

	state, err := env.sessions.State(ctx, id)
	require.NoError(t, err)
	require.Equal(t, entity.DefaultViewport(), state.Viewport)

	kind := entity.TelogenHair
	hide := false
	brush = 12
	state, err = env.sessions.UpdateViewport(ctx, id, ViewportPatch{BrushRadius: &brush, ActiveKind: &kind, ShowAnnotations: &hide})
	require.NoError(t, err)
	require.Equal(t, 12.0, state.Viewport.BrushRadius)
	require.Equal(t, entity.TelogenHair, state.Viewport.ActiveKind)
	require.False(t, state.ShowAnnotations)
}

func TestSessionService_LoadImageKeepsStateOnBadInput(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	id := env.open(t, 20, 20)

	_, _, err := env.sessions.PlaceNative(ctx, id, entity.Point{X: 1, Y: 1}, nil, 0)
	require.NoError(t, err)

	_, err = env.sessions.LoadImage(ctx, id, []byte("garbage"))
	require.ErrorIs(t, err, entity.ErrInvalidImage)
	state, err := env.sessions.State(ctx, id)
	require.NoError(t, err)
	require.Len(t, state.Annotations, 1)

	state, err = env.sessions.LoadImage(ctx, id, pngBytes(t, 30, 30))
	require.NoError(t, err)
	require.Empty(t, state.Annotations)
	require.Equal(t, 30, state.ImageWidth)

	// для нового id сессия создаётся
	state, err = env.sessions.LoadImage(ctx, "tg-7", pngBytes(t, 5, 5))
	require.NoError(t, err)
	require.Equal(t, "tg-7", state.ID)
}

func TestSessionService_PatientAndReport(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	id := env.open(t, 20, 20)

	_, err := env.sessions.SetPatient(ctx, id, "P-5", "Ivanov")
	require.NoError(t, err)

	_, lines, err := env.sessions.Report(ctx, id)
	require.NoError(t, err)
	require.Equal(t, "Patient ID: P-5", lines[0])

	require.NoError(t, env.sessions.Close(ctx, id))
	_, err = env.sessions.State(ctx, id)
	require.ErrorIs(t, err, entity.ErrSessionNotFound)
}

func TestSessionService_DefaultBrushRadius(t *testing.T) {
	env := newTestEnv(t)
	env.sessions.SetDefaultBrushRadius(9)

	id := env.open(t, 10, 10)
	a, _, err := env.sessions.PlaceNative(context.Background(), id, entity.Point{X: 1, Y: 1}, nil, 0)
	require.NoError(t, err)
	require.Equal(t, 9.0, a.Radius)
}
