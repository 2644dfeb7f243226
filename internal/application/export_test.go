package app

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"trichoscope/internal/domain/entity"
	"trichoscope/internal/domain/port"
)

// editingRenderer правит сессию посреди экспорта
type editingRenderer struct {
	port.Renderer
	edit func()
}

func (r *editingRenderer) ComposeExport(src image.Image, snap entity.Snapshot, report entity.Report) (*image.RGBA, error) {
	r.edit()
	return r.Renderer.ComposeExport(src, snap, report)
}

// panelessRenderer не может нарисовать панель отчёта
type panelessRenderer struct {
	port.Renderer
}

func (panelessRenderer) ComposeExport(image.Image, entity.Snapshot, entity.Report) (*image.RGBA, error) {
	return nil, errors.New("report panel: font unavailable")
}

type brokenDecoder struct{}

func (brokenDecoder) Decode([]byte) (image.Image, string, error) {
	return nil, "", errors.New("corrupted")
}

func TestExportService_ProducesPNG(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	id := env.open(t, 640, 480)

	_, err := env.sessions.SetPatient(ctx, id, "P-42", "")
	require.NoError(t, err)
	_, _, err = env.sessions.PlaceNative(ctx, id, entity.Point{X: 100, Y: 100}, nil, 8)
	require.NoError(t, err)

	sink := new(MockSink)
	sink.On("Save", mock.Anything, mock.AnythingOfType("string"), mock.Anything).Return(nil)

	svc := NewExportService(env.repo, env.decoder, env.renderer, sink)
	svc.now = func() time.Time { return time.Date(2024, 3, 9, 14, 5, 7, 123e6, time.UTC) }

	out, err := svc.Export(ctx, id)
	require.NoError(t, err)
	require.Equal(t, "report-P-42-2024-03-09T14-05-07.123Z.png", out.Filename)
	require.Equal(t, 1, out.Report.Count(entity.VellusHair))
	require.Equal(t, "Patient ID: P-42", out.Lines[0])

	img, err := png.Decode(bytes.NewReader(out.PNG))
	require.NoError(t, err)
	require.Equal(t, image.Rect(0, 0, 640, 480), img.Bounds())

	sink.AssertCalled(t, "Save", mock.Anything, out.Filename, out.PNG)
}

func TestExportService_FilenameWithoutPatient(t *testing.T) {
	env := newTestEnv(t)
	id := env.open(t, 32, 32)

	out, err := NewExportService(env.repo, env.decoder, env.renderer, nil).Export(context.Background(), id)
	require.NoError(t, err)
	require.Regexp(t, regexp.MustCompile(`^report-\d{4}-\d{2}-\d{2}T\d{2}-\d{2}-\d{2}\.\d{3}Z\.png$`), out.Filename)
}

func TestExportService_IgnoresEditsDuringExport(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	id := env.open(t, 64, 64)

	_, _, err := env.sessions.PlaceNative(ctx, id, entity.Point{X: 10, Y: 10}, nil, 3)
	require.NoError(t, err)

	renderer := &editingRenderer{Renderer: env.renderer, edit: func() {
		kind := entity.TerminalHair
		_, _, err := env.sessions.PlaceNative(ctx, id, entity.Point{X: 20, Y: 20}, &kind, 3)
		require.NoError(t, err)
	}}

	out, err := NewExportService(env.repo, env.decoder, renderer, nil).Export(ctx, id)
	require.NoError(t, err)
	require.Equal(t, 1, out.Report.TotalHairCount)
	require.Zero(t, out.Report.Count(entity.TerminalHair))

	state, err := env.sessions.State(ctx, id)
	require.NoError(t, err)
	require.Len(t, state.Annotations, 2)
}

func TestExportService_Failures(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	id := env.open(t, 16, 16)

	sink := new(MockSink)
	_, err := NewExportService(env.repo, brokenDecoder{}, env.renderer, sink).Export(ctx, id)
	require.ErrorIs(t, err, entity.ErrExport)
	sink.AssertNotCalled(t, "Save", mock.Anything, mock.Anything, mock.Anything)

	failing := new(MockSink)
	failing.On("Save", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("disk full"))
	_, err = NewExportService(env.repo, env.decoder, env.renderer, failing).Export(ctx, id)
	require.ErrorIs(t, err, entity.ErrExport)

	_, err = NewExportService(env.repo, env.decoder, env.renderer, nil).Export(ctx, "missing")
	require.ErrorIs(t, err, entity.ErrSessionNotFound)
}

func TestExportService_PanelFailure(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	id := env.open(t, 50, 50)

	sink := new(MockSink)
	svc := NewExportService(env.repo, env.decoder, panelessRenderer{Renderer: env.renderer}, sink)

	out, err := svc.Export(ctx, id)
	require.ErrorIs(t, err, entity.ErrExport)
	require.ErrorContains(t, err, "font unavailable")
	require.Nil(t, out)
	sink.AssertNotCalled(t, "Save", mock.Anything, mock.Anything, mock.Anything)
}
