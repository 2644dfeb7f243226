package app

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"trichoscope/internal/domain/entity"
	"trichoscope/internal/infrastructure/render"
	"trichoscope/internal/infrastructure/storage"
	"trichoscope/internal/infrastructure/vision"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: 40, G: 30, B: 20, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

type MockDetector struct {
	mock.Mock
}

func (m *MockDetector) Detect(ctx context.Context, imageData []byte, mimeType string) ([]entity.ProposedAnnotation, error) {
	args := m.Called(ctx, imageData, mimeType)
	proposals, _ := args.Get(0).([]entity.ProposedAnnotation)
	return proposals, args.Error(1)
}

type MockSink struct {
	mock.Mock
}

func (m *MockSink) Save(ctx context.Context, filename string, data []byte) error {
	return m.Called(ctx, filename, data).Error(0)
}

type testEnv struct {
	repo     *storage.MemorySessionRepository
	decoder  *vision.ImageDecoder
	renderer *render.Renderer
	sessions *SessionService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	renderer, err := render.NewRenderer(render.DefaultPanelStyle())
	require.NoError(t, err)
	repo := storage.NewMemorySessionRepository()
	decoder := vision.NewImageDecoder(0)
	return &testEnv{
		repo:     repo,
		decoder:  decoder,
		renderer: renderer,
		sessions: NewSessionService(repo, decoder),
	}
}

func (e *testEnv) open(t *testing.T, w, h int) string {
	t.Helper()
	state, err := e.sessions.Open(context.Background(), pngBytes(t, w, h))
	require.NoError(t, err)
	return state.ID
}
