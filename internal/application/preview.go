package app

import (
	"bytes"
	"context"
	"fmt"
	"image/png"
	"time"

	"trichoscope/internal/domain/entity"
	"trichoscope/internal/domain/port"
)

// PreviewService рисует кадр интерактивного просмотра
type PreviewService struct {
	sessions port.SessionRepository
	decoder  port.ImageDecoder
	renderer port.Renderer
}

func NewPreviewService(sessions port.SessionRepository, decoder port.ImageDecoder, renderer port.Renderer) *PreviewService {
	return &PreviewService{sessions: sessions, decoder: decoder, renderer: renderer}
}

// Render возвращает PNG кадра в текущем масштабе. pointer задаёт положение курсора
// на экране относительно контейнера; nil, если курсор вне снимка.
func (s *PreviewService) Render(ctx context.Context, sessionID string, pointer *entity.Point) ([]byte, error) {
	var snap entity.Snapshot
	err := s.sessions.View(ctx, sessionID, func(session *entity.Session) error {
		var err error
		snap, err = session.Snapshot(time.Now())
		return err
	})
	if err != nil {
		return nil, err
	}

	src, _, err := s.decoder.Decode(snap.Image.Data)
	if err != nil {
		return nil, err
	}

	var cursor *entity.Point
	if pointer != nil {
		p := snap.Viewport.MapperFor(entity.Point{}).ToImage(*pointer)
		cursor = &p
	}

	frame := s.renderer.RenderLive(src, snap, cursor)
	var buf bytes.Buffer
	if err := png.Encode(&buf, frame); err != nil {
		return nil, fmt.Errorf("encode preview: %w", err)
	}
	return buf.Bytes(), nil
}
