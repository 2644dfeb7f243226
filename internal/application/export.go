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

// ExportService собирает итоговый снимок с разметкой и отчётом
type ExportService struct {
	sessions port.SessionRepository
	decoder  port.ImageDecoder
	renderer port.Renderer
	sink     port.ExportSink
	now      func() time.Time
}

// ExportOutput готовый PNG и имя файла
type ExportOutput struct {
	Filename string
	PNG      []byte
	Report   entity.Report
	Lines    []string
}

// NewExportService создаёт сервис экспорта; sink может быть nil, тогда файл только возвращается
func NewExportService(sessions port.SessionRepository, decoder port.ImageDecoder, renderer port.Renderer, sink port.ExportSink) *ExportService {
	return &ExportService{
		sessions: sessions,
		decoder:  decoder,
		renderer: renderer,
		sink:     sink,
		now:      time.Now,
	}
}

// Export работает по снимку состояния на момент вызова: правки, сделанные
// во время экспорта, в результат не попадают
func (s *ExportService) Export(ctx context.Context, sessionID string) (*ExportOutput, error) {
	var snap entity.Snapshot
	err := s.sessions.View(ctx, sessionID, func(session *entity.Session) error {
		var err error
		snap, err = session.Snapshot(s.now())
		return err
	})
	if err != nil {
		return nil, err
	}

	src, _, err := s.decoder.Decode(snap.Image.Data)
	if err != nil {
		return nil, fmt.Errorf("%w: decode source image: %v", entity.ErrExport, err)
	}

	report := entity.ComputeReport(snap.Annotations)
	composite, err := s.renderer.ComposeExport(src, snap, report)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", entity.ErrExport, err)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, composite); err != nil {
		return nil, fmt.Errorf("%w: encode png: %v", entity.ErrExport, err)
	}

	out := &ExportOutput{
		Filename: entity.ExportFilename(snap.PatientID, snap.TakenAt),
		PNG:      buf.Bytes(),
		Report:   report,
		Lines:    report.Lines(snap.PatientID),
	}

	if s.sink != nil {
		if err := s.sink.Save(ctx, out.Filename, out.PNG); err != nil {
			return nil, fmt.Errorf("%w: save %s: %v", entity.ErrExport, out.Filename, err)
		}
	}
	return out, nil
}
