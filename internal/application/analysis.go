package app

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image/png"
	"log"
	"time"

	"trichoscope/internal/domain/entity"
	"trichoscope/internal/domain/port"
)

// WarningNoDetections детектор отработал, но пригодных отметок не вернул
const WarningNoDetections = "detector returned no usable annotations"

// AnalysisService предварительная разметка снимка внешним ИИ-детектором
type AnalysisService struct {
	sessions port.SessionRepository
	decoder  port.ImageDecoder
	detector port.AnnotationDetector
}

// AnalysisOutcome итог разметки. Warning заполнен, если разметка не изменилась.
type AnalysisOutcome struct {
	Applied  bool                      `json:"applied"`
	Accepted int                       `json:"accepted"`
	Rejected []entity.RejectedProposal `json:"rejected,omitempty"`
	Warning  string                    `json:"warning,omitempty"`
	Report   entity.Report             `json:"report"`
}

// NewAnalysisService создаёт сервис; detector может быть nil, если ИИ не настроен
func NewAnalysisService(sessions port.SessionRepository, decoder port.ImageDecoder, detector port.AnnotationDetector) *AnalysisService {
	return &AnalysisService{sessions: sessions, decoder: decoder, detector: detector}
}

// Enabled сообщает, настроен ли детектор
func (s *AnalysisService) Enabled() bool {
	return s.detector != nil
}

// Analyze отправляет снимок детектору и заменяет разметку принятыми отметками.
// Сбой детектора: ErrExternalService, разметка не трогается.
// Пустой результат: предупреждение в outcome, разметка не трогается.
func (s *AnalysisService) Analyze(ctx context.Context, sessionID string) (*AnalysisOutcome, error) {
	if s.detector == nil {
		return nil, fmt.Errorf("%w: detector is not configured", entity.ErrExternalService)
	}

	var (
		source   entity.SourceImage
		loadedAt time.Time
	)
	err := s.sessions.View(ctx, sessionID, func(session *entity.Session) error {
		if !session.HasImage() {
			return entity.ErrNoImage
		}
		source = *session.Image
		loadedAt = session.LoadedAt
		return nil
	})
	if err != nil {
		return nil, err
	}

	imageData, mimeType, err := s.payload(source)
	if err != nil {
		return nil, err
	}

	proposals, err := s.detector.Detect(ctx, imageData, mimeType)
	if err != nil {
		if !errors.Is(err, entity.ErrExternalService) {
			err = fmt.Errorf("%w: %v", entity.ErrExternalService, err)
		}
		return nil, err
	}

	accepted, rejected := entity.TranslateProposals(proposals, source)
	for _, r := range rejected {
		log.Printf("session %s: dropped detector proposal #%d: %s", sessionID, r.Index, r.Reason)
	}

	outcome := &AnalysisOutcome{Accepted: len(accepted), Rejected: rejected}
	err = s.sessions.Update(ctx, sessionID, func(session *entity.Session) error {
		// Пока детектор работал, пользователь мог загрузить другой снимок
		if !session.HasImage() || !session.LoadedAt.Equal(loadedAt) {
			return entity.ErrImageReplaced
		}
		if len(accepted) == 0 {
			outcome.Warning = WarningNoDetections
		} else {
			if err := session.ReplaceAnnotations(accepted); err != nil {
				return err
			}
			outcome.Applied = true
		}
		outcome.Report = session.Report()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return outcome, nil
}

// payload готовит снимок для детектора: JPEG, PNG и WebP уходят как есть,
// остальные форматы перекодируются в PNG
func (s *AnalysisService) payload(source entity.SourceImage) ([]byte, string, error) {
	switch source.Format {
	case "jpeg", "png", "webp":
		return source.Data, "image/" + source.Format, nil
	}

	img, _, err := s.decoder.Decode(source.Data)
	if err != nil {
		return nil, "", err
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, "", fmt.Errorf("%w: re-encode %s as png: %v", entity.ErrInvalidImage, source.Format, err)
	}
	return buf.Bytes(), "image/png", nil
}
