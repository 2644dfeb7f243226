package app

import (
	"context"
	"fmt"
	"time"

	"trichoscope/internal/domain/entity"
	"trichoscope/internal/domain/port"
)

// SessionService операции над разметкой одного снимка.
// После каждой мутации статистика пересчитывается целиком и возвращается вызывающему.
type SessionService struct {
	repo        port.SessionRepository
	decoder     port.ImageDecoder
	now         func() time.Time
	brushRadius float64
}

// SessionState представление сессии для транспорта
type SessionState struct {
	ID              string              `json:"id"`
	ImageWidth      int                 `json:"image_width"`
	ImageHeight     int                 `json:"image_height"`
	ImageFormat     string              `json:"image_format"`
	Viewport        entity.Viewport     `json:"viewport"`
	PatientID       string              `json:"patient_id"`
	PatientName     string              `json:"patient_name"`
	ShowAnnotations bool                `json:"show_annotations"`
	Annotations     []entity.Annotation `json:"annotations"`
	Report          entity.Report       `json:"report"`
}

// AnnotationInput отметка для массового импорта, без идентификатора.
// Kind обязателен: отсутствующий вид не подменяется значением по умолчанию.
type AnnotationInput struct {
	X      float64             `json:"x"`
	Y      float64             `json:"y"`
	Kind   *entity.FeatureKind `json:"kind"`
	Radius float64             `json:"radius"`
}

// ViewportPatch частичное обновление состояния просмотра, nil не меняет поле
type ViewportPatch struct {
	Zoom            *float64            `json:"zoom,omitempty"`
	BrushRadius     *float64            `json:"brush_radius,omitempty"`
	ActiveKind      *entity.FeatureKind `json:"active_kind,omitempty"`
	ShowAnnotations *bool               `json:"show_annotations,omitempty"`
}

// NewSessionService создаёт сервис сессий разметки
func NewSessionService(repo port.SessionRepository, decoder port.ImageDecoder) *SessionService {
	return &SessionService{repo: repo, decoder: decoder, now: time.Now, brushRadius: entity.DefaultBrushRadius}
}

// SetDefaultBrushRadius радиус кисти для новых сессий
func (s *SessionService) SetDefaultBrushRadius(radius float64) {
	if radius > 0 {
		s.brushRadius = radius
	}
}

// Open декодирует снимок и заводит под него новую сессию
func (s *SessionService) Open(ctx context.Context, imageData []byte) (*SessionState, error) {
	img, err := s.decode(imageData)
	if err != nil {
		return nil, err
	}

	session := entity.NewSession("")
	session.Viewport.BrushRadius = s.brushRadius
	if err := session.LoadImage(img, s.now()); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, session); err != nil {
		return nil, err
	}
	return stateOf(session), nil
}

// LoadImage заменяет снимок в сессии (создаёт сессию при необходимости).
// Если снимок не декодируется, прежнее состояние сохраняется.
func (s *SessionService) LoadImage(ctx context.Context, id string, imageData []byte) (*SessionState, error) {
	img, err := s.decode(imageData)
	if err != nil {
		return nil, err
	}

	var state *SessionState
	err = s.repo.Upsert(ctx, id, func(session *entity.Session) error {
		if !session.HasImage() {
			session.Viewport.BrushRadius = s.brushRadius
		}
		if err := session.LoadImage(img, s.now()); err != nil {
			return err
		}
		state = stateOf(session)
		return nil
	})
	return state, err
}

// State текущее состояние сессии
func (s *SessionService) State(ctx context.Context, id string) (*SessionState, error) {
	var state *SessionState
	err := s.repo.View(ctx, id, func(session *entity.Session) error {
		state = stateOf(session)
		return nil
	})
	return state, err
}

// PlaceAt ставит отметку по клику: экранные координаты переводятся в координаты
// изображения с учётом текущего масштаба и смещения контейнера
func (s *SessionService) PlaceAt(ctx context.Context, id string, display, origin entity.Point, kind *entity.FeatureKind, radius float64) (entity.Annotation, entity.Report, error) {
	return s.place(ctx, id, func(session *entity.Session) entity.Point {
		return session.Viewport.MapperFor(origin).ToImage(display)
	}, kind, radius)
}

// PlaceNative ставит отметку сразу в координатах изображения
func (s *SessionService) PlaceNative(ctx context.Context, id string, p entity.Point, kind *entity.FeatureKind, radius float64) (entity.Annotation, entity.Report, error) {
	return s.place(ctx, id, func(*entity.Session) entity.Point { return p }, kind, radius)
}

func (s *SessionService) place(ctx context.Context, id string, locate func(*entity.Session) entity.Point, kind *entity.FeatureKind, radius float64) (entity.Annotation, entity.Report, error) {
	var (
		placed entity.Annotation
		report entity.Report
	)
	err := s.repo.Update(ctx, id, func(session *entity.Session) error {
		a, err := session.Place(locate(session), kind, radius)
		if err != nil {
			return err
		}
		placed = a
		report = session.Report()
		return nil
	})
	return placed, report, err
}

// Undo снимает последнюю отметку; на пустой сессии возвращает nil без ошибки
func (s *SessionService) Undo(ctx context.Context, id string) (*entity.Annotation, entity.Report, error) {
	var (
		undone *entity.Annotation
		report entity.Report
	)
	err := s.repo.Update(ctx, id, func(session *entity.Session) error {
		if a, ok := session.Annotations.UndoLast(); ok {
			undone = &a
		}
		report = session.Report()
		return nil
	})
	return undone, report, err
}

// Clear очищает разметку без подтверждения: подтверждение получает транспорт
func (s *SessionService) Clear(ctx context.Context, id string) (entity.Report, error) {
	var report entity.Report
	err := s.repo.Update(ctx, id, func(session *entity.Session) error {
		session.Annotations.ClearAll()
		report = session.Report()
		return nil
	})
	return report, err
}

// Import заменяет разметку целиком набором внешних отметок.
// Ошибка в любой отметке отклоняет весь набор.
func (s *SessionService) Import(ctx context.Context, id string, items []AnnotationInput) (*SessionState, error) {
	annotations := make([]entity.Annotation, 0, len(items))
	for i, item := range items {
		if item.Kind == nil {
			return nil, fmt.Errorf("annotation #%d: %w: kind is required", i, entity.ErrInvalidAnnotation)
		}
		a, err := entity.NewAnnotation(item.X, item.Y, *item.Kind, item.Radius)
		if err != nil {
			return nil, fmt.Errorf("annotation #%d: %w", i, err)
		}
		annotations = append(annotations, a)
	}

	var state *SessionState
	err := s.repo.Update(ctx, id, func(session *entity.Session) error {
		if err := session.ReplaceAnnotations(annotations); err != nil {
			return err
		}
		state = stateOf(session)
		return nil
	})
	return state, err
}

// UpdateViewport применяет изменения масштаба, кисти, активного признака и видимости
func (s *SessionService) UpdateViewport(ctx context.Context, id string, patch ViewportPatch) (*SessionState, error) {
	var state *SessionState
	err := s.repo.Update(ctx, id, func(session *entity.Session) error {
		next := session.Viewport
		if patch.Zoom != nil {
			next.Zoom = *patch.Zoom
		}
		if patch.BrushRadius != nil {
			next.BrushRadius = *patch.BrushRadius
		}
		if patch.ActiveKind != nil {
			next.ActiveKind = *patch.ActiveKind
		}
		if err := next.Validate(); err != nil {
			return err
		}
		session.Viewport = next
		if patch.ShowAnnotations != nil {
			session.ShowAnnotations = *patch.ShowAnnotations
		}
		state = stateOf(session)
		return nil
	})
	return state, err
}

// SetPatient задаёт идентификатор и имя пациента для отчёта
func (s *SessionService) SetPatient(ctx context.Context, id, patientID, patientName string) (*SessionState, error) {
	var state *SessionState
	err := s.repo.Update(ctx, id, func(session *entity.Session) error {
		session.PatientID = patientID
		session.PatientName = patientName
		state = stateOf(session)
		return nil
	})
	return state, err
}

// Report пересчитывает статистику и возвращает строки отчёта
func (s *SessionService) Report(ctx context.Context, id string) (entity.Report, []string, error) {
	var (
		report entity.Report
		lines  []string
	)
	err := s.repo.View(ctx, id, func(session *entity.Session) error {
		report = session.Report()
		lines = report.Lines(session.PatientID)
		return nil
	})
	return report, lines, err
}

// Close удаляет сессию вместе с разметкой
func (s *SessionService) Close(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}

func (s *SessionService) decode(data []byte) (entity.SourceImage, error) {
	img, format, err := s.decoder.Decode(data)
	if err != nil {
		return entity.SourceImage{}, err
	}
	b := img.Bounds()
	return entity.SourceImage{
		Data:   data,
		Format: format,
		Width:  b.Dx(),
		Height: b.Dy(),
	}, nil
}

func stateOf(session *entity.Session) *SessionState {
	state := &SessionState{
		ID:              session.ID,
		Viewport:        session.Viewport,
		PatientID:       session.PatientID,
		PatientName:     session.PatientName,
		ShowAnnotations: session.ShowAnnotations,
		Annotations:     session.Annotations.List(),
	}
	if session.Image != nil {
		state.ImageWidth = session.Image.Width
		state.ImageHeight = session.Image.Height
		state.ImageFormat = session.Image.Format
	}
	state.Report = entity.ComputeReport(state.Annotations)
	return state
}
