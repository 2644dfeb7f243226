package entity

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// SourceImage исходный снимок. Data не изменяется после загрузки.
type SourceImage struct {
	Data   []byte
	Format string
	Width  int
	Height int
}

// CheckBounds отклоняет точку за правым или нижним краем снимка
func (img SourceImage) CheckBounds(p Point) error {
	if p.X > float64(img.Width) || p.Y > float64(img.Height) {
		return fmt.Errorf("%w: position (%v, %v) is outside %dx%d image",
			ErrInvalidAnnotation, p.X, p.Y, img.Width, img.Height)
	}
	return nil
}

// Session состояние разметки одного загруженного снимка
type Session struct {
	ID              string
	Image           *SourceImage
	Annotations     *AnnotationStore
	Viewport        Viewport
	PatientID       string
	PatientName     string
	ShowAnnotations bool
	LoadedAt        time.Time
}

// NewSession создаёт пустую сессию; пустой id заменяется сгенерированным
func NewSession(id string) *Session {
	if id == "" {
		id = uuid.NewString()
	}
	return &Session{
		ID:              id,
		Annotations:     NewAnnotationStore(),
		Viewport:        DefaultViewport(),
		ShowAnnotations: true,
	}
}

// LoadImage заменяет снимок. Отметки, масштаб, пациент и видимость сбрасываются,
// кисть и активный вид признака сохраняются.
func (s *Session) LoadImage(img SourceImage, now time.Time) error {
	if len(img.Data) == 0 || img.Width <= 0 || img.Height <= 0 {
		return fmt.Errorf("%w: empty image", ErrInvalidImage)
	}
	s.Image = &img
	s.Annotations = NewAnnotationStore()
	s.Viewport.Zoom = DefaultZoom
	s.PatientID = ""
	s.PatientName = ""
	s.ShowAnnotations = true
	s.LoadedAt = now
	return nil
}

// HasImage сообщает, загружен ли снимок
func (s *Session) HasImage() bool {
	return s.Image != nil
}

// Place ставит отметку в координатах изображения. Если kind не задан или radius
// равен нулю, значения берутся из текущего состояния просмотра.
func (s *Session) Place(p Point, kind *FeatureKind, radius float64) (Annotation, error) {
	if !s.HasImage() {
		return Annotation{}, ErrNoImage
	}
	k := s.Viewport.ActiveKind
	if kind != nil {
		k = *kind
	}
	if radius == 0 {
		radius = s.Viewport.BrushRadius
	}
	if err := s.Image.CheckBounds(p); err != nil {
		return Annotation{}, err
	}
	return s.Annotations.Place(p.X, p.Y, k, radius)
}

// ReplaceAnnotations заменяет разметку целиком; каждая отметка должна лежать на снимке
func (s *Session) ReplaceAnnotations(annotations []Annotation) error {
	if !s.HasImage() {
		return ErrNoImage
	}
	for i, a := range annotations {
		if err := s.Image.CheckBounds(a.Center()); err != nil {
			return fmt.Errorf("annotation #%d: %w", i, err)
		}
	}
	return s.Annotations.ReplaceAll(annotations)
}

// Report пересчитывает статистику по текущим отметкам
func (s *Session) Report() Report {
	return ComputeReport(s.Annotations.List())
}

// Snapshot копия данных, достаточная для рендера и экспорта вне блокировки
type Snapshot struct {
	SessionID       string
	Image           SourceImage
	Annotations     []Annotation
	Viewport        Viewport
	PatientID       string
	PatientName     string
	ShowAnnotations bool
	TakenAt         time.Time
}

// Snapshot фиксирует текущее состояние; последующие правки в снимок не попадают
func (s *Session) Snapshot(now time.Time) (Snapshot, error) {
	if !s.HasImage() {
		return Snapshot{}, ErrNoImage
	}
	return Snapshot{
		SessionID:       s.ID,
		Image:           *s.Image,
		Annotations:     s.Annotations.List(),
		Viewport:        s.Viewport,
		PatientID:       s.PatientID,
		PatientName:     s.PatientName,
		ShowAnnotations: s.ShowAnnotations,
		TakenAt:         now,
	}, nil
}
