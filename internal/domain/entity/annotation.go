package entity

import (
	"fmt"
	"math"

	"github.com/google/uuid"
)

// Annotation одна отметка пользователя (или ИИ) на снимке
type Annotation struct {
	ID     string      `json:"id"`
	X      float64     `json:"x"`      // координата X в пикселях исходного изображения
	Y      float64     `json:"y"`      // координата Y в пикселях исходного изображения
	Kind   FeatureKind `json:"kind"`   // вид признака
	Radius float64     `json:"radius"` // радиус маркера в пикселях
}

// NewAnnotation создаёт отметку со свежим идентификатором.
// Координаты должны быть уже переведены в систему исходного изображения.
func NewAnnotation(x, y float64, kind FeatureKind, radius float64) (Annotation, error) {
	if !isFinite(x) || !isFinite(y) || x < 0 || y < 0 {
		return Annotation{}, fmt.Errorf("%w: position (%v, %v)", ErrInvalidAnnotation, x, y)
	}
	if !isFinite(radius) || radius <= 0 {
		return Annotation{}, fmt.Errorf("%w: radius %v", ErrInvalidAnnotation, radius)
	}
	if !kind.Valid() {
		return Annotation{}, fmt.Errorf("%w: kind %d", ErrInvalidAnnotation, int(kind))
	}
	return Annotation{
		ID:     uuid.NewString(),
		X:      x,
		Y:      y,
		Kind:   kind,
		Radius: radius,
	}, nil
}

// Center возвращает центр отметки
func (a Annotation) Center() Point {
	return Point{X: a.X, Y: a.Y}
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// AnnotationStore упорядоченная коллекция отметок одного загруженного снимка.
// Порядок вставки сохраняется: отмена снимает последнюю поставленную отметку.
type AnnotationStore struct {
	items []Annotation
}

// NewAnnotationStore создаёт пустое хранилище отметок
func NewAnnotationStore() *AnnotationStore {
	return &AnnotationStore{}
}

// Place создаёт отметку и добавляет её в конец коллекции
func (s *AnnotationStore) Place(x, y float64, kind FeatureKind, radius float64) (Annotation, error) {
	a, err := NewAnnotation(x, y, kind, radius)
	if err != nil {
		return Annotation{}, err
	}
	s.items = append(s.items, a)
	return a, nil
}

// UndoLast снимает последнюю отметку. На пустом хранилище возвращает false.
func (s *AnnotationStore) UndoLast() (Annotation, bool) {
	n := len(s.items)
	if n == 0 {
		return Annotation{}, false
	}
	last := s.items[n-1]
	s.items[n-1] = Annotation{}
	s.items = s.items[:n-1]
	return last, true
}

// ClearAll безусловно очищает коллекцию. Подтверждение: забота вызывающей стороны.
func (s *AnnotationStore) ClearAll() {
	s.items = nil
}

// ReplaceAll заменяет коллекцию целиком
func (s *AnnotationStore) ReplaceAll(annotations []Annotation) error {
	next := make([]Annotation, 0, len(annotations))
	for i, a := range annotations {
		if a.ID == "" {
			return fmt.Errorf("%w: annotation #%d has no id", ErrInvalidAnnotation, i)
		}
		if _, err := NewAnnotation(a.X, a.Y, a.Kind, a.Radius); err != nil {
			return fmt.Errorf("annotation #%d: %w", i, err)
		}
		next = append(next, a)
	}
	s.items = next
	return nil
}

// List возвращает копию коллекции в порядке вставки
func (s *AnnotationStore) List() []Annotation {
	out := make([]Annotation, len(s.items))
	copy(out, s.items)
	return out
}

func (s *AnnotationStore) Len() int {
	return len(s.items)
}
