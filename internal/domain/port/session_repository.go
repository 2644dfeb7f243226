package port

import (
	"context"

	"trichoscope/internal/domain/entity"
)

// SessionRepository интерфейс хранилища сессий разметки.
// Изменения одной сессии выполняются строго последовательно.
type SessionRepository interface {
	// Create сохраняет новую сессию
	Create(ctx context.Context, session *entity.Session) error

	// Upsert выполняет fn под блокировкой сессии, создавая её при необходимости
	Upsert(ctx context.Context, id string, fn func(*entity.Session) error) error

	// Update выполняет fn под блокировкой существующей сессии
	Update(ctx context.Context, id string, fn func(*entity.Session) error) error

	// View выполняет fn под блокировкой сессии только для чтения
	View(ctx context.Context, id string, fn func(*entity.Session) error) error

	// Delete удаляет сессию
	Delete(ctx context.Context, id string) error
}
