package storage

import (
	"context"
	"fmt"
	"sync"

	"trichoscope/internal/domain/entity"
	"trichoscope/internal/domain/port"
)

// sessionSlot сессия со своей блокировкой: события одной сессии
// обрабатываются последовательно, разные сессии не мешают друг другу
type sessionSlot struct {
	mu      sync.Mutex
	session *entity.Session
}

// MemorySessionRepository in-memory хранилище сессий разметки
type MemorySessionRepository struct {
	mu    sync.RWMutex
	slots map[string]*sessionSlot
}

// NewMemorySessionRepository создаёт новое in-memory хранилище сессий
func NewMemorySessionRepository() *MemorySessionRepository {
	return &MemorySessionRepository{
		slots: make(map[string]*sessionSlot),
	}
}

// Create сохраняет новую сессию, повторный ID даёт ошибку
func (r *MemorySessionRepository) Create(ctx context.Context, session *entity.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.slots[session.ID]; exists {
		return fmt.Errorf("session %s already exists", session.ID)
	}
	r.slots[session.ID] = &sessionSlot{session: session}
	return nil
}

// Upsert выполняет fn над сессией, создавая пустую сессию если её нет.
// Если fn вернула ошибку для только что созданной сессии, сессия не сохраняется.
func (r *MemorySessionRepository) Upsert(ctx context.Context, id string, fn func(*entity.Session) error) error {
	r.mu.Lock()
	slot, exists := r.slots[id]
	if !exists {
		slot = &sessionSlot{session: entity.NewSession(id)}
		r.slots[id] = slot
	}
	// Блокируем слот до освобождения карты, чтобы никто не успел его прочитать пустым
	slot.mu.Lock()
	r.mu.Unlock()

	err := fn(slot.session)
	slot.mu.Unlock()

	if err != nil && !exists {
		r.mu.Lock()
		if r.slots[id] == slot {
			delete(r.slots, id)
		}
		r.mu.Unlock()
	}
	return err
}

// Update выполняет fn над существующей сессией
func (r *MemorySessionRepository) Update(ctx context.Context, id string, fn func(*entity.Session) error) error {
	slot, err := r.slot(id)
	if err != nil {
		return err
	}
	slot.mu.Lock()
	defer slot.mu.Unlock()
	return fn(slot.session)
}

// View выполняет fn над сессией только для чтения
func (r *MemorySessionRepository) View(ctx context.Context, id string, fn func(*entity.Session) error) error {
	return r.Update(ctx, id, fn)
}

// Delete удаляет сессию
func (r *MemorySessionRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.slots[id]; !exists {
		return fmt.Errorf("%w: %s", entity.ErrSessionNotFound, id)
	}
	delete(r.slots, id)
	return nil
}

func (r *MemorySessionRepository) slot(id string) (*sessionSlot, error) {
	r.mu.RLock()
	slot, exists := r.slots[id]
	r.mu.RUnlock()
	if !exists {
		return nil, fmt.Errorf("%w: %s", entity.ErrSessionNotFound, id)
	}
	return slot, nil
}

// Проверка реализации интерфейса
var _ port.SessionRepository = (*MemorySessionRepository)(nil)
