package entity

import "strconv"

// UserState состояние пользователя в диалоге
type UserState string

const (
	StateMainMenu             UserState = "main_menu"              // В главном меню
	StateAwaitingPhoto        UserState = "awaiting_photo"         // Ожидание трихоскопического снимка
	StateProcessing           UserState = "processing"             // Обработка изображения
	StateAwaitingClearConfirm UserState = "awaiting_clear_confirm" // Ожидание подтверждения очистки разметки
)

// User представляет пользователя бота
type User struct {
	ID     int64     // Telegram User ID
	ChatID int64     // Telegram Chat ID
	State  UserState // Текущее состояние пользователя
}

// NewUser создаёт нового пользователя с начальным состоянием
func NewUser(userID, chatID int64) *User {
	return &User{
		ID:     userID,
		ChatID: chatID,
		State:  StateMainMenu,
	}
}

// SetState обновляет состояние пользователя
func (u *User) SetState(state UserState) {
	u.State = state
}

// SessionID идентификатор сессии разметки, закреплённой за пользователем
func (u *User) SessionID() string {
	return "tg-" + strconv.FormatInt(u.ID, 10)
}
