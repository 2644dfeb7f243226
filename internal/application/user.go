package app

import (
	"context"
	"strings"

	"trichoscope/internal/domain/entity"
	"trichoscope/internal/domain/port"
)

type UserService struct {
	repo port.UserRepository
}

func NewUserService(repo port.UserRepository) *UserService {
	return &UserService{repo: repo}
}

func (s *UserService) Get(ctx context.Context, userID, chatID int64) (*entity.User, error) {
	return s.repo.Get(ctx, userID, chatID)
}

func (s *UserService) SetState(ctx context.Context, userID, chatID int64, state entity.UserState) (*entity.User, error) {
	return s.repo.UpdateState(ctx, userID, chatID, state)
}

func (s *UserService) BeginCheck(ctx context.Context, userID, chatID int64) (*entity.User, error) {
	return s.SetState(ctx, userID, chatID, entity.StateAwaitingPhoto)
}

func (s *UserService) BeginProcessing(ctx context.Context, userID, chatID int64) (*entity.User, error) {
	return s.SetState(ctx, userID, chatID, entity.StateProcessing)
}

// AskClearConfirmation переводит пользователя в ожидание подтверждения очистки разметки
func (s *UserService) AskClearConfirmation(ctx context.Context, userID, chatID int64) (*entity.User, error) {
	return s.SetState(ctx, userID, chatID, entity.StateAwaitingClearConfirm)
}

func (s *UserService) Cancel(ctx context.Context, userID, chatID int64) (*entity.User, error) {
	return s.SetState(ctx, userID, chatID, entity.StateMainMenu)
}

// BeginCommand вызывается перед обработкой любой команды. Ожидание подтверждения
// очистки снимается всем, кроме повторного /clear.
func (s *UserService) BeginCommand(ctx context.Context, userID, chatID int64, command string) (*entity.User, error) {
	user, err := s.repo.Get(ctx, userID, chatID)
	if err != nil {
		return nil, err
	}
	if user.State == entity.StateAwaitingClearConfirm && command != "clear" {
		return s.Cancel(ctx, userID, chatID)
	}
	return user, nil
}

// ConfirmClear принимает ответ на вопрос об очистке и возвращает пользователя в меню.
// true означает согласие.
func (s *UserService) ConfirmClear(ctx context.Context, userID, chatID int64, answer string) (bool, error) {
	if _, err := s.Cancel(ctx, userID, chatID); err != nil {
		return false, err
	}
	return isConfirmation(answer), nil
}

func isConfirmation(text string) bool {
	switch strings.ToLower(strings.TrimSpace(text)) {
	case "да", "yes", "y", "д":
		return true
	}
	return false
}
