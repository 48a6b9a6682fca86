// users.go — сервис регистрации пользователей.
// Пользователь приходит из внешнего IdP: идентичность подтверждена
// JWT, здесь только фиксация в БД.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sohosai/qr-backend/internal/domain/model"
	"github.com/sohosai/qr-backend/internal/repository"
)

// UserService — сервис регистрации пользователей.
type UserService struct {
	userRepo repository.UserRepository
	logger   *slog.Logger
}

// NewUserService создаёт сервис пользователей.
func NewUserService(userRepo repository.UserRepository, logger *slog.Logger) *UserService {
	return &UserService{
		userRepo: userRepo,
		logger:   logger.With(slog.String("component", "user_service")),
	}
}

// Signup регистрирует пользователя по подтверждённым клеймам JWT.
// Повторная регистрация того же субъекта — ErrConflict.
func (s *UserService) Signup(ctx context.Context, subject, name string, email *string) (*model.User, error) {
	if subject == "" {
		return nil, fmt.Errorf("%w: subject обязателен", ErrValidation)
	}
	if name == "" {
		return nil, fmt.Errorf("%w: name обязателен", ErrValidation)
	}

	u := &model.User{
		ID:        subject,
		Name:      name,
		Email:     email,
		CreatedAt: time.Now().UTC(),
	}

	if err := s.userRepo.Create(ctx, u); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, fmt.Errorf("%w: пользователь уже зарегистрирован", ErrConflict)
		}
		return nil, fmt.Errorf("регистрация пользователя: %w", err)
	}

	s.logger.Info("Пользователь зарегистрирован", slog.String("user_id", subject))
	return u, nil
}

// Get возвращает пользователя по идентификатору субъекта IdP.
func (s *UserService) Get(ctx context.Context, id string) (*model.User, error) {
	u, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("получение пользователя: %w", err)
	}
	return u, nil
}
