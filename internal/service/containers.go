// containers.go — сервис реестра контейнеров.
// Контейнер — ёмкость с собственным QR-кодом; предметы ссылаются
// на него через parent_id.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/sohosai/qr-backend/internal/domain/model"
	"github.com/sohosai/qr-backend/internal/repository"
)

// ContainerService — сервис реестра контейнеров.
type ContainerService struct {
	containerRepo repository.ContainerRepository
	logger        *slog.Logger
}

// NewContainerService создаёт сервис контейнеров.
func NewContainerService(containerRepo repository.ContainerRepository, logger *slog.Logger) *ContainerService {
	return &ContainerService{
		containerRepo: containerRepo,
		logger:        logger.With(slog.String("component", "container_service")),
	}
}

// Create регистрирует контейнер. ID назначает сервис.
func (s *ContainerService) Create(ctx context.Context, c *model.Container) (*model.Container, error) {
	if c.QrID == "" {
		return nil, fmt.Errorf("%w: qr_id обязателен", ErrValidation)
	}
	if _, err := model.ParseQrColor(string(c.QrColor)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if _, err := model.ParseStorage(string(c.Storage)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	c.ID = uuid.New().String()

	if err := s.containerRepo.Create(ctx, c); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, fmt.Errorf("%w: контейнер уже зарегистрирован", ErrConflict)
		}
		return nil, fmt.Errorf("регистрация контейнера: %w", err)
	}

	s.logger.Info("Контейнер зарегистрирован",
		slog.String("container_id", c.ID),
		slog.String("qr_id", c.QrID),
	)

	return c, nil
}

// Get возвращает контейнер по ID.
func (s *ContainerService) Get(ctx context.Context, id string) (*model.Container, error) {
	c, err := s.containerRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("получение контейнера: %w", err)
	}
	return c, nil
}

// Delete удаляет контейнер по ID.
func (s *ContainerService) Delete(ctx context.Context, id string) error {
	if err := s.containerRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("удаление контейнера: %w", err)
	}

	s.logger.Info("Контейнер удалён", slog.String("container_id", id))
	return nil
}
