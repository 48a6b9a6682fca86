// spots.go — сервис справочника локаций.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/sohosai/qr-backend/internal/domain/model"
	"github.com/sohosai/qr-backend/internal/repository"
)

// SpotService — сервис справочника локаций.
type SpotService struct {
	spotRepo repository.SpotRepository
	logger   *slog.Logger
}

// NewSpotService создаёт сервис локаций.
func NewSpotService(spotRepo repository.SpotRepository, logger *slog.Logger) *SpotService {
	return &SpotService{
		spotRepo: spotRepo,
		logger:   logger.With(slog.String("component", "spot_service")),
	}
}

func validateSpot(s *model.Spot) error {
	if s.Name == "" {
		return fmt.Errorf("%w: name обязателен", ErrValidation)
	}
	if s.Area == "" {
		return fmt.Errorf("%w: area обязателен", ErrValidation)
	}
	return nil
}

// Create добавляет локацию. Имя — идентификатор, дубликат — конфликт.
func (s *SpotService) Create(ctx context.Context, spot *model.Spot) error {
	if err := validateSpot(spot); err != nil {
		return err
	}

	if err := s.spotRepo.Create(ctx, spot); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return fmt.Errorf("%w: локация %q уже существует", ErrConflict, spot.Name)
		}
		return fmt.Errorf("создание локации: %w", err)
	}

	s.logger.Info("Локация создана", slog.String("spot", spot.Name))
	return nil
}

// Update обновляет атрибуты локации по имени.
func (s *SpotService) Update(ctx context.Context, spot *model.Spot) error {
	if err := validateSpot(spot); err != nil {
		return err
	}

	if err := s.spotRepo.Update(ctx, spot); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("обновление локации: %w", err)
	}

	s.logger.Info("Локация обновлена", slog.String("spot", spot.Name))
	return nil
}

// Get возвращает локацию по имени.
func (s *SpotService) Get(ctx context.Context, name string) (*model.Spot, error) {
	spot, err := s.spotRepo.GetByName(ctx, name)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("получение локации: %w", err)
	}
	return spot, nil
}

// List возвращает все локации.
func (s *SpotService) List(ctx context.Context) ([]*model.Spot, error) {
	list, err := s.spotRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("получение списка локаций: %w", err)
	}
	return list, nil
}

// Delete удаляет локацию по имени.
func (s *SpotService) Delete(ctx context.Context, name string) error {
	if err := s.spotRepo.Delete(ctx, name); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("удаление локации: %w", err)
	}

	s.logger.Info("Локация удалена", slog.String("spot", name))
	return nil
}
