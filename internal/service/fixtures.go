// fixtures.go — сервис реестра предметов.
// Мутации выполняются в две фазы: сначала запись в PostgreSQL
// (источник истины), затем обновление поискового зеркала. Ошибка
// второй фазы не откатывает первую — вызывающему возвращается
// ErrIndexOutOfSync, реестр остаётся применённым.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/sohosai/qr-backend/internal/domain/model"
	"github.com/sohosai/qr-backend/internal/repository"
	"github.com/sohosai/qr-backend/internal/search"
)

// FixtureService — сервис реестра предметов.
type FixtureService struct {
	fixtureRepo repository.FixtureRepository
	indexer     search.Indexer
	logger      *slog.Logger
}

// NewFixtureService создаёт сервис реестра предметов.
func NewFixtureService(
	fixtureRepo repository.FixtureRepository,
	indexer search.Indexer,
	logger *slog.Logger,
) *FixtureService {
	return &FixtureService{
		fixtureRepo: fixtureRepo,
		indexer:     indexer,
		logger:      logger.With(slog.String("component", "fixture_service")),
	}
}

// validateFixture проверяет обязательные поля предмета.
func validateFixture(f *model.Fixture) error {
	if f.QrID == "" {
		return fmt.Errorf("%w: qr_id обязателен", ErrValidation)
	}
	if f.Name == "" {
		return fmt.Errorf("%w: name обязателен", ErrValidation)
	}
	if _, err := model.ParseQrColor(string(f.QrColor)); err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if _, err := model.ParseStorage(string(f.Storage)); err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	return nil
}

// Create регистрирует предмет и зеркалит его в поисковый индекс.
// ID и created_at назначает сервис; переданные значения игнорируются.
func (s *FixtureService) Create(ctx context.Context, f *model.Fixture) (*model.Fixture, error) {
	if err := validateFixture(f); err != nil {
		return nil, err
	}

	f.ID = uuid.New().String()
	f.CreatedAt = time.Now().UTC()

	if err := s.fixtureRepo.Create(ctx, f); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, fmt.Errorf("%w: предмет уже зарегистрирован", ErrConflict)
		}
		return nil, fmt.Errorf("регистрация предмета: %w", err)
	}

	s.logger.Info("Предмет зарегистрирован",
		slog.String("fixture_id", f.ID),
		slog.String("qr_id", f.QrID),
		slog.String("name", f.Name),
	)

	if err := s.indexer.Upsert(ctx, f); err != nil {
		s.logger.Warn("Зеркало не обновлено после регистрации",
			slog.String("fixture_id", f.ID),
			slog.String("error", err.Error()),
		)
		return f, fmt.Errorf("%w: %w", ErrIndexOutOfSync, err)
	}

	return f, nil
}

// Update обновляет предмет по ID и зеркалит изменения в индекс.
// qr_id можно переназначить: идентичность предмета — его ID.
func (s *FixtureService) Update(ctx context.Context, f *model.Fixture) (*model.Fixture, error) {
	if f.ID == "" {
		return nil, fmt.Errorf("%w: id обязателен", ErrValidation)
	}
	if err := validateFixture(f); err != nil {
		return nil, err
	}

	// created_at неизменяем, берём из текущей записи
	current, err := s.fixtureRepo.GetByID(ctx, f.ID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("получение предмета для обновления: %w", err)
	}
	f.CreatedAt = current.CreatedAt

	if err := s.fixtureRepo.Update(ctx, f); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("обновление предмета: %w", err)
	}

	s.logger.Info("Предмет обновлён",
		slog.String("fixture_id", f.ID),
		slog.String("qr_id", f.QrID),
	)

	if err := s.indexer.Upsert(ctx, f); err != nil {
		s.logger.Warn("Зеркало не обновлено после изменения",
			slog.String("fixture_id", f.ID),
			slog.String("error", err.Error()),
		)
		return f, fmt.Errorf("%w: %w", ErrIndexOutOfSync, err)
	}

	return f, nil
}

// Delete удаляет предмет из реестра и из индекса.
func (s *FixtureService) Delete(ctx context.Context, id string) error {
	if err := s.fixtureRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("удаление предмета: %w", err)
	}

	s.logger.Info("Предмет удалён", slog.String("fixture_id", id))

	if err := s.indexer.Delete(ctx, id); err != nil {
		s.logger.Warn("Зеркало не обновлено после удаления",
			slog.String("fixture_id", id),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("%w: %w", ErrIndexOutOfSync, err)
	}

	return nil
}

// GetByID возвращает предмет по ID.
func (s *FixtureService) GetByID(ctx context.Context, id string) (*model.Fixture, error) {
	f, err := s.fixtureRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("получение предмета: %w", err)
	}
	return f, nil
}

// GetByQr возвращает предмет, на который сейчас наклеен QR-код.
func (s *FixtureService) GetByQr(ctx context.Context, qrID string) (*model.Fixture, error) {
	f, err := s.fixtureRepo.GetByQr(ctx, qrID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("получение предмета по QR: %w", err)
	}
	return f, nil
}

// List возвращает предметы из реестра с опциональным фильтром.
// Читает из PostgreSQL, не из индекса: список всегда консистентен.
func (s *FixtureService) List(ctx context.Context, filter repository.FixtureFilter) ([]*model.Fixture, error) {
	fixtures, err := s.fixtureRepo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("получение списка предметов: %w", err)
	}
	return fixtures, nil
}

// Search ищет предметы в поисковом зеркале по ключевым словам.
// Результат может отставать от реестра: зеркало eventually consistent.
func (s *FixtureService) Search(ctx context.Context, keywords []string) ([]*search.ScoredFixture, error) {
	hits, err := s.indexer.Search(ctx, keywords)
	if err != nil {
		return nil, fmt.Errorf("поиск предметов: %w", err)
	}
	return hits, nil
}
