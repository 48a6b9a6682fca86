// lending.go — сервис журнала выдач.
// Инвариант «не более одной открытой выдачи на предмет» держится
// двумя уровнями: предварительной проверкой открытых записей здесь
// и частичными уникальными индексами в БД. Проверка даёт понятную
// ошибку, индекс закрывает гонку конкурентных выдач.
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
)

// LendingService — сервис журнала выдач.
type LendingService struct {
	lendingRepo repository.LendingRepository
	fixtureRepo repository.FixtureRepository
	spotRepo    repository.SpotRepository
	logger      *slog.Logger
}

// NewLendingService создаёт сервис журнала выдач.
func NewLendingService(
	lendingRepo repository.LendingRepository,
	fixtureRepo repository.FixtureRepository,
	spotRepo repository.SpotRepository,
	logger *slog.Logger,
) *LendingService {
	return &LendingService{
		lendingRepo: lendingRepo,
		fixtureRepo: fixtureRepo,
		spotRepo:    spotRepo,
		logger:      logger.With(slog.String("component", "lending_service")),
	}
}

// LendRequest — параметры выдачи предмета.
// Предмет задаётся либо по ID, либо по QR-коду.
type LendRequest struct {
	// FixturesID — ID выдаваемого предмета
	FixturesID string
	// QrID — QR-код предмета; используется, если FixturesID не задан
	QrID string
	// SpotName — имя локации, куда выдаётся предмет
	SpotName string
	// BorrowerName — имя получателя
	BorrowerName string
	// BorrowerNumber — номер группы/участника получателя
	BorrowerNumber int
	// BorrowerOrg — организация получателя
	BorrowerOrg string
}

// Lend выдаёт предмет. QR-код предмета снимается в запись выдачи
// как снимок на момент выдачи: последующая переклейка наклейки
// не меняет журнал.
func (s *LendingService) Lend(ctx context.Context, req LendRequest) (*model.Lending, error) {
	if req.FixturesID == "" && req.QrID == "" {
		return nil, fmt.Errorf("%w: требуется fixtures_id или qr_id", ErrValidation)
	}
	if req.SpotName == "" {
		return nil, fmt.Errorf("%w: spot_name обязателен", ErrValidation)
	}
	if req.BorrowerName == "" {
		return nil, fmt.Errorf("%w: borrower_name обязателен", ErrValidation)
	}

	// Предмет должен существовать; заодно получаем текущий qr_id
	fixture, err := s.resolveFixture(ctx, req)
	if err != nil {
		return nil, err
	}

	// Локация должна существовать
	if _, err := s.spotRepo.GetByName(ctx, req.SpotName); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: локация %q не найдена", ErrNotFound, req.SpotName)
		}
		return nil, fmt.Errorf("получение локации для выдачи: %w", err)
	}

	// Предварительная проверка открытых записей: и по предмету,
	// и по QR-снимку. Второе блокирует выдачу под кодом, который
	// ещё числится на руках после переклейки.
	if err := s.checkNotLent(ctx, repository.LendingKeyFixturesID, fixture.ID); err != nil {
		return nil, err
	}
	if err := s.checkNotLent(ctx, repository.LendingKeyQrID, fixture.QrID); err != nil {
		return nil, err
	}

	l := &model.Lending{
		ID:             uuid.New().String(),
		FixturesID:     fixture.ID,
		FixturesQrID:   fixture.QrID,
		SpotName:       req.SpotName,
		LendingAt:      time.Now().UTC(),
		BorrowerName:   req.BorrowerName,
		BorrowerNumber: req.BorrowerNumber,
		BorrowerOrg:    req.BorrowerOrg,
	}

	if err := s.lendingRepo.Create(ctx, l); err != nil {
		// Проигравший конкурентной выдачи ловит 23505 на индексе
		if errors.Is(err, repository.ErrConflict) {
			return nil, fmt.Errorf("%w: предмет %s", ErrAlreadyLent, fixture.ID)
		}
		return nil, fmt.Errorf("запись выдачи: %w", err)
	}

	s.logger.Info("Предмет выдан",
		slog.String("lending_id", l.ID),
		slog.String("fixture_id", fixture.ID),
		slog.String("qr_id", fixture.QrID),
		slog.String("spot", req.SpotName),
	)

	return l, nil
}

// resolveFixture находит выдаваемый предмет по ID или по QR-коду.
// Для QR берётся ТЕКУЩИЙ владелец кода.
func (s *LendingService) resolveFixture(ctx context.Context, req LendRequest) (*model.Fixture, error) {
	if req.FixturesID != "" {
		fixture, err := s.fixtureRepo.GetByID(ctx, req.FixturesID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, fmt.Errorf("%w: предмет %s не найден", ErrNotFound, req.FixturesID)
			}
			return nil, fmt.Errorf("получение предмета для выдачи: %w", err)
		}
		return fixture, nil
	}

	fixture, err := s.fixtureRepo.GetByQr(ctx, req.QrID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: предмет с QR %q не найден", ErrNotFound, req.QrID)
		}
		return nil, fmt.Errorf("разрешение QR при выдаче: %w", err)
	}
	return fixture, nil
}

// checkNotLent возвращает ErrAlreadyLent, если по ключу есть открытая запись.
func (s *LendingService) checkNotLent(ctx context.Context, kind repository.LendingKeyKind, value string) error {
	_, err := s.lendingRepo.GetOpen(ctx, kind, value)
	switch {
	case err == nil:
		return fmt.Errorf("%w: открытая запись по %s=%s", ErrAlreadyLent, kind, value)
	case errors.Is(err, repository.ErrNotFound):
		return nil
	default:
		return fmt.Errorf("проверка открытых выдач: %w", err)
	}
}

// Return закрывает открытую выдачу, разрешая её по одному из ключей.
// Для ключа qr_id код сначала разрешается в ТЕКУЩИЙ предмет: возврат
// сканом наклейки возвращает тот предмет, на котором она наклеена
// сейчас, а не тот, что был выдан под этим кодом когда-то.
func (s *LendingService) Return(ctx context.Context, kind repository.LendingKeyKind, value string) (*model.Lending, error) {
	if value == "" {
		return nil, fmt.Errorf("%w: значение ключа обязательно", ErrValidation)
	}

	open, err := s.resolveOpen(ctx, kind, value)
	if err != nil {
		return nil, err
	}

	returnedAt := time.Now().UTC()
	if err := s.lendingRepo.Return(ctx, open.ID, returnedAt); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// Запись закрыли между чтением и обновлением
			return nil, fmt.Errorf("%w: открытая выдача не найдена", ErrNotFound)
		}
		return nil, fmt.Errorf("закрытие выдачи: %w", err)
	}
	open.ReturnedAt = &returnedAt

	s.logger.Info("Предмет возвращён",
		slog.String("lending_id", open.ID),
		slog.String("fixture_id", open.FixturesID),
	)

	return open, nil
}

// resolveOpen находит открытую выдачу по ключу возврата.
func (s *LendingService) resolveOpen(ctx context.Context, kind repository.LendingKeyKind, value string) (*model.Lending, error) {
	lookupKind, lookupValue := kind, value

	if kind == repository.LendingKeyQrID {
		fixture, err := s.fixtureRepo.GetByQr(ctx, value)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, fmt.Errorf("%w: предмет с QR %q не найден", ErrNotFound, value)
			}
			return nil, fmt.Errorf("разрешение QR при возврате: %w", err)
		}
		lookupKind, lookupValue = repository.LendingKeyFixturesID, fixture.ID
	}

	open, err := s.lendingRepo.GetOpen(ctx, lookupKind, lookupValue)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: открытая выдача по %s=%s не найдена", ErrNotFound, kind, value)
		}
		return nil, fmt.Errorf("поиск открытой выдачи: %w", err)
	}
	return open, nil
}

// Get возвращает последнюю запись журнала по ключу (открытую или закрытую).
func (s *LendingService) Get(ctx context.Context, kind repository.LendingKeyKind, value string) (*model.Lending, error) {
	l, err := s.lendingRepo.Get(ctx, kind, value)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("получение записи выдачи: %w", err)
	}
	return l, nil
}

// IsLending сообщает, выдан ли предмет сейчас.
// Для ключа qr_id проверяется снимок кода в журнале: занятый код
// нельзя использовать для новой выдачи независимо от переклейки.
func (s *LendingService) IsLending(ctx context.Context, kind repository.LendingKeyKind, value string) (bool, error) {
	_, err := s.lendingRepo.GetOpen(ctx, kind, value)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, repository.ErrNotFound):
		return false, nil
	default:
		return false, fmt.Errorf("проверка статуса выдачи: %w", err)
	}
}

// List возвращает записи журнала: все или только открытые.
func (s *LendingService) List(ctx context.Context, onlyOpen bool) ([]*model.Lending, error) {
	list, err := s.lendingRepo.List(ctx, onlyOpen)
	if err != nil {
		return nil, fmt.Errorf("получение журнала выдач: %w", err)
	}
	return list, nil
}
