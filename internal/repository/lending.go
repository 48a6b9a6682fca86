package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/sohosai/qr-backend/internal/domain/model"
)

// LendingKeyKind — вид ключа, по которому разрешается запись о выдаче.
type LendingKeyKind string

// Виды ключей выдачи. Каждый вид отвечает на вопрос о выдаче независимо.
const (
	// LendingKeyLendingID — UUID самой записи о выдаче.
	LendingKeyLendingID LendingKeyKind = "lending_id"
	// LendingKeyFixturesID — UUID предмета.
	LendingKeyFixturesID LendingKeyKind = "fixtures_id"
	// LendingKeyQrID — QR-код предмета (снимок на момент выдачи).
	LendingKeyQrID LendingKeyKind = "qr_id"
)

// LendingRepository — доступ к таблице lending.
// Записи создаются выдачей и изменяются ровно один раз — возвратом.
type LendingRepository interface {
	// Create вставляет новую запись о выдаче.
	// Нарушение частичного уникального индекса по открытой выдаче
	// возвращается как ErrConflict.
	Create(ctx context.Context, l *model.Lending) error
	// GetOpen возвращает открытую запись по ключу или ErrNotFound.
	GetOpen(ctx context.Context, kind LendingKeyKind, value string) (*model.Lending, error)
	// Get возвращает запись (открытую или закрытую) по ключу или ErrNotFound.
	Get(ctx context.Context, kind LendingKeyKind, value string) (*model.Lending, error)
	// Return устанавливает returned_at на открытой записи.
	// Закрытые записи не затрагиваются: returned_at неизменяем.
	Return(ctx context.Context, lendingID string, returnedAt time.Time) error
	// List возвращает записи о выдачах; onlyOpen — только открытые.
	List(ctx context.Context, onlyOpen bool) ([]*model.Lending, error)
}

// lendingRepo — реализация LendingRepository.
type lendingRepo struct {
	db DBTX
}

// NewLendingRepository создаёт репозиторий выдач.
func NewLendingRepository(db DBTX) LendingRepository {
	return &lendingRepo{db: db}
}

const lendingColumns = `id, fixtures_id, fixtures_qr_id, spot_name, lending_at,
	returned_at, borrower_name, borrower_number, borrower_org`

func (r *lendingRepo) Create(ctx context.Context, l *model.Lending) error {
	query := `
		INSERT INTO lending (id, fixtures_id, fixtures_qr_id, spot_name, lending_at,
			returned_at, borrower_name, borrower_number, borrower_org)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := r.db.Exec(ctx, query,
		l.ID, l.FixturesID, l.FixturesQrID, l.SpotName, l.LendingAt,
		l.ReturnedAt, l.BorrowerName, l.BorrowerNumber, l.BorrowerOrg,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: предмет %s уже выдан", ErrConflict, l.FixturesID)
		}
		return fmt.Errorf("ошибка создания записи о выдаче: %w", err)
	}
	return nil
}

// keyColumn сопоставляет вид ключа колонке таблицы.
func keyColumn(kind LendingKeyKind) (string, error) {
	switch kind {
	case LendingKeyLendingID:
		return "id", nil
	case LendingKeyFixturesID:
		return "fixtures_id", nil
	case LendingKeyQrID:
		return "fixtures_qr_id", nil
	default:
		return "", fmt.Errorf("неизвестный вид ключа выдачи: %q", kind)
	}
}

func (r *lendingRepo) GetOpen(ctx context.Context, kind LendingKeyKind, value string) (*model.Lending, error) {
	col, err := keyColumn(kind)
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf(`SELECT %s FROM lending WHERE %s = $1 AND returned_at IS NULL`,
		lendingColumns, col)
	return r.getOne(ctx, query, value)
}

func (r *lendingRepo) Get(ctx context.Context, kind LendingKeyKind, value string) (*model.Lending, error) {
	col, err := keyColumn(kind)
	if err != nil {
		return nil, err
	}
	// Среди нескольких записей предмета интересна самая свежая
	query := fmt.Sprintf(`SELECT %s FROM lending WHERE %s = $1 ORDER BY lending_at DESC LIMIT 1`,
		lendingColumns, col)
	return r.getOne(ctx, query, value)
}

func (r *lendingRepo) getOne(ctx context.Context, query string, arg any) (*model.Lending, error) {
	l := &model.Lending{}
	err := r.db.QueryRow(ctx, query, arg).Scan(
		&l.ID, &l.FixturesID, &l.FixturesQrID, &l.SpotName, &l.LendingAt,
		&l.ReturnedAt, &l.BorrowerName, &l.BorrowerNumber, &l.BorrowerOrg,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения записи о выдаче: %w", err)
	}
	return l, nil
}

func (r *lendingRepo) Return(ctx context.Context, lendingID string, returnedAt time.Time) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE lending SET returned_at = $2 WHERE id = $1 AND returned_at IS NULL`,
		lendingID, returnedAt,
	)
	if err != nil {
		return fmt.Errorf("ошибка возврата: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *lendingRepo) List(ctx context.Context, onlyOpen bool) ([]*model.Lending, error) {
	query := `SELECT ` + lendingColumns + ` FROM lending`
	if onlyOpen {
		query += ` WHERE returned_at IS NULL`
	}
	query += ` ORDER BY lending_at DESC`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения списка выдач: %w", err)
	}
	defer rows.Close()

	var result []*model.Lending
	for rows.Next() {
		l := &model.Lending{}
		if err := rows.Scan(
			&l.ID, &l.FixturesID, &l.FixturesQrID, &l.SpotName, &l.LendingAt,
			&l.ReturnedAt, &l.BorrowerName, &l.BorrowerNumber, &l.BorrowerOrg,
		); err != nil {
			return nil, fmt.Errorf("ошибка сканирования записи о выдаче: %w", err)
		}
		result = append(result, l)
	}
	return result, rows.Err()
}
