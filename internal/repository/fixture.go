package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/sohosai/qr-backend/internal/domain/model"
)

// FixtureFilterKind — поле, по которому фильтруется список предметов.
type FixtureFilterKind string

// Допустимые поля фильтра. Фильтр всегда одно поле — одно значение.
const (
	// FixtureFilterNone — без фильтра, весь реестр.
	FixtureFilterNone FixtureFilterKind = ""
	// FixtureFilterID — точное совпадение по UUID предмета.
	FixtureFilterID FixtureFilterKind = "id"
	// FixtureFilterQrID — точное совпадение по QR-коду.
	FixtureFilterQrID FixtureFilterKind = "qr_id"
	// FixtureFilterName — точное совпадение по названию.
	FixtureFilterName FixtureFilterKind = "name"
	// FixtureFilterDescription — подстрока в описании.
	FixtureFilterDescription FixtureFilterKind = "description"
	// FixtureFilterStorage — точное совпадение по помещению хранения.
	FixtureFilterStorage FixtureFilterKind = "storage"
	// FixtureFilterParentID — точное совпадение по родительскому предмету.
	FixtureFilterParentID FixtureFilterKind = "parent_id"
)

// ParseFixtureFilterKind преобразует строку в FixtureFilterKind.
func ParseFixtureFilterKind(s string) (FixtureFilterKind, error) {
	switch FixtureFilterKind(s) {
	case FixtureFilterNone, FixtureFilterID, FixtureFilterQrID, FixtureFilterName,
		FixtureFilterDescription, FixtureFilterStorage, FixtureFilterParentID:
		return FixtureFilterKind(s), nil
	default:
		return "", fmt.Errorf("неизвестное поле фильтра: %q", s)
	}
}

// filterColumn сопоставляет поле фильтра имени столбца.
// В SQL попадают только значения из этого перечня, что бы ни пришло
// от вызывающего.
func filterColumn(kind FixtureFilterKind) (string, error) {
	switch kind {
	case FixtureFilterID:
		return "id", nil
	case FixtureFilterQrID:
		return "qr_id", nil
	case FixtureFilterName:
		return "name", nil
	case FixtureFilterStorage:
		return "storage", nil
	case FixtureFilterParentID:
		return "parent_id", nil
	default:
		return "", fmt.Errorf("неизвестное поле фильтра: %q", kind)
	}
}

// FixtureFilter — предикат списка предметов по одному полю.
type FixtureFilter struct {
	Kind  FixtureFilterKind
	Value string
}

// FixtureRepository — интерфейс CRUD для таблицы fixtures.
type FixtureRepository interface {
	// Create создаёт новый предмет в реестре.
	Create(ctx context.Context, f *model.Fixture) error
	// Update полностью заменяет запись предмета.
	Update(ctx context.Context, f *model.Fixture) error
	// Delete удаляет предмет из реестра.
	Delete(ctx context.Context, id string) error
	// GetByID возвращает предмет по UUID.
	GetByID(ctx context.Context, id string) (*model.Fixture, error)
	// GetByQr возвращает предмет по текущему QR-коду.
	GetByQr(ctx context.Context, qrID string) (*model.Fixture, error)
	// List возвращает список предметов по однополевому фильтру.
	List(ctx context.Context, filter FixtureFilter) ([]*model.Fixture, error)
}

// fixtureRepo — реализация FixtureRepository.
type fixtureRepo struct {
	db DBTX
}

// NewFixtureRepository создаёт репозиторий предметов.
func NewFixtureRepository(db DBTX) FixtureRepository {
	return &fixtureRepo{db: db}
}

const fixtureColumns = `id, created_at, qr_id, qr_color, name, description,
	model_number, storage, usage, usage_season, note, parent_id`

func (r *fixtureRepo) Create(ctx context.Context, f *model.Fixture) error {
	query := `
		INSERT INTO fixtures (id, created_at, qr_id, qr_color, name, description,
			model_number, storage, usage, usage_season, note, parent_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	_, err := r.db.Exec(ctx, query,
		f.ID, f.CreatedAt, f.QrID, string(f.QrColor), f.Name, f.Description,
		f.ModelNumber, string(f.Storage), f.Usage, f.UsageSeason, f.Note, f.ParentID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: предмет с id %s уже зарегистрирован", ErrConflict, f.ID)
		}
		return fmt.Errorf("ошибка создания предмета: %w", err)
	}
	return nil
}

func (r *fixtureRepo) Update(ctx context.Context, f *model.Fixture) error {
	query := `
		UPDATE fixtures
		SET created_at = $2, qr_id = $3, qr_color = $4, name = $5, description = $6,
			model_number = $7, storage = $8, usage = $9, usage_season = $10,
			note = $11, parent_id = $12
		WHERE id = $1`

	tag, err := r.db.Exec(ctx, query,
		f.ID, f.CreatedAt, f.QrID, string(f.QrColor), f.Name, f.Description,
		f.ModelNumber, string(f.Storage), f.Usage, f.UsageSeason, f.Note, f.ParentID,
	)
	if err != nil {
		return fmt.Errorf("ошибка обновления предмета: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *fixtureRepo) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM fixtures WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("ошибка удаления предмета: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *fixtureRepo) GetByID(ctx context.Context, id string) (*model.Fixture, error) {
	query := `SELECT ` + fixtureColumns + ` FROM fixtures WHERE id = $1`
	return r.getOne(ctx, query, id)
}

func (r *fixtureRepo) GetByQr(ctx context.Context, qrID string) (*model.Fixture, error) {
	query := `SELECT ` + fixtureColumns + ` FROM fixtures WHERE qr_id = $1`
	return r.getOne(ctx, query, qrID)
}

func (r *fixtureRepo) getOne(ctx context.Context, query string, arg any) (*model.Fixture, error) {
	f := &model.Fixture{}
	err := r.db.QueryRow(ctx, query, arg).Scan(
		&f.ID, &f.CreatedAt, &f.QrID, &f.QrColor, &f.Name, &f.Description,
		&f.ModelNumber, &f.Storage, &f.Usage, &f.UsageSeason, &f.Note, &f.ParentID,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения предмета: %w", err)
	}
	return f, nil
}

func (r *fixtureRepo) List(ctx context.Context, filter FixtureFilter) ([]*model.Fixture, error) {
	query := `SELECT ` + fixtureColumns + ` FROM fixtures`
	var args []any

	switch filter.Kind {
	case FixtureFilterNone:
		// весь реестр
	case FixtureFilterDescription:
		query += ` WHERE description ILIKE '%' || $1 || '%'`
		args = append(args, filter.Value)
	default:
		column, err := filterColumn(filter.Kind)
		if err != nil {
			return nil, err
		}
		query += ` WHERE ` + column + ` = $1`
		args = append(args, filter.Value)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения списка предметов: %w", err)
	}
	defer rows.Close()

	var result []*model.Fixture
	for rows.Next() {
		f := &model.Fixture{}
		if err := rows.Scan(
			&f.ID, &f.CreatedAt, &f.QrID, &f.QrColor, &f.Name, &f.Description,
			&f.ModelNumber, &f.Storage, &f.Usage, &f.UsageSeason, &f.Note, &f.ParentID,
		); err != nil {
			return nil, fmt.Errorf("ошибка сканирования предмета: %w", err)
		}
		result = append(result, f)
	}
	return result, rows.Err()
}
