package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/sohosai/qr-backend/internal/domain/model"
)

// SpotRepository — интерфейс CRUD для таблицы spot.
// Ключ — уникальное имя места.
type SpotRepository interface {
	Create(ctx context.Context, s *model.Spot) error
	Update(ctx context.Context, s *model.Spot) error
	GetByName(ctx context.Context, name string) (*model.Spot, error)
	List(ctx context.Context) ([]*model.Spot, error)
	Delete(ctx context.Context, name string) error
}

type spotRepo struct {
	db DBTX
}

// NewSpotRepository создаёт репозиторий мест.
func NewSpotRepository(db DBTX) SpotRepository {
	return &spotRepo{db: db}
}

func (r *spotRepo) Create(ctx context.Context, s *model.Spot) error {
	query := `
		INSERT INTO spot (name, area, building, floor, room)
		VALUES ($1, $2, $3, $4, $5)`

	_, err := r.db.Exec(ctx, query, s.Name, s.Area, s.Building, s.Floor, s.Room)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: место с именем %q уже зарегистрировано", ErrConflict, s.Name)
		}
		return fmt.Errorf("ошибка создания места: %w", err)
	}
	return nil
}

func (r *spotRepo) Update(ctx context.Context, s *model.Spot) error {
	query := `
		UPDATE spot SET area = $2, building = $3, floor = $4, room = $5
		WHERE name = $1`

	tag, err := r.db.Exec(ctx, query, s.Name, s.Area, s.Building, s.Floor, s.Room)
	if err != nil {
		return fmt.Errorf("ошибка обновления места: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *spotRepo) GetByName(ctx context.Context, name string) (*model.Spot, error) {
	s := &model.Spot{}
	err := r.db.QueryRow(ctx,
		`SELECT name, area, building, floor, room FROM spot WHERE name = $1`, name,
	).Scan(&s.Name, &s.Area, &s.Building, &s.Floor, &s.Room)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения места: %w", err)
	}
	return s, nil
}

func (r *spotRepo) List(ctx context.Context) ([]*model.Spot, error) {
	rows, err := r.db.Query(ctx,
		`SELECT name, area, building, floor, room FROM spot ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения списка мест: %w", err)
	}
	defer rows.Close()

	var result []*model.Spot
	for rows.Next() {
		s := &model.Spot{}
		if err := rows.Scan(&s.Name, &s.Area, &s.Building, &s.Floor, &s.Room); err != nil {
			return nil, fmt.Errorf("ошибка сканирования места: %w", err)
		}
		result = append(result, s)
	}
	return result, rows.Err()
}

func (r *spotRepo) Delete(ctx context.Context, name string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM spot WHERE name = $1`, name)
	if err != nil {
		return fmt.Errorf("ошибка удаления места: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
