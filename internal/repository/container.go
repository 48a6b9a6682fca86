package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/sohosai/qr-backend/internal/domain/model"
)

// ContainerRepository — интерфейс для таблицы container.
type ContainerRepository interface {
	Create(ctx context.Context, c *model.Container) error
	GetByID(ctx context.Context, id string) (*model.Container, error)
	Delete(ctx context.Context, id string) error
}

type containerRepo struct {
	db DBTX
}

// NewContainerRepository создаёт репозиторий контейнеров.
func NewContainerRepository(db DBTX) ContainerRepository {
	return &containerRepo{db: db}
}

func (r *containerRepo) Create(ctx context.Context, c *model.Container) error {
	query := `
		INSERT INTO container (id, qr_id, qr_color, storage, description)
		VALUES ($1, $2, $3, $4, $5)`

	_, err := r.db.Exec(ctx, query, c.ID, c.QrID, string(c.QrColor), string(c.Storage), c.Description)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: контейнер с id %s уже зарегистрирован", ErrConflict, c.ID)
		}
		return fmt.Errorf("ошибка создания контейнера: %w", err)
	}
	return nil
}

func (r *containerRepo) GetByID(ctx context.Context, id string) (*model.Container, error) {
	c := &model.Container{}
	err := r.db.QueryRow(ctx,
		`SELECT id, qr_id, qr_color, storage, description FROM container WHERE id = $1`, id,
	).Scan(&c.ID, &c.QrID, &c.QrColor, &c.Storage, &c.Description)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения контейнера: %w", err)
	}
	return c, nil
}

func (r *containerRepo) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM container WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("ошибка удаления контейнера: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
