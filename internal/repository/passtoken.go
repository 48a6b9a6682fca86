package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/sohosai/qr-backend/internal/domain/model"
	"github.com/sohosai/qr-backend/internal/domain/rbac"
)

// PasstokenRepository — доступ к таблице passtoken.
// Записи только вставляются и читаются: токен не изменяется и не
// удаляется, истёкшие записи остаются в таблице.
type PasstokenRepository interface {
	Insert(ctx context.Context, p *model.Passtoken) error
	Get(ctx context.Context, token string) (*model.Passtoken, error)
}

type passtokenRepo struct {
	db DBTX
}

// NewPasstokenRepository создаёт репозиторий токенов.
func NewPasstokenRepository(db DBTX) PasstokenRepository {
	return &passtokenRepo{db: db}
}

func (r *passtokenRepo) Insert(ctx context.Context, p *model.Passtoken) error {
	query := `
		INSERT INTO passtoken (token, role, created_at, limit_days)
		VALUES ($1, $2, $3, $4)`

	_, err := r.db.Exec(ctx, query, p.Token, p.Role.String(), p.CreatedAt, p.LimitDays)
	if err != nil {
		if isUniqueViolation(err) {
			// Коллизия 128-битного токена практически исключена
			return fmt.Errorf("%w: токен уже существует", ErrConflict)
		}
		return fmt.Errorf("ошибка сохранения токена: %w", err)
	}
	return nil
}

func (r *passtokenRepo) Get(ctx context.Context, token string) (*model.Passtoken, error) {
	p := &model.Passtoken{}
	var roleStr string
	err := r.db.QueryRow(ctx,
		`SELECT token, role, created_at, limit_days FROM passtoken WHERE token = $1`, token,
	).Scan(&p.Token, &roleStr, &p.CreatedAt, &p.LimitDays)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения токена: %w", err)
	}

	role, err := rbac.ParseRole(roleStr)
	if err != nil {
		return nil, fmt.Errorf("повреждённая запись токена: %w", err)
	}
	p.Role = role
	return p, nil
}
