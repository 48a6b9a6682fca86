package model

import (
	"time"

	"github.com/sohosai/qr-backend/internal/domain/rbac"
)

// Passtoken — временный bearer-токен доступа.
// Создаётся один раз, не изменяется и не продлевается: по истечении
// срока становится навсегда недействительным, но из БД не удаляется.
type Passtoken struct {
	// Token — непрозрачная строка токена (ключ записи)
	Token string `json:"token"`
	// Role — роль, привязанная к токену
	Role rbac.Role `json:"role"`
	// CreatedAt — время выпуска
	CreatedAt time.Time `json:"created_at"`
	// LimitDays — срок действия в днях от момента выпуска
	LimitDays int `json:"limit_days"`
}

// ValidAt сообщает, действителен ли токен на момент now.
func (p *Passtoken) ValidAt(now time.Time) bool {
	return p.CreatedAt.Add(time.Duration(p.LimitDays) * 24 * time.Hour).After(now)
}
