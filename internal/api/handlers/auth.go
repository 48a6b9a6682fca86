// auth.go — выпуск passtoken.
// Учётные данные предъявляются через HTTP Basic: имя пользователя —
// роль, пароль — ключ роли из конфигурации.
package handlers

import (
	"net/http"
	"time"

	apierrors "github.com/sohosai/qr-backend/internal/api/errors"
	"github.com/sohosai/qr-backend/internal/domain/rbac"
)

// passtokenResponse — ответ выпуска токена.
type passtokenResponse struct {
	Token     string `json:"token"`
	Role      string `json:"role"`
	LimitDays int    `json:"limit_days"`
	CreatedAt string `json:"created_at"`
}

// GenPasstoken — POST /gen_passtoken.
// Выпускает токен доступа для роли по Basic-учётным данным.
func (h *APIHandler) GenPasstoken(w http.ResponseWriter, r *http.Request) {
	username, password, ok := r.BasicAuth()
	if !ok {
		w.Header().Set("WWW-Authenticate", `Basic realm="qr-backend"`)
		apierrors.Unauthorized(w, "Требуется HTTP Basic: имя — роль, пароль — ключ роли")
		return
	}

	p, err := h.passtokens.Issue(r.Context(), rbac.Role(username), password)
	if err != nil {
		h.writeServiceError(w, err, "gen_passtoken")
		return
	}

	writeJSON(w, http.StatusCreated, passtokenResponse{
		Token:     p.Token,
		Role:      p.Role.String(),
		LimitDays: p.LimitDays,
		CreatedAt: p.CreatedAt.Format(time.RFC3339),
	})
}
