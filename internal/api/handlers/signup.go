// signup.go — регистрация пользователей через внешний IdP.
// Идентичность подтверждается JWT middleware; обработчик только
// фиксирует пользователя в БД.
package handlers

import (
	"net/http"

	apierrors "github.com/sohosai/qr-backend/internal/api/errors"
	"github.com/sohosai/qr-backend/internal/api/middleware"
)

// Signup — POST /signup.
// Регистрирует пользователя по клеймам JWT. Повторная регистрация — 409.
func (h *APIHandler) Signup(w http.ResponseWriter, r *http.Request) {
	identity := middleware.IdentityFromContext(r.Context())
	if identity == nil {
		apierrors.Unauthorized(w, "Отсутствует подтверждённая идентичность")
		return
	}

	u, err := h.users.Signup(r.Context(), identity.Subject, identity.Name, identity.Email)
	if err != nil {
		h.writeServiceError(w, err, "signup")
		return
	}

	writeJSON(w, http.StatusCreated, u)
}
