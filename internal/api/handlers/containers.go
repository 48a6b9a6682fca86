// containers.go — обработчики реестра контейнеров.
package handlers

import (
	"encoding/json"
	"net/http"

	apierrors "github.com/sohosai/qr-backend/internal/api/errors"
	"github.com/sohosai/qr-backend/internal/domain/model"
)

// containerRequest — тело запроса регистрации контейнера.
type containerRequest struct {
	QrID        string  `json:"qr_id"`
	QrColor     string  `json:"qr_color"`
	Storage     string  `json:"storage"`
	Description *string `json:"description"`
}

// InsertContainer — POST /insert_container.
// Доступ: equipment_manager, administrator.
func (h *APIHandler) InsertContainer(w http.ResponseWriter, r *http.Request) {
	var req containerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierrors.ValidationError(w, "Некорректный JSON: "+err.Error())
		return
	}

	c, err := h.containers.Create(r.Context(), &model.Container{
		QrID:        req.QrID,
		QrColor:     model.QrColor(req.QrColor),
		Storage:     model.Storage(req.Storage),
		Description: req.Description,
	})
	if err != nil {
		h.writeServiceError(w, err, "insert_container")
		return
	}

	writeJSON(w, http.StatusCreated, c)
}
