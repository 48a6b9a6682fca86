// spots.go — обработчики справочника локаций.
package handlers

import (
	"encoding/json"
	"net/http"

	apierrors "github.com/sohosai/qr-backend/internal/api/errors"
	"github.com/sohosai/qr-backend/internal/domain/model"
)

// InsertSpot — POST /insert_spot.
// Доступ: equipment_manager, administrator.
func (h *APIHandler) InsertSpot(w http.ResponseWriter, r *http.Request) {
	var spot model.Spot
	if err := json.NewDecoder(r.Body).Decode(&spot); err != nil {
		apierrors.ValidationError(w, "Некорректный JSON: "+err.Error())
		return
	}

	if err := h.spots.Create(r.Context(), &spot); err != nil {
		h.writeServiceError(w, err, "insert_spot")
		return
	}

	writeJSON(w, http.StatusCreated, spot)
}

// UpdateSpot — POST /update_spot.
// Имя — идентификатор локации, обновляются остальные атрибуты.
// Доступ: equipment_manager, administrator.
func (h *APIHandler) UpdateSpot(w http.ResponseWriter, r *http.Request) {
	var spot model.Spot
	if err := json.NewDecoder(r.Body).Decode(&spot); err != nil {
		apierrors.ValidationError(w, "Некорректный JSON: "+err.Error())
		return
	}

	if err := h.spots.Update(r.Context(), &spot); err != nil {
		h.writeServiceError(w, err, "update_spot")
		return
	}

	writeJSON(w, http.StatusOK, spot)
}

// GetSpot — GET /get_spot?name=.
// Доступ: любая действительная роль.
func (h *APIHandler) GetSpot(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	if name == "" {
		apierrors.ValidationError(w, "Параметр name обязателен")
		return
	}

	spot, err := h.spots.Get(r.Context(), name)
	if err != nil {
		h.writeServiceError(w, err, "get_spot")
		return
	}

	writeJSON(w, http.StatusOK, spot)
}

// GetSpotList — GET /get_spot_list.
// Доступ: любая действительная роль.
func (h *APIHandler) GetSpotList(w http.ResponseWriter, r *http.Request) {
	list, err := h.spots.List(r.Context())
	if err != nil {
		h.writeServiceError(w, err, "get_spot_list")
		return
	}

	writeJSON(w, http.StatusOK, list)
}

// DeleteSpot — DELETE /delete_spot?name=.
// Доступ: administrator.
func (h *APIHandler) DeleteSpot(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	if name == "" {
		apierrors.ValidationError(w, "Параметр name обязателен")
		return
	}

	if err := h.spots.Delete(r.Context(), name); err != nil {
		h.writeServiceError(w, err, "delete_spot")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"name": name})
}
