// lending.go — обработчики журнала выдач.
package handlers

import (
	"encoding/json"
	"net/http"

	apierrors "github.com/sohosai/qr-backend/internal/api/errors"
	"github.com/sohosai/qr-backend/internal/repository"
	"github.com/sohosai/qr-backend/internal/service"
)

// lendingRequest — тело запроса выдачи предмета.
// Предмет задаётся fixtures_id или qr_id.
type lendingRequest struct {
	FixturesID     string `json:"fixtures_id"`
	QrID           string `json:"qr_id"`
	SpotName       string `json:"spot_name"`
	BorrowerName   string `json:"borrower_name"`
	BorrowerNumber int    `json:"borrower_number"`
	BorrowerOrg    string `json:"borrower_org"`
}

// lendingKeyFromQuery извлекает ключ записи выдачи из query string.
// Поддерживаются id (запись журнала), fixtures_id и qr_id.
func lendingKeyFromQuery(r *http.Request) (repository.LendingKeyKind, string, bool) {
	q := r.URL.Query()
	switch {
	case q.Get("id") != "":
		return repository.LendingKeyLendingID, q.Get("id"), true
	case q.Get("fixtures_id") != "":
		return repository.LendingKeyFixturesID, q.Get("fixtures_id"), true
	case q.Get("qr_id") != "":
		return repository.LendingKeyQrID, q.Get("qr_id"), true
	}
	return "", "", false
}

// InsertLending — POST /insert_lending.
// Выдаёт предмет. Повторная выдача невозвращённого предмета — 409.
// Доступ: equipment_manager, administrator.
func (h *APIHandler) InsertLending(w http.ResponseWriter, r *http.Request) {
	var req lendingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierrors.ValidationError(w, "Некорректный JSON: "+err.Error())
		return
	}

	l, err := h.lending.Lend(r.Context(), service.LendRequest{
		FixturesID:     req.FixturesID,
		QrID:           req.QrID,
		SpotName:       req.SpotName,
		BorrowerName:   req.BorrowerName,
		BorrowerNumber: req.BorrowerNumber,
		BorrowerOrg:    req.BorrowerOrg,
	})
	if err != nil {
		h.writeServiceError(w, err, "insert_lending")
		return
	}

	writeJSON(w, http.StatusCreated, l)
}

// ReturnedLending — POST /returned_lending?id=|fixtures_id=|qr_id=.
// Закрывает открытую выдачу. Для qr_id код разрешается в текущий предмет.
// Доступ: equipment_manager, administrator.
func (h *APIHandler) ReturnedLending(w http.ResponseWriter, r *http.Request) {
	kind, value, ok := lendingKeyFromQuery(r)
	if !ok {
		apierrors.ValidationError(w, "Требуется параметр id, fixtures_id или qr_id")
		return
	}

	l, err := h.lending.Return(r.Context(), kind, value)
	if err != nil {
		h.writeServiceError(w, err, "returned_lending")
		return
	}

	writeJSON(w, http.StatusOK, l)
}

// GetLending — GET /get_lending?id=|fixtures_id=|qr_id=.
// Возвращает последнюю запись журнала по ключу.
// Доступ: любая действительная роль.
func (h *APIHandler) GetLending(w http.ResponseWriter, r *http.Request) {
	kind, value, ok := lendingKeyFromQuery(r)
	if !ok {
		apierrors.ValidationError(w, "Требуется параметр id, fixtures_id или qr_id")
		return
	}

	l, err := h.lending.Get(r.Context(), kind, value)
	if err != nil {
		h.writeServiceError(w, err, "get_lending")
		return
	}

	writeJSON(w, http.StatusOK, l)
}

// GetLendingList — GET /get_lending_list?only_open=true.
// Возвращает журнал выдач: весь или только открытые записи.
// Доступ: любая действительная роль.
func (h *APIHandler) GetLendingList(w http.ResponseWriter, r *http.Request) {
	onlyOpen := r.URL.Query().Get("only_open") == "true"

	list, err := h.lending.List(r.Context(), onlyOpen)
	if err != nil {
		h.writeServiceError(w, err, "get_lending_list")
		return
	}

	writeJSON(w, http.StatusOK, list)
}

// GetIsLending — GET /get_is_lending?id=|fixtures_id=|qr_id=.
// Сообщает, выдан ли предмет сейчас.
// Доступ: любая действительная роль.
func (h *APIHandler) GetIsLending(w http.ResponseWriter, r *http.Request) {
	kind, value, ok := lendingKeyFromQuery(r)
	if !ok {
		apierrors.ValidationError(w, "Требуется параметр id, fixtures_id или qr_id")
		return
	}

	lent, err := h.lending.IsLending(r.Context(), kind, value)
	if err != nil {
		h.writeServiceError(w, err, "get_is_lending")
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"is_lending": lent})
}
