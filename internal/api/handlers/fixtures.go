// fixtures.go — обработчики реестра предметов.
// Параметры выборки передаются query string, тела запросов — JSON.
package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	apierrors "github.com/sohosai/qr-backend/internal/api/errors"
	"github.com/sohosai/qr-backend/internal/domain/model"
	"github.com/sohosai/qr-backend/internal/repository"
)

// fixtureRequest — тело запроса регистрации/обновления предмета.
type fixtureRequest struct {
	ID          string  `json:"id,omitempty"`
	QrID        string  `json:"qr_id"`
	QrColor     string  `json:"qr_color"`
	Name        string  `json:"name"`
	Description *string `json:"description"`
	ModelNumber *string `json:"model_number"`
	Storage     string  `json:"storage"`
	Usage       *string `json:"usage"`
	UsageSeason *string `json:"usage_season"`
	Note        string  `json:"note"`
	ParentID    string  `json:"parent_id"`
}

func (req *fixtureRequest) toModel() *model.Fixture {
	return &model.Fixture{
		ID:          req.ID,
		QrID:        req.QrID,
		QrColor:     model.QrColor(req.QrColor),
		Name:        req.Name,
		Description: req.Description,
		ModelNumber: req.ModelNumber,
		Storage:     model.Storage(req.Storage),
		Usage:       req.Usage,
		UsageSeason: req.UsageSeason,
		Note:        req.Note,
		ParentID:    req.ParentID,
	}
}

// InsertFixtures — POST /insert_fixtures.
// Регистрирует предмет и зеркалит его в поисковый индекс.
// Доступ: equipment_manager, administrator.
func (h *APIHandler) InsertFixtures(w http.ResponseWriter, r *http.Request) {
	var req fixtureRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierrors.ValidationError(w, "Некорректный JSON: "+err.Error())
		return
	}

	f, err := h.fixtures.Create(r.Context(), req.toModel())
	if err != nil {
		h.writeServiceError(w, err, "insert_fixtures")
		return
	}

	writeJSON(w, http.StatusCreated, f)
}

// UpdateFixtures — POST /update_fixtures.
// Обновляет предмет по ID; qr_id можно переназначить.
// Доступ: equipment_manager, administrator.
func (h *APIHandler) UpdateFixtures(w http.ResponseWriter, r *http.Request) {
	var req fixtureRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierrors.ValidationError(w, "Некорректный JSON: "+err.Error())
		return
	}
	if req.ID == "" {
		apierrors.ValidationError(w, "Параметр id обязателен")
		return
	}

	f, err := h.fixtures.Update(r.Context(), req.toModel())
	if err != nil {
		h.writeServiceError(w, err, "update_fixtures")
		return
	}

	writeJSON(w, http.StatusOK, f)
}

// DeleteFixtures — DELETE /delete_fixtures?id=.
// Доступ: administrator.
func (h *APIHandler) DeleteFixtures(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	if id == "" {
		apierrors.ValidationError(w, "Параметр id обязателен")
		return
	}

	if err := h.fixtures.Delete(r.Context(), id); err != nil {
		h.writeServiceError(w, err, "delete_fixtures")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"id": id})
}

// GetFixtures — GET /get_fixtures?id=|qr_id=.
// Возвращает предмет по ID или по текущему QR-коду.
// Доступ: любая действительная роль.
func (h *APIHandler) GetFixtures(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var (
		f   *model.Fixture
		err error
	)
	switch {
	case q.Get("id") != "":
		f, err = h.fixtures.GetByID(r.Context(), q.Get("id"))
	case q.Get("qr_id") != "":
		f, err = h.fixtures.GetByQr(r.Context(), q.Get("qr_id"))
	default:
		apierrors.ValidationError(w, "Требуется параметр id или qr_id")
		return
	}
	if err != nil {
		h.writeServiceError(w, err, "get_fixtures")
		return
	}

	writeJSON(w, http.StatusOK, f)
}

// GetFixturesList — GET /get_fixtures_list?key=&value=.
// Без параметров возвращает весь реестр; key задаёт поле фильтра.
// Доступ: любая действительная роль.
func (h *APIHandler) GetFixturesList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filter := repository.FixtureFilter{}
	if key := q.Get("key"); key != "" {
		kind, err := repository.ParseFixtureFilterKind(key)
		if err != nil {
			apierrors.ValidationError(w, err.Error())
			return
		}
		value := q.Get("value")
		if value == "" {
			apierrors.ValidationError(w, "Параметр value обязателен при заданном key")
			return
		}
		filter = repository.FixtureFilter{Kind: kind, Value: value}
	}

	list, err := h.fixtures.List(r.Context(), filter)
	if err != nil {
		h.writeServiceError(w, err, "get_fixtures_list")
		return
	}

	writeJSON(w, http.StatusOK, list)
}

// SearchFixtures — GET /search_fixtures?keywords=a,b.
// Ключевые слова разделяются запятыми; выдача — объединение
// результатов по каждому слову без дубликатов.
// Доступ: любая действительная роль.
func (h *APIHandler) SearchFixtures(w http.ResponseWriter, r *http.Request) {
	keywords := strings.Split(r.URL.Query().Get("keywords"), ",")

	hits, err := h.fixtures.Search(r.Context(), keywords)
	if err != nil {
		h.writeServiceError(w, err, "search_fixtures")
		return
	}

	writeJSON(w, http.StatusOK, hits)
}
