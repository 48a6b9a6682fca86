// Пакет search — зеркало реестра предметов в поисковом индексе.
// Зеркало eventually consistent: источник истины — PostgreSQL,
// индекс догоняет его при каждой мутации.
package search

import (
	"context"
	"strings"

	"github.com/sohosai/qr-backend/internal/domain/model"
)

// ScoredFixture — предмет с релевантностью из поискового индекса.
type ScoredFixture struct {
	model.Fixture
	// Score — релевантность запроса от движка, [0, 1]
	Score float64 `json:"score"`
}

// Indexer — операции над поисковым зеркалом реестра.
type Indexer interface {
	// Upsert добавляет или обновляет документы предметов в индексе.
	Upsert(ctx context.Context, fixtures ...*model.Fixture) error
	// Delete удаляет документ предмета из индекса.
	Delete(ctx context.Context, id string) error
	// Search выполняет поиск по списку ключевых слов. Результат —
	// объединение выдач по каждому слову без дубликатов, в порядке
	// первого вхождения. Пустой список слов — пустой результат.
	Search(ctx context.Context, keywords []string) ([]*ScoredFixture, error)
}

// NormalizeKeywords отбрасывает пустые ключевые слова и пробелы по краям.
func NormalizeKeywords(keywords []string) []string {
	out := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		kw = strings.TrimSpace(kw)
		if kw != "" {
			out = append(out, kw)
		}
	}
	return out
}

// mergeHits объединяет постраничные выдачи по отдельным словам в один
// список без дубликатов. Для повторившегося предмета сохраняется
// релевантность первого вхождения.
func mergeHits(pages [][]*ScoredFixture) []*ScoredFixture {
	merged := []*ScoredFixture{}
	seen := make(map[string]bool)
	for _, page := range pages {
		for _, hit := range page {
			if seen[hit.ID] {
				continue
			}
			seen[hit.ID] = true
			merged = append(merged, hit)
		}
	}
	return merged
}
