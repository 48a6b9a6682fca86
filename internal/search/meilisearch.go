package search

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/meilisearch/meilisearch-go"

	"github.com/sohosai/qr-backend/internal/config"
	"github.com/sohosai/qr-backend/internal/domain/model"
)

// Лимит выдачи на одно ключевое слово. Инвентарь фестиваля — тысячи
// позиций, выдача больше лимита на практике не встречается.
const perKeywordLimit = 1000

// Интервал опроса статуса задачи индексации.
const taskPollInterval = 50 * time.Millisecond

// MeiliIndexer — реализация Indexer поверх Meilisearch.
type MeiliIndexer struct {
	client  meilisearch.ServiceManager
	index   meilisearch.IndexManager
	timeout time.Duration
	logger  *slog.Logger
}

// NewMeiliIndexer создаёт клиент Meilisearch и настраивает индекс предметов.
func NewMeiliIndexer(cfg *config.Config, logger *slog.Logger) *MeiliIndexer {
	var opts []meilisearch.Option
	if cfg.MeilisearchAPIKey != "" {
		opts = append(opts, meilisearch.WithAPIKey(cfg.MeilisearchAPIKey))
	}
	client := meilisearch.New(cfg.MeilisearchURL, opts...)

	return &MeiliIndexer{
		client:  client,
		index:   client.Index(cfg.MeilisearchIndex),
		timeout: cfg.StoreTimeout,
		logger:  logger.With(slog.String("component", "search")),
	}
}

// callCtx ограничивает одно обращение к индексу таймаутом из конфигурации.
func (m *MeiliIndexer) callCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if m.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, m.timeout)
}

// Upsert добавляет или обновляет документы в индексе и дожидается
// применения задачи. Ошибка означает рассинхронизацию зеркала,
// не откат записи в реестре.
func (m *MeiliIndexer) Upsert(ctx context.Context, fixtures ...*model.Fixture) error {
	if len(fixtures) == 0 {
		return nil
	}

	ctx, cancel := m.callCtx(ctx)
	defer cancel()

	task, err := m.index.AddDocumentsWithContext(ctx, fixtures, "id")
	if err != nil {
		return fmt.Errorf("ошибка добавления документов в индекс: %w", err)
	}
	if err := m.waitTask(ctx, task.TaskUID); err != nil {
		return err
	}

	m.logger.Debug("Документы проиндексированы", slog.Int("count", len(fixtures)))
	return nil
}

// Delete удаляет документ из индекса и дожидается применения задачи.
func (m *MeiliIndexer) Delete(ctx context.Context, id string) error {
	ctx, cancel := m.callCtx(ctx)
	defer cancel()

	task, err := m.index.DeleteDocumentWithContext(ctx, id)
	if err != nil {
		return fmt.Errorf("ошибка удаления документа из индекса: %w", err)
	}
	return m.waitTask(ctx, task.TaskUID)
}

// waitTask дожидается завершения задачи индексации.
// Индексация асинхронна; без ожидания ошибка применения потерялась бы.
func (m *MeiliIndexer) waitTask(ctx context.Context, taskUID int64) error {
	task, err := m.index.WaitForTaskWithContext(ctx, taskUID, taskPollInterval)
	if err != nil {
		return fmt.Errorf("ошибка ожидания задачи индексации %d: %w", taskUID, err)
	}
	if task.Status != meilisearch.TaskStatusSucceeded {
		return fmt.Errorf("задача индексации %d завершилась со статусом %s: %s",
			taskUID, task.Status, task.Error.Message)
	}
	return nil
}

// Search выполняет отдельный запрос по каждому ключевому слову и
// объединяет выдачи без дубликатов.
func (m *MeiliIndexer) Search(ctx context.Context, keywords []string) ([]*ScoredFixture, error) {
	keywords = NormalizeKeywords(keywords)
	if len(keywords) == 0 {
		return []*ScoredFixture{}, nil
	}

	pages := make([][]*ScoredFixture, 0, len(keywords))
	for _, kw := range keywords {
		kwCtx, cancel := m.callCtx(ctx)
		resp, err := m.index.SearchWithContext(kwCtx, kw, &meilisearch.SearchRequest{
			Limit:            perKeywordLimit,
			ShowRankingScore: true,
		})
		cancel()
		if err != nil {
			return nil, fmt.Errorf("ошибка поиска по слову %q: %w", kw, err)
		}

		page := make([]*ScoredFixture, 0, len(resp.Hits))
		for _, raw := range resp.Hits {
			hit, err := decodeHit(raw)
			if err != nil {
				// Повреждённый документ не валит весь поиск
				m.logger.Warn("Не удалось разобрать документ индекса", slog.Any("error", err))
				continue
			}
			page = append(page, hit)
		}
		pages = append(pages, page)
	}

	return mergeHits(pages), nil
}

// decodeHit разбирает документ выдачи. Клиент отдаёт hit как
// нетипизированную структуру, разбор — через повторную сериализацию.
func decodeHit(raw any) (*ScoredFixture, error) {
	data, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("ошибка сериализации документа: %w", err)
	}

	var doc struct {
		model.Fixture
		RankingScore float64 `json:"_rankingScore"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("ошибка разбора документа: %w", err)
	}

	return &ScoredFixture{Fixture: doc.Fixture, Score: doc.RankingScore}, nil
}

// ReadinessChecker — проверка готовности Meilisearch для health endpoint.
type ReadinessChecker struct {
	client meilisearch.ServiceManager
}

// NewReadinessChecker создаёт проверку готовности Meilisearch.
func NewReadinessChecker(m *MeiliIndexer) *ReadinessChecker {
	return &ReadinessChecker{client: m.client}
}

// CheckReady опрашивает /health Meilisearch.
// Возвращает статус ("ok", "fail") и сообщение.
func (c *ReadinessChecker) CheckReady() (status string, message string) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	health, err := c.client.HealthWithContext(ctx)
	if err != nil {
		return "fail", fmt.Sprintf("Meilisearch недоступен: %v", err)
	}
	return "ok", fmt.Sprintf("статус %s", health.Status)
}
