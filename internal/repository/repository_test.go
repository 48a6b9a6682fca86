package repository

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/sohosai/qr-backend/internal/config"
	"github.com/sohosai/qr-backend/internal/database"
	"github.com/sohosai/qr-backend/internal/domain/model"
	"github.com/sohosai/qr-backend/internal/domain/rbac"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// setupTestDB запускает PostgreSQL контейнер, применяет миграции.
// Возвращает pgxpool.Pool и функцию очистки.
func setupTestDB(t *testing.T) *pgxpool.Pool {
	t.Helper()

	if os.Getenv("TEST_INTEGRATION") == "" {
		t.Skip("Пропуск интеграционного теста: TEST_INTEGRATION не установлена")
	}

	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"docker.io/postgres:17-alpine",
		postgres.WithDatabase("qr_test"),
		postgres.WithUsername("qr"),
		postgres.WithPassword("test-password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("Не удалось запустить PostgreSQL контейнер: %v", err)
	}
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("Ошибка остановки контейнера: %v", err)
		}
	})

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("Не удалось получить host контейнера: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("Не удалось получить port контейнера: %v", err)
	}

	// Настраиваем env для config.Load()
	os.Setenv("QR_DB_HOST", host)
	os.Setenv("QR_DB_PORT", port.Port())
	os.Setenv("QR_DB_NAME", "qr_test")
	os.Setenv("QR_DB_USER", "qr")
	os.Setenv("QR_DB_PASSWORD", "test-password")
	os.Setenv("QR_DB_SSL_MODE", "disable")
	os.Setenv("QR_MEILISEARCH_URL", "http://localhost:7700")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("Ошибка загрузки конфигурации: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))

	// Применяем миграции
	if err := database.Migrate(cfg, logger); err != nil {
		t.Fatalf("Ошибка миграций: %v", err)
	}

	// Подключаемся
	pool, err := database.Connect(ctx, cfg, logger)
	if err != nil {
		t.Fatalf("Ошибка подключения: %v", err)
	}
	t.Cleanup(func() { pool.Close() })

	return pool
}

func testFixture(name, qrID string) *model.Fixture {
	desc := "тестовое описание " + name
	return &model.Fixture{
		ID:          uuid.New().String(),
		CreatedAt:   time.Now().UTC().Truncate(time.Microsecond),
		QrID:        qrID,
		QrColor:     model.QrColorRed,
		Name:        name,
		Description: &desc,
		Storage:     model.StorageRoom101,
		Note:        "test note",
	}
}

// --- Тесты FixtureRepository ---

func TestFixtureCRUD(t *testing.T) {
	pool := setupTestDB(t)
	ctx := context.Background()
	repo := NewFixtureRepository(pool)

	f := testFixture("projector-1", "QR-0001")

	// Create
	if err := repo.Create(ctx, f); err != nil {
		t.Fatalf("Create() ошибка: %v", err)
	}

	// GetByID
	got, err := repo.GetByID(ctx, f.ID)
	if err != nil {
		t.Fatalf("GetByID() ошибка: %v", err)
	}
	if got.Name != "projector-1" {
		t.Errorf("Name = %q, хотели %q", got.Name, "projector-1")
	}
	if got.QrColor != model.QrColorRed {
		t.Errorf("QrColor = %q, хотели %q", got.QrColor, model.QrColorRed)
	}
	if got.Description == nil || *got.Description != *f.Description {
		t.Errorf("Description = %v, хотели %v", got.Description, *f.Description)
	}
	if got.ModelNumber != nil {
		t.Errorf("ModelNumber = %v, хотели nil", got.ModelNumber)
	}

	// GetByQr
	got2, err := repo.GetByQr(ctx, "QR-0001")
	if err != nil {
		t.Fatalf("GetByQr() ошибка: %v", err)
	}
	if got2.ID != f.ID {
		t.Errorf("GetByQr: ID = %q, хотели %q", got2.ID, f.ID)
	}

	// List без фильтра
	list, err := repo.List(ctx, FixtureFilter{})
	if err != nil {
		t.Fatalf("List() ошибка: %v", err)
	}
	if len(list) != 1 {
		t.Errorf("List() вернул %d записей, хотели 1", len(list))
	}

	// List с фильтром по storage
	list2, err := repo.List(ctx, FixtureFilter{Kind: FixtureFilterStorage, Value: string(model.StorageRoom101)})
	if err != nil {
		t.Fatalf("List(storage) ошибка: %v", err)
	}
	if len(list2) != 1 {
		t.Errorf("List(storage) вернул %d записей, хотели 1", len(list2))
	}

	// List с фильтром по подстроке описания
	list3, err := repo.List(ctx, FixtureFilter{Kind: FixtureFilterDescription, Value: "тестовое"})
	if err != nil {
		t.Fatalf("List(description) ошибка: %v", err)
	}
	if len(list3) != 1 {
		t.Errorf("List(description) вернул %d записей, хотели 1", len(list3))
	}

	// Update — переназначаем QR-код и склад
	f.QrID = "QR-0002"
	f.QrColor = model.QrColorBlue
	f.Storage = model.StorageRoom206
	if err := repo.Update(ctx, f); err != nil {
		t.Fatalf("Update() ошибка: %v", err)
	}
	got3, _ := repo.GetByID(ctx, f.ID)
	if got3.QrID != "QR-0002" || got3.Storage != model.StorageRoom206 {
		t.Errorf("После Update: QrID=%q, Storage=%q", got3.QrID, got3.Storage)
	}

	// Update несуществующего предмета
	ghost := testFixture("ghost", "QR-9999")
	if err := repo.Update(ctx, ghost); !errors.Is(err, ErrNotFound) {
		t.Errorf("Update() несуществующего: ожидали ErrNotFound, получили: %v", err)
	}

	// Delete
	if err := repo.Delete(ctx, f.ID); err != nil {
		t.Fatalf("Delete() ошибка: %v", err)
	}
	if _, err := repo.GetByID(ctx, f.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("После Delete ожидали ErrNotFound, получили: %v", err)
	}
}

func TestFixtureDuplicateID(t *testing.T) {
	pool := setupTestDB(t)
	ctx := context.Background()
	repo := NewFixtureRepository(pool)

	f := testFixture("dup", "QR-0100")
	if err := repo.Create(ctx, f); err != nil {
		t.Fatalf("Create() ошибка: %v", err)
	}
	if err := repo.Create(ctx, f); !errors.Is(err, ErrConflict) {
		t.Errorf("Повторный Create: ожидали ErrConflict, получили: %v", err)
	}
}

// QR-код не уникален: при переклейке наклеек два предмета могут
// временно ссылаться на один qr_id.
func TestFixtureQrNotUnique(t *testing.T) {
	pool := setupTestDB(t)
	ctx := context.Background()
	repo := NewFixtureRepository(pool)

	a := testFixture("item-a", "QR-0200")
	b := testFixture("item-b", "QR-0200")
	if err := repo.Create(ctx, a); err != nil {
		t.Fatalf("Create(a) ошибка: %v", err)
	}
	if err := repo.Create(ctx, b); err != nil {
		t.Fatalf("Create(b) с тем же qr_id ошибка: %v", err)
	}

	list, err := repo.List(ctx, FixtureFilter{Kind: FixtureFilterQrID, Value: "QR-0200"})
	if err != nil {
		t.Fatalf("List(qr_id) ошибка: %v", err)
	}
	if len(list) != 2 {
		t.Errorf("List(qr_id) вернул %d записей, хотели 2", len(list))
	}
}

// --- Тесты LendingRepository ---

func testLending(f *model.Fixture, spot string) *model.Lending {
	return &model.Lending{
		ID:             uuid.New().String(),
		FixturesID:     f.ID,
		FixturesQrID:   f.QrID,
		SpotName:       spot,
		LendingAt:      time.Now().UTC().Truncate(time.Microsecond),
		BorrowerName:   "Иванов",
		BorrowerNumber: 42,
		BorrowerOrg:    "staff",
	}
}

func TestLendingLifecycle(t *testing.T) {
	pool := setupTestDB(t)
	ctx := context.Background()
	fixRepo := NewFixtureRepository(pool)
	lendRepo := NewLendingRepository(pool)
	spotRepo := NewSpotRepository(pool)

	if err := spotRepo.Create(ctx, &model.Spot{Name: "stage", Area: "main"}); err != nil {
		t.Fatalf("Создание локации: %v", err)
	}
	f := testFixture("mic-1", "QR-0300")
	if err := fixRepo.Create(ctx, f); err != nil {
		t.Fatalf("Создание предмета: %v", err)
	}

	l := testLending(f, "stage")

	// Выдача
	if err := lendRepo.Create(ctx, l); err != nil {
		t.Fatalf("Create() ошибка: %v", err)
	}

	// Открытая запись находится по всем трём ключам
	for _, kind := range []LendingKeyKind{LendingKeyLendingID, LendingKeyFixturesID, LendingKeyQrID} {
		value := map[LendingKeyKind]string{
			LendingKeyLendingID:  l.ID,
			LendingKeyFixturesID: f.ID,
			LendingKeyQrID:       f.QrID,
		}[kind]
		open, err := lendRepo.GetOpen(ctx, kind, value)
		if err != nil {
			t.Fatalf("GetOpen(%s) ошибка: %v", kind, err)
		}
		if open.ID != l.ID {
			t.Errorf("GetOpen(%s): ID = %q, хотели %q", kind, open.ID, l.ID)
		}
		if !open.IsOpen() {
			t.Errorf("GetOpen(%s): запись не открыта", kind)
		}
	}

	// Повторная выдача того же предмета блокируется частичным
	// уникальным индексом
	dup := testLending(f, "stage")
	if err := lendRepo.Create(ctx, dup); !errors.Is(err, ErrConflict) {
		t.Errorf("Повторная выдача: ожидали ErrConflict, получили: %v", err)
	}

	// Возврат
	returnedAt := time.Now().UTC().Truncate(time.Microsecond)
	if err := lendRepo.Return(ctx, l.ID, returnedAt); err != nil {
		t.Fatalf("Return() ошибка: %v", err)
	}

	// Открытой записи больше нет
	if _, err := lendRepo.GetOpen(ctx, LendingKeyFixturesID, f.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetOpen после возврата: ожидали ErrNotFound, получили: %v", err)
	}

	// История сохраняется
	hist, err := lendRepo.Get(ctx, LendingKeyLendingID, l.ID)
	if err != nil {
		t.Fatalf("Get() ошибка: %v", err)
	}
	if hist.ReturnedAt == nil || !hist.ReturnedAt.Equal(returnedAt) {
		t.Errorf("ReturnedAt = %v, хотели %v", hist.ReturnedAt, returnedAt)
	}

	// Повторный возврат той же записи — ErrNotFound: returned_at
	// выставляется только один раз
	if err := lendRepo.Return(ctx, l.ID, time.Now().UTC()); !errors.Is(err, ErrNotFound) {
		t.Errorf("Повторный Return: ожидали ErrNotFound, получили: %v", err)
	}

	// После возврата предмет можно выдать снова
	again := testLending(f, "stage")
	if err := lendRepo.Create(ctx, again); err != nil {
		t.Fatalf("Повторная выдача после возврата ошибка: %v", err)
	}

	// List: все записи и только открытые
	all, err := lendRepo.List(ctx, false)
	if err != nil {
		t.Fatalf("List(false) ошибка: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("List(false) вернул %d записей, хотели 2", len(all))
	}
	open, err := lendRepo.List(ctx, true)
	if err != nil {
		t.Fatalf("List(true) ошибка: %v", err)
	}
	if len(open) != 1 || open[0].ID != again.ID {
		t.Errorf("List(true) вернул %d записей, хотели 1 (запись %s)", len(open), again.ID)
	}
}

// Переклейка QR-кода: предмет A выдан со старым qr_id, наклейка
// переехала на предмет B. Открытая запись ищется и по qr_id-снимку,
// и по id предмета.
func TestLendingQrReassignment(t *testing.T) {
	pool := setupTestDB(t)
	ctx := context.Background()
	fixRepo := NewFixtureRepository(pool)
	lendRepo := NewLendingRepository(pool)
	spotRepo := NewSpotRepository(pool)

	if err := spotRepo.Create(ctx, &model.Spot{Name: "booth", Area: "east"}); err != nil {
		t.Fatalf("Создание локации: %v", err)
	}

	a := testFixture("item-a", "QR-0400")
	b := testFixture("item-b", "QR-0401")
	if err := fixRepo.Create(ctx, a); err != nil {
		t.Fatalf("Создание предмета a: %v", err)
	}
	if err := fixRepo.Create(ctx, b); err != nil {
		t.Fatalf("Создание предмета b: %v", err)
	}

	// Выдаём A
	l := testLending(a, "booth")
	if err := lendRepo.Create(ctx, l); err != nil {
		t.Fatalf("Выдача a: %v", err)
	}

	// Переклеиваем наклейку QR-0400 на B
	b.QrID = "QR-0400"
	if err := fixRepo.Update(ctx, b); err != nil {
		t.Fatalf("Переназначение qr_id: %v", err)
	}

	// Открытая запись по qr_id-снимку всё ещё блокирует выдачу
	// под этим кодом
	open, err := lendRepo.GetOpen(ctx, LendingKeyQrID, "QR-0400")
	if err != nil {
		t.Fatalf("GetOpen(qr_id) ошибка: %v", err)
	}
	if open.FixturesID != a.ID {
		t.Errorf("Открытая запись ссылается на %q, хотели %q", open.FixturesID, a.ID)
	}

	// Выдача B под тем же qr_id — конфликт по индексу снимка
	lb := testLending(b, "booth")
	if err := lendRepo.Create(ctx, lb); !errors.Is(err, ErrConflict) {
		t.Errorf("Выдача под занятым qr_id: ожидали ErrConflict, получили: %v", err)
	}

	// После возврата A предмет B под QR-0400 выдаётся свободно
	if err := lendRepo.Return(ctx, l.ID, time.Now().UTC()); err != nil {
		t.Fatalf("Возврат a: %v", err)
	}
	lb2 := testLending(b, "booth")
	if err := lendRepo.Create(ctx, lb2); err != nil {
		t.Fatalf("Выдача b после возврата a: %v", err)
	}
}

// --- Тесты SpotRepository ---

func TestSpotCRUD(t *testing.T) {
	pool := setupTestDB(t)
	ctx := context.Background()
	repo := NewSpotRepository(pool)

	building := "main-hall"
	floor := 2
	room := "204"
	s := &model.Spot{
		Name:     "reception",
		Area:     "north",
		Building: &building,
		Floor:    &floor,
		Room:     &room,
	}

	// Create
	if err := repo.Create(ctx, s); err != nil {
		t.Fatalf("Create() ошибка: %v", err)
	}

	// Повторное создание с тем же именем
	if err := repo.Create(ctx, &model.Spot{Name: "reception", Area: "south"}); !errors.Is(err, ErrConflict) {
		t.Errorf("Повторный Create: ожидали ErrConflict, получили: %v", err)
	}

	// GetByName
	got, err := repo.GetByName(ctx, "reception")
	if err != nil {
		t.Fatalf("GetByName() ошибка: %v", err)
	}
	if got.Area != "north" {
		t.Errorf("Area = %q, хотели %q", got.Area, "north")
	}
	if got.Floor == nil || *got.Floor != 2 {
		t.Errorf("Floor = %v, хотели 2", got.Floor)
	}

	// Update
	s.Area = "west"
	s.Floor = nil
	if err := repo.Update(ctx, s); err != nil {
		t.Fatalf("Update() ошибка: %v", err)
	}
	got2, _ := repo.GetByName(ctx, "reception")
	if got2.Area != "west" || got2.Floor != nil {
		t.Errorf("После Update: Area=%q, Floor=%v", got2.Area, got2.Floor)
	}

	// List
	if err := repo.Create(ctx, &model.Spot{Name: "backstage", Area: "south"}); err != nil {
		t.Fatalf("Create(backstage) ошибка: %v", err)
	}
	list, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("List() ошибка: %v", err)
	}
	if len(list) != 2 {
		t.Errorf("List() вернул %d записей, хотели 2", len(list))
	}
	// Сортировка по имени
	if list[0].Name != "backstage" || list[1].Name != "reception" {
		t.Errorf("List() порядок: %q, %q", list[0].Name, list[1].Name)
	}

	// Delete
	if err := repo.Delete(ctx, "reception"); err != nil {
		t.Fatalf("Delete() ошибка: %v", err)
	}
	if _, err := repo.GetByName(ctx, "reception"); !errors.Is(err, ErrNotFound) {
		t.Errorf("После Delete ожидали ErrNotFound, получили: %v", err)
	}
	if err := repo.Delete(ctx, "reception"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Повторный Delete: ожидали ErrNotFound, получили: %v", err)
	}
}

// --- Тесты ContainerRepository ---

func TestContainerCRUD(t *testing.T) {
	pool := setupTestDB(t)
	ctx := context.Background()
	repo := NewContainerRepository(pool)

	desc := "ящик с кабелями"
	c := &model.Container{
		ID:          uuid.New().String(),
		QrID:        "QR-C001",
		QrColor:     model.QrColorGreen,
		Storage:     model.StorageRoom102,
		Description: &desc,
	}

	if err := repo.Create(ctx, c); err != nil {
		t.Fatalf("Create() ошибка: %v", err)
	}
	if err := repo.Create(ctx, c); !errors.Is(err, ErrConflict) {
		t.Errorf("Повторный Create: ожидали ErrConflict, получили: %v", err)
	}

	got, err := repo.GetByID(ctx, c.ID)
	if err != nil {
		t.Fatalf("GetByID() ошибка: %v", err)
	}
	if got.QrID != "QR-C001" || got.Storage != model.StorageRoom102 {
		t.Errorf("GetByID: QrID=%q, Storage=%q", got.QrID, got.Storage)
	}

	if err := repo.Delete(ctx, c.ID); err != nil {
		t.Fatalf("Delete() ошибка: %v", err)
	}
	if _, err := repo.GetByID(ctx, c.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("После Delete ожидали ErrNotFound, получили: %v", err)
	}
}

// --- Тесты PasstokenRepository ---

func TestPasstokenInsertGet(t *testing.T) {
	pool := setupTestDB(t)
	ctx := context.Background()
	repo := NewPasstokenRepository(pool)

	p := &model.Passtoken{
		Token:     uuid.New().String() + "abc123xyz",
		Role:      rbac.RoleEquipmentManager,
		CreatedAt: time.Now().UTC().Truncate(time.Microsecond),
		LimitDays: 30,
	}

	if err := repo.Insert(ctx, p); err != nil {
		t.Fatalf("Insert() ошибка: %v", err)
	}

	got, err := repo.Get(ctx, p.Token)
	if err != nil {
		t.Fatalf("Get() ошибка: %v", err)
	}
	if got.Role != rbac.RoleEquipmentManager {
		t.Errorf("Role = %q, хотели %q", got.Role, rbac.RoleEquipmentManager)
	}
	if got.LimitDays != 30 {
		t.Errorf("LimitDays = %d, хотели 30", got.LimitDays)
	}
	if !got.CreatedAt.Equal(p.CreatedAt) {
		t.Errorf("CreatedAt = %v, хотели %v", got.CreatedAt, p.CreatedAt)
	}

	// Неизвестный токен
	if _, err := repo.Get(ctx, "no-such-token"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() неизвестного токена: ожидали ErrNotFound, получили: %v", err)
	}
}

// --- Тесты UserRepository ---

func TestUserCreateGet(t *testing.T) {
	pool := setupTestDB(t)
	ctx := context.Background()
	repo := NewUserRepository(pool)

	email := "alice@example.com"
	u := &model.User{
		ID:        "idp|user-001",
		Name:      "alice",
		Email:     &email,
		CreatedAt: time.Now().UTC().Truncate(time.Microsecond),
	}

	if err := repo.Create(ctx, u); err != nil {
		t.Fatalf("Create() ошибка: %v", err)
	}

	// Повторная регистрация того же субъекта
	if err := repo.Create(ctx, u); !errors.Is(err, ErrConflict) {
		t.Errorf("Повторный Create: ожидали ErrConflict, получили: %v", err)
	}

	got, err := repo.GetByID(ctx, "idp|user-001")
	if err != nil {
		t.Fatalf("GetByID() ошибка: %v", err)
	}
	if got.Name != "alice" {
		t.Errorf("Name = %q, хотели %q", got.Name, "alice")
	}
	if got.Email == nil || *got.Email != email {
		t.Errorf("Email = %v, хотели %q", got.Email, email)
	}
}

// --- Тесты TxRunner ---

func TestTxRunnerRollback(t *testing.T) {
	pool := setupTestDB(t)
	ctx := context.Background()
	runner := NewTxRunner(pool)

	f := testFixture("Транзакционный предмет", "QR-TX-1")

	// Ошибка внутри fn откатывает транзакцию целиком
	errBoom := errors.New("boom")
	err := runner.RunInTx(ctx, func(tx pgx.Tx) error {
		if err := NewFixtureRepository(tx).Create(ctx, f); err != nil {
			return err
		}
		return errBoom
	})
	if !errors.Is(err, errBoom) {
		t.Fatalf("RunInTx: ожидали errBoom, получили: %v", err)
	}

	if _, err := NewFixtureRepository(pool).GetByID(ctx, f.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("После отката: ожидали ErrNotFound, получили: %v", err)
	}

	// Успешный fn коммитит
	if err := runner.RunInTx(ctx, func(tx pgx.Tx) error {
		return NewFixtureRepository(tx).Create(ctx, f)
	}); err != nil {
		t.Fatalf("RunInTx commit: %v", err)
	}

	if _, err := NewFixtureRepository(pool).GetByID(ctx, f.ID); err != nil {
		t.Errorf("После коммита: GetByID ошибка: %v", err)
	}
}

// --- Тесты фильтра предметов (без БД) ---

// В SQL попадают только имена столбцов из перечня filterColumn:
// произвольная строка в Kind даёт ошибку, а не фрагмент запроса.
func TestFilterColumn(t *testing.T) {
	valid := map[FixtureFilterKind]string{
		FixtureFilterID:       "id",
		FixtureFilterQrID:     "qr_id",
		FixtureFilterName:     "name",
		FixtureFilterStorage:  "storage",
		FixtureFilterParentID: "parent_id",
	}
	for kind, want := range valid {
		got, err := filterColumn(kind)
		if err != nil {
			t.Errorf("filterColumn(%q) ошибка: %v", kind, err)
		}
		if got != want {
			t.Errorf("filterColumn(%q) = %q, хотели %q", kind, got, want)
		}
	}

	hostile := []FixtureFilterKind{
		"", "description", "id; DROP TABLE fixtures", "id = $1 OR 1=1 --",
	}
	for _, kind := range hostile {
		if _, err := filterColumn(kind); err == nil {
			t.Errorf("filterColumn(%q): ожидали ошибку", kind)
		}
	}
}
