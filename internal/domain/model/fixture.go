// Пакет model — доменные модели реестра инвентаря.
// Все ссылки между сущностями — строковые идентификаторы (UUID или имена),
// владельцем которых является реестр. Никаких in-memory ссылок между объектами.
package model

import (
	"fmt"
	"time"
)

// QrColor — цвет наклейки QR-кода.
// В БД хранится как text, преобразование выполняется в коде.
type QrColor string

// Допустимые цвета QR-наклеек.
const (
	QrColorRed       QrColor = "red"
	QrColorOrange    QrColor = "orange"
	QrColorBrown     QrColor = "brown"
	QrColorLightBlue QrColor = "light_blue"
	QrColorBlue      QrColor = "blue"
	QrColorGreen     QrColor = "green"
	QrColorYellow    QrColor = "yellow"
	QrColorPurple    QrColor = "purple"
	QrColorPink      QrColor = "pink"
)

// ParseQrColor преобразует строку в QrColor.
// Неизвестное значение — ошибка, не panic.
func ParseQrColor(s string) (QrColor, error) {
	switch QrColor(s) {
	case QrColorRed, QrColorOrange, QrColorBrown, QrColorLightBlue,
		QrColorBlue, QrColorGreen, QrColorYellow, QrColorPurple, QrColorPink:
		return QrColor(s), nil
	default:
		return "", fmt.Errorf("неизвестный цвет QR-кода: %q", s)
	}
}

// Storage — помещение хранения.
// В БД хранится как text, преобразование выполняется в коде.
type Storage string

// Допустимые помещения хранения.
const (
	StorageRoom101 Storage = "room101"
	StorageRoom102 Storage = "room102"
	StorageRoom206 Storage = "room206"
)

// ParseStorage преобразует строку в Storage.
func ParseStorage(s string) (Storage, error) {
	switch Storage(s) {
	case StorageRoom101, StorageRoom102, StorageRoom206:
		return Storage(s), nil
	default:
		return "", fmt.Errorf("неизвестное помещение хранения: %q", s)
	}
}

// Fixture — единица инвентаря (физическое имущество).
// Хранится в таблице fixtures. Идентичность — ID; qr_id может
// переназначаться на протяжении жизни предмета и идентичностью не является.
type Fixture struct {
	// ID — UUID записи, постоянный идентификатор предмета
	ID string `json:"id"`
	// CreatedAt — время регистрации
	CreatedAt time.Time `json:"created_at"`
	// QrID — идентификатор наклеенного QR-кода (переназначаемый)
	QrID string `json:"qr_id"`
	// QrColor — цвет наклейки QR-кода
	QrColor QrColor `json:"qr_color"`
	// Name — название предмета
	Name string `json:"name"`
	// Description — описание (может отсутствовать)
	Description *string `json:"description"`
	// ModelNumber — номер модели (может отсутствовать)
	ModelNumber *string `json:"model_number"`
	// Storage — помещение хранения
	Storage Storage `json:"storage"`
	// Usage — назначение использования (может отсутствовать)
	Usage *string `json:"usage"`
	// UsageSeason — период использования (может отсутствовать)
	UsageSeason *string `json:"usage_season"`
	// Note — примечания
	Note string `json:"note"`
	// ParentID — идентификатор родительского предмета (контейнера)
	ParentID string `json:"parent_id"`
}
