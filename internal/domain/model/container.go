package model

// Container — контейнер для хранения предметов (ящик, кейс).
// Контейнеру тоже присваивается QR-код, предметы ссылаются на него
// через Fixture.ParentID.
type Container struct {
	// ID — UUID записи
	ID string `json:"id"`
	// QrID — идентификатор наклеенного QR-кода
	QrID string `json:"qr_id"`
	// QrColor — цвет наклейки QR-кода
	QrColor QrColor `json:"qr_color"`
	// Storage — помещение хранения
	Storage Storage `json:"storage"`
	// Description — описание (может отсутствовать)
	Description *string `json:"description"`
}
