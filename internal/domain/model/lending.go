package model

import "time"

// Lending — запись о выдаче предмета.
// Открытая запись (ReturnedAt == nil) означает, что предмет на руках.
// QrID и SpotName — снимки на момент выдачи: QR-код предмета может быть
// переназначен позже, запись при этом не меняется.
type Lending struct {
	// ID — UUID записи о выдаче
	ID string `json:"id"`
	// FixturesID — UUID выданного предмета
	FixturesID string `json:"fixtures_id"`
	// FixturesQrID — QR-код предмета на момент выдачи (снимок)
	FixturesQrID string `json:"fixtures_qr_id"`
	// SpotName — имя места выдачи (снимок)
	SpotName string `json:"spot_name"`
	// LendingAt — время выдачи
	LendingAt time.Time `json:"lending_at"`
	// ReturnedAt — время возврата; nil — предмет ещё не возвращён.
	// Однажды установленное значение не изменяется.
	ReturnedAt *time.Time `json:"returned_at"`
	// BorrowerName — имя получателя
	BorrowerName string `json:"borrower_name"`
	// BorrowerNumber — студенческий/служебный номер получателя
	BorrowerNumber int `json:"borrower_number"`
	// BorrowerOrg — организация получателя
	BorrowerOrg string `json:"borrower_org"`
}

// IsOpen сообщает, является ли запись открытой (предмет не возвращён).
func (l *Lending) IsOpen() bool {
	return l.ReturnedAt == nil
}
