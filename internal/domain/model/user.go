package model

import "time"

// User — зарегистрированный пользователь системы.
// ID — subject (sub) из JWT внешнего IdP, выдаётся не нами.
type User struct {
	// ID — идентификатор субъекта IdP
	ID string `json:"id"`
	// Name — отображаемое имя, выбранное при регистрации
	Name string `json:"name"`
	// Email — email из claims IdP (может отсутствовать)
	Email *string `json:"email"`
	// CreatedAt — время регистрации
	CreatedAt time.Time `json:"created_at"`
}
