// errors.go — ошибки бизнес-логики сервисного слоя.
package service

import "errors"

var (
	// ErrNotFound — ресурс не найден.
	ErrNotFound = errors.New("ресурс не найден")
	// ErrConflict — конфликт (дублирующийся ресурс).
	ErrConflict = errors.New("конфликт — ресурс уже существует")
	// ErrAlreadyLent — предмет уже выдан и не возвращён.
	ErrAlreadyLent = errors.New("предмет уже выдан")
	// ErrUnauthorized — токен или ключ не прошёл проверку.
	ErrUnauthorized = errors.New("не авторизован")
	// ErrForbidden — роль не даёт права на операцию.
	ErrForbidden = errors.New("операция запрещена для роли")
	// ErrIndexOutOfSync — запись в реестре применена, но поисковый
	// индекс обновить не удалось. Зеркало догонит при следующей мутации.
	ErrIndexOutOfSync = errors.New("поисковый индекс рассинхронизирован")
	// ErrConfigMissing — для роли не настроены учётные данные выпуска токенов.
	ErrConfigMissing = errors.New("учётные данные роли не настроены")
	// ErrValidation — ошибка валидации входных данных.
	ErrValidation = errors.New("ошибка валидации")
)
