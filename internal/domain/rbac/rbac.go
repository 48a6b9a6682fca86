// Пакет rbac — роли доступа и правила авторизации операций.
// Роль привязывается к passtoken при выпуске и определяет,
// какие операции разрешены предъявителю токена.
package rbac

import "fmt"

// Role — роль доступа.
type Role string

// Роли в порядке возрастания привилегий.
const (
	// RoleGeneral — просмотр информации о предметах и выдачах.
	RoleGeneral Role = "general"
	// RoleEquipmentManager — регистрация, выдача и обновление предметов.
	// Необратимые разрушающие операции (удаление) запрещены.
	RoleEquipmentManager Role = "equipment_manager"
	// RoleAdministrator — все операции без ограничений.
	RoleAdministrator Role = "administrator"
)

// roleWeight — вес роли для сравнения привилегий.
var roleWeight = map[Role]int{
	RoleGeneral:          1,
	RoleEquipmentManager: 2,
	RoleAdministrator:    3,
}

// ParseRole преобразует строку в Role.
// Неизвестное значение — ошибка, не panic.
func ParseRole(s string) (Role, error) {
	r := Role(s)
	if _, ok := roleWeight[r]; !ok {
		return "", fmt.Errorf("неизвестная роль: %q", s)
	}
	return r, nil
}

// String возвращает строковое представление роли.
func (r Role) String() string {
	return string(r)
}

// IsValid проверяет, является ли роль допустимой.
func (r Role) IsValid() bool {
	_, ok := roleWeight[r]
	return ok
}

// CanView — просмотр доступен любой действительной роли.
func (r Role) CanView() bool {
	return r.IsValid()
}

// CanMutate — создание и обновление записей.
// Разрешено equipment_manager и administrator.
func (r Role) CanMutate() bool {
	return r == RoleEquipmentManager || r == RoleAdministrator
}

// CanDelete — необратимые разрушающие операции.
// Разрешено только administrator.
func (r Role) CanDelete() bool {
	return r == RoleAdministrator
}
