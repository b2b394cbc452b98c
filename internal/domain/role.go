package domain

// Role — через какой из двух слушателей пришло соединение.
// От роли зависит набор доступных эндпоинтов.
type Role int

const (
	RoleControl Role = iota // backend-порт: сюда пишет монитор
	RoleWeb                 // dashboard-порт: браузеры операторов
)

// Roles задаёт фиксированный порядок ролей (метрики, логи, диспетчер).
var Roles = []Role{RoleControl, RoleWeb}

func (r Role) String() string {
	switch r {
	case RoleControl:
		return "control"
	case RoleWeb:
		return "web"
	default:
		return "unknown"
	}
}
