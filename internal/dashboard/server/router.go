package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/xela07ax/statusboard/internal/dashboard"
	"github.com/xela07ax/statusboard/internal/dashboard/handler"
	"github.com/xela07ax/statusboard/internal/domain"
)

// Router держит отдельный chi-роутер на каждую роль: набор эндпоинтов
// определяется тем, через какой слушатель пришло соединение.
type Router struct {
	control chi.Router
	web     chi.Router

	controlH *handler.ControlHandler // POST /update_system, /update_var
	webH     *handler.WebHandler     // дашборд и правки оператора

	metrics *dashboard.Metrics
	logger  *zap.Logger
}

func NewRouter(controlH *handler.ControlHandler, webH *handler.WebHandler, metrics *dashboard.Metrics, logger *zap.Logger) *Router {
	if metrics == nil {
		metrics = dashboard.NewMetrics(nil, nil)
	}
	rt := &Router{
		control:  chi.NewRouter(),
		web:      chi.NewRouter(),
		controlH: controlH,
		webH:     webH,
		metrics:  metrics,
		logger:   logger.Named("router"),
	}
	rt.routes()
	return rt
}

func (rt *Router) routes() {
	// --- Управляющий порт (монитор) ---
	c := rt.control
	rt.use(c, domain.RoleControl)
	c.Post("/update_system", rt.controlH.UpdateSystem)
	c.Post("/update_var", rt.controlH.UpdateVar)

	// --- Веб-порт (браузеры операторов) ---
	w := rt.web
	rt.use(w, domain.RoleWeb)
	w.Get("/", rt.webH.Index)
	w.Get("/check_status", rt.webH.CheckStatus)
	w.Get("/device_status_json", rt.webH.DeviceStatusJSON)
	w.Post("/update_system_web", rt.webH.UpdateSystemWeb)
	w.Post("/update_device_web", rt.webH.UpdateDeviceWeb)
}

func (rt *Router) use(r chi.Router, role domain.Role) {
	r.Use(accessLog(role, rt.metrics, rt.logger))
	r.Use(middleware.Recoverer)

	// Неверный метод на известном пути получает тот же 404, что и неизвестный путь
	notFound := handler.NotFound(notFoundBody(role))
	r.NotFound(notFound)
	r.MethodNotAllowed(notFound)
}

// Handler возвращает роутер роли.
func (rt *Router) Handler(role domain.Role) http.Handler {
	if role == domain.RoleControl {
		return rt.control
	}
	return rt.web
}

func notFoundBody(role domain.Role) string {
	if role == domain.RoleControl {
		return handler.ControlNotFound
	}
	return handler.WebNotFound
}
