// Package dashboard описывает фронтенд-процесс: два слушателя (управляющий и веб),
// общее хранилище статусов и уведомления монитору.
package dashboard

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/xela07ax/statusboard/internal/domain"
)

type Metrics struct {
	// Traffic: принятые соединения по ролям
	Accepted *prometheus.CounterVec

	// Saturation: соединения, отклонённые из-за лимита обработчиков
	SpawnRejected *prometheus.CounterVec

	// Запросы по роли, пути и коду ответа
	Requests *prometheus.CounterVec

	// Уведомления монитору: sent, dropped
	Notifications *prometheus.CounterVec
}

// NewMetrics регистрирует метрики дашборда. active служит источником
// значений для gauge живых соединений (счётчики хранилища).
func NewMetrics(reg prometheus.Registerer, active func(domain.Role) int) *Metrics {
	// Если реестр не передан, регистрируем в локальном, который никуда не подключен
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	m := &Metrics{
		Accepted: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "statusboard_connections_accepted_total",
			Help: "Accepted TCP connections by listener role.",
		}, []string{"role"}),

		SpawnRejected: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "statusboard_connections_rejected_total",
			Help: "Connections closed because the role handler limit was reached.",
		}, []string{"role"}),

		Requests: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "statusboard_requests_total",
			Help: "Handled HTTP requests.",
		}, []string{"role", "path", "code"}),

		Notifications: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "statusboard_notifications_total",
			Help: "Operator notifications pushed to the monitor by result.",
		}, []string{"result"}),
	}

	if active != nil {
		for _, role := range domain.Roles {
			promauto.With(reg).NewGaugeFunc(prometheus.GaugeOpts{
				Name:        "statusboard_active_connections",
				Help:        "Live connection handlers by listener role.",
				ConstLabels: prometheus.Labels{"role": role.String()},
			}, func() float64 { return float64(active(role)) })
		}
	}
	return m
}
