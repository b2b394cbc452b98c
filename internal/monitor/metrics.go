package monitor

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	// Рассылки во фронтенд: sent, skipped, rejected
	Broadcasts *prometheus.CounterVec

	// Число устройств в отказе на последнем тике
	Faults prometheus.Gauge

	// Смены статуса по устройствам
	Transitions *prometheus.CounterVec

	// Принятые уведомления от дашборда
	NotificationsReceived prometheus.Counter
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	// Если реестр не передан, регистрируем в локальном, который никуда не подключен
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	return &Metrics{
		Broadcasts: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "statusboard_monitor_broadcasts_total",
			Help: "Status broadcasts to the dashboard by result.",
		}, []string{"result"}),

		Faults: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "statusboard_monitor_device_faults",
			Help: "Number of devices in fault after the last tick.",
		}),

		Transitions: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "statusboard_monitor_transitions_total",
			Help: "Device status transitions.",
		}, []string{"device"}),

		NotificationsReceived: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "statusboard_monitor_notifications_received_total",
			Help: "Operator notifications applied to the monitor state.",
		}),
	}
}
