package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/xela07ax/statusboard/internal/dashboard"
	"github.com/xela07ax/statusboard/internal/domain"
	"github.com/xela07ax/statusboard/internal/feed"
	"github.com/xela07ax/statusboard/internal/httpwire"
	"github.com/xela07ax/statusboard/internal/notify"
	"github.com/xela07ax/statusboard/internal/store"
)

const keySystemStatus = "system_status"

// eventTimeout ограничивает публикацию одного события.
const eventTimeout = 500 * time.Millisecond

// Notifier доставляет уведомление монитору. Ошибка означает, что
// уведомление потеряно; повторов нет.
type Notifier interface {
	Send(ctx context.Context, msg notify.Message) error
}

// EventPublisher описывает требования сервиса к ленте событий
type EventPublisher interface {
	Publish(ctx context.Context, ev feed.Event) error
}

// StatusService — единственная точка изменения хранилища для обработчиков.
type StatusService struct {
	store    *store.StatusStore
	notifier Notifier
	events   EventPublisher
	metrics  *dashboard.Metrics
	logger   *zap.Logger
	now      func() time.Time
}

func NewStatusService(st *store.StatusStore, notifier Notifier, events EventPublisher, metrics *dashboard.Metrics, logger *zap.Logger) *StatusService {
	if events == nil {
		events = feed.Nop{}
	}
	if metrics == nil {
		metrics = dashboard.NewMetrics(nil, nil)
	}
	return &StatusService{
		store:    st,
		notifier: notifier,
		events:   events,
		metrics:  metrics,
		logger:   logger.Named("status-service"),
		now:      time.Now,
	}
}

// Snapshot возвращает копию текущего состояния.
func (s *StatusService) Snapshot() domain.Snapshot {
	return s.store.Snapshot()
}

// SystemStatus возвращает текущий общий статус.
func (s *StatusService) SystemStatus() string {
	return s.store.SystemStatus()
}

// Now возвращает время, которым помечаются JSON-ответы.
func (s *StatusService) Now() time.Time {
	return s.now()
}

// ApplyMonitorReport применяет отчёт монитора: ключ system_status задаёт
// общий статус, остальные пары задают устройства. Всё одной пачкой.
func (s *StatusService) ApplyMonitorReport(ctx context.Context, pairs []httpwire.Pair) []store.DeviceChange {
	var (
		systemStatus *string
		devices      []domain.Device
	)
	for _, p := range pairs {
		if p.Key == keySystemStatus {
			v := p.Value
			systemStatus = &v
			continue
		}
		if p.Key == "" {
			continue
		}
		devices = append(devices, domain.Device{Name: p.Key, Status: p.Value})
	}

	changes := s.store.ApplyUpdate(systemStatus, devices)
	for _, c := range changes {
		s.logger.Info("device status changed",
			zap.String("device", c.Name), zap.String("from", c.From), zap.String("to", c.To),
			zap.Bool("added", c.Added), zap.String("source", feed.SourceMonitor))
	}

	if systemStatus != nil {
		s.publish(ctx, feed.Event{Type: feed.TypeSystemStatus, Source: feed.SourceMonitor, SystemStatus: *systemStatus})
	}
	if len(changes) > 0 {
		s.publish(ctx, feed.Event{Type: feed.TypeDevices, Source: feed.SourceMonitor, Devices: toEventChanges(changes)})
	}
	return changes
}

// UpdateVar меняет известную переменную приложения. Неизвестные имена
// игнорируются, результат false.
func (s *StatusService) UpdateVar(ctx context.Context, name, value string) bool {
	if !s.store.UpdateVar(name, value) {
		s.logger.Debug("ignoring unknown app var", zap.String("name", name))
		return false
	}
	s.logger.Info("app var updated", zap.String("name", name), zap.String("value", value))
	s.publish(ctx, feed.Event{Type: feed.TypeVar, Source: feed.SourceMonitor, Var: name, Value: value, SystemStatus: s.store.SystemStatus()})
	return true
}

// SetSystemStatus — правка оператора. Пустое (после trim) значение
// игнорируется. Возвращает true, если статус применён.
func (s *StatusService) SetSystemStatus(ctx context.Context, value string) bool {
	value = strings.TrimSpace(value)
	if value == "" {
		return false
	}
	s.store.SetSystemStatus(value)
	s.logger.Info("system status set by operator", zap.String("status", value))

	s.publish(ctx, feed.Event{Type: feed.TypeSystemStatus, Source: feed.SourceOperator, SystemStatus: value})
	s.notify(ctx, notify.SystemStatusUpdate(value))
	return true
}

// SetDevice — правка оператора по одному устройству; name и status уже проверены.
func (s *StatusService) SetDevice(ctx context.Context, name, status string) {
	change, changed := s.store.UpsertDevice(name, status)
	s.logger.Info("device status set by operator", zap.String("device", name), zap.String("status", status))

	if changed {
		s.publish(ctx, feed.Event{Type: feed.TypeDevices, Source: feed.SourceOperator, Devices: toEventChanges([]store.DeviceChange{change})})
	}
	s.notify(ctx, notify.DeviceUpdate(name, status))
}

// notify отправляет уведомление синхронно с коротким таймаутом клиента,
// чтобы правки одного оператора приходили в мониторе по порядку.
func (s *StatusService) notify(ctx context.Context, msg notify.Message) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Send(ctx, msg); err != nil {
		s.metrics.Notifications.WithLabelValues("dropped").Inc()
		s.logger.Debug("monitor notification dropped", zap.Error(err))
		return
	}
	s.metrics.Notifications.WithLabelValues("sent").Inc()
}

func (s *StatusService) publish(ctx context.Context, ev feed.Event) {
	ev.At = s.now()

	pubCtx, cancel := context.WithTimeout(ctx, eventTimeout)
	defer cancel()
	if err := s.events.Publish(pubCtx, ev); err != nil {
		s.logger.Warn("status event not published", zap.String("type", ev.Type), zap.Error(err))
	}
}

func toEventChanges(changes []store.DeviceChange) []feed.DeviceChange {
	out := make([]feed.DeviceChange, 0, len(changes))
	for _, c := range changes {
		out = append(out, feed.DeviceChange{Name: c.Name, From: c.From, To: c.To, Added: c.Added})
	}
	return out
}
