package monitor

import (
	"context"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"

	"github.com/xela07ax/statusboard/internal/domain"
	"github.com/xela07ax/statusboard/internal/notify"
)

// DefaultInterval — период тика симулятора.
const DefaultInterval = 5 * time.Second

// Reporter доставляет отчёт тика во фронтенд.
type Reporter interface {
	Broadcast(ctx context.Context, rep Report) error
}

type Simulator struct {
	state    *State
	reporter Reporter
	metrics  *Metrics
	logger   *zap.Logger
	interval time.Duration
	roll     func() int
}

type Option func(*Simulator)

// WithRoll подменяет генератор случайных чисел (для тестов).
func WithRoll(roll func() int) Option {
	return func(s *Simulator) { s.roll = roll }
}

func WithInterval(d time.Duration) Option {
	return func(s *Simulator) {
		if d > 0 {
			s.interval = d
		}
	}
}

func NewSimulator(state *State, reporter Reporter, metrics *Metrics, logger *zap.Logger, opts ...Option) *Simulator {
	if metrics == nil {
		metrics = NewMetrics(nil)
	}
	s := &Simulator{
		state:    state,
		reporter: reporter,
		metrics:  metrics,
		logger:   logger.Named("simulator"),
		interval: DefaultInterval,
		roll:     func() int { return rand.IntN(100) + 1 },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Tick разыгрывает один период и возвращает отчёт. В лог попадают
// только реальные смены статуса.
func (s *Simulator) Tick() Report {
	rep, transitions := s.state.advance(s.roll)

	for _, t := range transitions {
		s.metrics.Transitions.WithLabelValues(t.Device).Inc()
		if t.To == domain.StatusFault {
			s.logger.Warn("device fault", zap.String("device", t.Device), zap.String("from", t.From))
			continue
		}
		s.logger.Info("device recovered", zap.String("device", t.Device), zap.String("status", t.To))
	}
	s.metrics.Faults.Set(float64(rep.Faults))
	return rep
}

// HandleNotification служит обработчиком для notify.Listener.
func (s *Simulator) HandleNotification(msg notify.Message) {
	applied := s.state.Apply(msg)
	s.metrics.NotificationsReceived.Inc()
	if msg.SystemStatus != nil {
		s.logger.Info("system status override set", zap.String("status", *msg.SystemStatus))
	}
	if n := len(msg.Devices) - applied; n > 0 {
		s.logger.Debug("ignored unknown devices in notification", zap.Int("count", n))
	}
}

// Run тикает сразу и затем каждые interval до отмены ctx.
func (s *Simulator) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info("simulator started", zap.Duration("interval", s.interval))
	for {
		rep := s.Tick()
		if s.reporter != nil {
			if err := s.reporter.Broadcast(ctx, rep); err != nil {
				s.logger.Warn("broadcast failed", zap.Error(err))
			}
		}

		select {
		case <-ctx.Done():
			s.logger.Info("simulator stopping by context")
			return
		case <-ticker.C:
		}
	}
}
