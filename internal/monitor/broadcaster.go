package monitor

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/xela07ax/statusboard/internal/httpwire"
)

var (
	// ErrFrontendUnreachable — фронтенд не принял соединение или оборвал обмен.
	ErrFrontendUnreachable = errors.New("monitor: frontend unreachable")
	// ErrRejected — фронтенд ответил кодом вне 2xx.
	ErrRejected = errors.New("monitor: frontend rejected update")
)

const updatePath = "/update_system"

// Broadcaster отправляет отчёт тика на управляющий порт фронтенда сырым
// HTTP POST, одно соединение на отчёт.
type Broadcaster struct {
	addr    string
	host    string
	timeout time.Duration
	cb      *gobreaker.CircuitBreaker
	metrics *Metrics
	logger  *zap.Logger
	dialer  net.Dialer
}

func NewBroadcaster(host, port string, timeout time.Duration, metrics *Metrics, logger *zap.Logger) *Broadcaster {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	if metrics == nil {
		metrics = NewMetrics(nil)
	}
	logger = logger.Named("broadcaster")

	// После трёх отказов подряд не стучимся во фронтенд в течение Timeout
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "statusboard-frontend",
		MaxRequests: 1,
		Timeout:     15 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Info("circuit breaker state changed",
				zap.String("breaker", name), zap.String("from", from.String()), zap.String("to", to.String()))
		},
	})

	return &Broadcaster{
		addr:    net.JoinHostPort(host, port),
		host:    host,
		timeout: timeout,
		cb:      cb,
		metrics: metrics,
		logger:  logger,
	}
}

// EncodeReport собирает тело формы: сначала system_status, затем устройства
// в порядке отчёта.
func EncodeReport(rep Report) string {
	pairs := make([]httpwire.Pair, 0, len(rep.Devices)+1)
	pairs = append(pairs, httpwire.Pair{Key: "system_status", Value: rep.SystemStatus})
	for _, d := range rep.Devices {
		pairs = append(pairs, httpwire.Pair{Key: d.Name, Value: d.Status})
	}
	return httpwire.EncodePairs(pairs)
}

// Broadcast доставляет отчёт. Недоступный фронтенд или открытый
// предохранитель считаются пропуском, а не ошибкой.
func (b *Broadcaster) Broadcast(ctx context.Context, rep Report) error {
	_, err := b.cb.Execute(func() (interface{}, error) {
		return nil, b.send(ctx, rep)
	})

	switch {
	case err == nil:
		b.metrics.Broadcasts.WithLabelValues("sent").Inc()
		b.logger.Debug("status broadcast", zap.String("system_status", rep.SystemStatus), zap.Int("faults", rep.Faults))
		return nil
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		b.metrics.Broadcasts.WithLabelValues("skipped").Inc()
		b.logger.Debug("broadcast skipped, breaker open", zap.String("addr", b.addr))
		return nil
	case errors.Is(err, ErrFrontendUnreachable):
		b.metrics.Broadcasts.WithLabelValues("skipped").Inc()
		b.logger.Warn("frontend unreachable, skipping broadcast", zap.String("addr", b.addr), zap.Error(err))
		return nil
	default:
		b.metrics.Broadcasts.WithLabelValues("rejected").Inc()
		return err
	}
}

func (b *Broadcaster) send(ctx context.Context, rep Report) error {
	dialCtx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	conn, err := b.dialer.DialContext(dialCtx, "tcp", b.addr)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrFrontendUnreachable, err)
	}
	defer conn.Close()

	if err := conn.SetDeadline(time.Now().Add(b.timeout)); err != nil {
		return fmt.Errorf("%w: %v", ErrFrontendUnreachable, err)
	}

	req := httpwire.EncodeRequest("POST", updatePath, b.host, []httpwire.Field{
		{Name: "Content-Type", Value: "application/x-www-form-urlencoded"},
		{Name: "Connection", Value: "close"},
	}, []byte(EncodeReport(rep)))

	if _, err := conn.Write(req); err != nil {
		return fmt.Errorf("%w: write: %v", ErrFrontendUnreachable, err)
	}

	code, err := httpwire.ReadStatus(conn)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrFrontendUnreachable, err)
	}
	if code < 200 || code > 299 {
		return fmt.Errorf("%w: status %d", ErrRejected, code)
	}
	return nil
}
