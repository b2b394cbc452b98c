package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/xela07ax/statusboard/internal/dashboard"
	"github.com/xela07ax/statusboard/internal/domain"
	"github.com/xela07ax/statusboard/internal/infra"
	"github.com/xela07ax/statusboard/internal/store"
)

// Config — параметры диспетчера и обработчиков соединений.
type Config struct {
	ControlAddr     string
	WebAddr         string
	ReadBuffer      int
	IdleTimeout     time.Duration
	WriteTimeout    time.Duration
	MaxBodySize     int64
	MaxConnsPerRole int
	AcceptRate      float64 // 0 без ограничения
	AcceptBurst     int
	BindAttempts    uint
	ShutdownTimeout time.Duration
}

// ConfigFrom собирает Config из секций dashboard и server.
func ConfigFrom(cfg *infra.Config) Config {
	return Config{
		ControlAddr:     cfg.Dashboard.ControlAddr,
		WebAddr:         cfg.Dashboard.WebAddr,
		ReadBuffer:      cfg.Server.ReadBuffer,
		IdleTimeout:     cfg.Server.IdleTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		MaxBodySize:     cfg.Server.MaxBodySize,
		MaxConnsPerRole: cfg.Server.MaxConnsPerRole,
		AcceptRate:      cfg.Server.AcceptRate,
		AcceptBurst:     cfg.Server.AcceptBurst,
		BindAttempts:    cfg.Server.BindAttempts,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	}
}

func (c *Config) applyDefaults() {
	if c.ReadBuffer <= 0 {
		c.ReadBuffer = 4096
	}
	if c.IdleTimeout <= 0 {
		c.IdleTimeout = 5 * time.Second
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = 5 * time.Second
	}
	if c.MaxConnsPerRole <= 0 {
		c.MaxConnsPerRole = 256
	}
	if c.AcceptBurst <= 0 {
		c.AcceptBurst = 1
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = 5 * time.Second
	}
}

// accepted: соединение, которое насос отдал в цикл диспетчера.
type accepted struct {
	role domain.Role
	conn net.Conn
}

// Server — диспетчер двух слушателей. Насосы только принимают соединения,
// а единственный цикл select решает, что с ними делать.
type Server struct {
	cfg     Config
	store   *store.StatusStore
	router  *Router
	metrics *dashboard.Metrics
	logger  *zap.Logger

	listeners map[domain.Role]net.Listener
	nextID    atomic.Uint64
	handlers  sync.WaitGroup
}

func NewServer(cfg Config, st *store.StatusStore, router *Router, metrics *dashboard.Metrics, logger *zap.Logger) *Server {
	cfg.applyDefaults()
	if metrics == nil {
		metrics = dashboard.NewMetrics(nil, nil)
	}
	return &Server{
		cfg:     cfg,
		store:   st,
		router:  router,
		metrics: metrics,
		logger:  logger.Named("dispatcher"),
	}
}

// Listen поднимает оба слушателя. Ошибка бинда любого из них фатальна
// для процесса: вызывающий должен завершиться.
func (s *Server) Listen(ctx context.Context) error {
	addrs := map[domain.Role]string{
		domain.RoleControl: s.cfg.ControlAddr,
		domain.RoleWeb:     s.cfg.WebAddr,
	}
	s.listeners = make(map[domain.Role]net.Listener, len(addrs))

	for _, role := range domain.Roles {
		ln, err := infra.ListenReuse(ctx, addrs[role], s.cfg.BindAttempts, s.logger)
		if err != nil {
			s.closeListeners()
			return fmt.Errorf("%s listener: %w", role, err)
		}
		s.listeners[role] = ln
		s.logger.Info("listener ready", zap.String("role", role.String()), zap.String("addr", ln.Addr().String()))
	}
	return nil
}

// Addr возвращает фактический адрес слушателя роли (после Listen).
func (s *Server) Addr(role domain.Role) net.Addr {
	if ln, ok := s.listeners[role]; ok {
		return ln.Addr()
	}
	return nil
}

// Serve крутит цикл диспетчера до отмены ctx или закрытия обоих слушателей,
// затем ждёт живые обработчики не дольше ShutdownTimeout.
func (s *Server) Serve(ctx context.Context) error {
	if s.listeners == nil {
		if err := s.Listen(ctx); err != nil {
			return err
		}
	}

	incoming := make(chan accepted)
	pumpsDone := make(chan struct{})

	var pumps sync.WaitGroup
	for role, ln := range s.listeners {
		pumps.Add(1)
		go func() {
			defer pumps.Done()
			s.acceptPump(ctx, role, ln, incoming)
		}()
	}
	go func() {
		pumps.Wait()
		close(pumpsDone)
	}()

	stop := context.AfterFunc(ctx, s.closeListeners)
	defer stop()

	s.logger.Info("dispatcher started")
	for running := true; running; {
		select {
		case a := <-incoming:
			s.dispatch(ctx, a)
		case <-pumpsDone:
			running = false
		case <-ctx.Done():
			s.closeListeners()
			<-pumpsDone
			running = false
		}
	}

	s.logger.Info("dispatcher stopped, waiting for handlers")
	return s.waitHandlers()
}

func (s *Server) acceptPump(ctx context.Context, role domain.Role, ln net.Listener, out chan<- accepted) {
	limit := rate.Inf
	if s.cfg.AcceptRate > 0 {
		limit = rate.Limit(s.cfg.AcceptRate)
	}
	limiter := rate.NewLimiter(limit, s.cfg.AcceptBurst)
	logger := s.logger.With(zap.String("role", role.String()))

	var backoff time.Duration
	for {
		if err := limiter.Wait(ctx); err != nil {
			return
		}
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return
			}
			// Временная ошибка (например, EMFILE): пауза и снова
			if backoff == 0 {
				backoff = 5 * time.Millisecond
			} else if backoff *= 2; backoff > time.Second {
				backoff = time.Second
			}
			logger.Warn("accept failed", zap.Error(err), zap.Duration("retry_in", backoff))
			time.Sleep(backoff)
			continue
		}
		backoff = 0

		select {
		case out <- accepted{role: role, conn: conn}:
		case <-ctx.Done():
			conn.Close()
			return
		}
	}
}

// dispatch помечает соединение ролью и id, учитывает его и запускает обработчик.
func (s *Server) dispatch(ctx context.Context, a accepted) {
	id := s.nextID.Add(1)
	s.metrics.Accepted.WithLabelValues(a.role.String()).Inc()

	active := s.store.IncrementConnection(a.role)
	if active > s.cfg.MaxConnsPerRole {
		// Откатываем счётчик: обработчик так и не был запущен
		s.store.DecrementConnection(a.role)
		s.metrics.SpawnRejected.WithLabelValues(a.role.String()).Inc()
		s.logger.Warn("handler limit reached, closing connection",
			zap.Uint64("conn_id", id), zap.String("role", a.role.String()), zap.Int("limit", s.cfg.MaxConnsPerRole))
		a.conn.Close()
		return
	}

	s.logger.Debug("connection accepted",
		zap.Uint64("conn_id", id), zap.String("role", a.role.String()),
		zap.String("remote", a.conn.RemoteAddr().String()), zap.Int("active", active))

	s.handlers.Add(1)
	go func() {
		defer s.handlers.Done()
		s.serveConn(ctx, id, a.role, a.conn)
	}()
}

func (s *Server) waitHandlers() error {
	done := make(chan struct{})
	go func() {
		s.handlers.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-time.After(s.cfg.ShutdownTimeout):
		return fmt.Errorf("shutdown timeout: %d control, %d web handlers still running",
			s.store.ActiveConnections(domain.RoleControl), s.store.ActiveConnections(domain.RoleWeb))
	}
}

func (s *Server) closeListeners() {
	for _, ln := range s.listeners {
		_ = ln.Close()
	}
}
