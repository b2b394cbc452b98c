package notify

import (
	"context"
	"errors"
	"net"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Handler применяет принятое сообщение к состоянию получателя.
type Handler func(Message)

// Listener — сторона монитора: принимает соединения, читает одно
// сообщение, применяет его и закрывает соединение.
type Listener struct {
	handle      Handler
	logger      *zap.Logger
	readTimeout time.Duration
	wg          sync.WaitGroup
}

func NewListener(handle Handler, logger *zap.Logger, readTimeout time.Duration) *Listener {
	if readTimeout <= 0 {
		readTimeout = 5 * time.Second
	}
	return &Listener{
		handle:      handle,
		logger:      logger.Named("notify-listener"),
		readTimeout: readTimeout,
	}
}

// Serve обслуживает ln до отмены ctx. Возвращает nil при штатной остановке.
func (l *Listener) Serve(ctx context.Context, ln net.Listener) error {
	// Прервать Accept можно только закрытием слушателя
	stop := context.AfterFunc(ctx, func() { ln.Close() })
	defer stop()

	l.logger.Info("notification listener ready", zap.String("addr", ln.Addr().String()))

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				l.wg.Wait()
				l.logger.Info("notification listener stopped")
				return nil
			}
			l.logger.Warn("accept failed", zap.Error(err))
			time.Sleep(50 * time.Millisecond)
			continue
		}

		l.wg.Add(1)
		go func() {
			defer l.wg.Done()
			l.serveConn(conn)
		}()
	}
}

func (l *Listener) serveConn(conn net.Conn) {
	defer conn.Close()

	_ = conn.SetReadDeadline(time.Now().Add(l.readTimeout))
	msg, err := Parse(conn)
	if err != nil {
		l.logger.Warn("dropping malformed notification",
			zap.String("remote", conn.RemoteAddr().String()), zap.Error(err))
		return
	}
	if msg.Empty() {
		return
	}

	fields := []zap.Field{zap.String("remote", conn.RemoteAddr().String()), zap.Int("devices", len(msg.Devices))}
	if msg.SystemStatus != nil {
		fields = append(fields, zap.String("system_status", *msg.SystemStatus))
	}
	l.logger.Info("notification received", fields...)
	l.handle(msg)
}
