package infra

import (
	"context"
	"fmt"
	"net"
	"syscall"
	"time"

	"github.com/avast/retry-go/v5"
	"go.uber.org/zap"
	"golang.org/x/sys/unix"
)

// ListenReuse открывает TCP слушатель с SO_REUSEADDR, чтобы перезапуск
// не упирался в TIME_WAIT. Бинд повторяется attempts раз.
func ListenReuse(ctx context.Context, addr string, attempts uint, logger *zap.Logger) (net.Listener, error) {
	if attempts == 0 {
		attempts = 1
	}
	lc := net.ListenConfig{Control: reuseAddr}

	var (
		ln    net.Listener
		tries uint
	)
	err := retry.New(
		retry.Context(ctx),
		retry.Attempts(attempts),
		retry.Delay(200*time.Millisecond),
		retry.LastErrorOnly(true),
	).Do(func() error {
		var err error
		tries++
		ln, err = lc.Listen(ctx, "tcp", addr)
		if err != nil {
			logger.Warn("bind failed", zap.String("addr", addr), zap.Uint("attempt", tries), zap.Error(err))
		}
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("listen %s: %w", addr, err)
	}
	return ln, nil
}

func reuseAddr(network, address string, c syscall.RawConn) error {
	var sockErr error
	err := c.Control(func(fd uintptr) {
		sockErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEADDR, 1)
	})
	if err != nil {
		return err
	}
	return sockErr
}
