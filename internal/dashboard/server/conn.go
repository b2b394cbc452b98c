package server

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/xela07ax/statusboard/internal/domain"
	"github.com/xela07ax/statusboard/internal/httpwire"
)

// serveConn ведёт одно соединение: READING -> ROUTING -> WRITING, затем
// снова READING при keep-alive или закрытие. Счётчик роли уменьшается
// ровно один раз при выходе.
func (s *Server) serveConn(ctx context.Context, id uint64, role domain.Role, conn net.Conn) {
	logger := s.logger.With(zap.Uint64("conn_id", id), zap.String("role", role.String()))
	remote := conn.RemoteAddr().String()
	requests := 0

	// При остановке прерываем блокирующее чтение
	stop := context.AfterFunc(ctx, func() { _ = conn.SetReadDeadline(time.Now()) })

	defer func() {
		stop()
		conn.Close()
		left := s.store.DecrementConnection(role)
		logger.Debug("connection closed", zap.Int("requests", requests), zap.Int("active", left))
	}()

	buf := make([]byte, s.cfg.ReadBuffer)
	for {
		// READING
		if err := conn.SetReadDeadline(time.Now().Add(s.cfg.IdleTimeout)); err != nil {
			return
		}
		// Отмена могла прийти до нового дедлайна и быть им перезаписана
		if ctx.Err() != nil {
			return
		}
		n, err := conn.Read(buf)
		if n == 0 || err != nil {
			if err != nil && !isQuietClose(err) {
				logger.Debug("read failed", zap.Error(err))
			}
			return
		}

		// ROUTING
		req, err := httpwire.Decode(buf[:n], conn, s.cfg.MaxBodySize)
		var (
			resp      *httpwire.Response
			keepAlive bool
		)
		switch {
		case err == nil:
			resp = s.router.route(ctx, id, role, req, remote)
			keepAlive = req.KeepAlive
		case errors.Is(err, httpwire.ErrBodyTooLarge):
			resp = httpwire.Text(http.StatusRequestEntityTooLarge, "Payload Too Large")
		case errors.Is(err, httpwire.ErrBadContentLength):
			resp = httpwire.Text(http.StatusBadRequest, "Bad Request")
		default:
			// Тело не дочитано: пир ушёл или молчит
			logger.Debug("incomplete request body", zap.Error(err))
			return
		}

		// WRITING
		if keepAlive {
			resp.With("Connection", "keep-alive")
		} else {
			resp.With("Connection", "close")
		}
		if err := conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout)); err != nil {
			return
		}
		if _, err := conn.Write(resp.Encode()); err != nil {
			logger.Debug("write failed", zap.Error(err))
			return
		}
		requests++

		// LOOP | CLOSED
		if !keepAlive || ctx.Err() != nil {
			return
		}
	}
}

// isQuietClose распознаёт штатные причины конца соединения, которые не стоит логировать.
func isQuietClose(err error) bool {
	if errors.Is(err, net.ErrClosed) || errors.Is(err, io.EOF) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
