package server

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xela07ax/statusboard/internal/dashboard"
	"github.com/xela07ax/statusboard/internal/domain"
)

// HeaderTraceID — заголовок ответа с ID запроса. По нему строка лога
// находится по ответу, который видел браузер или монитор.
const HeaderTraceID = "X-Trace-ID"

type connIDKey struct{}

// withConnID помечает контекст запроса id соединения из диспетчера:
// все запросы одного keep-alive соединения получают общий conn_id.
func withConnID(ctx context.Context, id uint64) context.Context {
	return context.WithValue(ctx, connIDKey{}, id)
}

func connID(ctx context.Context) uint64 {
	id, _ := ctx.Value(connIDKey{}).(uint64)
	return id
}

// accessLog выдаёт запросу trace id, пишет строку лога и метрику роли.
func accessLog(role domain.Role, metrics *dashboard.Metrics, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			traceID := uuid.NewString()
			w.Header().Set(HeaderTraceID, traceID)
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			// Шаблон маршрута вместо сырого пути: незнакомые пути не раздувают метрику
			route := "unmatched"
			if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
				route = rctx.RoutePattern()
			}
			metrics.Requests.WithLabelValues(role.String(), route, strconv.Itoa(status)).Inc()

			logger.Info("request",
				zap.String("role", role.String()),
				zap.Uint64("conn_id", connID(r.Context())),
				zap.String("trace_id", traceID),
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.String("route", route),
				zap.Int("status", status),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", time.Since(start)),
			)
		})
	}
}
