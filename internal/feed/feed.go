package feed

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// ErrStopped — лента остановлена, событие не принято.
var ErrStopped = errors.New("feed: stopped")

// Sink определяет, куда физически уходят события
type Sink interface {
	// WriteBatch отправляет пачку событий за один раз
	WriteBatch(ctx context.Context, events []Event) error
}

const (
	defaultBufferSize    = 1024
	defaultBatchSize     = 50
	defaultFlushInterval = 250 * time.Millisecond
)

type Feed struct {
	ch     chan Event
	sink   Sink
	logger *zap.Logger
	wg     sync.WaitGroup

	batchSize     int
	flushInterval time.Duration

	// mu разделяет отправку в ch (RLock) и его закрытие в Stop (Lock)
	mu      sync.RWMutex
	closed  bool
	dropped atomic.Uint64
}

type Option func(*Feed)

func WithBatch(size int, interval time.Duration) Option {
	return func(f *Feed) {
		if size > 0 {
			f.batchSize = size
		}
		if interval > 0 {
			f.flushInterval = interval
		}
	}
}

func WithBufferSize(n int) Option {
	return func(f *Feed) {
		if n > 0 {
			f.ch = make(chan Event, n)
		}
	}
}

func New(sink Sink, logger *zap.Logger, opts ...Option) *Feed {
	f := &Feed{
		ch:            make(chan Event, defaultBufferSize),
		sink:          sink,
		logger:        logger.Named("feed"),
		batchSize:     defaultBatchSize,
		flushInterval: defaultFlushInterval,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func (f *Feed) Start() {
	f.wg.Add(1)
	go f.worker()
}

// Stop запирает вход и ждёт, пока воркер отправит остаток буфера.
func (f *Feed) Stop() {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return
	}
	f.closed = true
	close(f.ch)
	f.mu.Unlock()

	f.logger.Info("stopping feed: flushing buffer")
	f.wg.Wait()
	f.logger.Info("feed stopped", zap.Uint64("dropped", f.dropped.Load()))
}

// Publish ставит событие в очередь. При переполнении событие
// сбрасывается (load shedding), вызывающий не ждёт.
func (f *Feed) Publish(_ context.Context, ev Event) error {
	if ev.At.IsZero() {
		ev.At = time.Now()
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.closed {
		return ErrStopped
	}

	select {
	case f.ch <- ev:
	default:
		f.dropped.Add(1)
		f.logger.Warn("feed buffer overflow, event dropped", zap.String("type", ev.Type))
	}
	return nil
}

// Dropped считает, сколько событий сброшено из-за переполнения.
func (f *Feed) Dropped() uint64 {
	return f.dropped.Load()
}

func (f *Feed) worker() {
	defer f.wg.Done()

	batch := make([]Event, 0, f.batchSize)
	ticker := time.NewTicker(f.flushInterval)
	defer ticker.Stop()

	flush := func() {
		if len(batch) == 0 {
			return
		}
		// Background: к финальному сбросу контекст приложения уже отменён
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		if err := f.sink.WriteBatch(ctx, batch); err != nil {
			f.logger.Warn("feed flush failed", zap.Int("events", len(batch)), zap.Error(err))
		}
		cancel()
		batch = batch[:0]
	}

	for {
		select {
		case ev, ok := <-f.ch:
			if !ok {
				// Канал закрыт в Stop: остаток уже вычитан
				flush()
				return
			}
			batch = append(batch, ev)
			if len(batch) >= f.batchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		}
	}
}

// MultiSink отправляет пачку во все приёмники; отказ одного не мешает остальным.
type MultiSink []Sink

func (m MultiSink) WriteBatch(ctx context.Context, events []Event) error {
	var errs []error
	for _, s := range m {
		if err := s.WriteBatch(ctx, events); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
