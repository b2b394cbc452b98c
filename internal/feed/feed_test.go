package feed

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
)

type memorySink struct {
	mu      sync.Mutex
	batches [][]Event
	block   chan struct{}
}

func (s *memorySink) WriteBatch(_ context.Context, events []Event) error {
	if s.block != nil {
		<-s.block
	}
	cp := make([]Event, len(events))
	copy(cp, events)
	s.mu.Lock()
	s.batches = append(s.batches, cp)
	s.mu.Unlock()
	return nil
}

func (s *memorySink) total() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, b := range s.batches {
		n += len(b)
	}
	return n
}

func TestFeedFlushesOnStop(t *testing.T) {
	sink := &memorySink{}
	f := New(sink, zap.NewNop(), WithBatch(100, time.Hour))
	f.Start()

	for i := 0; i < 5; i++ {
		if err := f.Publish(context.Background(), Event{Type: TypeDevices}); err != nil {
			t.Fatalf("Publish() error = %v", err)
		}
	}
	f.Stop()

	if sink.total() != 5 {
		t.Fatalf("flushed %d events, want 5", sink.total())
	}
	if sink.batches[0][0].At.IsZero() {
		t.Fatal("event timestamp not set")
	}
}

func TestFeedFlushesFullBatch(t *testing.T) {
	sink := &memorySink{}
	f := New(sink, zap.NewNop(), WithBatch(3, time.Hour))
	f.Start()
	defer f.Stop()

	for i := 0; i < 3; i++ {
		f.Publish(context.Background(), Event{Type: TypeVar})
	}

	deadline := time.Now().Add(2 * time.Second)
	for sink.total() < 3 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if sink.total() != 3 {
		t.Fatalf("flushed %d events before Stop, want 3", sink.total())
	}
}

func TestFeedShedsLoadWhenFull(t *testing.T) {
	sink := &memorySink{block: make(chan struct{})}
	f := New(sink, zap.NewNop(), WithBufferSize(2), WithBatch(1, time.Hour))
	f.Start()

	// Первое событие занимает воркер (sink заблокирован), два в буфере, остальные сбрасываются
	for i := 0; i < 10; i++ {
		f.Publish(context.Background(), Event{Type: TypeDevices})
		time.Sleep(time.Millisecond)
	}
	if f.Dropped() == 0 {
		t.Fatal("expected dropped events on full buffer")
	}
	close(sink.block)
	f.Stop()
}

func TestFeedRejectsAfterStop(t *testing.T) {
	f := New(&memorySink{}, zap.NewNop())
	f.Start()
	f.Stop()
	f.Stop()

	if err := f.Publish(context.Background(), Event{}); !errors.Is(err, ErrStopped) {
		t.Fatalf("Publish() after Stop = %v, want ErrStopped", err)
	}
}

func TestFeedStopDuringConcurrentPublish(t *testing.T) {
	for round := 0; round < 20; round++ {
		sink := &memorySink{}
		f := New(sink, zap.NewNop(), WithBufferSize(16), WithBatch(4, time.Millisecond))
		f.Start()

		var (
			wg       sync.WaitGroup
			mu       sync.Mutex
			accepted int
		)
		start := make(chan struct{})
		for p := 0; p < 16; p++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				<-start
				for i := 0; i < 50; i++ {
					err := f.Publish(context.Background(), Event{Type: TypeDevices})
					if errors.Is(err, ErrStopped) {
						return
					}
					if err != nil {
						t.Errorf("Publish() error = %v", err)
						return
					}
					mu.Lock()
					accepted++
					mu.Unlock()
				}
			}()
		}

		close(start)
		f.Stop()
		wg.Wait()

		// Всё принятое до Stop либо отправлено, либо учтено как сброшенное
		if got := sink.total() + int(f.Dropped()); got != accepted {
			t.Fatalf("round %d: flushed+dropped = %d, accepted = %d", round, got, accepted)
		}
	}
}
