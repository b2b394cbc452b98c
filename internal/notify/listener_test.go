package notify

import (
	"context"
	"net"
	"testing"
	"time"

	"go.uber.org/zap"
)

func startListener(t *testing.T, handle Handler) (string, context.CancelFunc, <-chan error) {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	l := NewListener(handle, zap.NewNop(), time.Second)
	go func() { done <- l.Serve(ctx, ln) }()
	return ln.Addr().String(), cancel, done
}

func TestClientListener(t *testing.T) {
	got := make(chan Message, 1)
	addr, cancel, done := startListener(t, func(m Message) { got <- m })
	defer cancel()

	c := NewClient(addr, time.Second)
	if err := c.Send(context.Background(), DeviceUpdate("Device1", "fault")); err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	select {
	case m := <-got:
		if len(m.Devices) != 1 || m.Devices[0].Name != "Device1" || m.Devices[0].Status != "fault" {
			t.Fatalf("received %+v", m)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("message not delivered")
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Serve() = %v, want nil", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not stop")
	}
}

func TestListenerSkipsEmptyMessage(t *testing.T) {
	got := make(chan Message, 1)
	addr, cancel, _ := startListener(t, func(m Message) { got <- m })
	defer cancel()

	conn, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	conn.Write([]byte("HELLO\nEND\n"))
	conn.Close()

	select {
	case m := <-got:
		t.Fatalf("unexpected delivery %+v", m)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestClientUnreachable(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := ln.Addr().String()
	ln.Close()

	c := NewClient(addr, 200*time.Millisecond)
	start := time.Now()
	if err := c.Send(context.Background(), SystemStatusUpdate("x")); err == nil {
		t.Fatal("Send() to closed port must fail")
	}
	if time.Since(start) > time.Second {
		t.Fatalf("Send() blocked for %v", time.Since(start))
	}
}
