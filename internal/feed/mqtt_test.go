package feed

import (
	"context"
	"errors"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

type fakeToken struct {
	err     error
	timeout bool
}

func (t *fakeToken) Wait() bool                     { return !t.timeout }
func (t *fakeToken) WaitTimeout(time.Duration) bool { return !t.timeout }
func (t *fakeToken) Done() <-chan struct{}          { ch := make(chan struct{}); close(ch); return ch }
func (t *fakeToken) Error() error                    { return t.err }

type published struct {
	topic    string
	retained bool
}

type fakeMQTT struct {
	sent  []published
	token *fakeToken
}

func (f *fakeMQTT) Publish(topic string, _ byte, retained bool, _ interface{}) mqtt.Token {
	f.sent = append(f.sent, published{topic: topic, retained: retained})
	if f.token != nil {
		return f.token
	}
	return &fakeToken{}
}

func TestMQTTSinkTopics(t *testing.T) {
	client := &fakeMQTT{}
	sink := NewMQTTSink(client, "statusboard/events", 1, time.Second)

	err := sink.WriteBatch(context.Background(), []Event{
		{Type: TypeSystemStatus, SystemStatus: "Operational"},
		{Type: TypeDevices},
	})
	if err != nil {
		t.Fatalf("WriteBatch() error = %v", err)
	}
	if len(client.sent) != 2 {
		t.Fatalf("sent %d messages", len(client.sent))
	}
	if client.sent[0].topic != "statusboard/events/system_status" || !client.sent[0].retained {
		t.Fatalf("first = %+v", client.sent[0])
	}
	if client.sent[1].topic != "statusboard/events/devices" || client.sent[1].retained {
		t.Fatalf("second = %+v", client.sent[1])
	}
}

func TestMQTTSinkErrors(t *testing.T) {
	tests := []struct {
		name  string
		token *fakeToken
	}{
		{"broker error", &fakeToken{err: errors.New("not connected")}},
		{"timeout", &fakeToken{timeout: true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sink := NewMQTTSink(&fakeMQTT{token: tt.token}, "t", 0, 10*time.Millisecond)
			if err := sink.WriteBatch(context.Background(), []Event{{Type: TypeVar}}); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

type failingSink struct{ calls int }

func (s *failingSink) WriteBatch(context.Context, []Event) error {
	s.calls++
	return errors.New("down")
}

func TestMultiSinkWritesAll(t *testing.T) {
	bad := &failingSink{}
	good := &memorySink{}
	err := MultiSink{bad, good}.WriteBatch(context.Background(), []Event{{Type: TypeVar}})

	if err == nil || bad.calls != 1 || good.total() != 1 {
		t.Fatalf("err = %v, bad calls = %d, good = %d", err, bad.calls, good.total())
	}
}
