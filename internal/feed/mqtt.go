package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// MQTTPublisher — часть mqtt.Client, нужная приёмнику.
type MQTTPublisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

// MQTTSink публикует каждое событие в <topic>/<type>. Последний общий
// статус публикуется с retained, чтобы новый подписчик сразу его видел.
type MQTTSink struct {
	client  MQTTPublisher
	topic   string
	qos     byte
	timeout time.Duration
}

func NewMQTTSink(client MQTTPublisher, topic string, qos byte, timeout time.Duration) *MQTTSink {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &MQTTSink{client: client, topic: topic, qos: qos, timeout: timeout}
}

func (s *MQTTSink) WriteBatch(ctx context.Context, events []Event) error {
	var errs []error
	for _, ev := range events {
		if err := ctx.Err(); err != nil {
			return err
		}
		payload, err := json.Marshal(ev)
		if err != nil {
			errs = append(errs, fmt.Errorf("marshal event: %w", err))
			continue
		}

		topic := s.topic + "/" + ev.Type
		token := s.client.Publish(topic, s.qos, ev.Type == TypeSystemStatus, payload)
		if !token.WaitTimeout(s.timeout) {
			errs = append(errs, fmt.Errorf("publish to %s: timeout after %v", topic, s.timeout))
			continue
		}
		if err := token.Error(); err != nil {
			errs = append(errs, fmt.Errorf("publish to %s: %w", topic, err))
		}
	}
	return errors.Join(errs...)
}
