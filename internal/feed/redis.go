package feed

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/xela07ax/statusboard/internal/infra"
)

// RedisSink публикует пачку событий в канал Pub/Sub одним pipeline.
type RedisSink struct {
	rdb     redis.Cmdable
	channel string
}

func NewRedisSink(rdb redis.Cmdable) *RedisSink {
	return &RedisSink{rdb: rdb, channel: infra.RedisChanEvents}
}

func (s *RedisSink) WriteBatch(ctx context.Context, events []Event) error {
	pipe := s.rdb.Pipeline()
	for _, ev := range events {
		payload, err := json.Marshal(ev)
		if err != nil {
			return fmt.Errorf("marshal event: %w", err)
		}
		pipe.Publish(ctx, s.channel, payload)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("publish %d events to %s: %w", len(events), s.channel, err)
	}
	return nil
}
