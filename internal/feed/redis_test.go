package feed

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

func TestRedisSinkUnreachable(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := ln.Addr().String()
	ln.Close()

	rdb := redis.NewClient(&redis.Options{Addr: addr, DialTimeout: 200 * time.Millisecond, MaxRetries: -1})
	defer rdb.Close()

	sink := NewRedisSink(rdb)
	if err := sink.WriteBatch(context.Background(), []Event{{Type: TypeSystemStatus, Source: SourceOperator}}); err == nil {
		t.Fatal("WriteBatch() to closed port must fail")
	}
}
