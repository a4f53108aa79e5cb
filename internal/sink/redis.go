// Package sink forwards produced flag events to external consumers. The
// pipeline never blocks on a sink; failures are logged and dropped.
package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/sayantanmandal1/eyesonscreen/internal/log"
	"github.com/sayantanmandal1/eyesonscreen/pkg/signals"
)

const writeTimeout = 2 * time.Second

// FlagSink appends flag events to a Redis stream for out-of-process review
// tooling.
type FlagSink struct {
	client *redis.Client
	stream string
}

// NewFlagSink connects to Redis and verifies the connection.
func NewFlagSink(ctx context.Context, addr, stream string) (*FlagSink, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("sink: redis ping: %w", err)
	}
	return &FlagSink{client: client, stream: stream}, nil
}

// Write appends one flag event to the stream.
func (s *FlagSink) Write(ctx context.Context, f signals.FlagEvent) error {
	details, err := json.Marshal(f.Details)
	if err != nil {
		return fmt.Errorf("sink: encode details: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()

	err = s.client.XAdd(ctx, &redis.XAddArgs{
		Stream: s.stream,
		Values: map[string]interface{}{
			"id":         f.ID,
			"type":       string(f.Type),
			"severity":   string(f.Severity),
			"confidence": f.Confidence,
			"timestamp":  f.Timestamp.UnixMilli(),
			"question":   f.QuestionID,
			"details":    string(details),
		},
	}).Err()
	if err != nil {
		return fmt.Errorf("sink: xadd: %w", err)
	}
	return nil
}

// WriteAsync writes without blocking the caller, logging failures.
func (s *FlagSink) WriteAsync(f signals.FlagEvent) {
	go func() {
		if err := s.Write(context.Background(), f); err != nil {
			log.Warn("flag sink write failed", "err", err, "flag", f.ID)
		}
	}()
}

// Close releases the Redis connection.
func (s *FlagSink) Close() error {
	return s.client.Close()
}
