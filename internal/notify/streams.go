package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type StreamSinkConfig struct {
	Addr     string
	Password string
	DB       int
	Stream   string
	MaxLen   int64
}

// StreamSink appends notification events to a capped Redis stream so other
// tooling can tail the feed.
type StreamSink struct {
	client *redis.Client
	stream string
	maxLen int64
}

var _ Sink = (*StreamSink)(nil)

func NewStreamSink(ctx context.Context, cfg StreamSinkConfig) (*StreamSink, error) {
	if cfg.Addr == "" {
		return nil, errors.New("redis address is required")
	}
	if cfg.Stream == "" {
		cfg.Stream = "console_notifications"
	}
	if cfg.MaxLen <= 0 {
		cfg.MaxLen = 1000
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return &StreamSink{
		client: client,
		stream: cfg.Stream,
		maxLen: cfg.MaxLen,
	}, nil
}

func (s *StreamSink) Close() error {
	return s.client.Close()
}

func (s *StreamSink) Publish(ctx context.Context, event Event) error {
	values, err := eventValues(event)
	if err != nil {
		return err
	}
	_, err = s.client.XAdd(ctx, &redis.XAddArgs{
		Stream: s.stream,
		MaxLen: s.maxLen,
		Approx: true,
		Values: values,
	}).Result()
	if err != nil {
		return fmt.Errorf("append notification to stream: %w", err)
	}
	return nil
}

func eventValues(event Event) (map[string]any, error) {
	notification := event.Notification
	values := map[string]any{
		"kind":       string(event.Kind),
		"token":      string(notification.Token),
		"level":      string(notification.Level),
		"message":    notification.Message,
		"sticky":     notification.Sticky,
		"updated_at": notification.UpdatedAt.Format(time.RFC3339Nano),
	}
	if notification.Action != nil {
		encoded, err := json.Marshal(notification.Action)
		if err != nil {
			return nil, fmt.Errorf("marshal notification action: %w", err)
		}
		values["action"] = string(encoded)
	}
	return values, nil
}
