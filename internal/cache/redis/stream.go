package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/rosegoldcruz/atom-sub001/internal/domain"
)

// SignalStream implements domain.SignalSink and domain.SignalReader using
// Redis Streams: one length-bounded, append-only stream per scanner type,
// trimmed approximately via XADD MAXLEN ~.
type SignalStream struct {
	rdb    *redis.Client
	maxLen int64
}

// NewSignalStream creates a SignalStream backed by the given Client. maxLen
// is the approximate trim bound; entries beyond it are dropped by Redis.
func NewSignalStream(c *Client, maxLen int64) *SignalStream {
	if maxLen < 1 {
		maxLen = 10_000
	}
	return &SignalStream{rdb: c.Underlying(), maxLen: maxLen}
}

// Append writes one serialized signal as a stream entry. Delivery is at most
// once: a failed append is reported to the caller and never retried here.
func (s *SignalStream) Append(ctx context.Context, stream string, payload []byte) error {
	args := &redis.XAddArgs{
		Stream: stream,
		MaxLen: s.maxLen,
		Approx: true,
		Values: map[string]interface{}{
			"payload": payload,
		},
	}
	if err := s.rdb.XAdd(ctx, args).Err(); err != nil {
		return fmt.Errorf("redis: stream append %s: %w", stream, err)
	}
	return nil
}

// Read returns up to count entries after lastID. Use "0" to read from the
// beginning or "$" for only new entries. An empty stream returns an empty
// slice, not an error.
func (s *SignalStream) Read(ctx context.Context, stream, lastID string, count int) ([]domain.StreamMessage, error) {
	args := &redis.XReadArgs{
		Streams: []string{stream, lastID},
		Count:   int64(count),
		Block:   -1, // never block; the scanner loop must stay responsive
	}

	results, err := s.rdb.XRead(ctx, args).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("redis: stream read %s: %w", stream, err)
	}

	var messages []domain.StreamMessage
	for _, res := range results {
		for _, msg := range res.Messages {
			payload, ok := msg.Values["payload"]
			if !ok {
				continue
			}
			var data []byte
			switch v := payload.(type) {
			case string:
				data = []byte(v)
			case []byte:
				data = v
			default:
				continue
			}
			messages = append(messages, domain.StreamMessage{ID: msg.ID, Payload: data})
		}
	}
	return messages, nil
}

// Compile-time interface checks.
var (
	_ domain.SignalSink   = (*SignalStream)(nil)
	_ domain.SignalReader = (*SignalStream)(nil)
)
