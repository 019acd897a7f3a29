package audit

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisSink keeps the audit trail in a capped Redis list so it survives
// restarts and is shared across replicas.
type RedisSink struct {
	Client *redis.Client
	Key    string
	Cap    int64
}

// NewRedisSink builds a RedisSink writing to key with at most cap entries.
func NewRedisSink(client *redis.Client, key string, cap int64) *RedisSink {
	if key == "" {
		key = "liqpay:webhook:logs"
	}
	if cap <= 0 {
		cap = DefaultCap
	}
	return &RedisSink{Client: client, Key: key, Cap: cap}
}

// Append pushes the entry to the head of the list and trims the tail.
func (s *RedisSink) Append(ctx context.Context, e Entry) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("audit: marshal entry: %w", err)
	}
	pipe := s.Client.TxPipeline()
	pipe.LPush(ctx, s.Key, payload)
	pipe.LTrim(ctx, s.Key, 0, s.Cap-1)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("audit: append entry: %w", err)
	}
	return nil
}

// ReadRecent returns up to n entries, newest first. Entries that fail to
// decode are skipped rather than failing the whole read.
func (s *RedisSink) ReadRecent(ctx context.Context, n int) ([]Entry, error) {
	if n <= 0 || int64(n) > s.Cap {
		n = int(s.Cap)
	}
	values, err := s.Client.LRange(ctx, s.Key, 0, int64(n)-1).Result()
	if err != nil {
		return nil, fmt.Errorf("audit: read entries: %w", err)
	}
	entries := make([]Entry, 0, len(values))
	for _, v := range values {
		var e Entry
		if err := json.Unmarshal([]byte(v), &e); err != nil {
			continue
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// Clear drops the whole trail.
func (s *RedisSink) Clear(ctx context.Context) error {
	if err := s.Client.Del(ctx, s.Key).Err(); err != nil {
		return fmt.Errorf("audit: clear entries: %w", err)
	}
	return nil
}
