// Package redis implements a Redis-backed SessionStore. Transcripts live in
// a list (one JSON record per message) so appends stay O(1), with session
// metadata in a companion hash.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/meteolab/skycast/core"
)

// Options configure the Redis session store.
type Options struct {
	// KeyPrefix namespaces all session keys. Defaults to "skycast".
	KeyPrefix string
	// TTL expires idle sessions; zero keeps them forever.
	TTL time.Duration
	// Timeout bounds each Redis round trip.
	Timeout time.Duration
}

// Store persists sessions in Redis.
type Store struct {
	client    *redis.Client
	keyPrefix string
	ttl       time.Duration
	timeout   time.Duration
}

// NewStore wraps an existing Redis client.
func NewStore(client *redis.Client, optFns ...func(o *Options)) *Store {
	opts := Options{
		KeyPrefix: "skycast",
		Timeout:   5 * time.Second,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Store{
		client:    client,
		keyPrefix: opts.KeyPrefix,
		ttl:       opts.TTL,
		timeout:   opts.Timeout,
	}
}

func (s *Store) messagesKey(id string) string {
	return fmt.Sprintf("%s:session:%s:messages", s.keyPrefix, id)
}

func (s *Store) metaKey(id string) string {
	return fmt.Sprintf("%s:session:%s:meta", s.keyPrefix, id)
}

func (s *Store) opCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), s.timeout)
}

// Get loads the session, creating its metadata lazily on first use.
func (s *Store) Get(id string) (*core.Session, error) {
	ctx, cancel := s.opCtx()
	defer cancel()

	meta, err := s.client.HGetAll(ctx, s.metaKey(id)).Result()
	if err != nil {
		return nil, fmt.Errorf("load session meta: %w", err)
	}

	sess := core.NewSession(id)

	if len(meta) == 0 {
		if err := s.writeMeta(ctx, id, map[string]any{
			"created": sess.Created.Format(time.RFC3339Nano),
			"updated": sess.Updated.Format(time.RFC3339Nano),
		}); err != nil {
			return nil, err
		}
		return sess, nil
	}

	if t, err := time.Parse(time.RFC3339Nano, meta["created"]); err == nil {
		sess.Created = t
	}
	if t, err := time.Parse(time.RFC3339Nano, meta["updated"]); err == nil {
		sess.Updated = t
	}
	sess.LastModel = meta["last_model"]

	raw, err := s.client.LRange(ctx, s.messagesKey(id), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("load session messages: %w", err)
	}
	for _, item := range raw {
		var msg core.Message
		if err := json.Unmarshal([]byte(item), &msg); err != nil {
			return nil, fmt.Errorf("decode session message: %w", err)
		}
		sess.Messages = append(sess.Messages, msg)
	}

	return sess, nil
}

// Append adds one message to the transcript.
func (s *Store) Append(id string, msg core.Message) error {
	ctx, cancel := s.opCtx()
	defer cancel()

	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode session message: %w", err)
	}

	if err := s.client.RPush(ctx, s.messagesKey(id), data).Err(); err != nil {
		return fmt.Errorf("append session message: %w", err)
	}

	return s.writeMeta(ctx, id, map[string]any{
		"updated": time.Now().UTC().Format(time.RFC3339Nano),
	})
}

// SetLastModel records the continuity model for the session.
func (s *Store) SetLastModel(id, model string) error {
	ctx, cancel := s.opCtx()
	defer cancel()

	return s.writeMeta(ctx, id, map[string]any{
		"last_model": model,
		"updated":    time.Now().UTC().Format(time.RFC3339Nano),
	})
}

func (s *Store) writeMeta(ctx context.Context, id string, fields map[string]any) error {
	if err := s.client.HSet(ctx, s.metaKey(id), fields).Err(); err != nil {
		return fmt.Errorf("write session meta: %w", err)
	}
	if s.ttl > 0 {
		s.client.Expire(ctx, s.metaKey(id), s.ttl)
		s.client.Expire(ctx, s.messagesKey(id), s.ttl)
	}
	return nil
}
