// Package redis stores checkpoints in Redis.
package redis

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rhuss/respkit/pkg/checkpoint"
)

// DefaultKeyPrefix is prepended to every checkpoint key.
const DefaultKeyPrefix = "respkit:"

// KV is a checkpoint.KV backed by Redis strings.
type KV struct {
	client     redis.UniversalClient
	ownsClient bool
	prefix     string
	ttl        time.Duration
}

var _ checkpoint.KV = (*KV)(nil)

// Params configures a KV. Either Client or URL must be set.
type Params struct {
	// Client is used as is and not closed by Close.
	Client redis.UniversalClient

	// URL creates a dedicated client, e.g. redis://localhost:6379/0.
	URL string

	// KeyPrefix defaults to DefaultKeyPrefix.
	KeyPrefix string

	// TTL expires checkpoints; zero keeps them forever.
	TTL time.Duration
}

// New creates a KV and checks that Redis answers.
func New(ctx context.Context, p Params) (*KV, error) {
	client := p.Client
	owns := false
	if client == nil {
		if p.URL == "" {
			return nil, errors.New("redis client or url is required")
		}
		opts, err := redis.ParseURL(p.URL)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		client = redis.NewClient(opts)
		owns = true
	}

	kv := &KV{
		client:     client,
		ownsClient: owns,
		prefix:     cmp.Or(p.KeyPrefix, DefaultKeyPrefix),
		ttl:        p.TTL,
	}
	if err := client.Ping(ctx).Err(); err != nil {
		kv.Close()
		return nil, fmt.Errorf("redis is not reachable: %w", err)
	}
	return kv, nil
}

func (kv *KV) Get(ctx context.Context, key string) ([]byte, error) {
	v, err := kv.client.Get(ctx, kv.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, checkpoint.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get: %w", err)
	}
	return v, nil
}

func (kv *KV) Set(ctx context.Context, key string, value []byte) error {
	if err := kv.client.Set(ctx, kv.prefix+key, value, kv.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Close closes the client if New created it.
func (kv *KV) Close() error {
	if kv.ownsClient {
		return kv.client.Close()
	}
	return nil
}
