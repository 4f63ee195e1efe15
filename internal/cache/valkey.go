package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type ValkeyConfig struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
}

// ValkeyClient is a Backend shared by every API instance.
type ValkeyClient struct {
	client *redis.Client
	prefix string
}

func NewValkeyClient(cfg ValkeyConfig) (*ValkeyClient, error) {
	if cfg.Addr == "" {
		cfg.Addr = "localhost:6379"
	}
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = "ticketline:cache:"
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
		DialTimeout:  5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Valkey: %w", err)
	}

	return &ValkeyClient{client: rdb, prefix: cfg.KeyPrefix}, nil
}

func (v *ValkeyClient) Get(ctx context.Context, key string) (Entry, bool, error) {
	raw, err := v.client.Get(ctx, v.prefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Entry{}, false, nil
		}
		return Entry{}, false, fmt.Errorf("cache lookup error: %w", err)
	}

	var entry Entry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return Entry{}, false, fmt.Errorf("invalid cache entry: %w", err)
	}
	return entry, true, nil
}

func (v *ValkeyClient) Set(ctx context.Context, key string, entry Entry, ttl time.Duration) error {
	raw, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal cache entry: %w", err)
	}
	return v.client.Set(ctx, v.prefix+key, raw, ttl).Err()
}

func (v *ValkeyClient) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	prefixed := make([]string, len(keys))
	for i, k := range keys {
		prefixed[i] = v.prefix + k
	}
	return v.client.Del(ctx, prefixed...).Err()
}

// Clear removes every key under the prefix.
func (v *ValkeyClient) Clear(ctx context.Context) error {
	iter := v.client.Scan(ctx, 0, v.prefix+"*", 500).Iterator()
	var batch []string
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == 500 {
			if err := v.client.Del(ctx, batch...).Err(); err != nil {
				return err
			}
			batch = batch[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(batch) > 0 {
		return v.client.Del(ctx, batch...).Err()
	}
	return nil
}

func (v *ValkeyClient) Close() error {
	return v.client.Close()
}
