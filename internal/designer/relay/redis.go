package relay

import (
	"context"
	"fmt"
	"sort"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	selectionKeyPrefix = "designer:selection:"
	changedChanPrefix  = "designer:selection-changed:"
)

// RedisStore shares selections across API replicas: the set lives under
// designer:selection:<container> and changes are announced on
// designer:selection-changed:<container>.
type RedisStore struct {
	client *redis.Client
	log    zerolog.Logger
}

// NewRedisStore connects to url (redis://...) and pings it.
func NewRedisStore(ctx context.Context, url string, log zerolog.Logger) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	return &RedisStore{client: client, log: log}, nil
}

func (s *RedisStore) Close() error { return s.client.Close() }

func (s *RedisStore) Add(ctx context.Context, container, label string) (bool, error) {
	n, err := s.client.SAdd(ctx, selectionKeyPrefix+container, label).Result()
	if err != nil {
		return false, fmt.Errorf("add selection: %w", err)
	}
	return n > 0, nil
}

func (s *RedisStore) Remove(ctx context.Context, container, label string) (bool, error) {
	n, err := s.client.SRem(ctx, selectionKeyPrefix+container, label).Result()
	if err != nil {
		return false, fmt.Errorf("remove selection: %w", err)
	}
	return n > 0, nil
}

func (s *RedisStore) Members(ctx context.Context, container string) ([]string, error) {
	out, err := s.client.SMembers(ctx, selectionKeyPrefix+container).Result()
	if err != nil {
		return nil, fmt.Errorf("list selection: %w", err)
	}
	sort.Strings(out)
	return out, nil
}

func (s *RedisStore) Count(ctx context.Context, container string) (int, error) {
	n, err := s.client.SCard(ctx, selectionKeyPrefix+container).Result()
	if err != nil {
		return 0, fmt.Errorf("count selection: %w", err)
	}
	return int(n), nil
}

func (s *RedisStore) Clear(ctx context.Context, container string) error {
	if err := s.client.Del(ctx, selectionKeyPrefix+container).Err(); err != nil {
		return fmt.Errorf("clear selection: %w", err)
	}
	return nil
}

func (s *RedisStore) Publish(ctx context.Context, container string) error {
	if err := s.client.Publish(ctx, changedChanPrefix+container, "changed").Err(); err != nil {
		return fmt.Errorf("publish selection change: %w", err)
	}
	return nil
}

func (s *RedisStore) Subscribe(ctx context.Context, container string, fn func()) (func() error, error) {
	ps := s.client.Subscribe(ctx, changedChanPrefix+container)
	// wait for the subscription to be confirmed so no publish is missed
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("subscribe selection changes: %w", err)
	}
	go func() {
		for range ps.Channel() {
			fn()
		}
		s.log.Debug().Str("container", container).Msg("selection subscription ended")
	}()
	return ps.Close, nil
}
