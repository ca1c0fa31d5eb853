package redisstore

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/suPer8Hu/profile-assistant/internal/session"
)

// Store is the redis-backed transient storage for per-tab session ids.
type Store struct {
	rdb *redis.Client
	ttl time.Duration
}

// New connects and pings redis. ttl 0 keeps keys forever; otherwise ttl is the
// idle time after which a tab's session id is forgotten.
func New(ctx context.Context, addr, password string, db int, ttl time.Duration) (*Store, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	pctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := rdb.Ping(pctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, err
	}
	return &Store{rdb: rdb, ttl: ttl}, nil
}

// Get reads key and, when a ttl is set, pushes its expiry back so an active
// tab keeps its session.
func (s *Store) Get(ctx context.Context, key string) (string, error) {
	var (
		v   string
		err error
	)
	if s.ttl > 0 {
		v, err = s.rdb.GetEx(ctx, key, s.ttl).Result()
	} else {
		v, err = s.rdb.Get(ctx, key).Result()
	}
	if errors.Is(err, redis.Nil) {
		return "", session.ErrMiss
	}
	return v, err
}

// Set only writes when the key is absent so two racing requests from the same
// tab agree on one session id.
func (s *Store) Set(ctx context.Context, key, value string) error {
	return s.rdb.SetNX(ctx, key, value, s.ttl).Err()
}

func (s *Store) Close() error {
	if s == nil || s.rdb == nil {
		return nil
	}
	return s.rdb.Close()
}
