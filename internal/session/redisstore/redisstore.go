// Package redisstore implements scs.Store on top of go-redis.
package redisstore

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultPrefix = "scs:session:"

type Store struct {
	client redis.Cmdable
	prefix string
}

func New(client redis.Cmdable) *Store {
	return NewWithPrefix(client, defaultPrefix)
}

func NewWithPrefix(client redis.Cmdable, prefix string) *Store {
	return &Store{client: client, prefix: prefix}
}

// Find returns the session data for token. A missing key is not an error.
func (s *Store) Find(token string) ([]byte, bool, error) {
	b, err := s.client.Get(context.Background(), s.prefix+token).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return b, true, nil
}

// Commit stores b under token until expiry; expired sessions are left to
// Redis key expiry.
func (s *Store) Commit(token string, b []byte, expiry time.Time) error {
	ttl := time.Until(expiry)
	if ttl <= 0 {
		return s.Delete(token)
	}
	return s.client.Set(context.Background(), s.prefix+token, b, ttl).Err()
}

func (s *Store) Delete(token string) error {
	return s.client.Del(context.Background(), s.prefix+token).Err()
}
