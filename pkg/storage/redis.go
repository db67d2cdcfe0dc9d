package storage

import (
	"context"

	"github.com/redis/rueidis"
)

func newRedis(addr string) (rueidis.Client, error) {
	return rueidis.NewClient(rueidis.ClientOption{
		InitAddress: []string{addr},
	})
}

type RedisStore struct {
	c   rueidis.Client
	key string
}

func NewRedisStore(addr, key string) (*RedisStore, error) {
	c, err := newRedis(addr)
	if err != nil {
		return nil, err
	}
	return &RedisStore{c: c, key: key}, nil
}

func (s *RedisStore) Key() string {
	return s.key + ":snapshot"
}

func (s *RedisStore) Load(ctx context.Context) ([]byte, error) {
	cmd := s.c.B().Get().Key(s.Key()).Build()
	b, err := s.c.Do(ctx, cmd).AsBytes()
	if rueidis.IsRedisNil(err) {
		return nil, ErrNoState
	}
	return b, err
}

func (s *RedisStore) Save(ctx context.Context, blob []byte) error {
	cmd := s.c.B().Set().Key(s.Key()).Value(rueidis.BinaryString(blob)).Build()
	return s.c.Do(ctx, cmd).Error()
}

func (s *RedisStore) Reset(ctx context.Context) error {
	cmd := s.c.B().Del().Key(s.Key()).Build()
	return s.c.Do(ctx, cmd).Error()
}

func (s *RedisStore) Close() error {
	s.c.Close()
	return nil
}
