// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

const (
	defaultRedisNamespace = "rigchat:"
	defaultRedisTimeout   = 3 * time.Second
)

// RedisStore keeps values as plain string keys under a namespace prefix,
// which lets several machines share one chat history.
type RedisStore struct {
	client    *redis.Client
	namespace string
	timeout   time.Duration
}

// NewRedisStore connects to url and verifies the connection with PING.
func NewRedisStore(url, namespace string, timeout time.Duration) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, errors.Wrap(err, "parsing redis url")
	}
	if namespace == "" {
		namespace = defaultRedisNamespace
	}
	if timeout <= 0 {
		timeout = defaultRedisTimeout
	}

	s := &RedisStore{
		client:    redis.NewClient(opts),
		namespace: namespace,
		timeout:   timeout,
	}

	ctx, cancel := s.ctx()
	defer cancel()
	if err := s.client.Ping(ctx).Err(); err != nil {
		s.client.Close()
		return nil, errors.Wrap(err, "connecting to redis")
	}
	return s, nil
}

func (s *RedisStore) ctx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), s.timeout)
}

func (s *RedisStore) Get(key string) (string, error) {
	ctx, cancel := s.ctx()
	defer cancel()
	v, err := s.client.Get(ctx, s.namespace+key).Result()
	if err == redis.Nil {
		return "", ErrNotFound
	}
	if err != nil {
		return "", errors.Wrapf(err, "getting key %s", key)
	}
	return v, nil
}

func (s *RedisStore) Set(key, value string) error {
	ctx, cancel := s.ctx()
	defer cancel()
	if err := s.client.Set(ctx, s.namespace+key, value, 0).Err(); err != nil {
		return errors.Wrapf(err, "setting key %s", key)
	}
	return nil
}

func (s *RedisStore) Remove(key string) error {
	ctx, cancel := s.ctx()
	defer cancel()
	if err := s.client.Del(ctx, s.namespace+key).Err(); err != nil {
		return errors.Wrapf(err, "deleting key %s", key)
	}
	return nil
}

func (s *RedisStore) Keys(prefix string) ([]string, error) {
	ctx, cancel := s.ctx()
	defer cancel()

	full := s.namespace + prefix
	var keys []string
	iter := s.client.Scan(ctx, 0, scanPattern(full), 100).Iterator()
	for iter.Next(ctx) {
		if k := iter.Val(); strings.HasPrefix(k, full) {
			keys = append(keys, strings.TrimPrefix(k, s.namespace))
		}
	}
	if err := iter.Err(); err != nil {
		return nil, errors.Wrap(err, "scanning keys")
	}
	return keys, nil
}

// scanPattern matches every key starting with the literal prefix.
func scanPattern(prefix string) string {
	return globEscaper.Replace(prefix) + "*"
}

var globEscaper = strings.NewReplacer(`\`, `\\`, `*`, `\*`, `?`, `\?`, `[`, `\[`, `]`, `\]`)

func (s *RedisStore) Close() error {
	return s.client.Close()
}
