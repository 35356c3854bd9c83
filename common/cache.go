// Copyright 2021-2023
// SPDX-License-Identifier: Apache-2.0
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package common

import (
	"bytes"
	"context"
	"errors"
	"io"
	"time"

	"github.com/go-redis/redis/v8"
	lru "github.com/hashicorp/golang-lru"
	"github.com/pierrec/lz4/v4"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

var (
	ErrCacheMiss = errors.New("key not found in cache")
)

// Cache is a two-level byte cache: a process local LRU backed by an optional shared redis
// instance. Values are lz4 compressed before being stored.
type Cache struct {
	local *lru.Cache
	rdb   *redis.Client
	ttl   time.Duration
}

// NewCache creates a cache holding at most localSize entries in memory. If redisURL is not
// empty values are also written to redis with the given ttl.
func NewCache(localSize int, redisURL string, ttl time.Duration) (*Cache, error) {
	local, err := lru.New(localSize)
	if err != nil {
		log.Error().Err(err).Int("LocalSize", localSize).Msg("could not create LRU cache")
		return nil, err
	}

	cache := &Cache{
		local: local,
		ttl:   ttl,
	}

	if redisURL != "" {
		opt, err := redis.ParseURL(redisURL)
		if err != nil {
			log.Error().Err(err).Msg("could not parse redis URL")
			return nil, err
		}
		cache.rdb = redis.NewClient(opt)
	}

	return cache, nil
}

// NewCacheFromConfig builds a cache from the `cache.*` configuration keys
func NewCacheFromConfig() (*Cache, error) {
	redisURL := ""
	if viper.GetBool("cache.redis") {
		redisURL = viper.GetString("cache.redis_url")
	}

	return NewCache(viper.GetInt("cache.local_size"), redisURL, viper.GetDuration("cache.ttl"))
}

// Set stores bytes under key
func (cache *Cache) Set(ctx context.Context, key string, val []byte) error {
	b2, err := compress(val)
	if err != nil {
		return err
	}
	cache.local.Add(key, b2)

	if cache.rdb != nil {
		return cache.rdb.Set(ctx, key, b2, cache.ttl).Err()
	}
	return nil
}

// Get retrieves the bytes stored under key. ErrCacheMiss is returned if the key is not present
// in either cache level.
func (cache *Cache) Get(ctx context.Context, key string) ([]byte, error) {
	if v, ok := cache.local.Get(key); ok {
		return decompress(v.([]byte))
	}

	if cache.rdb == nil {
		return nil, ErrCacheMiss
	}

	val, err := cache.rdb.GetEx(ctx, key, cache.ttl).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, err
	}

	cache.local.Add(key, val)
	return decompress(val)
}

// Len returns the number of entries in the local cache
func (cache *Cache) Len() int {
	return cache.local.Len()
}

func compress(in []byte) ([]byte, error) {
	w := &bytes.Buffer{}
	zw := lz4.NewWriter(w)
	if _, err := zw.Write(in); err != nil {
		return nil, err
	}

	if err := zw.Close(); err != nil {
		return nil, err
	}
	return w.Bytes(), nil
}

func decompress(in []byte) ([]byte, error) {
	return io.ReadAll(lz4.NewReader(bytes.NewReader(in)))
}
