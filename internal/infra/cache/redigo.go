package cache

import (
	"context"
	"errors"
	"time"

	"github.com/gomodule/redigo/redis"
)

// NewPool builds a redigo pool dialing url (redis://host:port/db). maxIdle <= 0 keeps 10 idle connections.
func NewPool(url string, maxIdle int) *redis.Pool {
	if maxIdle <= 0 {
		maxIdle = 10
	}
	return &redis.Pool{
		MaxIdle:     maxIdle,
		IdleTimeout: 60 * time.Second,
		Dial:        func() (redis.Conn, error) { return redis.DialURL(url) },
		TestOnBorrow: func(c redis.Conn, t time.Time) error {
			if time.Since(t) < time.Minute {
				return nil
			}
			_, err := c.Do("PING")
			return err
		},
	}
}

// RedigoClient adapts a redigo pool to RedisClient.
type RedigoClient struct {
	pool *redis.Pool
}

func NewRedigoClient(pool *redis.Pool) *RedigoClient {
	return &RedigoClient{pool: pool}
}

func (c *RedigoClient) do(ctx context.Context, cmd string, args ...interface{}) (interface{}, error) {
	conn, err := c.pool.GetContext(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Close()
	return redis.DoContext(conn, ctx, cmd, args...)
}

func (c *RedigoClient) Get(ctx context.Context, key string) (string, error) {
	data, err := redis.String(c.do(ctx, "GET", key))
	if errors.Is(err, redis.ErrNil) {
		return "", ErrCacheMiss
	}
	return data, err
}

func (c *RedigoClient) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	args := redis.Args{}.Add(key, value)
	if expiration > 0 {
		args = args.Add("PX", expiration.Milliseconds())
	}
	_, err := redis.String(c.do(ctx, "SET", args...))
	return err
}

func (c *RedigoClient) Del(ctx context.Context, keys ...string) (int, error) {
	return redis.Int(c.do(ctx, "DEL", redis.Args{}.AddFlat(keys)...))
}

// Keys walks the keyspace with SCAN so large databases are not blocked.
func (c *RedigoClient) Keys(ctx context.Context, pattern string) ([]string, error) {
	var (
		cursor = 0
		keys   []string
	)
	for {
		reply, err := redis.Values(c.do(ctx, "SCAN", cursor, "MATCH", pattern, "COUNT", 100))
		if err != nil {
			return nil, err
		}
		var batch []string
		if _, err := redis.Scan(reply, &cursor, &batch); err != nil {
			return nil, err
		}
		keys = append(keys, batch...)
		if cursor == 0 {
			return keys, nil
		}
	}
}

// Close releases the pool.
func (c *RedigoClient) Close() error {
	return c.pool.Close()
}

var _ RedisClient = (*RedigoClient)(nil)
