package alert

import (
	"context"
	"fmt"

	"github.com/garyburd/redigo/redis"
)

// RedisSink publishes events as JSON on a Redis pub/sub channel.
type RedisSink struct {
	pool    *redis.Pool
	channel string
}

// NewRedisPool dials address with at most maxIdle idle connections.
func NewRedisPool(address string, maxIdle int) *redis.Pool {
	return redis.NewPool(func() (redis.Conn, error) {
		c, err := redis.Dial("tcp", address)
		if err != nil {
			return nil, err
		}
		return c, err
	}, maxIdle)
}

// NewRedisSink publishes to channel through pool.
func NewRedisSink(pool *redis.Pool, channel string) *RedisSink {
	return &RedisSink{pool: pool, channel: channel}
}

func (s *RedisSink) Name() string { return "redis" }

// Publish sends the event on the channel.
func (s *RedisSink) Publish(_ context.Context, ev Event) error {
	payload, err := ev.JSON()
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	conn := s.pool.Get()
	defer conn.Close()

	if _, err := redis.Int(conn.Do("PUBLISH", s.channel, payload)); err != nil {
		return fmt.Errorf("redis publish: %w", err)
	}
	return nil
}

// Close releases the pool.
func (s *RedisSink) Close() error {
	return s.pool.Close()
}
