// Package redis backs the front end's optional side stores: the search
// result cache and the purchase double-submit guard.
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	defaultPingTimeout = 5 * time.Second
	defaultDialTimeout = 2 * time.Second
)

// Config captures the settings for establishing a Redis connection.
type Config struct {
	Addr     string
	Password string
	DB       int
	// PoolSize caps open connections; go-redis picks a default when zero.
	PoolSize    int
	DialTimeout time.Duration
	// PingTimeout bounds the connectivity check in Connect.
	PingTimeout time.Duration
}

func (c Config) options() *redis.Options {
	dial := c.DialTimeout
	if dial <= 0 {
		dial = defaultDialTimeout
	}
	return &redis.Options{
		Addr:        c.Addr,
		Password:    c.Password,
		DB:          c.DB,
		PoolSize:    c.PoolSize,
		DialTimeout: dial,
	}
}

// Connect builds a client and refuses to return it until Redis answers a
// ping. The caller owns the client and must Close it.
func Connect(ctx context.Context, cfg Config) (*redis.Client, error) {
	timeout := cfg.PingTimeout
	if timeout <= 0 {
		timeout = defaultPingTimeout
	}

	client := redis.NewClient(cfg.options())

	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := NewPinger(client).Ping(pingCtx); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}

// Pinger reports whether Redis is reachable. It satisfies the readiness
// probe's Pinger.
type Pinger struct {
	client *redis.Client
}

func NewPinger(client *redis.Client) *Pinger {
	return &Pinger{client: client}
}

func (p *Pinger) Ping(ctx context.Context) error {
	if err := p.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}
