package redis

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Config holds Redis connection settings
type Config struct {
	Host         string
	Port         int
	Password     string
	DB           int
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	MaxRetries   int
}

// DefaultConfig returns default Redis configuration
func DefaultConfig() *Config {
	return &Config{
		Host:         "localhost",
		Port:         6379,
		DB:           0,
		PoolSize:     100,
		MinIdleConns: 10,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		MaxRetries:   3,
	}
}

// Addr returns host:port
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Client wraps go-redis with a cache of named Lua scripts
type Client struct {
	*redis.Client

	mu      sync.RWMutex
	scripts map[string]*script
}

type script struct {
	sha    string
	source string
}

// NewClient connects and pings Redis
func NewClient(ctx context.Context, cfg *Config) (*Client, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr(),
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		MaxRetries:   cfg.MaxRetries,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to ping redis at %s: %w", cfg.Addr(), err)
	}

	return Wrap(rdb), nil
}

// NewClientFromURL connects using a redis:// URL
func NewClientFromURL(ctx context.Context, url string) (*Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return Wrap(rdb), nil
}

// Wrap adapts an existing go-redis client
func Wrap(rdb *redis.Client) *Client {
	return &Client{Client: rdb, scripts: make(map[string]*script)}
}

// LoadScript uploads a Lua script and remembers it under name
func (c *Client) LoadScript(ctx context.Context, name, source string) (string, error) {
	sha, err := c.ScriptLoad(ctx, source).Result()
	if err != nil {
		return "", fmt.Errorf("failed to load script %s: %w", name, err)
	}

	c.mu.Lock()
	c.scripts[name] = &script{sha: sha, source: source}
	c.mu.Unlock()

	return sha, nil
}

// EvalShaByName runs a script previously registered with LoadScript. When the
// server has lost its script cache the source is sent again with EVAL.
func (c *Client) EvalShaByName(ctx context.Context, name string, keys []string, args ...interface{}) *redis.Cmd {
	c.mu.RLock()
	s, ok := c.scripts[name]
	c.mu.RUnlock()

	if !ok {
		cmd := redis.NewCmd(ctx)
		cmd.SetErr(fmt.Errorf("script %s not loaded", name))
		return cmd
	}

	cmd := c.EvalSha(ctx, s.sha, keys, args...)
	if err := cmd.Err(); err != nil && strings.HasPrefix(err.Error(), "NOSCRIPT") {
		return c.Eval(ctx, s.source, keys, args...)
	}
	return cmd
}

// Health pings the server
func (c *Client) Health(ctx context.Context) error {
	return c.Ping(ctx).Err()
}
