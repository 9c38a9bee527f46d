package redis

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_Addr(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Host = "cache.internal"
	cfg.Port = 6380
	assert.Equal(t, "cache.internal:6380", cfg.Addr())
}

func TestNewClient_Unreachable(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Port = 1
	cfg.DialTimeout = 200 * time.Millisecond
	cfg.MaxRetries = -1

	_, err := NewClient(context.Background(), cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "localhost:1")
}

func TestNewClientFromURL_Invalid(t *testing.T) {
	_, err := NewClientFromURL(context.Background(), "memcached://localhost:11211")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid redis url")
}

func TestEvalShaByName_UnknownScript(t *testing.T) {
	c := Wrap(redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"}))
	defer c.Close()

	err := c.EvalShaByName(context.Background(), "join", []string{"event:{1}:meta"}).Err()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "script join not loaded")
}
