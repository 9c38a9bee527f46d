//go:build integration

package redis_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prohmpiriya/event-registration/internal/testutil/containers"
)

const incrScript = `return redis.call("INCRBY", KEYS[1], ARGV[1])`

func TestClient_Scripts(t *testing.T) {
	rc := containers.NewRedisContainer(t)
	ctx := context.Background()
	require.NoError(t, rc.Client.Health(ctx))

	sha, err := rc.Client.LoadScript(ctx, "incr", incrScript)
	require.NoError(t, err)
	assert.Len(t, sha, 40)

	n, err := rc.Client.EvalShaByName(ctx, "incr", []string{"counter"}, 2).Int64()
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	// a flushed script cache falls back to sending the source again
	require.NoError(t, rc.Client.ScriptFlush(ctx).Err())
	n, err = rc.Client.EvalShaByName(ctx, "incr", []string{"counter"}, 3).Int64()
	require.NoError(t, err)
	assert.Equal(t, int64(5), n)
}
