package redis

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meteolab/skycast/core"
)

// newIntegrationStore connects to the Redis named by SKYCAST_REDIS_TEST_ADDR,
// skipping the test when the variable is unset.
func newIntegrationStore(t *testing.T) *Store {
	t.Helper()

	addr := os.Getenv("SKYCAST_REDIS_TEST_ADDR")
	if addr == "" {
		t.Skip("SKYCAST_REDIS_TEST_ADDR not set")
	}

	client := goredis.NewClient(&goredis.Options{Addr: addr})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, client.Ping(ctx).Err())

	t.Cleanup(func() { _ = client.Close() })

	return NewStore(client, func(o *Options) {
		o.KeyPrefix = fmt.Sprintf("skycast-test-%d", time.Now().UnixNano())
		o.TTL = time.Minute
	})
}

func TestStoreRoundTrip(t *testing.T) {
	store := newIntegrationStore(t)

	for i := 0; i < 5; i++ {
		require.NoError(t, store.Append("s1", core.NewUserMessage(fmt.Sprintf("msg-%d", i))))
	}

	sess, err := store.Get("s1")
	require.NoError(t, err)

	msgs := sess.GetMessages()
	require.Len(t, msgs, 5)
	for i, msg := range msgs {
		assert.Equal(t, fmt.Sprintf("msg-%d", i), msg.Content)
	}
}

func TestStorePreservesToolPlumbing(t *testing.T) {
	store := newIntegrationStore(t)

	calls := []core.ToolCall{{ID: "c1", Name: "get_current_weather", Arguments: `{"location":"Paris"}`}}
	require.NoError(t, store.Append("s1", core.NewToolCallMessage(calls)))
	require.NoError(t, store.Append("s1", core.NewToolResultMessage("c1", `{"temperature_c":21.5}`)))

	sess, err := store.Get("s1")
	require.NoError(t, err)

	msgs := sess.GetMessages()
	require.Len(t, msgs, 2)
	assert.True(t, msgs[0].HasToolCalls())
	assert.Equal(t, "c1", msgs[0].ToolCalls[0].ID)
	assert.Equal(t, "c1", msgs[1].ToolCallID)
}

func TestStoreLastModel(t *testing.T) {
	store := newIntegrationStore(t)

	require.NoError(t, store.SetLastModel("s1", "weather-analyst"))

	sess, err := store.Get("s1")
	require.NoError(t, err)
	assert.Equal(t, "weather-analyst", sess.GetLastModel())
}

func TestStoreLazyCreate(t *testing.T) {
	store := newIntegrationStore(t)

	sess, err := store.Get("fresh")
	require.NoError(t, err)
	assert.Equal(t, "fresh", sess.ID)
	assert.Zero(t, sess.MessageCount())

	// Second load sees the persisted metadata.
	again, err := store.Get("fresh")
	require.NoError(t, err)
	assert.Zero(t, again.MessageCount())
}
