package realtime

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrgChannel(t *testing.T) {
	assert.Equal(t, "org-O1", OrgChannel("O1"))
	assert.Equal(t, "org-9b1deb4d-3b7d-4bad-9bdd-2b0d7b3dcb6d", OrgChannel("9b1deb4d-3b7d-4bad-9bdd-2b0d7b3dcb6d"))
}

func TestRedisPublisher(t *testing.T) {
	t.Run("publish to unreachable broker fails within timeout", func(t *testing.T) {
		publisher := NewRedisPublisher(Config{
			Addr:           "127.0.0.1:1",
			PublishTimeout: 500 * time.Millisecond,
		})
		t.Cleanup(func() { _ = publisher.Close() })

		start := time.Now()
		err := publisher.Publish(context.Background(), "org-test", "incident-created", map[string]string{"id": "i1"})
		require.Error(t, err)
		assert.Less(t, time.Since(start), 5*time.Second, "single bounded attempt, no retry loop")
	})

	t.Run("unmarshalable payload fails before dialing", func(t *testing.T) {
		publisher := NewRedisPublisher(Config{
			Addr:           "127.0.0.1:1",
			PublishTimeout: 500 * time.Millisecond,
		})
		t.Cleanup(func() { _ = publisher.Close() })

		err := publisher.Publish(context.Background(), "org-test", "incident-created", make(chan int))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "marshal payload")
	})

	t.Run("rate limiter rejects once the context expires", func(t *testing.T) {
		publisher := NewRedisPublisher(Config{
			Addr:           "127.0.0.1:1",
			PublishTimeout: 50 * time.Millisecond,
			PublishRate:    0.001,
			PublishBurst:   1,
		})
		t.Cleanup(func() { _ = publisher.Close() })

		// First publish consumes the burst token and fails on the dial; the
		// second cannot acquire a token before its deadline.
		_ = publisher.Publish(context.Background(), "org-test", "incident-created", map[string]string{"id": "i1"})
		err := publisher.Publish(context.Background(), "org-test", "incident-created", map[string]string{"id": "i2"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "rate limit")
	})
}
