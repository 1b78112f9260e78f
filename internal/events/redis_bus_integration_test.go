//go:build integration

package events

// Run with: go test -tags integration ./internal/events/... -v

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcRedis "github.com/testcontainers/testcontainers-go/modules/redis"
)

func TestRedisBus_FanOutBetweenInstances(t *testing.T) {
	ctx := context.Background()

	rdC, err := tcRedis.Run(ctx, "redis:7-alpine")
	require.NoError(t, err)
	t.Cleanup(func() { _ = testcontainers.TerminateContainer(rdC) })

	rdURL, err := rdC.ConnectionString(ctx)
	require.NoError(t, err)
	opts, err := redis.ParseURL(rdURL)
	require.NoError(t, err)
	rdb := redis.NewClient(opts)
	t.Cleanup(func() { _ = rdb.Close() })

	localA, localB := NewBus(), NewBus()
	busA := NewRedisBus(localA, rdb, "test:mutaciones")
	busB := NewRedisBus(localB, rdb, "test:mutaciones")

	listenCtx, cancel := context.WithCancel(ctx)
	t.Cleanup(cancel)
	go func() { _ = busA.Listen(listenCtx) }()
	go func() { _ = busB.Listen(listenCtx) }()

	received := make(chan MutationEvent, 4)
	localB.Subscribe(func(_ context.Context, ev MutationEvent) { received <- ev })
	selfA := 0
	localA.Subscribe(func(_ context.Context, _ MutationEvent) { selfA++ })

	// Subscriptions are asynchronous; retry until B has seen one event.
	require.Eventually(t, func() bool {
		_ = busA.Publish(ctx, NewMutation("ventas", ClaveVentas))
		select {
		case ev := <-received:
			return assert.Equal(t, []string{ClaveVentas}, ev.Claves)
		case <-time.After(200 * time.Millisecond):
			return false
		}
	}, 10*time.Second, 50*time.Millisecond)

	assert.GreaterOrEqual(t, selfA, 1)
}
