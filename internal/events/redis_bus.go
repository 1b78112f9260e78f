package events

// redis_bus.go: fan-out of mutation events between BFF instances.
// Local subscribers are served synchronously; the event is then published on
// a Redis channel so sessions held by other instances revalidate too.

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

type RedisBus struct {
	local   *Bus
	rdb     *redis.Client
	channel string
	origin  string
}

func NewRedisBus(local *Bus, rdb *redis.Client, channel string) *RedisBus {
	return &RedisBus{
		local:   local,
		rdb:     rdb,
		channel: channel,
		origin:  uuid.NewString(),
	}
}

// Publish delivers locally, then to the other instances. A Redis failure is
// returned after local delivery already happened.
func (b *RedisBus) Publish(ctx context.Context, ev MutationEvent) error {
	ev.Origen = b.origin
	if err := b.local.Publish(ctx, ev); err != nil {
		return err
	}
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("events: marshal: %w", err)
	}
	if err := b.rdb.Publish(ctx, b.channel, data).Err(); err != nil {
		return fmt.Errorf("events: redis publish: %w", err)
	}
	return nil
}

// Listen relays events published by other instances to the local bus until
// ctx is done.
func (b *RedisBus) Listen(ctx context.Context) error {
	sub := b.rdb.Subscribe(ctx, b.channel)
	defer sub.Close()

	// Wait for the subscription to be confirmed before reporting ready.
	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("events: redis subscribe: %w", err)
	}
	log.Info().Str("channel", b.channel).Msg("events: listening for remote mutations")

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("events: listener shutting down")
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var ev MutationEvent
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				log.Error().Err(err).Str("channel", msg.Channel).Msg("events: invalid payload")
				continue
			}
			if ev.Origen == b.origin {
				continue
			}
			_ = b.local.Publish(ctx, ev)
		}
	}
}
