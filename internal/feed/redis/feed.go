package redis

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/VishalVrk/rfid-cart/internal/domain"
	"github.com/VishalVrk/rfid-cart/internal/feed"
)

// Default namespace and change channel used by the trolley firmware.
const (
	DefaultNamespace = "smart_trolley"
	DefaultChannel   = "smart_trolley:changes"
)

// Feed implements feed.Adapter on a Redis hash. Every write is followed by a
// publish on the change channel carrying the touched key, which is what wakes
// subscribers up.
type Feed struct {
	client    *redis.Client
	namespace string
	channel   string
	logger    *slog.Logger
}

var _ feed.Adapter = (*Feed)(nil)

// New creates a Redis-backed feed. Empty namespace or channel fall back to
// the defaults.
func New(client *redis.Client, namespace, channel string, logger *slog.Logger) *Feed {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	if channel == "" {
		channel = DefaultChannel
	}
	return &Feed{
		client:    client,
		namespace: namespace,
		channel:   channel,
		logger:    logger,
	}
}

// Snapshot reads the whole namespace. A missing hash yields an empty snapshot.
func (f *Feed) Snapshot(ctx context.Context) (domain.FeedSnapshot, error) {
	values, err := f.client.HGetAll(ctx, f.namespace).Result()
	if err != nil {
		return nil, fmt.Errorf("redis hgetall feed: %w", err)
	}
	return domain.FeedSnapshot(values), nil
}

// SetQuantity writes the quantity for a product key.
func (f *Feed) SetQuantity(ctx context.Context, key string, quantity int) error {
	key = domain.NormalizeName(key)
	if err := f.client.HSet(ctx, f.namespace, key, domain.FormatQuantity(quantity)).Err(); err != nil {
		return fmt.Errorf("redis hset feed %s: %w", key, err)
	}
	return f.notify(ctx, key)
}

// DeleteKey removes a product key.
func (f *Feed) DeleteKey(ctx context.Context, key string) error {
	key = domain.NormalizeName(key)
	if err := f.client.HDel(ctx, f.namespace, key).Err(); err != nil {
		return fmt.Errorf("redis hdel feed %s: %w", key, err)
	}
	return f.notify(ctx, key)
}

// ResetNamespace atomically drops the namespace and writes totalPrice = "0",
// so a cleared cart is distinguishable from one never written.
func (f *Feed) ResetNamespace(ctx context.Context) error {
	_, err := f.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, f.namespace)
		pipe.HSet(ctx, f.namespace, domain.TotalPriceKey, "0")
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis reset feed: %w", err)
	}
	return f.notify(ctx, domain.TotalPriceKey)
}

// SetTotalPrice writes the aggregate price marker.
func (f *Feed) SetTotalPrice(ctx context.Context, total float64) error {
	if err := f.client.HSet(ctx, f.namespace, domain.TotalPriceKey, domain.FormatPrice(total)).Err(); err != nil {
		return fmt.Errorf("redis hset feed total: %w", err)
	}
	return f.notify(ctx, domain.TotalPriceKey)
}

func (f *Feed) notify(ctx context.Context, key string) error {
	if err := f.client.Publish(ctx, f.channel, key).Err(); err != nil {
		return fmt.Errorf("redis publish feed change: %w", err)
	}
	return nil
}

// Subscribe listens on the change channel and re-reads the namespace after
// every notification. The initial snapshot is delivered before any change.
// A receive error ends the subscription; it is logged and not retried.
func (f *Feed) Subscribe(ctx context.Context, cb feed.Callback) (feed.Unsubscribe, error) {
	ps := f.client.Subscribe(ctx, f.channel)
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("subscribe to %s: %w", f.channel, err)
	}

	initial, err := f.Snapshot(ctx)
	if err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("read initial feed snapshot: %w", err)
	}

	loopCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	done := make(chan struct{})

	go func() {
		defer close(done)
		cb(initial)
		for {
			msg, err := ps.ReceiveMessage(loopCtx)
			if err != nil {
				if loopCtx.Err() == nil {
					f.logger.Error("feed subscription failed, no further updates will be delivered",
						slog.String("channel", f.channel),
						slog.String("error", err.Error()),
					)
				}
				return
			}

			snap, err := f.Snapshot(loopCtx)
			if err != nil {
				if loopCtx.Err() != nil {
					return
				}
				f.logger.Warn("failed to read feed snapshot after change",
					slog.String("key", msg.Payload),
					slog.String("error", err.Error()),
				)
				continue
			}
			cb(snap)
		}
	}()

	f.logger.Info("subscribed to trolley feed",
		slog.String("namespace", f.namespace),
		slog.String("channel", f.channel),
		slog.Int("initial_keys", len(initial)),
	)

	var once sync.Once
	return func() {
		once.Do(func() {
			cancel()
			if err := ps.Close(); err != nil {
				f.logger.Warn("failed to close feed subscription", slog.String("error", err.Error()))
			}
			<-done
		})
	}, nil
}
