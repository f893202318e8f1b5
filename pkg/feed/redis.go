package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"liyu1981.xyz/roomwatch-service/pkg/metrics"
	"liyu1981.xyz/roomwatch-service/pkg/models"
)

const redisChannelPrefix = "roomwatch:changes:"

func ConnectRedis(redisURL string) (*redis.Client, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	opt.MaxRetries = 3

	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger().Info("Redis connected", zap.String("addr", opt.Addr))
	return client, nil
}

// RedisFeed carries change events over redis pub/sub, one channel per scope,
// so several server processes share one feed.
type RedisFeed struct {
	client *redis.Client
}

func NewRedisFeed(client *redis.Client) *RedisFeed {
	return &RedisFeed{client: client}
}

func RedisChannel(scope Scope) string {
	return redisChannelPrefix + scope.Key()
}

func (f *RedisFeed) Publish(ctx context.Context, ev models.ChangeEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	if err := f.client.Publish(ctx, RedisChannel(ScopeOf(ev)), payload).Err(); err != nil {
		return fmt.Errorf("failed to publish change event: %w", err)
	}
	metrics.FeedEventsPublished.WithLabelValues(ev.Table, string(ev.Type)).Inc()
	return nil
}

func (f *RedisFeed) Subscribe(ctx context.Context, scope Scope) (Subscription, error) {
	ps := f.client.Subscribe(ctx, RedisChannel(scope))
	// wait for the subscribe confirmation so events published after this
	// returns are not lost
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("failed to subscribe to %s: %w", RedisChannel(scope), err)
	}

	sub := newSubscription(scope, func() error {
		metrics.FeedSubscriptions.Dec()
		return ps.Close()
	})
	metrics.FeedSubscriptions.Inc()

	go func() {
		for msg := range ps.Channel() {
			var ev models.ChangeEvent
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				logger().Warn("Dropping undecodable change event", zap.String("channel", msg.Channel), zap.Error(err))
				continue
			}
			if !scope.Match(ev) {
				continue
			}
			sub.deliver(ev)
		}
		// channel closes on Close or when the client shuts down
		if !sub.Closed() {
			sub.fail(ErrClosed)
		}
	}()

	return sub, nil
}
