package realtime

import (
	"context"
	"strings"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const channelPrefix = "tutor:realtime:"

// RedisPublisher publishes topic events to Redis so every server instance's
// relay can hand them to its local hub.
type RedisPublisher struct {
	client *redis.Client
}

func NewRedisPublisher(client *redis.Client) *RedisPublisher {
	return &RedisPublisher{client: client}
}

func (p *RedisPublisher) Publish(ctx context.Context, topic string, payload []byte) error {
	return p.client.Publish(ctx, channelPrefix+topic, payload).Err()
}

// RedisRelay forwards every realtime message published in Redis to a local hub.
type RedisRelay struct {
	client *redis.Client
	hub    *Hub
	logger *zap.Logger
}

func NewRedisRelay(client *redis.Client, hub *Hub, logger *zap.Logger) *RedisRelay {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisRelay{client: client, hub: hub, logger: logger}
}

// Run blocks until ctx is done or the subscription channel closes.
func (r *RedisRelay) Run(ctx context.Context) {
	sub := r.client.PSubscribe(ctx, channelPrefix+"*")
	defer func() {
		_ = sub.Close()
	}()

	messages := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-messages:
			if !ok {
				return
			}
			topic := strings.TrimPrefix(msg.Channel, channelPrefix)
			if err := r.hub.Publish(ctx, topic, []byte(msg.Payload)); err != nil {
				r.logger.Warn("relay realtime message", zap.String("topic", topic), zap.Error(err))
			}
		}
	}
}
