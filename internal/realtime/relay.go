package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const relayChannel = "voxelhub:realtime"

type envelope struct {
	UserID string `json:"userId"`
	Event  Event  `json:"event"`
}

// ConnectRedis initializes a Redis client from URL or host:port input.
func ConnectRedis(redisURL string) (*redis.Client, error) {
	if strings.HasPrefix(redisURL, "redis://") || strings.HasPrefix(redisURL, "rediss://") {
		opt, err := redis.ParseURL(redisURL)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		return redis.NewClient(opt), nil
	}
	return redis.NewClient(&redis.Options{Addr: redisURL}), nil
}

// RedisRelay fans events out to every API instance through a Redis channel. Each
// instance delivers what it receives to its own hub, so a user is reached on
// whichever instance holds their socket.
type RedisRelay struct {
	client *redis.Client
	local  *Hub
}

func NewRedisRelay(client *redis.Client, local *Hub) *RedisRelay {
	return &RedisRelay{client: client, local: local}
}

func (r *RedisRelay) Notify(userID string, evt Event) {
	if userID == "" {
		return
	}
	payload, err := json.Marshal(envelope{UserID: userID, Event: evt})
	if err != nil {
		zap.L().Error("realtime relay marshal failed", zap.Error(err))
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := r.client.Publish(ctx, relayChannel, payload).Err(); err != nil {
		zap.L().Warn("realtime relay publish failed, delivering locally", zap.Error(err))
		r.local.Notify(userID, evt)
	}
}

// Run delivers relayed events to the local hub until ctx is done.
func (r *RedisRelay) Run(ctx context.Context) error {
	sub := r.client.Subscribe(ctx, relayChannel)
	defer sub.Close()
	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %s: %w", relayChannel, err)
	}
	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var env envelope
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
				zap.L().Warn("realtime relay dropped malformed message", zap.Error(err))
				continue
			}
			r.local.Notify(env.UserID, env.Event)
		}
	}
}
