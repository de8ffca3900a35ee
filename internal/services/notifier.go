package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"chartgpt-backend/internal/models"
)

// Notifier is told about every state change applied to a session.
type Notifier interface {
	Publish(ctx context.Context, sessionID string, view models.ResultView)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, sessionID string, view models.ResultView)

func (f NotifierFunc) Publish(ctx context.Context, sessionID string, view models.ResultView) {
	f(ctx, sessionID, view)
}

type nopNotifier struct{}

func (nopNotifier) Publish(context.Context, string, models.ResultView) {}

// SessionChannel is the Redis pub/sub channel carrying a session's updates.
func SessionChannel(sessionID string) string {
	return fmt.Sprintf("chart_updates:%s", sessionID)
}

// RedisNotifier fans state changes out through Redis pub/sub so any server
// process holding the session's websocket can forward them.
type RedisNotifier struct {
	redis  *redis.Client
	logger *zap.Logger
}

func NewRedisNotifier(redisClient *redis.Client, logger *zap.Logger) *RedisNotifier {
	return &RedisNotifier{redis: redisClient, logger: logger}
}

func (n *RedisNotifier) Publish(ctx context.Context, sessionID string, view models.ResultView) {
	data, err := json.Marshal(models.WSMessage{Type: models.WSTypeChartState, Payload: view})
	if err != nil {
		n.logger.Error("failed to encode state update", zap.Error(err))
		return
	}
	if err := n.redis.Publish(ctx, SessionChannel(sessionID), data).Err(); err != nil {
		n.logger.Warn("failed to publish state update",
			zap.String("session_id", sessionID),
			zap.Error(err))
	}
}
