package services

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"chartgpt-backend/internal/models"
)

func TestRedisNotifier_PublishesToSessionChannel(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	ctx := context.Background()
	sub := client.Subscribe(ctx, SessionChannel("s1"))
	defer sub.Close()
	_, err := sub.Receive(ctx)
	require.NoError(t, err)

	notifier := NewRedisNotifier(client, zaptest.NewLogger(t))
	notifier.Publish(ctx, "s1", models.NewResultView(models.Succeeded{
		ID:        3,
		ChartType: models.ChartPie,
		Data:      []models.ChartDataPoint{models.NewChartDataPoint("a", 1, "#fff")},
	}))

	select {
	case msg := <-sub.Channel():
		var decoded struct {
			Type    string            `json:"type"`
			Payload models.ResultView `json:"payload"`
		}
		require.NoError(t, json.Unmarshal([]byte(msg.Payload), &decoded))
		assert.Equal(t, models.WSTypeChartState, decoded.Type)
		assert.Equal(t, models.StatusSuccess, decoded.Payload.Status)
		assert.Equal(t, uint64(3), decoded.Payload.RequestID)
		assert.Equal(t, models.ChartPie, decoded.Payload.ChartType)
		require.Len(t, decoded.Payload.Data, 1)
		assert.Equal(t, "a", decoded.Payload.Data[0].Name)
	case <-time.After(2 * time.Second):
		t.Fatal("no message published")
	}
}

func TestSessionChannel(t *testing.T) {
	assert.Equal(t, "chart_updates:abc", SessionChannel("abc"))
}
