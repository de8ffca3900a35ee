package websocket

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"chartgpt-backend/internal/models"
	"chartgpt-backend/internal/services"
)

type stateMessage struct {
	Type    string            `json:"type"`
	Payload models.ResultView `json:"payload"`
}

func dial(t *testing.T, srv *httptest.Server, sessionID string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?session=" + sessionID
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { ws.Close() })
	return ws
}

func readState(t *testing.T, ws *websocket.Conn) stateMessage {
	t.Helper()
	ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg stateMessage
	require.NoError(t, ws.ReadJSON(&msg))
	return msg
}

func TestHub_RequiresSession(t *testing.T) {
	hub := NewHub(nil, nil, zaptest.NewLogger(t))

	rr := httptest.NewRecorder()
	hub.HandleWebSocket(rr, httptest.NewRequest(http.MethodGet, "/ws", nil))

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestHub_SendsSnapshotThenUpdates(t *testing.T) {
	state := func(sessionID string) models.RequestResult {
		if sessionID == "s1" {
			return models.Loading{ID: 7}
		}
		return models.Idle{}
	}
	hub := NewHub(nil, state, zaptest.NewLogger(t))
	srv := httptest.NewServer(http.HandlerFunc(hub.HandleWebSocket))
	defer srv.Close()

	ws := dial(t, srv, "s1")

	snapshot := readState(t, ws)
	assert.Equal(t, models.WSTypeChartState, snapshot.Type)
	assert.Equal(t, models.StatusLoading, snapshot.Payload.Status)
	assert.Equal(t, uint64(7), snapshot.Payload.RequestID)

	hub.Publish(context.Background(), "other", models.NewResultView(models.Failed{ID: 1}))
	hub.Publish(context.Background(), "s1", models.NewResultView(models.Succeeded{
		ID:        7,
		ChartType: models.ChartPie,
		Data:      []models.ChartDataPoint{models.NewChartDataPoint("a", 1, "#000")},
	}))

	update := readState(t, ws)
	assert.Equal(t, models.StatusSuccess, update.Payload.Status)
	assert.Equal(t, models.ChartPie, update.Payload.ChartType)
	require.Len(t, update.Payload.Data, 1)
	assert.Equal(t, "a", update.Payload.Data[0].Name)
}

func TestHub_SnapshotPrecedesConcurrentUpdate(t *testing.T) {
	var hub *Hub
	state := func(sessionID string) models.RequestResult {
		// A newer state is broadcast while the snapshot is being taken.
		go hub.Publish(context.Background(), sessionID, models.NewResultView(models.Failed{ID: 2}))
		time.Sleep(50 * time.Millisecond)
		return models.Loading{ID: 2}
	}
	hub = NewHub(nil, state, zaptest.NewLogger(t))
	srv := httptest.NewServer(http.HandlerFunc(hub.HandleWebSocket))
	defer srv.Close()

	ws := dial(t, srv, "s3")

	assert.Equal(t, models.StatusLoading, readState(t, ws).Payload.Status)
	assert.Equal(t, models.StatusError, readState(t, ws).Payload.Status)
}

func TestHub_ForwardsRedisChannel(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	hub := NewHub(client, func(string) models.RequestResult { return models.Idle{} }, zaptest.NewLogger(t))
	defer hub.Close()
	srv := httptest.NewServer(http.HandlerFunc(hub.HandleWebSocket))
	defer srv.Close()

	ws := dial(t, srv, "s2")
	assert.Equal(t, models.StatusIdle, readState(t, ws).Payload.Status)

	notifier := services.NewRedisNotifier(client, zaptest.NewLogger(t))
	notifier.Publish(context.Background(), "s2", models.NewResultView(models.Failed{ID: 3}))

	update := readState(t, ws)
	assert.Equal(t, models.StatusError, update.Payload.Status)
	assert.Equal(t, models.GenericErrorMessage, update.Payload.Error)
}
