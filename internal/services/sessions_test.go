package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"chartgpt-backend/internal/models"
)

func TestSessionStore_BeginAndApply(t *testing.T) {
	store := NewSessionStore(time.Hour, zaptest.NewLogger(t))

	assert.Equal(t, models.Loading{ID: 1}, store.begin("s1", 1))
	assert.Equal(t, models.Loading{ID: 1}, store.Get("s1"))

	assert.Equal(t, applied, store.apply("s1", models.Failed{ID: 1}, true))
	assert.Equal(t, models.Failed{ID: 1}, store.Get("s1"))
}

func TestSessionStore_DiscardStale(t *testing.T) {
	store := NewSessionStore(time.Hour, zaptest.NewLogger(t))
	store.begin("s1", 1)
	store.begin("s1", 2)

	assert.Equal(t, rejectedStale, store.apply("s1", models.Failed{ID: 1}, true))
	assert.Equal(t, models.Loading{ID: 2}, store.Get("s1"))

	assert.Equal(t, applied, store.apply("s1", models.Failed{ID: 1}, false))
	assert.Equal(t, models.Failed{ID: 1}, store.Get("s1"))
}

func TestSessionStore_ApplyToUnknownSession(t *testing.T) {
	store := NewSessionStore(time.Hour, zaptest.NewLogger(t))
	assert.Equal(t, sessionGone, store.apply("missing", models.Failed{ID: 1}, false))
	assert.Equal(t, models.Idle{}, store.Get("missing"))
}

func TestSessionStore_EvictIdle(t *testing.T) {
	now := time.Date(2026, 2, 16, 10, 0, 0, 0, time.UTC)
	store := NewSessionStore(time.Minute, zaptest.NewLogger(t))
	store.now = func() time.Time { return now }

	store.begin("done", 1)
	store.apply("done", models.Succeeded{ID: 1, ChartType: models.ChartBar}, true)
	store.begin("loading", 2)

	now = now.Add(2 * time.Minute)
	assert.Equal(t, 1, store.evictIdle())
	assert.Equal(t, models.Idle{}, store.Get("done"))
	assert.Equal(t, models.Loading{ID: 2}, store.Get("loading"))
}

func TestSessionStore_EvictKeepsSessionWithLatestInFlight(t *testing.T) {
	now := time.Date(2026, 2, 16, 10, 0, 0, 0, time.UTC)
	store := NewSessionStore(time.Minute, zaptest.NewLogger(t))
	store.now = func() time.Time { return now }

	// An older round trip lands over Loading(2) under last-write-wins.
	store.begin("s1", 1)
	store.begin("s1", 2)
	require.Equal(t, applied, store.apply("s1", models.Succeeded{ID: 1, ChartType: models.ChartPie}, false))
	store.flush(context.Background(), "s1", nopNotifier{})

	now = now.Add(2 * time.Minute)
	assert.Zero(t, store.evictIdle())

	assert.Equal(t, applied, store.apply("s1", models.Failed{ID: 2}, false))
	assert.Equal(t, models.Failed{ID: 2}, store.Get("s1"))
}

func TestSessionStore_EvictKeepsUndeliveredViews(t *testing.T) {
	now := time.Date(2026, 2, 16, 10, 0, 0, 0, time.UTC)
	store := NewSessionStore(time.Minute, zaptest.NewLogger(t))
	store.now = func() time.Time { return now }

	store.begin("s1", 1)
	store.apply("s1", models.Failed{ID: 1}, true)

	now = now.Add(2 * time.Minute)
	assert.Zero(t, store.evictIdle())

	store.flush(context.Background(), "s1", nopNotifier{})
	assert.Equal(t, 1, store.evictIdle())
}

func TestSessionStore_FlushDeliversInWriteOrder(t *testing.T) {
	store := NewSessionStore(time.Hour, zaptest.NewLogger(t))

	var got []models.ResultView
	notifier := NotifierFunc(func(ctx context.Context, sessionID string, view models.ResultView) {
		got = append(got, view)
	})

	store.begin("s1", 1)
	store.begin("s1", 2)
	store.apply("s1", models.Failed{ID: 1}, false)
	store.flush(context.Background(), "s1", notifier)
	store.flush(context.Background(), "s1", notifier)

	require.Len(t, got, 3)
	assert.Equal(t, []uint64{1, 2, 1}, []uint64{got[0].RequestID, got[1].RequestID, got[2].RequestID})
	assert.Equal(t, models.StatusError, got[2].Status)
}

func TestSessionStore_FlushFromInsidePublish(t *testing.T) {
	store := NewSessionStore(time.Hour, zaptest.NewLogger(t))

	var got []uint64
	var notifier Notifier
	notifier = NotifierFunc(func(ctx context.Context, sessionID string, view models.ResultView) {
		if view.RequestID == 1 {
			store.begin(sessionID, 2)
			store.flush(ctx, sessionID, notifier)
		}
		got = append(got, view.RequestID)
	})

	store.begin("s1", 1)
	store.flush(context.Background(), "s1", notifier)

	assert.Equal(t, []uint64{1, 2}, got)
	assert.Equal(t, models.Loading{ID: 2}, store.Get("s1"))
}

func TestSessionStore_StopIsIdempotent(t *testing.T) {
	store := NewSessionStore(time.Minute, zaptest.NewLogger(t))
	store.Start()
	store.Stop()
	store.Stop()
}
