package services

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"chartgpt-backend/internal/metrics"
	"chartgpt-backend/internal/models"
)

const sessionSweepInterval = 1 * time.Minute

type session struct {
	latest  uint64
	result  models.RequestResult
	touched time.Time

	// outbox holds views of state writes not yet delivered, in write order.
	outbox   []models.ResultView
	flushing bool
}

type applyOutcome int

const (
	applied applyOutcome = iota
	rejectedStale
	sessionGone
)

// SessionStore holds the current RequestResult of every session. State is
// process-local and never persisted.
type SessionStore struct {
	mu       sync.Mutex
	sessions map[string]*session
	ttl      time.Duration
	now      func() time.Time
	logger   *zap.Logger
	stopChan chan struct{}
}

func NewSessionStore(ttl time.Duration, logger *zap.Logger) *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*session),
		ttl:      ttl,
		now:      time.Now,
		logger:   logger,
		stopChan: make(chan struct{}),
	}
}

// Start evicts idle sessions in the background until Stop is called.
func (s *SessionStore) Start() {
	if s.ttl <= 0 {
		return
	}
	go s.loop()
}

func (s *SessionStore) Stop() {
	select {
	case <-s.stopChan:
		return
	default:
		close(s.stopChan)
	}
}

func (s *SessionStore) loop() {
	ticker := time.NewTicker(sessionSweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			if n := s.evictIdle(); n > 0 {
				s.logger.Debug("evicted idle sessions", zap.Int("count", n))
			}
		}
	}
}

// begin moves a session to Loading for requestID, creating it if needed.
func (s *SessionStore) begin(sessionID string, requestID uint64) models.RequestResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		sess = &session{}
		s.sessions[sessionID] = sess
		metrics.Sessions.Set(float64(len(s.sessions)))
	}
	sess.latest = requestID
	sess.result = models.Loading{ID: requestID}
	sess.touched = s.now()
	sess.outbox = append(sess.outbox, models.NewResultView(sess.result))
	return sess.result
}

// apply records a finished round trip. With discardStale set, results from
// any submission other than the session's latest are rejected.
func (s *SessionStore) apply(sessionID string, result models.RequestResult, discardStale bool) applyOutcome {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		return sessionGone
	}
	if discardStale && result.RequestID() != sess.latest {
		return rejectedStale
	}
	sess.result = result
	sess.touched = s.now()
	sess.outbox = append(sess.outbox, models.NewResultView(result))
	return applied
}

// flush delivers the session's queued views in the order their writes
// happened. One caller delivers at a time; a caller arriving while another
// is delivering leaves its views to that one, so a Publish that triggers a
// new write never reorders the stream or deadlocks.
func (s *SessionStore) flush(ctx context.Context, sessionID string, notifier Notifier) {
	s.mu.Lock()
	sess, ok := s.sessions[sessionID]
	if !ok || sess.flushing {
		s.mu.Unlock()
		return
	}
	sess.flushing = true
	for len(sess.outbox) > 0 {
		view := sess.outbox[0]
		sess.outbox = sess.outbox[1:]
		s.mu.Unlock()
		notifier.Publish(ctx, sessionID, view)
		s.mu.Lock()
	}
	sess.outbox = nil
	sess.flushing = false
	s.mu.Unlock()
}

// Get returns the session's state, Idle for unknown sessions.
func (s *SessionStore) Get(sessionID string) models.RequestResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		return models.Idle{}
	}
	return sess.result
}

// evictIdle drops sessions untouched for longer than the TTL. A session is
// kept while its latest submission is still in flight, which under
// last-write-wins can be true even when an older result is showing, and
// while views are waiting to be delivered.
func (s *SessionStore) evictIdle() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	evicted := 0
	for id, sess := range s.sessions {
		if sess.result.Status() == models.StatusLoading || sess.result.RequestID() != sess.latest {
			continue
		}
		if sess.flushing || len(sess.outbox) > 0 {
			continue
		}
		if now.Sub(sess.touched) > s.ttl {
			delete(s.sessions, id)
			evicted++
		}
	}
	metrics.Sessions.Set(float64(len(s.sessions)))
	return evicted
}
