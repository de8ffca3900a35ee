package services

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"chartgpt-backend/internal/logger"
	"chartgpt-backend/internal/metrics"
	"chartgpt-backend/internal/models"
)

// ChartTypeClassifier is outbound call #1.
type ChartTypeClassifier interface {
	ClassifyChartType(ctx context.Context, inputData, apiKey string) (string, error)
}

// ChartDataGenerator is outbound call #2.
type ChartDataGenerator interface {
	GenerateChartData(ctx context.Context, prompt, apiKey string) (string, error)
}

// StalePolicy decides what happens when an older submission finishes after a
// newer one was made for the same session.
type StalePolicy int

const (
	// DiscardStale applies only the latest submission's result.
	DiscardStale StalePolicy = iota
	// LastWriteWins applies whichever result lands last.
	LastWriteWins
)

type OrchestratorOptions struct {
	StalePolicy StalePolicy
	// Timeout bounds a whole round trip. Zero means no timeout.
	Timeout  time.Duration
	Notifier Notifier
}

// Orchestrator sequences the two outbound calls for a submission and owns
// each session's Idle/Loading/Error/Success state.
type Orchestrator struct {
	classifier ChartTypeClassifier
	generator  ChartDataGenerator
	sessions   *SessionStore
	notifier   Notifier
	policy     StalePolicy
	timeout    time.Duration
	logger     *zap.Logger

	lastID   atomic.Uint64
	inFlight sync.WaitGroup
}

func NewOrchestrator(
	classifier ChartTypeClassifier,
	generator ChartDataGenerator,
	sessions *SessionStore,
	opts OrchestratorOptions,
	logger *zap.Logger,
) *Orchestrator {
	notifier := opts.Notifier
	if notifier == nil {
		notifier = nopNotifier{}
	}
	return &Orchestrator{
		classifier: classifier,
		generator:  generator,
		sessions:   sessions,
		notifier:   notifier,
		policy:     opts.StalePolicy,
		timeout:    opts.Timeout,
		logger:     logger,
	}
}

// Submit moves the session to Loading and runs the round trip in the
// background. It never cancels a round trip already in flight for the same
// session. The returned id identifies this submission.
func (o *Orchestrator) Submit(ctx context.Context, sessionID string, req models.ChartRequest) uint64 {
	id := o.begin(ctx, sessionID)

	// The round trip outlives the call that started it.
	bg := context.WithoutCancel(ctx)
	o.inFlight.Add(1)
	go func() {
		defer o.inFlight.Done()
		o.roundTrip(bg, sessionID, id, req)
	}()
	return id
}

// Run is Submit without the goroutine: it blocks until the round trip ends
// and returns that round trip's own result.
func (o *Orchestrator) Run(ctx context.Context, sessionID string, req models.ChartRequest) models.RequestResult {
	id := o.begin(ctx, sessionID)
	return o.roundTrip(ctx, sessionID, id, req)
}

// State returns the session's current result.
func (o *Orchestrator) State(sessionID string) models.RequestResult {
	return o.sessions.Get(sessionID)
}

// Wait blocks until every background round trip has finished.
func (o *Orchestrator) Wait() {
	o.inFlight.Wait()
}

func (o *Orchestrator) begin(ctx context.Context, sessionID string) uint64 {
	id := o.lastID.Add(1)
	o.sessions.begin(sessionID, id)
	o.sessions.flush(context.WithoutCancel(ctx), sessionID, o.notifier)
	return id
}

func (o *Orchestrator) roundTrip(ctx context.Context, sessionID string, id uint64, req models.ChartRequest) models.RequestResult {
	if o.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}

	metrics.RoundTripsActive.Inc()
	defer metrics.RoundTripsActive.Dec()

	log := logger.ForSession(o.logger, sessionID, id)
	start := time.Now()

	result, reason := o.execute(ctx, log, id, req)
	if reason != "" {
		metrics.RoundTripsCompleted.WithLabelValues("error", reason).Inc()
	} else {
		metrics.RoundTripsCompleted.WithLabelValues("success", "").Inc()
		log.Info("round trip succeeded", zap.Duration("duration", time.Since(start)))
	}

	switch o.sessions.apply(sessionID, result, o.policy == DiscardStale) {
	case rejectedStale:
		metrics.RoundTripsStale.Inc()
		log.Debug("discarded stale round trip result", zap.String("status", string(result.Status())))
	case sessionGone:
		log.Warn("session evicted before round trip finished", zap.String("status", string(result.Status())))
	case applied:
		o.sessions.flush(context.WithoutCancel(ctx), sessionID, o.notifier)
	}
	return result
}

// execute performs the two calls. The returned reason is empty on success
// and only ever reaches logs and metrics.
func (o *Orchestrator) execute(ctx context.Context, log *zap.Logger, id uint64, req models.ChartRequest) (models.RequestResult, string) {
	label, err := o.classifier.ClassifyChartType(ctx, req.Text, req.APIKey)
	if err != nil {
		log.Error("Failed to classify chart type", zap.Error(err))
		return models.Failed{ID: id}, metrics.ReasonClassifyCall
	}

	chartType, ok := models.ParseChartType(label)
	if !ok {
		log.Warn("Unsupported chart type label", zap.String("label", label))
		return models.Failed{ID: id}, metrics.ReasonInvalidLabel
	}
	metrics.ChartTypesClassified.WithLabelValues(chartType.String()).Inc()

	payload, err := o.generator.GenerateChartData(ctx, BuildChartDataPrompt(req.Text), req.APIKey)
	if err != nil {
		log.Error("Failed to generate graph data", zap.Error(err))
		return models.Failed{ID: id}, metrics.ReasonGenerateCall
	}

	var data []models.ChartDataPoint
	if err := json.Unmarshal([]byte(payload), &data); err != nil {
		log.Error("Failed to parse chart data", zap.Error(err), zap.String("payload", payload))
		return models.Failed{ID: id}, metrics.ReasonMalformedJSON
	}
	if data == nil {
		data = []models.ChartDataPoint{}
	}

	return models.Succeeded{ID: id, ChartType: chartType, Data: data}, ""
}
