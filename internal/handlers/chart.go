package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"chartgpt-backend/internal/models"
	"chartgpt-backend/internal/services"
)

const maxSessionIDLength = 128

type chartService interface {
	ClassifyChartType(ctx context.Context, inputData, apiKey string) (string, error)
	GenerateChartData(ctx context.Context, prompt, apiKey string) (string, error)
}

type chartOrchestrator interface {
	Submit(ctx context.Context, sessionID string, req models.ChartRequest) uint64
	State(sessionID string) models.RequestResult
}

type ChartHandler struct {
	charts       chartService
	orchestrator chartOrchestrator
	logger       *zap.Logger
}

func NewChartHandler(charts chartService, orchestrator chartOrchestrator, logger *zap.Logger) *ChartHandler {
	return &ChartHandler{
		charts:       charts,
		orchestrator: orchestrator,
		logger:       logger,
	}
}

// GetType answers outbound call #1 with the model's label as a JSON string.
func (h *ChartHandler) GetType(w http.ResponseWriter, r *http.Request) {
	var req models.GetTypeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	label, err := h.charts.ClassifyChartType(r.Context(), req.InputData, req.APIKey)
	if err != nil {
		h.logger.Error("Failed to classify chart type",
			zap.String("request_id", r.Header.Get("X-Request-ID")), zap.Error(err))
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, label)
}

// ParseGraph answers outbound call #2 with the model's JSON text as a JSON
// string. The text is not parsed here.
func (h *ChartHandler) ParseGraph(w http.ResponseWriter, r *http.Request) {
	var req models.ParseGraphRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	text, err := h.charts.GenerateChartData(r.Context(), req.Prompt, req.APIKey)
	if err != nil {
		h.logger.Error("Failed to generate graph data",
			zap.String("request_id", r.Header.Get("X-Request-ID")), zap.Error(err))
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, text)
}

// Submit starts a round trip and returns immediately; the outcome is read
// from GetState or the websocket stream.
func (h *ChartHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req models.SubmitChartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	fields := map[string]string{}
	if strings.TrimSpace(req.Text) == "" {
		fields["text"] = "Text is required"
	}
	if len(req.SessionID) > maxSessionIDLength {
		fields["session_id"] = "Session ID is too long"
	}
	if len(fields) > 0 {
		writeJSON(w, http.StatusBadRequest, errorRespWithFields("VALIDATION_ERROR", "Validation failed", fields, r))
		return
	}

	sessionID := strings.TrimSpace(req.SessionID)
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	requestID := h.orchestrator.Submit(r.Context(), sessionID, models.ChartRequest{
		Text:   req.Text,
		APIKey: req.APIKey,
	})

	writeJSON(w, http.StatusAccepted, models.SubmitChartResponse{
		SessionID: sessionID,
		RequestID: requestID,
	})
}

func (h *ChartHandler) GetState(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	writeJSON(w, http.StatusOK, models.NewResultView(h.orchestrator.State(sessionID)))
}

// Export renders the session's chart as chart.png. Anything other than a
// successful result has nothing to export.
func (h *ChartHandler) Export(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	succeeded, ok := h.orchestrator.State(sessionID).(models.Succeeded)
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	var buf bytes.Buffer
	if err := services.RenderChartPNG(&buf, succeeded.ChartType, succeeded.Data); err != nil {
		h.logger.Error("Failed to render chart", zap.String("session_id", sessionID), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to export chart", r))
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Disposition", `attachment; filename="`+services.ExportFilename+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

func Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
