package models

// WebSocket message types
type WSMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

const WSTypeChartState = "chart_state"

// API Error response
type APIError struct {
	Code      string            `json:"code"`
	Message   string            `json:"message"`
	Fields    map[string]string `json:"fields,omitempty"`
	RequestID string            `json:"request_id"`
}

type ErrorResponse struct {
	Error APIError `json:"error"`
}

// GetTypeRequest is the body of the chart type classification call.
type GetTypeRequest struct {
	InputData string `json:"inputData"`
	APIKey    string `json:"apiKey,omitempty"`
}

// ParseGraphRequest is the body of the chart data generation call.
type ParseGraphRequest struct {
	Prompt string `json:"prompt"`
	APIKey string `json:"apiKey,omitempty"`
}

// SubmitChartRequest starts a round trip for a session. An empty SessionID
// asks the server to allocate one.
type SubmitChartRequest struct {
	SessionID string `json:"session_id"`
	Text      string `json:"text"`
	APIKey    string `json:"api_key,omitempty"`
}

type SubmitChartResponse struct {
	SessionID string `json:"session_id"`
	RequestID uint64 `json:"request_id"`
}
