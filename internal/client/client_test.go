package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chartgpt-backend/internal/models"
)

func TestClassifyChartType_SendsBodyAndDecodesString(t *testing.T) {
	var got models.GetTypeRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/get-type", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`"Bar"`))
	}))
	defer srv.Close()

	label, err := New(srv.URL+"/", time.Second).ClassifyChartType(context.Background(), "1 banana", "sk-user")
	require.NoError(t, err)
	assert.Equal(t, "Bar", label)
	assert.Equal(t, models.GetTypeRequest{InputData: "1 banana", APIKey: "sk-user"}, got)
}

func TestGenerateChartData_RawBodyFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "the prompt", req["prompt"])
		_, hasKey := req["apiKey"]
		assert.False(t, hasKey)
		w.Write([]byte(`[{"name":"a","value":1}]`))
	}))
	defer srv.Close()

	data, err := New(srv.URL, time.Second).GenerateChartData(context.Background(), "the prompt", "")
	require.NoError(t, err)
	assert.Equal(t, `[{"name":"a","value":1}]`, data)
}

func TestPost_StatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":{"code":"RATE_LIMITED","message":"slow down","request_id":"r"}}`))
	}))
	defer srv.Close()

	_, err := New(srv.URL, time.Second).ClassifyChartType(context.Background(), "x", "")

	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusTooManyRequests, statusErr.StatusCode)
	assert.Equal(t, "RATE_LIMITED", statusErr.Code)
	assert.Equal(t, "server returned 429 RATE_LIMITED: slow down", err.Error())
}

func TestPost_StatusErrorWithoutEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := New(srv.URL, time.Second).GenerateChartData(context.Background(), "p", "")
	assert.EqualError(t, err, "server returned 502")
}

func TestPost_ContextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(srv.URL, time.Second).ClassifyChartType(ctx, "x", "")
	assert.ErrorIs(t, err, context.Canceled)
}
