package main

import (
	"bytes"
	"context"
	"encoding/json"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"chartgpt-backend/internal/models"
)

func fakeServer(t *testing.T, label, data string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/get-type", func(w http.ResponseWriter, r *http.Request) {
		var req models.GetTypeRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "sk-user", req.APIKey)
		json.NewEncoder(w).Encode(label)
	})
	mux.HandleFunc("/api/parse-graph", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(data)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestRun_WritesChart(t *testing.T) {
	srv := fakeServer(t, "Line", `[{"name":"jan","value":3},{"name":"feb","value":5}]`)
	out := filepath.Join(t.TempDir(), "chart.png")

	var stdout bytes.Buffer
	err := run(context.Background(), options{server: srv.URL, apiKey: "sk-user", out: out}, "sales by month", &stdout, zaptest.NewLogger(t))
	require.NoError(t, err)
	assert.Equal(t, "line chart with 2 points written to "+out+"\n", stdout.String())

	f, err := os.Open(out)
	require.NoError(t, err)
	defer f.Close()
	_, err = png.Decode(f)
	assert.NoError(t, err)
}

func TestRun_GenericFailure(t *testing.T) {
	srv := fakeServer(t, "bubble", `[]`)
	out := filepath.Join(t.TempDir(), "chart.png")

	err := run(context.Background(), options{server: srv.URL, apiKey: "sk-user", out: out}, "x", &bytes.Buffer{}, zaptest.NewLogger(t))
	assert.EqualError(t, err, models.GenericErrorMessage)
	assert.NoFileExists(t, out)
}
