package slogx_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/aussiebroadwan/squeezy/pkg/slogx"
	"github.com/stretchr/testify/require"
)

func TestNew_JSONWithBaseAttrs(t *testing.T) {
	var buf bytes.Buffer
	log := slogx.New(slogx.Config{Service: "squeezy", Version: "test", Env: "test", Level: "debug", Output: &buf})

	log.Debug("hello", "k", "v")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	require.Equal(t, "hello", line["msg"])
	require.Equal(t, "squeezy", line["service"])
	require.Equal(t, "v", line["k"])
}

func TestNew_LevelFilters(t *testing.T) {
	var buf bytes.Buffer
	log := slogx.New(slogx.Config{Level: "warn", Output: &buf})

	log.Info("dropped")
	require.Zero(t, buf.Len())

	log.Warn("kept")
	require.NotZero(t, buf.Len())
}

func TestHTTPMiddleware_RequestLogger(t *testing.T) {
	var buf bytes.Buffer
	base := slogx.New(slogx.Config{Output: &buf})

	h := slogx.HTTPMiddleware(base)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		slogx.FromContext(r.Context()).Info("inside")
		w.WriteHeader(http.StatusCreated)
	}))

	req := httptest.NewRequest(http.MethodGet, "/v1/auctions", nil)
	req.Header.Set("X-Request-ID", "req-123")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	require.Equal(t, "req-123", rec.Header().Get("X-Request-ID"))

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 2)

	var inside, access map[string]any
	require.NoError(t, json.Unmarshal(lines[0], &inside))
	require.NoError(t, json.Unmarshal(lines[1], &access))
	require.Equal(t, "req-123", inside["req_id"])
	require.Equal(t, "http_request", access["msg"])
	require.EqualValues(t, http.StatusCreated, access["status"])
	require.Equal(t, "INFO", access["level"])
}

func TestHTTPMiddleware_ErrorStatusLevel(t *testing.T) {
	var buf bytes.Buffer
	base := slogx.New(slogx.Config{Output: &buf})

	h := slogx.HTTPMiddleware(base)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	require.Equal(t, "ERROR", line["level"])
}

func TestParseLevel(t *testing.T) {
	for in, want := range map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"Warn":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"loud":    slog.LevelInfo,
	} {
		require.Equal(t, want, slogx.ParseLevel(in), in)
	}
}

func TestWith_ExtendsRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	base := slogx.New(slogx.Config{Output: &buf})

	ctx := slogx.WithContext(context.Background(), base)
	ctx = slogx.With(ctx, "user_id", "u1")
	slogx.FromContext(ctx).Info("bid placed")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	require.Equal(t, "u1", line["user_id"])
}
