package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePinger struct {
	err error
}

func (p *fakePinger) Ping(ctx context.Context) error { return p.err }

func newTestServer(store StorePinger) *Server {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return NewServer(Config{
		ServiceName: "replay-labeller",
		Version:     "test",
		Commit:      "abc123",
		Port:        8081,
		Logger:      logger,
		Store:       store,
	})
}

func TestHandleHealth(t *testing.T) {
	s := newTestServer(nil)

	rec := httptest.NewRecorder()
	s.handleHealth(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp statusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "replay-labeller", resp.Service)
	assert.Equal(t, "test", resp.Version)
}

func TestHandleReadyNotReady(t *testing.T) {
	s := newTestServer(&fakePinger{})

	rec := httptest.NewRecorder()
	s.handleReady(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestHandleReadyHealthy(t *testing.T) {
	s := newTestServer(&fakePinger{})
	s.SetReady(true)
	s.RecordRun(time.Date(2024, 3, 16, 18, 0, 0, 0, time.UTC))

	rec := httptest.NewRecorder()
	s.handleReady(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp readyResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Checks["store"])
	assert.Equal(t, "2024-03-16T18:00:00Z", resp.LastRun)
}

func TestHandleReadyStoreDown(t *testing.T) {
	s := newTestServer(&fakePinger{err: errors.New("locked")})
	s.SetReady(true)

	rec := httptest.NewRecorder()
	s.handleReady(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	var resp readyResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Contains(t, resp.Checks["store"], "locked")
}
