package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dialStream(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/v1/stream"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestStream_StepsThenSummary(t *testing.T) {
	ts := newTestServer(t)
	conn := dialStream(t, ts)

	require.NoError(t, conn.WriteJSON(map[string]interface{}{
		"trade_count": 4,
		"seed":        11,
	}))

	for trade := 0; trade <= 4; trade++ {
		var frame StreamFrame
		require.NoError(t, conn.ReadJSON(&frame))
		assert.Equal(t, FrameStep, frame.Type)
		assert.Equal(t, trade, frame.Trade)
		// capped at MaxStreamPaths
		require.Len(t, frame.Balances, 3)
		if trade == 0 {
			assert.Equal(t, []float64{100, 100, 100}, frame.Balances)
		}
	}

	var summary StreamFrame
	require.NoError(t, conn.ReadJSON(&summary))
	assert.Equal(t, FrameSummary, summary.Type)
	assert.NotEmpty(t, summary.RunID)
	assert.Equal(t, uint64(11), summary.Seed)
	require.NotNil(t, summary.Summary)
	assert.Equal(t, 50, summary.Summary.SimulationCount)
}

func TestStream_PathsBelowCap(t *testing.T) {
	ts := newTestServer(t)
	conn := dialStream(t, ts)

	require.NoError(t, conn.WriteJSON(map[string]interface{}{"trade_count": 1, "paths": 2}))

	var frame StreamFrame
	require.NoError(t, conn.ReadJSON(&frame))
	assert.Len(t, frame.Balances, 2)
}

func TestStream_InvalidRequest(t *testing.T) {
	ts := newTestServer(t)
	conn := dialStream(t, ts)

	require.NoError(t, conn.WriteJSON(map[string]interface{}{"risk_fraction": 2}))

	var frame StreamFrame
	require.NoError(t, conn.ReadJSON(&frame))
	assert.Equal(t, FrameError, frame.Type)
	assert.Contains(t, frame.Error, "risk_fraction")
}

func TestStream_Overflow(t *testing.T) {
	ts := newTestServer(t)
	conn := dialStream(t, ts)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(overflowBody)))

	var frame StreamFrame
	require.NoError(t, conn.ReadJSON(&frame))
	assert.Equal(t, FrameError, frame.Type)
	assert.Contains(t, frame.Error, "non-finite")
}

func TestStream_UnknownField(t *testing.T) {
	ts := newTestServer(t)
	conn := dialStream(t, ts)

	require.NoError(t, conn.WriteJSON(map[string]interface{}{"trade_cuont": 3}))

	var frame StreamFrame
	require.NoError(t, conn.ReadJSON(&frame))
	assert.Equal(t, FrameError, frame.Type)
	assert.Contains(t, frame.Error, "unknown field")
}

func TestStream_NegativePathLimit(t *testing.T) {
	ts := newTestServer(t, func(o *Options) { o.Limits.MaxStreamPaths = -1 })
	conn := dialStream(t, ts)

	require.NoError(t, conn.WriteJSON(map[string]interface{}{"trade_count": 2}))

	for trade := 0; trade <= 2; trade++ {
		var frame StreamFrame
		require.NoError(t, conn.ReadJSON(&frame))
		assert.Equal(t, FrameStep, frame.Type)
		assert.Empty(t, frame.Balances)
	}

	var summary StreamFrame
	require.NoError(t, conn.ReadJSON(&summary))
	assert.Equal(t, FrameSummary, summary.Type)
}

func TestStream_Origin(t *testing.T) {
	tests := []struct {
		name    string
		allowed []string
		origin  func(ts *httptest.Server) string
		ok      bool
	}{
		{"same host", nil, func(ts *httptest.Server) string { return ts.URL }, true},
		{"foreign rejected", nil, func(*httptest.Server) string { return "https://evil.example" }, false},
		{"listed", []string{"https://dash.example.com"}, func(*httptest.Server) string { return "https://dash.example.com" }, true},
		{"wildcard", []string{"*"}, func(*httptest.Server) string { return "https://evil.example" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t, func(o *Options) { o.AllowedOrigins = tt.allowed })
			wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/v1/stream"

			conn, resp, err := websocket.DefaultDialer.Dial(wsURL, http.Header{"Origin": {tt.origin(ts)}})
			if tt.ok {
				require.NoError(t, err)
				conn.Close()
				return
			}
			require.Error(t, err)
			require.NotNil(t, resp)
			assert.Equal(t, http.StatusForbidden, resp.StatusCode)
		})
	}
}
