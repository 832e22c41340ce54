package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"trade-montecarlo-lab/internal/domain"
	"trade-montecarlo-lab/internal/observability"
)

// Stream frame types.
const (
	FrameStep    = "step"
	FrameSummary = "summary"
	FrameError   = "error"
)

// StreamFrame is one websocket message sent to the client.
// Step frames carry the balances of the streamed paths after Trade trades.
type StreamFrame struct {
	Type     string                    `json:"type"`
	Trade    int                       `json:"trade,omitempty"`
	Balances []float64                 `json:"balances,omitempty"`
	RunID    string                    `json:"run_id,omitempty"`
	Seed     uint64                    `json:"seed,omitempty"`
	Summary  *domain.SummaryStatistics `json:"summary,omitempty"`
	Error    string                    `json:"error,omitempty"`
}

// handleStream upgrades to a websocket, reads one SimulateRequest, runs it and
// replays up to MaxStreamPaths paths trade by trade, followed by a summary frame.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	observability.StreamOpened()
	defer observability.StreamClosed()

	logger := s.logger.With(zap.String("request_id", RequestID(r.Context())))

	req := SimulateRequest{SimulationParameters: s.defaults}
	if err := readRequest(conn, &req); err != nil {
		s.sendFrame(conn, StreamFrame{Type: FrameError, Error: "decode request: " + err.Error()})
		return
	}
	if err := s.checkSimulateLimits(req.SimulationParameters); err != nil {
		s.sendFrame(conn, StreamFrame{Type: FrameError, Error: err.Error()})
		return
	}

	result, err := s.orch.Run(r.Context(), req.SimulationParameters, req.Seed)
	if err != nil {
		s.sendFrame(conn, StreamFrame{Type: FrameError, Error: err.Error()})
		return
	}
	s.recordRun(&s.streamRuns, result.RunID)

	n := max(s.limits.MaxStreamPaths, 0)
	if req.Paths > 0 {
		n = min(n, req.Paths)
	}
	paths := result.Batch.Paths[:min(n, len(result.Batch.Paths))]

	for t := 0; t <= req.TradeCount; t++ {
		balances := make([]float64, len(paths))
		for i, p := range paths {
			balances[i] = p[t]
		}
		if err := s.sendFrame(conn, StreamFrame{Type: FrameStep, Trade: t, Balances: balances}); err != nil {
			logger.Debug("stream stopped", zap.Int("trade", t), zap.Error(err))
			return
		}
	}

	s.sendFrame(conn, StreamFrame{
		Type:    FrameSummary,
		RunID:   result.RunID,
		Seed:    result.Seed,
		Summary: result.Summary,
	})

	// Close handshake; the client may already be gone.
	deadline := time.Now().Add(s.writeTimeout)
	conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
}

// readRequest decodes one message the way decodeJSON decodes a request body:
// unknown fields are rejected and an empty message keeps the defaults.
func readRequest(conn *websocket.Conn, v interface{}) error {
	conn.SetReadLimit(maxBodyBytes)
	_, r, err := conn.NextReader()
	if err != nil {
		return err
	}
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// sendFrame encodes frame before writing. A frame that cannot be encoded is
// replaced by an error frame and its encoding error is returned.
func (s *Server) sendFrame(conn *websocket.Conn, frame StreamFrame) error {
	data, encErr := json.Marshal(frame)
	if encErr != nil {
		s.logger.Error("encode stream frame", zap.String("type", frame.Type), zap.Error(encErr))
		data, _ = json.Marshal(StreamFrame{Type: FrameError, Error: "encode frame: " + encErr.Error()})
	}

	conn.SetWriteDeadline(time.Now().Add(s.writeTimeout))
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return err
	}
	observability.RecordStreamFrame()
	return encErr
}
