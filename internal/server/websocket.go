package server

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/MeKo-Tech/qdocr/internal/pipeline"
)

const (
	wsPongWait   = 60 * time.Second
	wsPingPeriod = 30 * time.Second
	wsWriteWait  = 10 * time.Second
)

// wsHandler upgrades to a websocket. Each binary frame is one encoded image;
// the reply is its JSON record or {"error": ...}. Add ?explain=1 to the
// upgrade URL for diagnostics.
func (s *Server) wsHandler(w http.ResponseWriter, r *http.Request) {
	if s.pipeline == nil {
		s.writeError(w, r, "Pipeline not initialized", http.StatusServiceUnavailable)
		return
	}
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("Failed to upgrade connection to WebSocket", "error", err)
		return
	}
	defer func() { _ = conn.Close() }()

	s.metrics.wsConnections.Inc()
	defer s.metrics.wsConnections.Dec()

	requestID := RequestID(r.Context())
	s.logger.Info("WebSocket connection established", "request_id", requestID, "remote_addr", r.RemoteAddr)

	explain := wantExplain(r)
	conn.SetReadLimit(s.maxUploadBytes())
	_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	var writeMu sync.Mutex
	done := make(chan struct{})
	defer close(done)
	go func() {
		ticker := time.NewTicker(wsPingPeriod)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				writeMu.Lock()
				err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteWait))
				writeMu.Unlock()
				if err != nil {
					return
				}
			}
		}
	}()

	send := func(v any) bool {
		writeMu.Lock()
		defer writeMu.Unlock()
		_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
		if err := conn.WriteJSON(v); err != nil {
			s.logger.Warn("WebSocket write failed", "request_id", requestID, "error", err)
			return false
		}
		s.metrics.wsMessages.WithLabelValues("sent").Inc()
		return true
	}

	for frame := 1; ; frame++ {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Warn("WebSocket closed", "request_id", requestID, "error", err)
			}
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
		s.metrics.wsMessages.WithLabelValues("received").Inc()

		if messageType != websocket.BinaryMessage {
			if !send(ErrorResponse{Error: "expected a binary image frame", RequestID: requestID}) {
				return
			}
			continue
		}

		name := "frame-" + strconv.Itoa(frame)
		res, err := s.process(r.Context(), name, data)
		if err != nil {
			s.metrics.observeFailure("websocket", err)
			if !send(ErrorResponse{Error: err.Error(), RequestID: requestID}) {
				return
			}
			continue
		}
		s.metrics.observeResult("websocket", res)

		rec := res.Record(explain)
		if s.cfg.Validate {
			if err := pipeline.ValidateRecord(&rec); err != nil {
				if !send(ErrorResponse{Error: "record failed schema check: " + err.Error(), RequestID: requestID}) {
					return
				}
				continue
			}
		}
		if !send(rec) {
			return
		}
	}
}
