package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"metrosched/internal/metrics"
)

var upgrader = websocket.Upgrader{CheckOrigin: func(_ *http.Request) bool { return true }}

// RunsHandler dispatches /v1/runs/{id}/metrics and /v1/runs/{id}/stream.
func (s *Server) RunsHandler(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/v1/runs/")
	parts := strings.Split(rest, "/")
	if len(parts) == 2 && parts[1] == "stream" {
		s.runStream(w, r, parts[0])
		return
	}
	s.RunMetricsHandler(w, r)
}

// runStream upgrades to a websocket and forwards run events published under
// the given key. The key is a run id, or a depot name to follow runs that
// have not started yet.
func (s *Server) runStream(w http.ResponseWriter, r *http.Request, key string) {
	if key == "" {
		writeProblem(w, http.StatusNotFound, "Not Found", "missing id", r.URL.Path)
		return
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer func() { _ = conn.Close() }()

	metrics.StreamClients.Inc()
	defer metrics.StreamClients.Dec()

	ch := s.Broker.Subscribe(key)
	defer s.Broker.Unsubscribe(key, ch)

	// reader goroutine to detect client close
	done := make(chan struct{})
	go func() {
		defer close(done)
		conn.SetReadLimit(1 << 16)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(20 * time.Second)
	defer ping.Stop()
	for {
		select {
		case evt, ok := <-ch:
			if !ok {
				return
			}
			if err := conn.WriteJSON(evt); err != nil {
				return
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second)); err != nil {
				return
			}
		case <-done:
			return
		case <-r.Context().Done():
			return
		}
	}
}
