package api

import (
	"log"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/gaitworks/plantar.report/internal/gait"
	"github.com/gaitworks/plantar.report/internal/insole"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Dashboard is served from the same origin; dev tooling connects
	// from localhost variants.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// liveMessage is one websocket payload: the full sample plus its derived
// CoP, pushed on every validated frame.
type liveMessage struct {
	Sample insole.PressureSample `json:"sample"`
	CoP    gait.CenterOfPressure `json:"cop"`
}

// liveHandler upgrades the connection and streams each published sample
// until the client disconnects. Slow clients miss samples rather than
// stalling the decode path.
func (s *Server) liveHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	id, samples := s.decoder.Subscribe()
	defer s.decoder.Unsubscribe(id)

	// Reader goroutine drains client frames so pings/closes are
	// processed and signals disconnect.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case sample, ok := <-samples:
			if !ok {
				return
			}
			msg := liveMessage{Sample: sample, CoP: gait.ComputeCoP(sample)}
			if err := conn.WriteJSON(msg); err != nil {
				return
			}
		case <-done:
			return
		case <-r.Context().Done():
			return
		}
	}
}
