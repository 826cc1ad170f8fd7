package websocket

import (
	"log"
	"net/http"

	"github.com/gorilla/websocket"

	"procura-backend/internal/models"
	"procura-backend/internal/services"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// StreamHub serves the staged chat protocol over WebSocket: one request
// frame in, the full event sequence out, then the connection closes. Each
// event is a single JSON text message, same shapes as the SSE path.
type StreamHub struct {
	streamer *services.Streamer
}

func NewStreamHub(streamer *services.Streamer) *StreamHub {
	return &StreamHub{streamer: streamer}
}

func (h *StreamHub) HandleStream(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	var req models.ChatRequest
	if err := conn.ReadJSON(&req); err != nil {
		conn.WriteJSON(models.StreamEvent{
			Type:    models.EventError,
			Content: "Invalid request frame",
			Done:    true,
		})
		return
	}

	sink := func(ev models.StreamEvent) error {
		return conn.WriteJSON(ev)
	}

	h.streamer.Run(r.Context(), req, sink)

	conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}
