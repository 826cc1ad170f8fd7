package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"

	"procura-backend/internal/models"
	"procura-backend/internal/repository"
	"procura-backend/internal/services"
)

type ChatHandler struct {
	chatService *services.ChatService
	streamer    *services.Streamer
}

func NewChatHandler(chatService *services.ChatService, streamer *services.Streamer) *ChatHandler {
	return &ChatHandler{
		chatService: chatService,
		streamer:    streamer,
	}
}

func (h *ChatHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.chatService.Health(r.Context()))
}

func (h *ChatHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.chatService.Stats(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("STATS_ERROR", "Failed to compute dataset stats", r))
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *ChatHandler) Chat(w http.ResponseWriter, r *http.Request) {
	var req models.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	if strings.TrimSpace(req.Message) == "" {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Message is required", r))
		return
	}

	writeJSON(w, http.StatusOK, h.chatService.Chat(r.Context(), req))
}

// ChatStream serves the staged progress/content protocol over SSE.
func (h *ChatHandler) ChatStream(w http.ResponseWriter, r *http.Request) {
	var req models.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeJSON(w, http.StatusInternalServerError, errorResp("STREAMING_UNSUPPORTED", "Streaming is not supported by this connection", r))
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ctx := r.Context()
	sink := func(ev models.StreamEvent) error {
		// A closed client connection cancels the request context; that is
		// the signal for the state machine to stop advancing.
		if err := ctx.Err(); err != nil {
			return err
		}
		data, err := json.Marshal(ev)
		if err != nil {
			return err
		}
		if _, err := w.Write([]byte("data: " + string(data) + "\n\n")); err != nil {
			return err
		}
		flusher.Flush()
		return nil
	}

	h.streamer.Run(ctx, req, sink)
}

func (h *ChatHandler) DirectQuery(w http.ResponseWriter, r *http.Request) {
	var req models.QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	data, err := h.chatService.DirectQuery(r.Context(), req.SQL)
	if err != nil {
		switch e := err.(type) {
		case *services.ValidationError:
			writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", e.Message, r))
		case *repository.ExecutionError:
			writeJSON(w, http.StatusInternalServerError, errorResp("EXECUTION_ERROR", e.Message, r))
		default:
			writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Query execution failed", r))
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"data": data})
}

func (h *ChatHandler) Details(w http.ResponseWriter, r *http.Request) {
	var req models.DetailRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	resp, err := h.chatService.Details(r.Context(), req)
	if err != nil {
		switch e := err.(type) {
		case *services.ValidationError:
			writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", e.Message, r))
		default:
			log.Printf("details query failed: %v", e)
			writeJSON(w, http.StatusInternalServerError, errorResp("EXECUTION_ERROR", "Failed to load details", r))
		}
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// Suggestions degrades to an empty list on every failure; it never reports
// an error to the client.
func (h *ChatHandler) Suggestions(w http.ResponseWriter, r *http.Request) {
	var req models.SuggestionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusOK, models.SuggestionResponse{Suggestions: []string{}})
		return
	}

	suggestions := h.chatService.Suggestions(r.Context(), req)
	writeJSON(w, http.StatusOK, models.SuggestionResponse{Suggestions: suggestions})
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func errorResp(code, message string, r *http.Request) models.ErrorResponse {
	return models.ErrorResponse{
		Error: models.APIError{
			Code:      code,
			Message:   message,
			RequestID: r.Header.Get("X-Request-ID"),
		},
	}
}
