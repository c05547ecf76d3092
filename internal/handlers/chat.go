package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/NguyenVanDuc36/AffiliHub/internal/apperr"
	"github.com/NguyenVanDuc36/AffiliHub/internal/llm"
	"github.com/NguyenVanDuc36/AffiliHub/pkg/logging"
)

type ChatService interface {
	Reply(ctx context.Context, sessionID, message string) (string, error)
	ReplyStream(ctx context.Context, sessionID, message string) (<-chan llm.StreamResult, error)
	History(sessionID string) []llm.ChatMessage
}

type ChatRequest struct {
	SessionID string `json:"sessionId"`
	Message   string `json:"message"`
	Stream    bool   `json:"stream"`
}

type ChatResponse struct {
	Message string `json:"message"`
}

type HistoryResponse struct {
	SessionID string            `json:"sessionId"`
	Messages  []llm.ChatMessage `json:"messages"`
}

// ChatHandler holds dependencies for the /api/ai/chat endpoints.
type ChatHandler struct {
	Assistant ChatService
}

func NewChatHandler(a ChatService) *ChatHandler {
	return &ChatHandler{Assistant: a}
}

// Chat handles POST /api/ai/chat. With "stream": true the answer is sent
// as server-sent events, one {"delta": ...} per chunk, closed by
// "data: [DONE]".
func (h *ChatHandler) Chat(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()

	var req ChatRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	logger := logging.L(ctx).With(zap.String("session_id", req.SessionID), zap.Bool("stream", req.Stream))

	if req.Stream {
		h.stream(w, r, logger, req, start)
		return
	}

	reply, err := h.Assistant.Reply(ctx, req.SessionID, req.Message)
	if err != nil {
		writeError(w, r, err)
		return
	}
	logger.Info("chat_reply", zap.Int64("total_latency_ms", time.Since(start).Milliseconds()))
	writeJSON(w, http.StatusOK, ChatResponse{Message: reply})
}

// History handles GET /api/ai/chat/{sessionId}.
func (h *ChatHandler) History(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionId")
	msgs := h.Assistant.History(id)
	if msgs == nil {
		msgs = []llm.ChatMessage{}
	}
	writeJSON(w, http.StatusOK, HistoryResponse{SessionID: id, Messages: msgs})
}

func (h *ChatHandler) stream(w http.ResponseWriter, r *http.Request, logger *zap.Logger, req ChatRequest, start time.Time) {
	ctx := r.Context()

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, r, errors.New("streaming not supported by this connection"))
		return
	}

	stream, err := h.Assistant.ReplyStream(ctx, req.SessionID, req.Message)
	if err != nil {
		writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	chunks := 0
	for res := range stream {
		if res.Err != nil {
			logger.Warn("chat_stream_error", zap.Error(res.Err))
			writeEvent(w, "error", ErrorResponse{Error: apperr.Code(res.Err), Message: res.Err.Error()})
			flusher.Flush()
			return
		}
		if res.Chunk == nil || res.Chunk.Delta == "" {
			continue
		}
		chunks++
		writeEvent(w, "", map[string]string{"delta": res.Chunk.Delta})
		flusher.Flush()
	}

	if ctx.Err() != nil {
		logger.Info("chat_stream_aborted", zap.Error(ctx.Err()))
		return
	}
	_, _ = fmt.Fprint(w, "data: [DONE]\n\n")
	flusher.Flush()

	logger.Info("chat_stream_done",
		zap.Int("chunks", chunks),
		zap.Int64("total_latency_ms", time.Since(start).Milliseconds()),
	)
}

func writeEvent(w http.ResponseWriter, event string, v any) {
	data, _ := json.Marshal(v)
	if event != "" {
		_, _ = fmt.Fprintf(w, "event: %s\n", event)
	}
	_, _ = fmt.Fprintf(w, "data: %s\n\n", data)
}
