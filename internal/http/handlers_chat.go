package http

import (
	"net/http"
	"strconv"
	"time"

	"ledgerchat/internal/core"
)

type chatRequest struct {
	Message string `json:"message"`
}

type chatResponse struct {
	Reply  string `json:"reply"`
	Intent string `json:"intent"`
}

type chatMessageResponse struct {
	ID        int64  `json:"id"`
	Role      string `json:"role"`
	Body      string `json:"body"`
	Intent    string `json:"intent,omitempty"`
	CreatedAt string `json:"created_at"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	reply, err := s.chat.Handle(r.Context(), currentUser(r), req.Message)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, chatResponse{Reply: reply.Text, Intent: reply.Intent})
}

func (s *Server) handleChatHistory(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	messages, err := s.chat.History(r.Context(), currentUser(r), limit)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	out := make([]chatMessageResponse, 0, len(messages))
	for _, m := range messages {
		out = append(out, toChatMessageResponse(m))
	}
	respondJSON(w, http.StatusOK, map[string]any{"messages": out})
}

func toChatMessageResponse(m core.ChatMessage) chatMessageResponse {
	return chatMessageResponse{
		ID:        m.ID,
		Role:      m.Role,
		Body:      m.Body,
		Intent:    m.Intent,
		CreatedAt: m.CreatedAt.UTC().Format(time.RFC3339),
	}
}
