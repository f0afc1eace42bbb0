package server

import (
	"encoding/json"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"doris-rag/internal/domain"
)

// ChatRequest is the body of POST /api/chat.
type ChatRequest struct {
	Query   string        `json:"query"`
	History []domain.Turn `json:"history"`
}

type errorResponse struct {
	Detail string `json:"detail"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	for i, t := range req.History {
		if !t.Role.Valid() {
			s.respondError(w, http.StatusBadRequest, fmt.Sprintf("history[%d]: role must be user or assistant, got %q", i, t.Role))
			return
		}
	}
	ans, err := s.chat.HandleTurn(r.Context(), req.Query, req.History)
	if err != nil {
		s.logger.Error("chat failed", zap.Error(err))
		s.respondError(w, http.StatusBadGateway, err.Error())
		return
	}
	if ans.Sources == nil {
		ans.Sources = []domain.Source{}
	}
	s.respondJSON(w, http.StatusOK, ans)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("encode response", zap.Error(err))
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, detail string) {
	s.respondJSON(w, status, errorResponse{Detail: detail})
}
