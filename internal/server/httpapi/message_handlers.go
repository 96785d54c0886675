package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"cipherchat/internal/api"
)

func (s *Server) handleListDirectMessages(w http.ResponseWriter, r *http.Request) {
	peerID := r.URL.Query().Get("peer")
	if peerID == "" {
		writeError(w, http.StatusBadRequest, "peer query parameter is required")
		return
	}

	userID := userIDFromContext(r.Context())
	messages, err := s.directMsg.ListConversation(r.Context(), userID, peerID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	result := make([]*api.DirectMessage, 0, len(messages))
	for _, m := range messages {
		result = append(result, toAPIDirectMessage(m))
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleSendDirectMessage(w http.ResponseWriter, r *http.Request) {
	var req api.SendDirectMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.RecipientID == "" {
		writeError(w, http.StatusBadRequest, "recipient_id is required")
		return
	}

	userID := userIDFromContext(r.Context())
	msg, err := s.directMsg.Send(r.Context(), userID, req.RecipientID,
		req.EncryptedContent, req.IV, req.ContentType, req.FileURL)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	dto := toAPIDirectMessage(msg)
	s.hub.Broadcast(&api.Event{
		Type:          api.EventInsert,
		Table:         api.TableDirectMessages,
		DirectMessage: dto,
	})

	writeJSON(w, http.StatusCreated, dto)
}

func (s *Server) handleMarkRead(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	userID := userIDFromContext(r.Context())
	if err := s.directMsg.MarkRead(r.Context(), id, userID); err != nil {
		writeServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleUnreadCount(w http.ResponseWriter, r *http.Request) {
	userID := userIDFromContext(r.Context())

	count, err := s.directMsg.CountUnread(r.Context(), userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, api.UnreadCountResponse{Count: count})
}
