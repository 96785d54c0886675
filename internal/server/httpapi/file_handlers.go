package httpapi

import (
	"net/http"

	"cipherchat/internal/api"
	"cipherchat/internal/server/ws"
)

func (s *Server) handlePresignPut(w http.ResponseWriter, r *http.Request) {
	userID := userIDFromContext(r.Context())

	key, url, err := s.files.PresignPut(r.Context(), userID)
	if err != nil {
		s.logger.Error(r.Context(), "presign put failed", "error", err)
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, api.PresignPutResponse{StorageKey: key, URL: url})
}

func (s *Server) handlePresignGet(w http.ResponseWriter, r *http.Request) {
	key := r.URL.Query().Get("key")
	if key == "" {
		writeError(w, http.StatusBadRequest, "key query parameter is required")
		return
	}

	url, err := s.files.PresignGet(r.Context(), key)
	if err != nil {
		s.logger.Error(r.Context(), "presign get failed", "error", err)
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, api.PresignGetResponse{URL: url})
}

// handleWS authenticates the handshake itself: the websocket endpoint sits
// outside the authed subrouter so it can accept the token via query
// parameter as well as header.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	userID, err := s.userIDFromRequest(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	if err := ws.ServeWS(s.hub, userID, w, r); err != nil {
		s.logger.Error(r.Context(), "websocket upgrade failed", "error", err)
	}
}
