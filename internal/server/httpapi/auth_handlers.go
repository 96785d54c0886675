package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"cipherchat/internal/api"
)

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req api.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.UserName == "" || req.Password == "" || req.PublicKey == "" {
		writeError(w, http.StatusBadRequest, "username, password and public_key are required")
		return
	}

	profile, err := s.profiles.Register(r.Context(), req.UserName, req.DisplayName, req.PublicKey, []byte(req.Password))
	if err != nil {
		s.logger.Error(r.Context(), "registration failed", "error", err)
		writeServiceError(w, err)
		return
	}

	s.logger.Info(r.Context(), "registered", "username", req.UserName)
	writeJSON(w, http.StatusCreated, toAPIProfile(profile))
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req api.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	profile, pair, err := s.profiles.Login(r.Context(), req.UserName, []byte(req.Password))
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	writeJSON(w, http.StatusOK, api.TokenResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		Profile:      toAPIProfile(profile),
	})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req api.RefreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	pair, err := s.profiles.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, api.TokenResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	})
}

func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	profile, err := s.profiles.GetByID(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toAPIProfile(profile))
}

func (s *Server) handleSearchProfiles(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")

	found, err := s.profiles.Search(r.Context(), query, 50)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	result := make([]*api.Profile, 0, len(found))
	for _, p := range found {
		result = append(result, toAPIProfile(p))
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleUpdatePublicKey(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PublicKey string `json:"public_key"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.PublicKey == "" {
		writeError(w, http.StatusBadRequest, "public_key is required")
		return
	}

	userID := userIDFromContext(r.Context())
	if err := s.profiles.UpdatePublicKey(r.Context(), userID, req.PublicKey); err != nil {
		writeServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
