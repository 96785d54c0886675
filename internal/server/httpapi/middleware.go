package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"cipherchat/internal/api"
	"cipherchat/internal/common"
	"cipherchat/internal/server/auth"
)

type contextKey string

const userIDKey contextKey = "user_id"

// authMiddleware validates the bearer access token and stores the user ID in
// the request context. Expired tokens get a distinct error body so clients
// know to refresh rather than re-login.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, err := s.userIDFromRequest(r)
		if err != nil {
			if errors.Is(err, common.ErrTokenExpired) {
				writeError(w, http.StatusUnauthorized, common.ErrTokenExpired.Error())
				return
			}
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		ctx := context.WithValue(r.Context(), userIDKey, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// userIDFromRequest extracts and validates the access token. It accepts the
// Authorization header ("Bearer <token>" or the bare token) and, for the
// websocket handshake where headers are awkward for browser clients, an
// access_token query parameter.
func (s *Server) userIDFromRequest(r *http.Request) (string, error) {
	token := r.Header.Get(common.AccessTokenHeaderName)
	token = strings.TrimPrefix(token, "Bearer ")
	if token == "" {
		token = r.URL.Query().Get("access_token")
	}
	if token == "" {
		return "", common.ErrInvalidToken
	}
	return auth.GetUserIDFromToken(token, s.jwtSecret)
}

func userIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(userIDKey).(string)
	return id
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, api.ErrorResponse{Error: msg})
}

// writeServiceError maps sentinel errors to status codes.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, common.ErrorNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, common.ErrorUnauthorized):
		writeError(w, http.StatusForbidden, "forbidden")
	case errors.Is(err, common.ErrInvalidFormat):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, common.ErrRefreshTokenExpired):
		writeError(w, http.StatusUnauthorized, common.ErrRefreshTokenExpired.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
