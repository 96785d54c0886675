// Package httpapi exposes the server's REST surface and the websocket
// endpoint. Handlers decode JSON, delegate to the domain services, notify the
// realtime hub after successful inserts, and translate sentinel errors into
// HTTP status codes.
package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"

	"cipherchat/internal/logging"
	"cipherchat/internal/server/config"
	"cipherchat/internal/server/directmsgs"
	"cipherchat/internal/server/files"
	"cipherchat/internal/server/groupmsgs"
	"cipherchat/internal/server/groups"
	"cipherchat/internal/server/profiles"
	"cipherchat/internal/server/ws"
)

type Server struct {
	profiles  *profiles.Service
	directMsg *directmsgs.Service
	groups    *groups.Service
	groupMsg  *groupmsgs.Service
	files     *files.Service
	hub       *ws.Hub
	logger    logging.Logger
	jwtSecret []byte
}

func NewServer(
	ps *profiles.Service,
	dms *directmsgs.Service,
	gs *groups.Service,
	gms *groupmsgs.Service,
	fs *files.Service,
	hub *ws.Hub,
	logger logging.Logger,
	cfg *config.Config,
) *Server {
	return &Server{
		profiles:  ps,
		directMsg: dms,
		groups:    gs,
		groupMsg:  gms,
		files:     fs,
		hub:       hub,
		logger:    logger.With("module", "httpapi"),
		jwtSecret: []byte(cfg.SecretKey),
	}
}

// Router builds the full route table. Everything under /api except register,
// login, and refresh requires a valid access token.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/api/register", s.handleRegister).Methods(http.MethodPost)
	r.HandleFunc("/api/login", s.handleLogin).Methods(http.MethodPost)
	r.HandleFunc("/api/refresh", s.handleRefresh).Methods(http.MethodPost)

	authed := r.PathPrefix("/api").Subrouter()
	authed.Use(s.authMiddleware)

	authed.HandleFunc("/profiles/search", s.handleSearchProfiles).Methods(http.MethodGet)
	authed.HandleFunc("/profiles/{id}", s.handleGetProfile).Methods(http.MethodGet)
	authed.HandleFunc("/profiles/me/public-key", s.handleUpdatePublicKey).Methods(http.MethodPut)

	authed.HandleFunc("/direct-messages", s.handleListDirectMessages).Methods(http.MethodGet)
	authed.HandleFunc("/direct-messages", s.handleSendDirectMessage).Methods(http.MethodPost)
	authed.HandleFunc("/direct-messages/unread-count", s.handleUnreadCount).Methods(http.MethodGet)
	authed.HandleFunc("/direct-messages/{id}/read", s.handleMarkRead).Methods(http.MethodPost)

	authed.HandleFunc("/groups", s.handleCreateGroup).Methods(http.MethodPost)
	authed.HandleFunc("/groups", s.handleListGroups).Methods(http.MethodGet)
	authed.HandleFunc("/groups/{id}/membership", s.handleGetMembership).Methods(http.MethodGet)
	authed.HandleFunc("/groups/{id}/members", s.handleListMembers).Methods(http.MethodGet)
	authed.HandleFunc("/groups/{id}/members", s.handleAddMember).Methods(http.MethodPost)
	authed.HandleFunc("/groups/{id}/members/{userID}", s.handleRemoveMember).Methods(http.MethodDelete)
	authed.HandleFunc("/groups/{id}/messages", s.handleListGroupMessages).Methods(http.MethodGet)
	authed.HandleFunc("/groups/{id}/messages", s.handleSendGroupMessage).Methods(http.MethodPost)

	authed.HandleFunc("/files/presign-put", s.handlePresignPut).Methods(http.MethodPost)
	authed.HandleFunc("/files/presign-get", s.handlePresignGet).Methods(http.MethodGet)

	r.HandleFunc("/ws", s.handleWS).Methods(http.MethodGet)

	return r
}
