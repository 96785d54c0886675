package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"cipherchat/internal/api"
	"cipherchat/internal/server/groups"
	"cipherchat/internal/server/models"
)

func (s *Server) handleCreateGroup(w http.ResponseWriter, r *http.Request) {
	var req api.CreateGroupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	userID := userIDFromContext(r.Context())

	memberKeys := make([]groups.WrappedMemberKey, 0, len(req.Members))
	for _, m := range req.Members {
		memberKeys = append(memberKeys, groups.WrappedMemberKey{
			UserID:            m.UserID,
			EncryptedGroupKey: m.EncryptedGroupKey,
		})
	}

	group := &models.ChatGroup{
		Name:              req.Name,
		Description:       req.Description,
		AvatarURL:         req.AvatarURL,
		CreatedBy:         userID,
		EncryptedGroupKey: req.EncryptedGroupKey,
	}

	created, err := s.groups.Create(r.Context(), group, memberKeys)
	if err != nil {
		s.logger.Error(r.Context(), "group creation failed", "error", err)
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toAPIGroup(created))
}

func (s *Server) handleListGroups(w http.ResponseWriter, r *http.Request) {
	userID := userIDFromContext(r.Context())

	found, err := s.groups.ListForUser(r.Context(), userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	result := make([]*api.ChatGroup, 0, len(found))
	for _, g := range found {
		result = append(result, toAPIGroup(g))
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleGetMembership(w http.ResponseWriter, r *http.Request) {
	groupID := mux.Vars(r)["id"]
	userID := userIDFromContext(r.Context())

	m, err := s.groups.GetMembership(r.Context(), groupID, userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toAPIMember(m))
}

func (s *Server) handleListMembers(w http.ResponseWriter, r *http.Request) {
	groupID := mux.Vars(r)["id"]
	userID := userIDFromContext(r.Context())

	members, err := s.groups.ListMembers(r.Context(), userID, groupID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	result := make([]*api.GroupMember, 0, len(members))
	for _, m := range members {
		result = append(result, toAPIMember(m))
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleAddMember(w http.ResponseWriter, r *http.Request) {
	groupID := mux.Vars(r)["id"]

	var req api.AddMemberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.UserID == "" || req.EncryptedGroupKey == "" {
		writeError(w, http.StatusBadRequest, "user_id and encrypted_group_key are required")
		return
	}

	actorID := userIDFromContext(r.Context())
	member, err := s.groups.AddMember(r.Context(), actorID, groupID, req.UserID, req.EncryptedGroupKey)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	dto := toAPIMember(member)
	s.hub.Broadcast(&api.Event{
		Type:        api.EventInsert,
		Table:       api.TableGroupMembers,
		GroupMember: dto,
	})

	writeJSON(w, http.StatusCreated, dto)
}

func (s *Server) handleRemoveMember(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	groupID, targetID := vars["id"], vars["userID"]

	actorID := userIDFromContext(r.Context())
	if err := s.groups.RemoveMember(r.Context(), actorID, groupID, targetID); err != nil {
		writeServiceError(w, err)
		return
	}

	// The wrapped copy is gone, but the group key is not rotated: history
	// stays readable to whoever kept the key.
	s.hub.Broadcast(&api.Event{
		Type:        api.EventDelete,
		Table:       api.TableGroupMembers,
		GroupMember: &api.GroupMember{GroupID: groupID, UserID: targetID},
	})

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListGroupMessages(w http.ResponseWriter, r *http.Request) {
	groupID := mux.Vars(r)["id"]
	userID := userIDFromContext(r.Context())

	messages, err := s.groupMsg.ListByGroup(r.Context(), userID, groupID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	result := make([]*api.GroupMessage, 0, len(messages))
	for _, m := range messages {
		result = append(result, toAPIGroupMessage(m))
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleSendGroupMessage(w http.ResponseWriter, r *http.Request) {
	groupID := mux.Vars(r)["id"]

	var req api.SendGroupMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	userID := userIDFromContext(r.Context())
	msg, err := s.groupMsg.Send(r.Context(), userID, &models.GroupMessage{
		GroupID:          groupID,
		EncryptedContent: req.EncryptedContent,
		IV:               req.IV,
		ContentType:      req.ContentType,
		FileURL:          req.FileURL,
		FileName:         req.FileName,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	dto := toAPIGroupMessage(msg)
	s.hub.Broadcast(&api.Event{
		Type:         api.EventInsert,
		Table:        api.TableGroupMessages,
		GroupMessage: dto,
	})

	writeJSON(w, http.StatusCreated, dto)
}
