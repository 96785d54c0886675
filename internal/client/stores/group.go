package stores

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"cipherchat/internal/api"
	"cipherchat/internal/client/models"
	"cipherchat/internal/common"
	"cipherchat/internal/cryptox"
	"cipherchat/internal/logging"
)

// GroupBackend is the slice of the API client a group store needs.
type GroupBackend interface {
	GetProfile(ctx context.Context, userID string) (*api.Profile, error)
	CreateGroup(ctx context.Context, req *api.CreateGroupRequest) (*api.ChatGroup, error)
	GetMembership(ctx context.Context, groupID string) (*api.GroupMember, error)
	ListMembers(ctx context.Context, groupID string) ([]*api.GroupMember, error)
	AddMember(ctx context.Context, groupID string, req *api.AddMemberRequest) (*api.GroupMember, error)
	RemoveMember(ctx context.Context, groupID, userID string) error
	ListGroupMessages(ctx context.Context, groupID string) ([]*api.GroupMessage, error)
	SendGroupMessage(ctx context.Context, groupID string, req *api.SendGroupMessageRequest) (*api.GroupMessage, error)
}

// GroupStore is the state machine behind one open group conversation. The
// decrypted group key lives only in this store's memory while the group is
// open; Close wipes it immediately.
type GroupStore struct {
	api    GroupBackend
	keys   PrivateKeySource
	logger logging.Logger
	userID string

	mu       sync.Mutex
	state    State
	group    *api.ChatGroup
	groupKey []byte
	members  []models.Member
	messages []models.Message
	seen     map[string]struct{}
	epoch    int
}

func NewGroupStore(backend GroupBackend, keys PrivateKeySource, userID string, logger logging.Logger) *GroupStore {
	return &GroupStore{
		api:    backend,
		keys:   keys,
		logger: logger.With("module", "groupstore"),
		userID: userID,
		state:  StateIdle,
		seen:   make(map[string]struct{}),
	}
}

func (s *GroupStore) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *GroupStore) Group() *api.ChatGroup {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.group
}

func (s *GroupStore) Members() []models.Member {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Member, len(s.members))
	copy(out, s.members)
	return out
}

func (s *GroupStore) Messages() []models.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// SelectGroup opens a group: it unwraps the caller's copy of the group key
// with their private key, then loads the member roster and message history.
// Failing to recover the group key is fatal to the view: without it nothing
// in the group is readable, so unlike per-message decryption there is no
// placeholder fallback here. A call superseded by a newer selection discards
// its result.
func (s *GroupStore) SelectGroup(ctx context.Context, group *api.ChatGroup) error {
	s.mu.Lock()
	s.epoch++
	epoch := s.epoch
	s.state = StateLoading
	s.group = group
	common.WipeByteArray(s.groupKey)
	s.groupKey = nil
	s.members = nil
	s.messages = nil
	s.seen = make(map[string]struct{})
	s.mu.Unlock()

	fail := func(err error) error {
		s.mu.Lock()
		if epoch == s.epoch {
			s.state = StateIdle
		}
		s.mu.Unlock()
		return err
	}

	privateKey, err := s.keys.Get(ctx, s.userID)
	if err != nil {
		return fail(fmt.Errorf("private key unavailable: %w", err))
	}
	defer common.WipeByteArray(privateKey)

	membership, err := s.api.GetMembership(ctx, group.ID)
	if err != nil {
		return fail(err)
	}

	groupKey, err := cryptox.DecryptGroupKey(membership.EncryptedGroupKey, privateKey)
	if err != nil {
		return fail(fmt.Errorf("group key unwrap failed: %w", err))
	}

	roster, err := s.api.ListMembers(ctx, group.ID)
	if err != nil {
		common.WipeByteArray(groupKey)
		return fail(err)
	}

	rows, err := s.api.ListGroupMessages(ctx, group.ID)
	if err != nil {
		common.WipeByteArray(groupKey)
		return fail(err)
	}

	members := make([]models.Member, 0, len(roster))
	for _, m := range roster {
		members = append(members, toMember(m))
	}

	decrypted := make([]models.Message, 0, len(rows))
	for _, row := range rows {
		decrypted = append(decrypted, s.decryptGroup(ctx, row, groupKey))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if epoch != s.epoch {
		common.WipeByteArray(groupKey)
		return nil
	}
	s.groupKey = groupKey
	s.members = members
	for _, m := range decrypted {
		s.seen[m.ID] = struct{}{}
	}
	s.messages = decrypted
	s.state = StateReady
	return nil
}

func (s *GroupStore) decryptGroup(ctx context.Context, row *api.GroupMessage, groupKey []byte) models.Message {
	content, err := cryptox.DecryptWithGroupKey(row.EncryptedContent, row.IV, groupKey)
	if err != nil {
		s.logger.Debug(ctx, "group message decryption failed", "message", row.ID, "error", err)
		content = common.DecryptionPlaceholder
	}
	return models.Message{
		ID:          row.ID,
		SenderID:    row.SenderID,
		Content:     content,
		ContentType: row.ContentType,
		FileURL:     row.FileURL,
		FileName:    row.FileName,
		CreatedAt:   row.CreatedAt,
	}
}

func toMember(m *api.GroupMember) models.Member {
	return models.Member{
		UserID:      m.UserID,
		UserName:    m.UserName,
		DisplayName: m.DisplayName,
		Role:        m.Role,
		PublicKey:   m.PublicKey,
		JoinedAt:    m.JoinedAt,
	}
}

// Send encrypts content under the open group's key and persists the
// ciphertext row. As with direct messages, the local append happens when the
// insert comes back over the realtime channel.
func (s *GroupStore) Send(ctx context.Context, content, contentType, fileURL, fileName string) error {
	s.mu.Lock()
	group := s.group
	ready := s.state == StateReady && s.groupKey != nil
	var groupKey []byte
	if ready {
		// Copy so a concurrent Close wiping the key cannot race the encrypt.
		groupKey = append([]byte(nil), s.groupKey...)
	}
	s.mu.Unlock()

	if !ready {
		return errors.New("no group open")
	}
	defer common.WipeByteArray(groupKey)

	envelope, err := cryptox.EncryptWithGroupKey(content, groupKey)
	if err != nil {
		return err
	}

	_, err = s.api.SendGroupMessage(ctx, group.ID, &api.SendGroupMessageRequest{
		EncryptedContent: envelope.EncryptedContent,
		IV:               envelope.IV,
		ContentType:      contentType,
		FileURL:          fileURL,
		FileName:         fileName,
	})
	return err
}

// Apply consumes one realtime event scoped to the open group: message
// inserts are decrypted and appended with de-duplication by ID, membership
// changes update the roster. The caller being removed closes the view.
func (s *GroupStore) Apply(ctx context.Context, event *api.Event) {
	switch event.Table {
	case api.TableGroupMessages:
		s.applyMessage(ctx, event)
	case api.TableGroupMembers:
		s.applyMembership(ctx, event)
	}
}

func (s *GroupStore) applyMessage(ctx context.Context, event *api.Event) {
	if event.Type != api.EventInsert || event.GroupMessage == nil {
		return
	}
	row := event.GroupMessage

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateReady || s.group == nil || row.GroupID != s.group.ID {
		return
	}
	if _, ok := s.seen[row.ID]; ok {
		return
	}

	s.seen[row.ID] = struct{}{}
	s.messages = append(s.messages, s.decryptGroup(ctx, row, s.groupKey))
}

func (s *GroupStore) applyMembership(ctx context.Context, event *api.Event) {
	if event.GroupMember == nil {
		return
	}
	row := event.GroupMember

	s.mu.Lock()
	if s.state != StateReady || s.group == nil || row.GroupID != s.group.ID {
		s.mu.Unlock()
		return
	}

	switch event.Type {
	case api.EventInsert:
		for _, m := range s.members {
			if m.UserID == row.UserID {
				s.mu.Unlock()
				return
			}
		}
		s.members = append(s.members, toMember(row))
		s.mu.Unlock()

	case api.EventDelete:
		if row.UserID == s.userID {
			s.mu.Unlock()
			s.logger.Info(ctx, "removed from group, closing view", "group", row.GroupID)
			s.Close()
			return
		}
		kept := s.members[:0]
		for _, m := range s.members {
			if m.UserID != row.UserID {
				kept = append(kept, m)
			}
		}
		s.members = kept
		s.mu.Unlock()

	default:
		s.mu.Unlock()
	}
}

// CreateGroup runs the group creation protocol: generate a fresh symmetric
// key, wrap it for the creator, then wrap the same key for every invitee
// whose public key is known. Invitees without a published key are skipped and
// their IDs returned so the caller can surface the partial result.
func (s *GroupStore) CreateGroup(ctx context.Context, name, description string, memberIDs []string) (*api.ChatGroup, []string, error) {
	groupKey, err := cryptox.GenerateGroupKey()
	if err != nil {
		return nil, nil, err
	}
	defer common.WipeByteArray(groupKey)

	self, err := s.api.GetProfile(ctx, s.userID)
	if err != nil {
		return nil, nil, err
	}
	if self.PublicKey == "" {
		return nil, nil, errors.New("own public key not published")
	}

	creatorCopy, err := cryptox.EncryptGroupKey(groupKey, self.PublicKey)
	if err != nil {
		return nil, nil, err
	}

	var wrapped []api.WrappedMemberKey
	var skipped []string
	for _, id := range memberIDs {
		if id == s.userID {
			continue
		}
		profile, err := s.api.GetProfile(ctx, id)
		if err != nil || profile.PublicKey == "" {
			s.logger.Warn(ctx, "skipping invitee without public key", "user", id)
			skipped = append(skipped, id)
			continue
		}
		memberCopy, err := cryptox.EncryptGroupKey(groupKey, profile.PublicKey)
		if err != nil {
			skipped = append(skipped, id)
			continue
		}
		wrapped = append(wrapped, api.WrappedMemberKey{UserID: id, EncryptedGroupKey: memberCopy})
	}

	group, err := s.api.CreateGroup(ctx, &api.CreateGroupRequest{
		Name:              name,
		Description:       description,
		EncryptedGroupKey: creatorCopy,
		Members:           wrapped,
	})
	if err != nil {
		return nil, skipped, err
	}
	return group, skipped, nil
}

// AddMember wraps the in-session group key under the new member's public key.
// Only works while the group is open, since the plaintext key exists nowhere
// else.
func (s *GroupStore) AddMember(ctx context.Context, userID string) error {
	s.mu.Lock()
	group := s.group
	ready := s.state == StateReady && s.groupKey != nil
	var groupKey []byte
	if ready {
		groupKey = append([]byte(nil), s.groupKey...)
	}
	s.mu.Unlock()

	if !ready {
		return errors.New("no group open")
	}
	defer common.WipeByteArray(groupKey)

	profile, err := s.api.GetProfile(ctx, userID)
	if err != nil {
		return err
	}
	if profile.PublicKey == "" {
		return errors.New("user has no published public key")
	}

	memberCopy, err := cryptox.EncryptGroupKey(groupKey, profile.PublicKey)
	if err != nil {
		return err
	}

	_, err = s.api.AddMember(ctx, group.ID, &api.AddMemberRequest{
		UserID:            userID,
		EncryptedGroupKey: memberCopy,
	})
	return err
}

// RemoveMember deletes the member's row and wrapped key copy. The group key
// is not rotated: messages already encrypted under it stay readable to anyone
// who kept a copy.
func (s *GroupStore) RemoveMember(ctx context.Context, userID string) error {
	s.mu.Lock()
	group := s.group
	s.mu.Unlock()

	if group == nil {
		return errors.New("no group open")
	}
	return s.api.RemoveMember(ctx, group.ID, userID)
}

// Leave removes the caller's own membership and closes the view.
func (s *GroupStore) Leave(ctx context.Context) error {
	if err := s.RemoveMember(ctx, s.userID); err != nil {
		return err
	}
	s.Close()
	return nil
}

// Close wipes the decrypted group key and clears all in-memory state. The key
// must not linger once the view is gone.
func (s *GroupStore) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.epoch++
	common.WipeByteArray(s.groupKey)
	s.groupKey = nil
	s.group = nil
	s.members = nil
	s.messages = nil
	s.seen = make(map[string]struct{})
	s.state = StateIdle
}
