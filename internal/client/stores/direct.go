// Package stores holds the client's conversation state machines. A store
// owns the decrypted in-memory view of one open conversation: it loads
// history, applies realtime events idempotently, and keeps every
// cryptographic failure scoped to the single message that caused it.
package stores

import (
	"context"
	"errors"
	"sync"

	"cipherchat/internal/api"
	"cipherchat/internal/client/models"
	"cipherchat/internal/common"
	"cipherchat/internal/cryptox"
	"cipherchat/internal/logging"
)

// State is a conversation store's lifecycle phase.
type State string

const (
	StateIdle    State = "idle"
	StateLoading State = "loading"
	StateReady   State = "ready"
)

// PrivateKeySource yields the logged-in user's private key. Implementations
// return common.ErrorNotFound when no key is stored, which stores treat as
// "cannot decrypt", not as a failure.
type PrivateKeySource interface {
	Get(ctx context.Context, userID string) ([]byte, error)
}

// DirectBackend is the slice of the API client a direct-message store needs.
type DirectBackend interface {
	ListDirectMessages(ctx context.Context, peerID string) ([]*api.DirectMessage, error)
	SendDirectMessage(ctx context.Context, req *api.SendDirectMessageRequest) (*api.DirectMessage, error)
	MarkRead(ctx context.Context, messageID string) error
}

// DirectStore is the state machine behind one open direct conversation:
// idle → loading → ready, re-entering ready on every successful fetch.
type DirectStore struct {
	api    DirectBackend
	keys   PrivateKeySource
	logger logging.Logger
	userID string

	mu         sync.Mutex
	state      State
	peer       *api.Profile
	privateKey []byte
	messages   []models.Message
	seen       map[string]struct{}
	outbox     map[string]string
	epoch      int
}

func NewDirectStore(backend DirectBackend, keys PrivateKeySource, userID string, logger logging.Logger) *DirectStore {
	return &DirectStore{
		api:    backend,
		keys:   keys,
		logger: logger.With("module", "directstore"),
		userID: userID,
		state:  StateIdle,
		seen:   make(map[string]struct{}),
		outbox: make(map[string]string),
	}
}

func (s *DirectStore) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Messages returns a copy of the decrypted conversation in display order.
func (s *DirectStore) Messages() []models.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Message, len(s.messages))
	copy(out, s.messages)
	return out
}

func (s *DirectStore) Peer() *api.Profile {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.peer
}

// SelectPeer opens the conversation with peer: it loads the caller's private
// key, fetches the full history, and decrypts each message independently. A
// missing private key leaves the store idle with no messages. A selection
// that finishes after a newer SelectPeer call discards its result instead of
// overwriting the newer conversation.
func (s *DirectStore) SelectPeer(ctx context.Context, peer *api.Profile) error {
	s.mu.Lock()
	s.epoch++
	epoch := s.epoch
	s.state = StateLoading
	s.peer = peer
	s.messages = nil
	s.seen = make(map[string]struct{})
	s.outbox = make(map[string]string)
	s.privateKey = nil
	s.mu.Unlock()

	privateKey, err := s.keys.Get(ctx, s.userID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			s.logger.Warn(ctx, "no private key stored, conversation locked", "peer", peer.ID)
		} else {
			s.logger.Error(ctx, "private key load failed", "error", err)
		}
		s.mu.Lock()
		if epoch == s.epoch {
			s.state = StateIdle
		}
		s.mu.Unlock()
		return nil
	}

	rows, err := s.api.ListDirectMessages(ctx, peer.ID)
	if err != nil {
		s.mu.Lock()
		if epoch == s.epoch {
			s.state = StateIdle
		}
		s.mu.Unlock()
		return err
	}

	decrypted := make([]models.Message, 0, len(rows))
	for _, row := range rows {
		decrypted = append(decrypted, s.decryptDirect(ctx, row, privateKey))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if epoch != s.epoch {
		common.WipeByteArray(privateKey)
		return nil
	}
	s.privateKey = privateKey
	for _, m := range decrypted {
		s.seen[m.ID] = struct{}{}
	}
	s.messages = decrypted
	s.state = StateReady
	return nil
}

// decryptDirect recovers one message's plaintext, substituting the
// placeholder on any failure so one bad row never blocks the conversation.
func (s *DirectStore) decryptDirect(ctx context.Context, row *api.DirectMessage, privateKey []byte) models.Message {
	content, err := cryptox.DecryptMessage(row.EncryptedContent, row.IV, privateKey)
	if err != nil {
		s.logger.Debug(ctx, "message decryption failed", "message", row.ID, "error", err)
		content = common.DecryptionPlaceholder
	}
	return models.Message{
		ID:          row.ID,
		SenderID:    row.SenderID,
		Content:     content,
		ContentType: row.ContentType,
		FileURL:     row.FileURL,
		Read:        row.ReadAt != nil,
		CreatedAt:   row.CreatedAt,
	}
}

// Send encrypts content to the selected peer's public key and persists the
// ciphertext row. The sent message is not appended locally; it arrives back
// through the realtime channel like any other insert, which keeps ordering
// and duplicate handling on a single path. The plaintext is remembered by
// the created row's ID so the echo renders readable: the envelope is wrapped
// for the recipient's key, which the sender cannot open.
func (s *DirectStore) Send(ctx context.Context, content, contentType, fileURL string) error {
	s.mu.Lock()
	peer := s.peer
	s.mu.Unlock()

	if peer == nil {
		return errors.New("no conversation selected")
	}
	if peer.PublicKey == "" {
		return errors.New("peer has no published public key")
	}

	envelope, err := cryptox.EncryptMessage(content, peer.PublicKey)
	if err != nil {
		return err
	}

	created, err := s.api.SendDirectMessage(ctx, &api.SendDirectMessageRequest{
		RecipientID:      peer.ID,
		EncryptedContent: envelope.EncryptedContent,
		IV:               envelope.IV,
		ContentType:      contentType,
		FileURL:          fileURL,
	})
	if err != nil {
		return err
	}

	s.mu.Lock()
	if s.peer != nil && s.peer.ID == peer.ID {
		s.outbox[created.ID] = content
	}
	s.mu.Unlock()
	return nil
}

// Apply consumes one realtime event. Inserts addressed to the open
// conversation are decrypted and appended; a message already present is left
// untouched, so the fetch path and the realtime path can safely overlap.
func (s *DirectStore) Apply(ctx context.Context, event *api.Event) {
	if event.Table != api.TableDirectMessages || event.Type != api.EventInsert || event.DirectMessage == nil {
		return
	}
	row := event.DirectMessage

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateReady || s.peer == nil {
		return
	}
	inConversation := (row.SenderID == s.userID && row.RecipientID == s.peer.ID) ||
		(row.SenderID == s.peer.ID && row.RecipientID == s.userID)
	if !inConversation {
		return
	}
	if _, ok := s.seen[row.ID]; ok {
		return
	}

	s.seen[row.ID] = struct{}{}
	if plaintext, ok := s.outbox[row.ID]; ok {
		delete(s.outbox, row.ID)
		msg := s.decryptDirect(ctx, row, s.privateKey)
		msg.Content = plaintext
		s.messages = append(s.messages, msg)
		return
	}
	s.messages = append(s.messages, s.decryptDirect(ctx, row, s.privateKey))
}

// MarkAsRead reports the message as read to the backend and flips the local
// flag.
func (s *DirectStore) MarkAsRead(ctx context.Context, messageID string) error {
	if err := s.api.MarkRead(ctx, messageID); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.messages {
		if s.messages[i].ID == messageID {
			s.messages[i].Read = true
		}
	}
	return nil
}

// Close tears the conversation down and wipes the private key from memory.
func (s *DirectStore) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.epoch++
	common.WipeByteArray(s.privateKey)
	s.privateKey = nil
	s.peer = nil
	s.messages = nil
	s.seen = make(map[string]struct{})
	s.outbox = make(map[string]string)
	s.state = StateIdle
}

// UnreadCounter tracks the logged-in user's unread badge. It is fed by the
// always-on realtime subscription, independent of whichever conversation is
// open.
type UnreadCounter struct {
	mu     sync.Mutex
	userID string
	count  int
}

func NewUnreadCounter(userID string) *UnreadCounter {
	return &UnreadCounter{userID: userID}
}

// Seed sets the absolute count, typically from the backend's unread query at
// login.
func (u *UnreadCounter) Seed(n int) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.count = n
}

func (u *UnreadCounter) Count() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.count
}

// Apply increments the badge for every inserted direct message addressed to
// the user.
func (u *UnreadCounter) Apply(event *api.Event) {
	if event.Table != api.TableDirectMessages || event.Type != api.EventInsert || event.DirectMessage == nil {
		return
	}
	if event.DirectMessage.RecipientID != u.userID {
		return
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	u.count++
}

// Reset clears the badge, e.g. after the user reviews their conversations.
func (u *UnreadCounter) Reset() {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.count = 0
}
