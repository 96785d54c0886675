package stores

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cipherchat/internal/api"
	"cipherchat/internal/common"
	"cipherchat/internal/cryptox"
)

type fakeGroupBackend struct {
	mu          sync.Mutex
	profiles    map[string]*api.Profile
	memberships map[string]*api.GroupMember // by userID for the one test group
	members     []*api.GroupMember
	messages    []*api.GroupMessage
	created     *api.CreateGroupRequest
	added       []*api.AddMemberRequest
	removed     []string
	listHook    func()
}

func (f *fakeGroupBackend) GetProfile(_ context.Context, userID string) (*api.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.profiles[userID]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return p, nil
}

func (f *fakeGroupBackend) CreateGroup(_ context.Context, req *api.CreateGroupRequest) (*api.ChatGroup, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = req
	return &api.ChatGroup{ID: "g1", Name: req.Name, EncryptedGroupKey: req.EncryptedGroupKey}, nil
}

func (f *fakeGroupBackend) GetMembership(_ context.Context, _ string) (*api.GroupMember, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.memberships["me"]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return m, nil
}

func (f *fakeGroupBackend) ListMembers(_ context.Context, _ string) ([]*api.GroupMember, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*api.GroupMember(nil), f.members...), nil
}

func (f *fakeGroupBackend) AddMember(_ context.Context, _ string, req *api.AddMemberRequest) (*api.GroupMember, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.added = append(f.added, req)
	return &api.GroupMember{GroupID: "g1", UserID: req.UserID, Role: "member", EncryptedGroupKey: req.EncryptedGroupKey}, nil
}

func (f *fakeGroupBackend) RemoveMember(_ context.Context, _ string, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removed = append(f.removed, userID)
	return nil
}

func (f *fakeGroupBackend) ListGroupMessages(_ context.Context, _ string) ([]*api.GroupMessage, error) {
	if f.listHook != nil {
		f.listHook()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*api.GroupMessage(nil), f.messages...), nil
}

func (f *fakeGroupBackend) SendGroupMessage(_ context.Context, groupID string, req *api.SendGroupMessageRequest) (*api.GroupMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	msg := &api.GroupMessage{
		ID: "sent", GroupID: groupID, SenderID: "me",
		EncryptedContent: req.EncryptedContent, IV: req.IV, ContentType: req.ContentType,
	}
	f.messages = append(f.messages, msg)
	return msg, nil
}

func groupMsg(t *testing.T, groupKey []byte, id, sender, text string) *api.GroupMessage {
	t.Helper()
	envelope, err := cryptox.EncryptWithGroupKey(text, groupKey)
	require.NoError(t, err)
	return &api.GroupMessage{
		ID: id, GroupID: "g1", SenderID: sender,
		EncryptedContent: envelope.EncryptedContent, IV: envelope.IV,
		ContentType: "text", CreatedAt: time.Now(),
	}
}

// setupGroup builds a backend with one group whose key is wrapped for "me".
func setupGroup(t *testing.T) (*fakeGroupBackend, *fakeKeys, []byte) {
	t.Helper()
	me, err := cryptox.GenerateKeyPair()
	require.NoError(t, err)

	groupKey, err := cryptox.GenerateGroupKey()
	require.NoError(t, err)

	wrapped, err := cryptox.EncryptGroupKey(groupKey, me.PublicKey)
	require.NoError(t, err)

	backend := &fakeGroupBackend{
		profiles: map[string]*api.Profile{
			"me": {ID: "me", PublicKey: me.PublicKey},
		},
		memberships: map[string]*api.GroupMember{
			"me": {GroupID: "g1", UserID: "me", Role: "admin", EncryptedGroupKey: wrapped},
		},
		members: []*api.GroupMember{
			{GroupID: "g1", UserID: "me", Role: "admin", UserName: "me"},
			{GroupID: "g1", UserID: "bob", Role: "member", UserName: "bob"},
		},
	}
	keys := &fakeKeys{keys: map[string][]byte{"me": me.PrivateKey}}
	return backend, keys, groupKey
}

func TestGroupStore_SelectGroupUnwrapsKeyAndLoads(t *testing.T) {
	backend, keys, groupKey := setupGroup(t)
	backend.messages = []*api.GroupMessage{
		groupMsg(t, groupKey, "m1", "bob", "Hi team"),
		groupMsg(t, groupKey, "m2", "me", "hello"),
	}

	store := NewGroupStore(backend, keys, "me", testLogger())
	require.NoError(t, store.SelectGroup(context.Background(), &api.ChatGroup{ID: "g1", Name: "team"}))

	assert.Equal(t, StateReady, store.State())
	assert.Len(t, store.Members(), 2)

	msgs := store.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "Hi team", msgs[0].Content)
	assert.Equal(t, "hello", msgs[1].Content)
}

func TestGroupStore_StaleSelectionIsDiscarded(t *testing.T) {
	backend, keys, groupKey := setupGroup(t)
	oldMsg := groupMsg(t, groupKey, "old-1", "bob", "old group")
	newMsg := groupMsg(t, groupKey, "new-1", "bob", "new group")
	backend.messages = []*api.GroupMessage{oldMsg}

	release := make(chan struct{})
	entered := make(chan struct{})
	done := make(chan struct{})

	// the first history fetch blocks until released; a second selection
	// completes in the meantime and the first result must be thrown away
	// without clobbering the newer view's group key
	var calls int
	backend.listHook = func() {
		backend.mu.Lock()
		calls++
		first := calls == 1
		backend.mu.Unlock()
		if first {
			close(entered)
			<-release
		}
	}

	store := NewGroupStore(backend, keys, "me", testLogger())
	go func() {
		defer close(done)
		_ = store.SelectGroup(context.Background(), &api.ChatGroup{ID: "g1", Name: "old"})
	}()
	<-entered

	backend.mu.Lock()
	backend.messages = []*api.GroupMessage{newMsg}
	backend.mu.Unlock()
	require.NoError(t, store.SelectGroup(context.Background(), &api.ChatGroup{ID: "g2", Name: "new"}))

	close(release)
	<-done

	assert.Equal(t, StateReady, store.State())
	assert.Equal(t, "g2", store.Group().ID)
	msgs := store.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "new group", msgs[0].Content)

	// the retained key still encrypts: the stale call wiped only its own copy
	require.NoError(t, store.Send(context.Background(), "after the race", "text", "", ""))
	backend.mu.Lock()
	last := backend.messages[len(backend.messages)-1]
	backend.mu.Unlock()
	content, err := cryptox.DecryptWithGroupKey(last.EncryptedContent, last.IV, groupKey)
	require.NoError(t, err)
	assert.Equal(t, "after the race", content)
}

func TestGroupStore_MissingPrivateKeyIsFatalToView(t *testing.T) {
	backend, _, _ := setupGroup(t)
	store := NewGroupStore(backend, &fakeKeys{keys: map[string][]byte{}}, "me", testLogger())

	err := store.SelectGroup(context.Background(), &api.ChatGroup{ID: "g1"})
	require.Error(t, err)
	assert.Equal(t, StateIdle, store.State())
	assert.Empty(t, store.Messages())
}

func TestGroupStore_WrongKeyCannotUnwrap(t *testing.T) {
	backend, _, _ := setupGroup(t)

	stranger, err := cryptox.GenerateKeyPair()
	require.NoError(t, err)
	keys := &fakeKeys{keys: map[string][]byte{"me": stranger.PrivateKey}}

	store := NewGroupStore(backend, keys, "me", testLogger())
	err = store.SelectGroup(context.Background(), &api.ChatGroup{ID: "g1"})
	require.Error(t, err)
	assert.Equal(t, StateIdle, store.State())
}

func TestGroupStore_PerMessageIsolation(t *testing.T) {
	backend, keys, groupKey := setupGroup(t)
	for i := 0; i < 10; i++ {
		msg := groupMsg(t, groupKey, string(rune('a'+i)), "bob", "ok")
		if i == 7 {
			msg.IV = "###"
		}
		backend.messages = append(backend.messages, msg)
	}

	store := NewGroupStore(backend, keys, "me", testLogger())
	require.NoError(t, store.SelectGroup(context.Background(), &api.ChatGroup{ID: "g1"}))

	placeholders := 0
	for _, m := range store.Messages() {
		if m.Content == common.DecryptionPlaceholder {
			placeholders++
		}
	}
	assert.Equal(t, 1, placeholders)
	assert.Len(t, store.Messages(), 10)
}

func TestGroupStore_SendEncryptsUnderGroupKey(t *testing.T) {
	backend, keys, groupKey := setupGroup(t)
	store := NewGroupStore(backend, keys, "me", testLogger())
	require.NoError(t, store.SelectGroup(context.Background(), &api.ChatGroup{ID: "g1"}))

	require.NoError(t, store.Send(context.Background(), "Hi team", "text", "", ""))

	// not appended locally until the realtime event comes back
	assert.Empty(t, store.Messages())

	backend.mu.Lock()
	sent := backend.messages[len(backend.messages)-1]
	backend.mu.Unlock()
	content, err := cryptox.DecryptWithGroupKey(sent.EncryptedContent, sent.IV, groupKey)
	require.NoError(t, err)
	assert.Equal(t, "Hi team", content)
}

func TestGroupStore_ApplyDeduplicatesByID(t *testing.T) {
	backend, keys, groupKey := setupGroup(t)
	row := groupMsg(t, groupKey, "m1", "bob", "hello")
	backend.messages = []*api.GroupMessage{row}

	store := NewGroupStore(backend, keys, "me", testLogger())
	require.NoError(t, store.SelectGroup(context.Background(), &api.ChatGroup{ID: "g1"}))
	require.Len(t, store.Messages(), 1)

	store.Apply(context.Background(), &api.Event{
		Type: api.EventInsert, Table: api.TableGroupMessages, GroupMessage: row,
	})
	assert.Len(t, store.Messages(), 1)

	store.Apply(context.Background(), &api.Event{
		Type: api.EventInsert, Table: api.TableGroupMessages,
		GroupMessage: groupMsg(t, groupKey, "m2", "bob", "more"),
	})
	assert.Len(t, store.Messages(), 2)
}

func TestGroupStore_CloseWipesKeyAndState(t *testing.T) {
	backend, keys, _ := setupGroup(t)
	store := NewGroupStore(backend, keys, "me", testLogger())
	require.NoError(t, store.SelectGroup(context.Background(), &api.ChatGroup{ID: "g1"}))
	require.Equal(t, StateReady, store.State())

	store.mu.Lock()
	held := store.groupKey
	store.mu.Unlock()
	require.NotNil(t, held)

	store.Close()

	assert.Equal(t, StateIdle, store.State())
	assert.Nil(t, store.Group())
	assert.Empty(t, store.Messages())
	assert.Empty(t, store.Members())
	for _, b := range held {
		assert.Zero(t, b)
	}
}

func TestGroupStore_CreateGroupWrapsForAllMembers(t *testing.T) {
	creator, err := cryptox.GenerateKeyPair()
	require.NoError(t, err)
	alice, err := cryptox.GenerateKeyPair()
	require.NoError(t, err)
	bob, err := cryptox.GenerateKeyPair()
	require.NoError(t, err)

	backend := &fakeGroupBackend{
		profiles: map[string]*api.Profile{
			"me":    {ID: "me", PublicKey: creator.PublicKey},
			"alice": {ID: "alice", PublicKey: alice.PublicKey},
			"bob":   {ID: "bob", PublicKey: bob.PublicKey},
		},
	}
	keys := &fakeKeys{keys: map[string][]byte{"me": creator.PrivateKey}}
	store := NewGroupStore(backend, keys, "me", testLogger())

	group, skipped, err := store.CreateGroup(context.Background(), "team", "", []string{"alice", "bob"})
	require.NoError(t, err)
	require.NotNil(t, group)
	assert.Empty(t, skipped)
	require.Len(t, backend.created.Members, 2)

	// every wrapped copy unwraps to bit-identical key material
	creatorKey, err := cryptox.DecryptGroupKey(backend.created.EncryptedGroupKey, creator.PrivateKey)
	require.NoError(t, err)

	memberKeys := map[string][]byte{"alice": alice.PrivateKey, "bob": bob.PrivateKey}
	for _, w := range backend.created.Members {
		unwrapped, err := cryptox.DecryptGroupKey(w.EncryptedGroupKey, memberKeys[w.UserID])
		require.NoError(t, err)
		assert.Equal(t, creatorKey, unwrapped)
	}
}

func TestGroupStore_CreateGroupSkipsKeylessInvitees(t *testing.T) {
	creator, err := cryptox.GenerateKeyPair()
	require.NoError(t, err)
	alice, err := cryptox.GenerateKeyPair()
	require.NoError(t, err)

	backend := &fakeGroupBackend{
		profiles: map[string]*api.Profile{
			"me":    {ID: "me", PublicKey: creator.PublicKey},
			"alice": {ID: "alice", PublicKey: alice.PublicKey},
			"carol": {ID: "carol"}, // never published a key
		},
	}
	keys := &fakeKeys{keys: map[string][]byte{"me": creator.PrivateKey}}
	store := NewGroupStore(backend, keys, "me", testLogger())

	group, skipped, err := store.CreateGroup(context.Background(), "team", "", []string{"alice", "carol", "ghost"})
	require.NoError(t, err)
	require.NotNil(t, group)

	assert.ElementsMatch(t, []string{"carol", "ghost"}, skipped)
	require.Len(t, backend.created.Members, 1)
	assert.Equal(t, "alice", backend.created.Members[0].UserID)
}

func TestGroupStore_AddMemberWrapsInSessionKey(t *testing.T) {
	backend, keys, groupKey := setupGroup(t)

	dave, err := cryptox.GenerateKeyPair()
	require.NoError(t, err)
	backend.profiles["dave"] = &api.Profile{ID: "dave", PublicKey: dave.PublicKey}

	store := NewGroupStore(backend, keys, "me", testLogger())
	require.NoError(t, store.SelectGroup(context.Background(), &api.ChatGroup{ID: "g1"}))

	require.NoError(t, store.AddMember(context.Background(), "dave"))
	require.Len(t, backend.added, 1)

	unwrapped, err := cryptox.DecryptGroupKey(backend.added[0].EncryptedGroupKey, dave.PrivateKey)
	require.NoError(t, err)
	assert.Equal(t, groupKey, unwrapped)
}

// A removed member's wrapped copy is gone but the group key is not rotated:
// messages sent after the removal still decrypt with the key the removed
// member may have retained. This asserts the current behavior, a known
// forward-secrecy gap.
func TestGroupStore_RemovalDoesNotRekey(t *testing.T) {
	backend, keys, groupKey := setupGroup(t)
	store := NewGroupStore(backend, keys, "me", testLogger())
	require.NoError(t, store.SelectGroup(context.Background(), &api.ChatGroup{ID: "g1"}))

	require.NoError(t, store.RemoveMember(context.Background(), "bob"))
	assert.Equal(t, []string{"bob"}, backend.removed)

	require.NoError(t, store.Send(context.Background(), "after removal", "text", "", ""))

	backend.mu.Lock()
	sent := backend.messages[len(backend.messages)-1]
	backend.mu.Unlock()

	// the retained pre-removal key still opens the new message
	content, err := cryptox.DecryptWithGroupKey(sent.EncryptedContent, sent.IV, groupKey)
	require.NoError(t, err)
	assert.Equal(t, "after removal", content)
}

func TestGroupStore_MembershipEventsUpdateRoster(t *testing.T) {
	backend, keys, _ := setupGroup(t)
	store := NewGroupStore(backend, keys, "me", testLogger())
	require.NoError(t, store.SelectGroup(context.Background(), &api.ChatGroup{ID: "g1"}))
	require.Len(t, store.Members(), 2)

	store.Apply(context.Background(), &api.Event{
		Type: api.EventInsert, Table: api.TableGroupMembers,
		GroupMember: &api.GroupMember{GroupID: "g1", UserID: "dave", Role: "member"},
	})
	assert.Len(t, store.Members(), 3)

	store.Apply(context.Background(), &api.Event{
		Type: api.EventDelete, Table: api.TableGroupMembers,
		GroupMember: &api.GroupMember{GroupID: "g1", UserID: "bob"},
	})
	assert.Len(t, store.Members(), 2)
}

func TestGroupStore_OwnRemovalClosesView(t *testing.T) {
	backend, keys, _ := setupGroup(t)
	store := NewGroupStore(backend, keys, "me", testLogger())
	require.NoError(t, store.SelectGroup(context.Background(), &api.ChatGroup{ID: "g1"}))

	store.Apply(context.Background(), &api.Event{
		Type: api.EventDelete, Table: api.TableGroupMembers,
		GroupMember: &api.GroupMember{GroupID: "g1", UserID: "me"},
	})

	assert.Equal(t, StateIdle, store.State())
	assert.Nil(t, store.Group())
}

func TestGroupStore_LeaveRemovesSelfAndCloses(t *testing.T) {
	backend, keys, _ := setupGroup(t)
	store := NewGroupStore(backend, keys, "me", testLogger())
	require.NoError(t, store.SelectGroup(context.Background(), &api.ChatGroup{ID: "g1"}))

	require.NoError(t, store.Leave(context.Background()))
	assert.Equal(t, []string{"me"}, backend.removed)
	assert.Equal(t, StateIdle, store.State())
}
