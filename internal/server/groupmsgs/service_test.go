package groupmsgs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cipherchat/internal/common"
	"cipherchat/internal/server/models"
)

type fakeRepo struct {
	rows []*models.GroupMessage
}

func (f *fakeRepo) Create(_ context.Context, m *models.GroupMessage) (*models.GroupMessage, error) {
	created := *m
	created.ID = uuid.NewString()
	created.CreatedAt = time.Now()
	f.rows = append(f.rows, &created)
	return &created, nil
}

func (f *fakeRepo) ListByGroup(_ context.Context, groupID string) ([]*models.GroupMessage, error) {
	var out []*models.GroupMessage
	for _, m := range f.rows {
		if m.GroupID == groupID {
			out = append(out, m)
		}
	}
	return out, nil
}

type fakeMembership struct {
	members map[string][]string
}

func (f *fakeMembership) IsMember(_ context.Context, groupID, userID string) (bool, error) {
	for _, u := range f.members[groupID] {
		if u == userID {
			return true, nil
		}
	}
	return false, nil
}

func newTestService() (*Service, *fakeRepo) {
	repo := &fakeRepo{}
	members := &fakeMembership{members: map[string][]string{
		"g1": {"alice", "bob"},
	}}
	return NewService(repo, members), repo
}

func TestSend_MemberOnly(t *testing.T) {
	s, _ := newTestService()

	msg, err := s.Send(context.Background(), "alice", &models.GroupMessage{
		GroupID: "g1", EncryptedContent: "ct|wk", IV: "iv",
	})
	require.NoError(t, err)
	assert.Equal(t, "alice", msg.SenderID)
	assert.Equal(t, models.ContentTypeText, msg.ContentType)

	_, err = s.Send(context.Background(), "stranger", &models.GroupMessage{
		GroupID: "g1", EncryptedContent: "ct|wk", IV: "iv",
	})
	assert.True(t, errors.Is(err, common.ErrorUnauthorized))
}

func TestSend_ValidatesPayload(t *testing.T) {
	s, _ := newTestService()

	_, err := s.Send(context.Background(), "alice", &models.GroupMessage{GroupID: "g1", IV: "iv"})
	assert.True(t, errors.Is(err, common.ErrInvalidFormat))

	_, err = s.Send(context.Background(), "alice", &models.GroupMessage{
		GroupID: "g1", EncryptedContent: "ct|wk", IV: "iv", ContentType: "video",
	})
	assert.True(t, errors.Is(err, common.ErrInvalidFormat))
}

func TestListByGroup_MemberOnly(t *testing.T) {
	s, _ := newTestService()

	_, err := s.Send(context.Background(), "alice", &models.GroupMessage{
		GroupID: "g1", EncryptedContent: "a|b", IV: "iv",
	})
	require.NoError(t, err)

	msgs, err := s.ListByGroup(context.Background(), "bob", "g1")
	require.NoError(t, err)
	assert.Len(t, msgs, 1)

	_, err = s.ListByGroup(context.Background(), "stranger", "g1")
	assert.True(t, errors.Is(err, common.ErrorUnauthorized))
}
