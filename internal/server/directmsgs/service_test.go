package directmsgs

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
	rows []*models.DirectMessage
}

func (f *fakeRepo) Create(_ context.Context, msg *models.DirectMessage) (*models.DirectMessage, error) {
	created := *msg
	created.ID = uuid.NewString()
	created.CreatedAt = time.Now()
	f.rows = append(f.rows, &created)
	return &created, nil
}

func (f *fakeRepo) ListConversation(_ context.Context, userA, userB string) ([]*models.DirectMessage, error) {
	var out []*models.DirectMessage
	for _, m := range f.rows {
		if (m.SenderID == userA && m.RecipientID == userB) || (m.SenderID == userB && m.RecipientID == userA) {
			out = append(out, m)
		}
	}
	return out, nil
}

func (f *fakeRepo) GetByID(_ context.Context, id string) (*models.DirectMessage, error) {
	for _, m := range f.rows {
		if m.ID == id {
			return m, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (f *fakeRepo) MarkRead(_ context.Context, id, recipientID string) error {
	for _, m := range f.rows {
		if m.ID == id && m.RecipientID == recipientID && m.ReadAt == nil {
			now := time.Now()
			m.ReadAt = &now
			return nil
		}
	}
	return common.ErrorNotFound
}

func (f *fakeRepo) CountUnread(_ context.Context, recipientID string) (int, error) {
	n := 0
	for _, m := range f.rows {
		if m.RecipientID == recipientID && m.ReadAt == nil {
			n++
		}
	}
	return n, nil
}

func TestSend_StoresCiphertextRow(t *testing.T) {
	repo := &fakeRepo{}
	s := NewService(repo)

	msg, err := s.Send(context.Background(), "u1", "u2", "ct|wk", "iv", models.ContentTypeText, "")
	require.NoError(t, err)

	assert.NotEmpty(t, msg.ID)
	assert.Equal(t, "ct|wk", msg.EncryptedContent)
	assert.Nil(t, msg.ReadAt)
}

func TestSend_RejectsEmptyPayload(t *testing.T) {
	s := NewService(&fakeRepo{})

	_, err := s.Send(context.Background(), "u1", "u2", "", "iv", models.ContentTypeText, "")
	assert.True(t, errors.Is(err, common.ErrInvalidFormat))

	_, err = s.Send(context.Background(), "u1", "u2", "ct|wk", "", models.ContentTypeText, "")
	assert.True(t, errors.Is(err, common.ErrInvalidFormat))
}

func TestSend_DefaultsAndValidatesContentType(t *testing.T) {
	repo := &fakeRepo{}
	s := NewService(repo)

	msg, err := s.Send(context.Background(), "u1", "u2", "ct|wk", "iv", "", "")
	require.NoError(t, err)
	assert.Equal(t, models.ContentTypeText, msg.ContentType)

	_, err = s.Send(context.Background(), "u1", "u2", "ct|wk", "iv", "gif", "")
	assert.True(t, errors.Is(err, common.ErrInvalidFormat))
}

func TestListConversation_BothDirections(t *testing.T) {
	repo := &fakeRepo{}
	s := NewService(repo)

	_, err := s.Send(context.Background(), "u1", "u2", "a|b", "iv", models.ContentTypeText, "")
	require.NoError(t, err)
	_, err = s.Send(context.Background(), "u2", "u1", "c|d", "iv", models.ContentTypeText, "")
	require.NoError(t, err)
	_, err = s.Send(context.Background(), "u1", "u3", "e|f", "iv", models.ContentTypeText, "")
	require.NoError(t, err)

	msgs, err := s.ListConversation(context.Background(), "u1", "u2")
	require.NoError(t, err)
	assert.Len(t, msgs, 2)
}

func TestMarkReadAndCountUnread(t *testing.T) {
	repo := &fakeRepo{}
	s := NewService(repo)

	m1, err := s.Send(context.Background(), "u1", "u2", "a|b", "iv", models.ContentTypeText, "")
	require.NoError(t, err)
	_, err = s.Send(context.Background(), "u1", "u2", "c|d", "iv", models.ContentTypeText, "")
	require.NoError(t, err)

	count, err := s.CountUnread(context.Background(), "u2")
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	require.NoError(t, s.MarkRead(context.Background(), m1.ID, "u2"))

	count, err = s.CountUnread(context.Background(), "u2")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	// only the recipient can mark a message read
	err = s.MarkRead(context.Background(), m1.ID, "u1")
	assert.Error(t, err)
}
