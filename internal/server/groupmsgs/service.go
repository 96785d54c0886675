package groupmsgs

import (
	"context"
	"fmt"

	"cipherchat/internal/common"
	"cipherchat/internal/server/models"
)

// Membership gates group-message access to current members.
type Membership interface {
	IsMember(ctx context.Context, groupID, userID string) (bool, error)
}

type Service struct {
	repo    Repository
	members Membership
}

func NewService(repo Repository, members Membership) *Service {
	return &Service{repo: repo, members: members}
}

func validContentType(ct string) bool {
	switch ct {
	case models.ContentTypeText, models.ContentTypeFile, models.ContentTypeDocument:
		return true
	}
	return false
}

func (s *Service) requireMember(ctx context.Context, groupID, userID string) error {
	ok, err := s.members.IsMember(ctx, groupID, userID)
	if err != nil {
		return err
	}
	if !ok {
		return common.ErrorUnauthorized
	}
	return nil
}

func (s *Service) Send(ctx context.Context, senderID string, m *models.GroupMessage) (*models.GroupMessage, error) {

	if err := s.requireMember(ctx, m.GroupID, senderID); err != nil {
		return nil, err
	}

	if m.EncryptedContent == "" || m.IV == "" {
		return nil, fmt.Errorf("%w: empty payload", common.ErrInvalidFormat)
	}
	if m.ContentType == "" {
		m.ContentType = models.ContentTypeText
	}
	if !validContentType(m.ContentType) {
		return nil, fmt.Errorf("%w: unknown content type %q", common.ErrInvalidFormat, m.ContentType)
	}

	m.SenderID = senderID
	return s.repo.Create(ctx, m)
}

func (s *Service) ListByGroup(ctx context.Context, actorID, groupID string) ([]*models.GroupMessage, error) {

	if err := s.requireMember(ctx, groupID, actorID); err != nil {
		return nil, err
	}

	return s.repo.ListByGroup(ctx, groupID)
}
