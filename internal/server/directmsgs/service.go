package directmsgs

import (
	"context"
	"fmt"

	"cipherchat/internal/common"
	"cipherchat/internal/server/models"
)

// Service stores and serves direct-message ciphertext rows. The server never
// decrypts anything here; payloads pass through opaque.
type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func validContentType(ct string) bool {
	switch ct {
	case models.ContentTypeText, models.ContentTypeFile, models.ContentTypeDocument:
		return true
	}
	return false
}

func (s *Service) Send(ctx context.Context, senderID, recipientID, encryptedContent, iv, contentType, fileURL string) (*models.DirectMessage, error) {

	if encryptedContent == "" || iv == "" {
		return nil, fmt.Errorf("%w: empty payload", common.ErrInvalidFormat)
	}
	if contentType == "" {
		contentType = models.ContentTypeText
	}
	if !validContentType(contentType) {
		return nil, fmt.Errorf("%w: unknown content type %q", common.ErrInvalidFormat, contentType)
	}

	msg := &models.DirectMessage{
		SenderID:         senderID,
		RecipientID:      recipientID,
		EncryptedContent: encryptedContent,
		IV:               iv,
		ContentType:      contentType,
		FileURL:          fileURL,
	}

	return s.repo.Create(ctx, msg)
}

func (s *Service) ListConversation(ctx context.Context, userID, peerID string) ([]*models.DirectMessage, error) {
	return s.repo.ListConversation(ctx, userID, peerID)
}

func (s *Service) MarkRead(ctx context.Context, messageID, recipientID string) error {
	return s.repo.MarkRead(ctx, messageID, recipientID)
}

func (s *Service) CountUnread(ctx context.Context, recipientID string) (int, error) {
	return s.repo.CountUnread(ctx, recipientID)
}
