package directmsgs

import (
	"context"

	"cipherchat/internal/server/models"
)

type Repository interface {
	// Create inserts a ciphertext row and returns it with ID and timestamp set.
	Create(ctx context.Context, msg *models.DirectMessage) (*models.DirectMessage, error)

	// ListConversation returns all messages between the two users, ordered by
	// creation time ascending.
	ListConversation(ctx context.Context, userA, userB string) ([]*models.DirectMessage, error)

	// GetByID returns a single message row.
	GetByID(ctx context.Context, id string) (*models.DirectMessage, error)

	// MarkRead sets read_at on a message addressed to recipientID. Rows with
	// read_at already set are left unchanged.
	MarkRead(ctx context.Context, id, recipientID string) error

	// CountUnread returns the number of unread messages addressed to the user.
	CountUnread(ctx context.Context, recipientID string) (int, error)
}
