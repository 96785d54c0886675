package groupmsgs

import (
	"context"

	"cipherchat/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, msg *models.GroupMessage) (*models.GroupMessage, error)

	// ListByGroup returns all of the group's messages ordered by creation
	// time ascending.
	ListByGroup(ctx context.Context, groupID string) ([]*models.GroupMessage, error)
}
