package groups

import (
	"context"

	"cipherchat/internal/server/models"
)

type Repository interface {
	// CreateGroup inserts the group row (with the creator's wrapped key copy)
	// and returns it with ID and timestamp set.
	CreateGroup(ctx context.Context, g *models.ChatGroup) (*models.ChatGroup, error)

	GetByID(ctx context.Context, id string) (*models.ChatGroup, error)

	// ListForUser returns the groups the user is currently a member of.
	ListForUser(ctx context.Context, userID string) ([]*models.ChatGroup, error)

	// InsertMember adds a membership row carrying that member's wrapped copy
	// of the group key.
	InsertMember(ctx context.Context, m *models.GroupMember) error

	DeleteMember(ctx context.Context, groupID, userID string) error

	// GetMembership returns one user's membership row, including their
	// wrapped group key.
	GetMembership(ctx context.Context, groupID, userID string) (*models.GroupMember, error)

	// ListMembers returns all current members joined with profile display data.
	ListMembers(ctx context.Context, groupID string) ([]*models.GroupMember, error)

	// IsMember reports whether the user currently belongs to the group.
	IsMember(ctx context.Context, groupID, userID string) (bool, error)
}
