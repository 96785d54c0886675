package groups

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"cipherchat/internal/common"
	"cipherchat/internal/dbx"
	"cipherchat/internal/server/models"
)

// withTx is a test seam for dbx.WithTx.
var withTx = dbx.WithTx

// WrappedMemberKey is one invitee's copy of the group key, wrapped by the
// creating client under that member's public key before it ever reaches the
// server.
type WrappedMemberKey struct {
	UserID            string
	EncryptedGroupKey string
}

// Service manages group records and memberships. Key wrapping happens on the
// client; this service only persists the resulting opaque copies. Admin
// checks on membership changes are enforced here as the backend's access
// policy; clients additionally gate these actions in their UI.
type Service struct {
	db      *sql.DB
	newRepo func(db dbx.DBTX) Repository
}

func NewService(db *sql.DB) *Service {
	return &Service{
		db:      db,
		newRepo: func(db dbx.DBTX) Repository { return NewPostgresRepository(db) },
	}
}

// Create persists a new group in one transaction: the group row carrying the
// creator's wrapped key, the creator's admin membership, and one member row
// per invitee the client managed to wrap the key for. Invitees without a
// published public key never appear in memberKeys; the caller reports those
// separately.
func (s *Service) Create(ctx context.Context, g *models.ChatGroup, memberKeys []WrappedMemberKey) (*models.ChatGroup, error) {

	if g.Name == "" {
		return nil, fmt.Errorf("%w: group name required", common.ErrInvalidFormat)
	}
	if g.EncryptedGroupKey == "" {
		return nil, fmt.Errorf("%w: creator group key required", common.ErrInvalidFormat)
	}

	err := withTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.newRepo(tx)

		created, err := repo.CreateGroup(ctx, g)
		if err != nil {
			return err
		}

		creator := &models.GroupMember{
			GroupID:           created.ID,
			UserID:            created.CreatedBy,
			Role:              models.RoleAdmin,
			EncryptedGroupKey: created.EncryptedGroupKey,
		}
		if err := repo.InsertMember(ctx, creator); err != nil {
			return err
		}

		for _, mk := range memberKeys {
			if mk.UserID == created.CreatedBy {
				continue
			}
			member := &models.GroupMember{
				GroupID:           created.ID,
				UserID:            mk.UserID,
				Role:              models.RoleMember,
				EncryptedGroupKey: mk.EncryptedGroupKey,
			}
			if err := repo.InsertMember(ctx, member); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("error creating group: %w", err)
	}

	return g, nil
}

func (s *Service) requireAdmin(ctx context.Context, repo Repository, groupID, userID string) error {
	m, err := repo.GetMembership(ctx, groupID, userID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrorUnauthorized
		}
		return err
	}
	if m.Role != models.RoleAdmin {
		return common.ErrorUnauthorized
	}
	return nil
}

// AddMember inserts a membership row for a new member. The acting user must
// be an admin of the group; the wrapped key comes from the admin's client,
// which holds the decrypted group key in session.
func (s *Service) AddMember(ctx context.Context, actorID, groupID, userID, encryptedGroupKey string) (*models.GroupMember, error) {

	repo := s.newRepo(s.db)

	if err := s.requireAdmin(ctx, repo, groupID, actorID); err != nil {
		return nil, err
	}

	member := &models.GroupMember{
		GroupID:           groupID,
		UserID:            userID,
		Role:              models.RoleMember,
		EncryptedGroupKey: encryptedGroupKey,
	}
	if err := repo.InsertMember(ctx, member); err != nil {
		return nil, err
	}
	return member, nil
}

// RemoveMember deletes a membership row. A user may always remove themselves
// (leave); removing anyone else requires admin role. The group is not
// re-keyed: messages already encrypted under the group key stay readable by
// anyone who kept that key.
func (s *Service) RemoveMember(ctx context.Context, actorID, groupID, userID string) error {

	repo := s.newRepo(s.db)

	if actorID != userID {
		if err := s.requireAdmin(ctx, repo, groupID, actorID); err != nil {
			return err
		}
	}

	return repo.DeleteMember(ctx, groupID, userID)
}

func (s *Service) GetByID(ctx context.Context, id string) (*models.ChatGroup, error) {
	return s.newRepo(s.db).GetByID(ctx, id)
}

func (s *Service) ListForUser(ctx context.Context, userID string) ([]*models.ChatGroup, error) {
	return s.newRepo(s.db).ListForUser(ctx, userID)
}

// GetMembership returns the caller's own membership row, used by clients to
// bootstrap a group view with their wrapped key copy.
func (s *Service) GetMembership(ctx context.Context, groupID, userID string) (*models.GroupMember, error) {
	return s.newRepo(s.db).GetMembership(ctx, groupID, userID)
}

// ListMembers is restricted to current members of the group.
func (s *Service) ListMembers(ctx context.Context, actorID, groupID string) ([]*models.GroupMember, error) {

	repo := s.newRepo(s.db)

	ok, err := repo.IsMember(ctx, groupID, actorID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, common.ErrorUnauthorized
	}

	return repo.ListMembers(ctx, groupID)
}

func (s *Service) IsMember(ctx context.Context, groupID, userID string) (bool, error) {
	return s.newRepo(s.db).IsMember(ctx, groupID, userID)
}
