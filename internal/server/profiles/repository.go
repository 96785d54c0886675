package profiles

import (
	"context"

	"cipherchat/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, profile *models.Profile) (*models.Profile, error)
	GetByID(ctx context.Context, id string) (*models.Profile, error)
	GetByUserName(ctx context.Context, userName string) (*models.Profile, error)
	Search(ctx context.Context, query string, limit int) ([]*models.Profile, error)
	UpdatePublicKey(ctx context.Context, id string, publicKey string) error
}
