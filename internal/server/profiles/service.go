package profiles

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"golang.org/x/crypto/argon2"

	"cipherchat/internal/common"
	"cipherchat/internal/server/auth"
	"cipherchat/internal/server/config"
	"cipherchat/internal/server/models"
	"cipherchat/internal/server/refreshtokens"
)

type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

type Service struct {
	repo                         Repository
	refreshTokenRepo             refreshtokens.Repository
	jwtSecret                    []byte
	accessTokenValidityDuration  time.Duration
	refreshTokenValidityDuration time.Duration
}

func NewService(repo Repository, refreshTokenRepo refreshtokens.Repository, cfg *config.Config) *Service {
	return &Service{
		repo:                         repo,
		refreshTokenRepo:             refreshTokenRepo,
		jwtSecret:                    []byte(cfg.SecretKey),
		accessTokenValidityDuration:  cfg.AccessTokenValidityDuration,
		refreshTokenValidityDuration: cfg.RefreshTokenValidityDuration,
	}
}

func hashPassword(password []byte, salt []byte) []byte {
	return argon2.IDKey(password, salt, 1, 64*1024, 4, 32)
}

// Register creates a profile with the user's published public key. The
// password is hashed server-side with argon2id and a per-user random salt;
// the public key arrives from the client, which keeps the matching private
// key to itself.
func (s *Service) Register(ctx context.Context, userName, displayName, publicKey string, password []byte) (*models.Profile, error) {

	salt := common.GenerateRandByteArray(32)

	profile := &models.Profile{
		UserName:     userName,
		DisplayName:  displayName,
		PublicKey:    publicKey,
		PasswordHash: hashPassword(password, salt),
		Salt:         salt,
	}

	profile, err := s.repo.Create(ctx, profile)
	if err != nil {
		return nil, fmt.Errorf("error creating profile: %w", err)
	}

	return profile, nil
}

func (s *Service) checkPassword(p *models.Profile, password []byte) bool {
	candidate := hashPassword(password, p.Salt)
	return subtle.ConstantTimeCompare(p.PasswordHash, candidate) == 1
}

func (s *Service) issueTokenPair(ctx context.Context, userID string) (*TokenPair, error) {
	accessToken, err := auth.GenerateToken(userID, s.jwtSecret, s.accessTokenValidityDuration)
	if err != nil {
		return nil, common.ErrorInternal
	}

	refreshToken, err := common.MakeRandHexString(32)
	if err != nil {
		return nil, common.ErrorInternal
	}

	if err := s.refreshTokenRepo.Create(ctx, userID, refreshToken, s.refreshTokenValidityDuration); err != nil {
		return nil, common.ErrorInternal
	}

	return &TokenPair{AccessToken: accessToken, RefreshToken: refreshToken}, nil
}

func (s *Service) Login(ctx context.Context, userName string, password []byte) (*models.Profile, *TokenPair, error) {

	profile, err := s.repo.GetByUserName(ctx, userName)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, nil, common.ErrorUnauthorized
		}
		return nil, nil, common.ErrorInternal
	}

	if !s.checkPassword(profile, password) {
		return nil, nil, common.ErrorUnauthorized
	}

	pair, err := s.issueTokenPair(ctx, profile.ID)
	if err != nil {
		return nil, nil, err
	}

	return profile, pair, nil
}

// Refresh rotates a refresh token: the presented token is deleted and a new
// pair is issued. Expired or unknown tokens fail with ErrRefreshTokenExpired.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {

	stored, err := s.refreshTokenRepo.Find(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrRefreshTokenExpired
		}
		return nil, common.ErrorInternal
	}

	if time.Now().After(stored.Expires) {
		_ = s.refreshTokenRepo.Delete(ctx, refreshToken)
		return nil, common.ErrRefreshTokenExpired
	}

	if err := s.refreshTokenRepo.Delete(ctx, refreshToken); err != nil {
		return nil, common.ErrorInternal
	}

	return s.issueTokenPair(ctx, stored.UserID)
}

func (s *Service) GetByID(ctx context.Context, id string) (*models.Profile, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) GetByUserName(ctx context.Context, userName string) (*models.Profile, error) {
	return s.repo.GetByUserName(ctx, userName)
}

func (s *Service) Search(ctx context.Context, query string, limit int) ([]*models.Profile, error) {
	if limit <= 0 || limit > 50 {
		limit = 50
	}
	return s.repo.Search(ctx, query, limit)
}

func (s *Service) UpdatePublicKey(ctx context.Context, userID, publicKey string) error {
	return s.repo.UpdatePublicKey(ctx, userID, publicKey)
}
