// Package services contains server-side business logic. AuthService owns the
// signup, login, reissue and logout protocols and keeps the token lifecycle
// consistent between the signer, the credential store and the cache store.
package services

import (
	"context"
	"crypto/subtle"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/dmitrijs2005/authkeeper/internal/dbx"
	"github.com/dmitrijs2005/authkeeper/internal/logging"
	"github.com/dmitrijs2005/authkeeper/internal/server/auth"
	"github.com/dmitrijs2005/authkeeper/internal/server/cache"
	"github.com/dmitrijs2005/authkeeper/internal/server/config"
	"github.com/dmitrijs2005/authkeeper/internal/server/models"
	"github.com/dmitrijs2005/authkeeper/internal/server/repositories/repomanager"
)

// dummyPassword is hashed once at startup. Logins for unknown emails are
// compared against it so they cost as much as a wrong password does.
const dummyPassword = "authkeeper-dummy-password"

// AuthService holds no mutable state of its own: refresh records and the
// blacklist live in the cache store, users in the credential store.
//
// Refresh validity: a refresh token is accepted only if it verifies with
// the refresh secret AND equals the value currently stored under
// "<prefix>:<userID>". Login and reissue both overwrite that value, so at
// most one refresh token per user is live at any time.
type AuthService struct {
	db               *sql.DB
	repomanager      repomanager.RepositoryManager
	cache            cache.Store
	signer           *auth.Signer
	hasher           auth.Hasher
	logger           logging.Logger
	refreshKeyPrefix string
	blacklistKey     string
	dummyDigest      string
}

// NewAuthService wires the service. It fails only if the hasher cannot
// produce the dummy digest.
func NewAuthService(
	db *sql.DB,
	m repomanager.RepositoryManager,
	store cache.Store,
	signer *auth.Signer,
	hasher auth.Hasher,
	cfg *config.Config,
	logger logging.Logger,
) (*AuthService, error) {
	dummy, err := hasher.Hash(dummyPassword)
	if err != nil {
		return nil, fmt.Errorf("error preparing dummy digest: %w", err)
	}

	return &AuthService{
		db:               db,
		repomanager:      m,
		cache:            store,
		signer:           signer,
		hasher:           hasher,
		logger:           logger.With("module", "auth_service"),
		refreshKeyPrefix: cfg.RefreshKeyPrefix,
		blacklistKey:     cfg.BlacklistKey,
		dummyDigest:      dummy,
	}, nil
}

// Signup creates a user. No tokens are issued. The availability check is
// advisory; the unique index on email settles concurrent signups and is
// reported as common.ErrorAlreadyExists as well.
func (s *AuthService) Signup(ctx context.Context, data models.SignupData) (*models.User, error) {
	email := normalizeEmail(data.Email)
	if email == "" || data.Password == "" {
		return nil, fmt.Errorf("%w: email and password are required", common.ErrorValidation)
	}

	var user *models.User
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Users(tx)

		available, err := repo.EmailAvailable(ctx, email)
		if err != nil {
			return fmt.Errorf("error checking email: %w", err)
		}
		if !available {
			return common.ErrorAlreadyExists
		}

		digest, err := s.hasher.Hash(data.Password)
		if err != nil {
			return fmt.Errorf("error hashing password: %w", err)
		}

		user, err = repo.Create(ctx, &models.User{
			Email:          email,
			Name:           strings.TrimSpace(data.Name),
			PasswordDigest: digest,
		})
		if err != nil {
			if errors.Is(err, common.ErrorAlreadyExists) {
				return err
			}
			return fmt.Errorf("error creating user: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "user registered", "user_id", user.ID)
	return user, nil
}

// Login verifies credentials, issues a token pair and makes its refresh
// token the only valid one for the user.
func (s *AuthService) Login(ctx context.Context, email, password string) (*models.TokenPair, error) {
	email = normalizeEmail(email)

	userID, err := s.verifyCredentials(ctx, email, password)
	if err != nil {
		return nil, err
	}

	pair, err := s.issue(ctx, models.TokenPayload{UserID: userID, Email: email})
	if err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "login succeeded", "user_id", userID)
	return pair, nil
}

// ValidateUser runs the credential check of Login without issuing tokens.
// It returns nil on success and common.ErrInvalidCredentials otherwise.
func (s *AuthService) ValidateUser(ctx context.Context, email, password string) error {
	_, err := s.verifyCredentials(ctx, normalizeEmail(email), password)
	return err
}

// ReissueTokens mints a new pair for a caller holding a refresh token whose
// signature was already verified. The presented token must still be the one
// stored for the user; the new refresh token replaces it in one atomic swap,
// so concurrent reissues with the same token have a single winner.
func (s *AuthService) ReissueTokens(ctx context.Context, payload models.TokenPayload, refreshToken string) (*models.TokenPair, error) {
	if payload.UserID == "" {
		return nil, common.ErrInvalidToken
	}

	stored, err := s.cache.Get(ctx, s.refreshKey(payload.UserID))
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrInvalidToken
		}
		return nil, fmt.Errorf("error reading refresh record: %w", err)
	}
	if subtle.ConstantTimeCompare([]byte(stored), []byte(refreshToken)) != 1 {
		s.logger.Warn(ctx, "superseded refresh token presented", "user_id", payload.UserID)
		return nil, common.ErrInvalidToken
	}

	email, err := s.repomanager.Users(s.db).FindEmailByID(ctx, payload.UserID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrInvalidToken
		}
		return nil, fmt.Errorf("error searching user: %w", err)
	}

	pair, err := s.signer.SignTokens(models.TokenPayload{UserID: payload.UserID, Email: email})
	if err != nil {
		return nil, fmt.Errorf("error signing tokens: %w", err)
	}

	// the presented token is consumed only if it is still the stored one
	swapped, err := s.cache.CompareAndSwap(ctx, s.refreshKey(payload.UserID), refreshToken, pair.RefreshToken, s.signer.RefreshTTL())
	if err != nil {
		return nil, fmt.Errorf("error storing refresh record: %w", err)
	}
	if !swapped {
		s.logger.Warn(ctx, "refresh token rotated concurrently", "user_id", payload.UserID)
		return nil, common.ErrInvalidToken
	}

	s.logger.Info(ctx, "tokens reissued", "user_id", payload.UserID)
	return pair, nil
}

// Logout blacklists accessToken for the rest of its natural lifetime and
// drops the user's refresh record, ending the session.
func (s *AuthService) Logout(ctx context.Context, payload models.TokenPayload, accessToken string) error {
	if accessToken == "" {
		return common.ErrInvalidToken
	}

	if err := s.cache.AddToSet(ctx, s.blacklistKey, accessToken, s.signer.AccessTTL()); err != nil {
		return fmt.Errorf("error blacklisting access token: %w", err)
	}

	if payload.UserID != "" {
		if err := s.cache.Delete(ctx, s.refreshKey(payload.UserID)); err != nil {
			return fmt.Errorf("error deleting refresh record: %w", err)
		}
	}

	s.logger.Info(ctx, "logged out", "user_id", payload.UserID)
	return nil
}

// Authenticate is the per-request gate for access tokens: the signature and
// expiry must check out and the token must not be blacklisted.
func (s *AuthService) Authenticate(ctx context.Context, accessToken string) (*models.TokenPayload, error) {
	payload, err := s.signer.VerifyAccess(accessToken)
	if err != nil {
		return nil, err
	}

	revoked, err := s.IsBlacklisted(ctx, accessToken)
	if err != nil {
		return nil, err
	}
	if revoked {
		return nil, common.ErrInvalidToken
	}

	return payload, nil
}

// IsBlacklisted reports whether accessToken was revoked by a logout.
func (s *AuthService) IsBlacklisted(ctx context.Context, accessToken string) (bool, error) {
	revoked, err := s.cache.IsMember(ctx, s.blacklistKey, accessToken)
	if err != nil {
		return false, fmt.Errorf("error checking blacklist: %w", err)
	}
	return revoked, nil
}

// VerifyRefresh checks a refresh token's signature and expiry only. Whether
// it is still the current one is decided by ReissueTokens.
func (s *AuthService) VerifyRefresh(refreshToken string) (*models.TokenPayload, error) {
	return s.signer.VerifyRefresh(refreshToken)
}

// --- helpers below ---

// verifyCredentials returns the user id for a matching email/password pair.
// Unknown email, missing digest and wrong password all end in
// common.ErrInvalidCredentials.
func (s *AuthService) verifyCredentials(ctx context.Context, email, password string) (string, error) {
	repo := s.repomanager.Users(s.db)

	userID, err := repo.FindIDByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			s.hasher.Compare(password, s.dummyDigest)
			return "", common.ErrInvalidCredentials
		}
		return "", fmt.Errorf("error searching user: %w", err)
	}

	digest, err := repo.FindPasswordDigestByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return "", common.ErrInvalidCredentials
		}
		return "", fmt.Errorf("error reading password digest: %w", err)
	}

	if digest == "" || !s.hasher.Compare(password, digest) {
		return "", common.ErrInvalidCredentials
	}

	return userID, nil
}

// issue signs a pair and stores its refresh token as the user's only valid one.
func (s *AuthService) issue(ctx context.Context, payload models.TokenPayload) (*models.TokenPair, error) {
	pair, err := s.signer.SignTokens(payload)
	if err != nil {
		return nil, fmt.Errorf("error signing tokens: %w", err)
	}

	if err := s.cache.Set(ctx, s.refreshKey(payload.UserID), pair.RefreshToken, s.signer.RefreshTTL()); err != nil {
		return nil, fmt.Errorf("error storing refresh record: %w", err)
	}

	return pair, nil
}

func (s *AuthService) refreshKey(userID string) string {
	return s.refreshKeyPrefix + ":" + userID
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
