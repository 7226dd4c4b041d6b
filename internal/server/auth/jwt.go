// Package auth holds the two cryptographic capabilities the auth service
// depends on: a JWT signer with separate access/refresh configurations and
// a bcrypt password hasher.
package auth

import (
	"errors"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/dmitrijs2005/authkeeper/internal/server/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Claims are the registered JWT claims plus the token payload.
type Claims struct {
	jwt.RegisteredClaims
	UserID string `json:"userId"`
	Email  string `json:"email"`
}

// GenerateToken signs payload with HS256. Every token gets its own random
// jti so that two tokens signed in the same second never collide.
func GenerateToken(payload models.TokenPayload, secretKey []byte, validity time.Duration, now time.Time) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   payload.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(validity)),
		},
		UserID: payload.UserID,
		Email:  payload.Email,
	})

	return token.SignedString(secretKey)
}

// ParseToken verifies tokenString against secretKey and returns its payload.
// Expired tokens yield common.ErrTokenExpired, every other failure
// common.ErrInvalidToken.
func ParseToken(tokenString string, secretKey []byte) (*models.TokenPayload, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return secretKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, common.ErrTokenExpired
		}
		return nil, common.ErrInvalidToken
	}

	if !token.Valid {
		return nil, common.ErrInvalidToken
	}

	return &models.TokenPayload{UserID: claims.UserID, Email: claims.Email}, nil
}

// SignerConfig carries the secrets and lifetimes of both token classes.
type SignerConfig struct {
	AccessSecret  []byte
	AccessTTL     time.Duration
	RefreshSecret []byte
	RefreshTTL    time.Duration
}

// Signer issues and verifies access and refresh tokens. It is a pure
// component: no I/O, and secrets never leave it.
type Signer struct {
	cfg SignerConfig
	now func() time.Time
}

func NewSigner(cfg SignerConfig) *Signer {
	return &Signer{cfg: cfg, now: time.Now}
}

// SignTokens returns a fresh access/refresh pair for payload.
func (s *Signer) SignTokens(payload models.TokenPayload) (*models.TokenPair, error) {
	now := s.now()

	access, err := GenerateToken(payload, s.cfg.AccessSecret, s.cfg.AccessTTL, now)
	if err != nil {
		return nil, err
	}

	refresh, err := GenerateToken(payload, s.cfg.RefreshSecret, s.cfg.RefreshTTL, now)
	if err != nil {
		return nil, err
	}

	return &models.TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

func (s *Signer) VerifyAccess(token string) (*models.TokenPayload, error) {
	return ParseToken(token, s.cfg.AccessSecret)
}

func (s *Signer) VerifyRefresh(token string) (*models.TokenPayload, error) {
	return ParseToken(token, s.cfg.RefreshSecret)
}

func (s *Signer) AccessTTL() time.Duration  { return s.cfg.AccessTTL }
func (s *Signer) RefreshTTL() time.Duration { return s.cfg.RefreshTTL }
