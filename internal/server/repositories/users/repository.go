// Package users is the credential store: user identity, email uniqueness
// and password digests.
package users

import (
	"context"

	"github.com/dmitrijs2005/authkeeper/internal/server/models"
)

// Repository defines the credential store operations used by the auth
// service. Lookups that find nothing return common.ErrorNotFound.
type Repository interface {
	// EmailAvailable reports whether no user is registered under email.
	EmailAvailable(ctx context.Context, email string) (bool, error)

	// Create inserts user and fills in its ID and CreatedAt. A uniqueness
	// violation on email is reported as common.ErrorAlreadyExists.
	Create(ctx context.Context, user *models.User) (*models.User, error)

	FindIDByEmail(ctx context.Context, email string) (string, error)
	FindEmailByID(ctx context.Context, userID string) (string, error)
	FindPasswordDigestByEmail(ctx context.Context, email string) (string, error)
}
