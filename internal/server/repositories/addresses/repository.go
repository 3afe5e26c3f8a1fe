// Package addresses declares and implements persistence for postal
// addresses. Every lookup is scoped by owner.
package addresses

import (
	"context"

	"github.com/dmitrijs2005/filevault/internal/server/models"
)

type Repository interface {
	ListByUser(ctx context.Context, userID string) ([]*models.Address, error)
	Get(ctx context.Context, userID, id string) (*models.Address, error)
	CountByUser(ctx context.Context, userID string) (int64, error)
	Create(ctx context.Context, a *models.Address) (*models.Address, error)
	Update(ctx context.Context, a *models.Address) error
	// Delete removes the address and reports whether it was the default one.
	Delete(ctx context.Context, userID, id string) (bool, error)
	// ClearDefault unsets the default flag on every address of userID.
	ClearDefault(ctx context.Context, userID string) error
	SetDefault(ctx context.Context, userID, id string) error
	// PromoteOldest marks the earliest created address of userID as default.
	PromoteOldest(ctx context.Context, userID string) error
}
