// Package files declares and implements persistence for uploaded file
// metadata and the aggregate queries dashboards are built from.
package files

import (
	"context"

	"github.com/dmitrijs2005/filevault/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, file *models.File) (*models.File, error)
	// ListByUser returns the user's files, newest first.
	ListByUser(ctx context.Context, userID string) ([]*models.File, error)
	Get(ctx context.Context, userID, id string) (*models.File, error)
	// Delete removes the record and returns its storage key.
	Delete(ctx context.Context, userID, id string) (string, error)

	CountByTypeForUser(ctx context.Context, userID string) (map[models.FileType]int64, error)
	CountByType(ctx context.Context) (map[models.FileType]int64, error)
	// CountPerUser returns file counts keyed by owner email. Users without
	// files are omitted.
	CountPerUser(ctx context.Context) (map[string]int64, error)
}
