package services

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/filevault/internal/common"
	"github.com/dmitrijs2005/filevault/internal/server/models"
	"github.com/dmitrijs2005/filevault/internal/server/repositories/repomanager"
)

type DashboardService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
}

func NewDashboardService(db *sql.DB, m repomanager.RepositoryManager) *DashboardService {
	return &DashboardService{db: db, repomanager: m}
}

// UserDashboard summarizes the files of one user.
func (s *DashboardService) UserDashboard(ctx context.Context, userID string) (*models.Dashboard, error) {
	counts, err := s.repomanager.Files(s.db).CountByTypeForUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	total, breakdown := summarize(counts)
	return &models.Dashboard{TotalFiles: total, Breakdown: breakdown}, nil
}

// GlobalDashboard summarizes every file in the system. Only staff and
// admins may see it.
func (s *DashboardService) GlobalDashboard(ctx context.Context, caller *models.User) (*models.Dashboard, error) {
	if !caller.IsPrivileged() {
		return nil, common.ErrorForbidden
	}

	repo := s.repomanager.Files(s.db)

	counts, err := repo.CountByType(ctx)
	if err != nil {
		return nil, err
	}
	perUser, err := repo.CountPerUser(ctx)
	if err != nil {
		return nil, err
	}

	total, breakdown := summarize(counts)
	return &models.Dashboard{TotalFiles: total, Breakdown: breakdown, FilesPerUser: perUser}, nil
}

// summarize totals the per-type counts and re-keys them by display name.
// Types without files are left out.
func summarize(counts map[models.FileType]int64) (int64, map[string]int64) {
	var total int64
	breakdown := make(map[string]int64, len(counts))
	for t, n := range counts {
		if n <= 0 {
			continue
		}
		total += n
		breakdown[t.DisplayName()] += n
	}
	return total, breakdown
}
