package services

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"assettrack/internal/domain"
	"assettrack/internal/repos"
)

type DashboardService struct {
	DB  *sqlx.DB
	Now Clock
}

func NewDashboardService(db *sqlx.DB, now Clock) *DashboardService {
	if now == nil {
		now = time.Now
	}
	return &DashboardService{DB: db, Now: now}
}

// Overview reads every dashboard figure from one snapshot.
func (s *DashboardService) Overview(ctx context.Context) (domain.Overview, error) {
	now := s.Now().UTC()
	ov := domain.Overview{AssetsByStatus: map[string]int{}, AuditsByStatus: map[string]int{}}
	err := repos.WithTx(ctx, s.DB, func(tx *sqlx.Tx) error {
		assets := repos.NewAssetRepo(tx)
		byStatus, err := assets.CountBy(ctx, "status")
		if err != nil {
			return err
		}
		for _, g := range byStatus {
			if g.Key != nil {
				ov.AssetsByStatus[*g.Key] = g.Count
			}
			ov.Assets += g.Count
		}
		if ov.ByCategory, err = assets.CountBy(ctx, "category_id"); err != nil {
			return err
		}
		if ov.ByLocation, err = assets.CountBy(ctx, "location_id"); err != nil {
			return err
		}
		if ov.Outstanding, ov.Overdue, err = repos.NewAssignmentRepo(tx).Counts(ctx, now); err != nil {
			return err
		}
		if ov.OpenTickets, err = repos.NewTicketRepo(tx).OpenCount(ctx); err != nil {
			return err
		}
		audits, err := repos.NewAuditRepo(tx).CountByStatus(ctx)
		if err != nil {
			return err
		}
		for _, g := range audits {
			if g.Key != nil {
				ov.AuditsByStatus[*g.Key] = g.Count
			}
		}
		return nil
	})
	if err != nil {
		return domain.Overview{}, storeErr("dashboard overview", err)
	}
	return ov, nil
}
