package service

import (
	"context"

	"github.com/bwmarrin/snowflake"
	analyticsdomain "github.com/nivala/pricing/internal/analytics/domain"
	"github.com/nivala/pricing/internal/clock"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB     *gorm.DB
	Log    *zap.Logger
	GenID  *snowflake.Node
	Clock  clock.Clock
	Config analyticsdomain.Config
	Repo   analyticsdomain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	cfg   analyticsdomain.Config
	repo  analyticsdomain.Repository
}

func New(p Params) analyticsdomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("analytics.service"),
		genID: p.GenID,
		clock: p.Clock,
		cfg:   p.Config,
		repo:  p.Repo,
	}
}

func (s *Service) ComputeSnapshot(ctx context.Context, serviceTypeID snowflake.ID, windowDays int) (*analyticsdomain.Snapshot, error) {
	if serviceTypeID == 0 {
		return nil, analyticsdomain.ErrInvalidServiceType
	}
	windowDays, err := s.resolveWindow(windowDays)
	if err != nil {
		return nil, err
	}

	end := s.clock.Now()
	start := end.AddDate(0, 0, -windowDays)

	row, err := s.repo.Aggregate(ctx, s.db, serviceTypeID, start, end)
	if err != nil {
		return nil, err
	}
	if row.SessionCount == 0 {
		return nil, analyticsdomain.ErrNoData
	}

	snapshot := &analyticsdomain.Snapshot{
		ServiceTypeID:    serviceTypeID,
		WindowStart:      start,
		WindowEnd:        end,
		SessionCount:     row.SessionCount,
		CompletedCount:   row.CompletedCount,
		MeanRevenueMinor: row.RevenueMinorSum / float64(row.SessionCount),
		UniqueUsers:      row.UniqueUsers,
		GeneratedAt:      end,
	}

	rate := float64(row.CompletedCount) / float64(row.SessionCount)
	snapshot.CompletionRate = &rate

	// Mean satisfaction only counts sessions the user actually rated.
	if row.RatedCount > 0 {
		mean := row.SatisfactionSum / float64(row.RatedCount)
		snapshot.MeanSatisfaction = &mean
	}

	return snapshot, nil
}

func (s *Service) DemandBaseline(ctx context.Context, serviceTypeID snowflake.ID, windowDays int) (float64, error) {
	if serviceTypeID == 0 {
		return 0, analyticsdomain.ErrInvalidServiceType
	}
	windowDays, err := s.resolveWindow(windowDays)
	if err != nil {
		return 0, err
	}

	current := s.clock.Now().AddDate(0, 0, -windowDays)

	var total int
	windows := 0
	end := current
	for i := 0; i < analyticsdomain.BaselineWindows; i++ {
		start := end.AddDate(0, 0, -windowDays)
		count, err := s.repo.CountSessions(ctx, s.db, serviceTypeID, start, end)
		if err != nil {
			return 0, err
		}
		if count > 0 {
			total += count
			windows++
		}
		end = start
	}
	if windows == 0 {
		return 0, nil
	}
	return float64(total) / float64(windows), nil
}

func (s *Service) RefreshSnapshot(ctx context.Context, serviceTypeID snowflake.ID, windowDays int) error {
	snapshot, err := s.ComputeSnapshot(ctx, serviceTypeID, windowDays)
	if err != nil {
		if err == analyticsdomain.ErrNoData {
			return nil
		}
		return err
	}

	if err := s.repo.UpsertSnapshot(ctx, s.db, s.genID.Generate(), snapshot); err != nil {
		return err
	}
	s.log.Debug("snapshot refreshed",
		zap.String("service_type_id", serviceTypeID.String()),
		zap.Int("session_count", snapshot.SessionCount),
	)
	return nil
}

func (s *Service) ListSnapshots(ctx context.Context) ([]analyticsdomain.Snapshot, error) {
	return s.repo.ListSnapshots(ctx, s.db)
}

func (s *Service) resolveWindow(windowDays int) (int, error) {
	if windowDays == 0 {
		windowDays = s.cfg.WindowDays
		if windowDays == 0 {
			windowDays = analyticsdomain.DefaultWindowDays
		}
	}
	if windowDays < 1 || windowDays > analyticsdomain.MaxWindowDays {
		return 0, analyticsdomain.ErrInvalidWindow
	}
	return windowDays, nil
}
