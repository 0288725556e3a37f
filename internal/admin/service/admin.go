package service

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"unistay/internal/admin/repository"
	auditservice "unistay/internal/audit/service"
	"unistay/internal/occupancy"
	"unistay/pkg/auth"
	apperrors "unistay/pkg/errors"
	"unistay/pkg/logger"
	"unistay/pkg/model"
)

type Reconciler interface {
	Run(ctx context.Context) (*occupancy.Report, error)
}

type AdminService interface {
	Stats(ctx context.Context, caller *auth.Principal) (*model.DashboardStats, error)
	ReconcileOccupancy(ctx context.Context, caller *auth.Principal) (*occupancy.Report, error)
}

type adminService struct {
	stats      repository.StatsRepository
	reconciler Reconciler
	audit      auditservice.Recorder
	log        *logger.Logger
}

func NewAdminService(stats repository.StatsRepository, reconciler Reconciler, audit auditservice.Recorder, log *logger.Logger) AdminService {
	return &adminService{
		stats:      stats,
		reconciler: reconciler,
		audit:      audit,
		log:        log,
	}
}

func (s *adminService) Stats(ctx context.Context, caller *auth.Principal) (*model.DashboardStats, error) {
	if !caller.IsAdmin() {
		return nil, apperrors.Forbidden("admin role required")
	}

	stats := &model.DashboardStats{}
	var (
		errUsers      error
		errBookings   error
		errProperties error
		errPromotions error
		errReviews    error
		wg            sync.WaitGroup
	)

	wg.Add(5)
	go func() {
		defer wg.Done()
		stats.UsersByRole, errUsers = s.stats.UsersByRole(ctx)
	}()
	go func() {
		defer wg.Done()
		stats.BookingsByStatus, errBookings = s.stats.BookingsByStatus(ctx)
	}()
	go func() {
		defer wg.Done()
		stats.PropertiesByStatus, errProperties = s.stats.PropertiesByStatus(ctx)
	}()
	go func() {
		defer wg.Done()
		stats.PendingPromotions, errPromotions = s.stats.PendingPromotions(ctx)
	}()
	go func() {
		defer wg.Done()
		stats.FlaggedReviews, errReviews = s.stats.FlaggedReviews(ctx)
	}()
	wg.Wait()

	if err := errors.Join(errUsers, errBookings, errProperties, errPromotions, errReviews); err != nil {
		s.log.Error("Failed to gather dashboard stats", "error", err)
		return nil, apperrors.Internal("Failed to gather dashboard stats", err)
	}
	return stats, nil
}

func (s *adminService) ReconcileOccupancy(ctx context.Context, caller *auth.Principal) (*occupancy.Report, error) {
	if !caller.IsAdmin() {
		return nil, apperrors.Forbidden("admin role required")
	}

	report, err := s.reconciler.Run(ctx)
	if errors.Is(err, occupancy.ErrRunning) {
		return nil, apperrors.Conflict("occupancy reconcile already running")
	}
	if err != nil && report == nil {
		s.log.Error("Occupancy reconcile failed", "error", err)
		return nil, apperrors.Internal("Failed to reconcile occupancy", err)
	}

	s.audit.Record(ctx, auditservice.Entry(ctx, "occupancy.reconcile", "property", "", map[string]any{
		"checked":   report.Checked,
		"corrected": len(report.Corrections),
		"failed":    report.Failed,
	}))

	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeInternal, "Some properties could not be repaired", http.StatusInternalServerError)
	}
	return report, nil
}
