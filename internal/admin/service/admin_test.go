package service

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"unistay/internal/occupancy"
	"unistay/pkg/auth"
	apperrors "unistay/pkg/errors"
	"unistay/pkg/logger"
	"unistay/pkg/model"
)

type stubStats struct {
	failBookings bool
}

func (s *stubStats) UsersByRole(context.Context) (map[string]int64, error) {
	return map[string]int64{"student": 10, "owner": 3, "admin": 1}, nil
}

func (s *stubStats) BookingsByStatus(context.Context) (map[string]int64, error) {
	if s.failBookings {
		return nil, errors.New("aggregate failed")
	}
	return map[string]int64{"pending": 2}, nil
}

func (s *stubStats) PropertiesByStatus(context.Context) (map[string]int64, error) {
	return map[string]int64{"approved": 4}, nil
}

func (s *stubStats) PendingPromotions(context.Context) (int64, error) { return 2, nil }

func (s *stubStats) FlaggedReviews(context.Context) (int64, error) { return 1, nil }

type stubReconciler struct {
	report *occupancy.Report
	err    error
}

func (s *stubReconciler) Run(context.Context) (*occupancy.Report, error) {
	return s.report, s.err
}

type recordingAudit struct {
	actions []string
}

func (r *recordingAudit) Record(_ context.Context, entry model.AuditLog) {
	r.actions = append(r.actions, entry.Action)
}

var admin = &auth.Principal{UserID: "a1", Role: model.RoleAdmin}

func statusOf(err error) int {
	return apperrors.AsAppError(err).StatusCode()
}

func TestStats(t *testing.T) {
	svc := NewAdminService(&stubStats{}, &stubReconciler{}, &recordingAudit{}, logger.Discard())

	stats, err := svc.Stats(context.Background(), admin)
	if err != nil {
		t.Fatal(err)
	}
	if stats.UsersByRole["student"] != 10 || stats.BookingsByStatus["pending"] != 2 ||
		stats.PropertiesByStatus["approved"] != 4 || stats.PendingPromotions != 2 || stats.FlaggedReviews != 1 {
		t.Errorf("stats = %+v", stats)
	}

	student := &auth.Principal{UserID: "s1", Role: model.RoleStudent}
	if _, err := svc.Stats(context.Background(), student); statusOf(err) != http.StatusForbidden {
		t.Errorf("student stats error = %v", err)
	}
}

func TestStats_AggregationFailure(t *testing.T) {
	svc := NewAdminService(&stubStats{failBookings: true}, &stubReconciler{}, &recordingAudit{}, logger.Discard())
	if _, err := svc.Stats(context.Background(), admin); statusOf(err) != http.StatusInternalServerError {
		t.Errorf("error = %v, want 500", err)
	}
}

func TestReconcileOccupancy(t *testing.T) {
	tests := []struct {
		name       string
		reconciler *stubReconciler
		wantStatus int
		wantAudit  bool
	}{
		{
			name:       "clean run",
			reconciler: &stubReconciler{report: &occupancy.Report{Checked: 3}},
			wantAudit:  true,
		},
		{
			name:       "already running",
			reconciler: &stubReconciler{err: occupancy.ErrRunning},
			wantStatus: http.StatusConflict,
		},
		{
			name:       "read failure",
			reconciler: &stubReconciler{err: errors.New("mongo down")},
			wantStatus: http.StatusInternalServerError,
		},
		{
			name:       "partial repair",
			reconciler: &stubReconciler{report: &occupancy.Report{Checked: 3, Failed: 1}, err: errors.New("failed to repair 1 properties")},
			wantStatus: http.StatusInternalServerError,
			wantAudit:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			audit := &recordingAudit{}
			svc := NewAdminService(&stubStats{}, tt.reconciler, audit, logger.Discard())

			report, err := svc.ReconcileOccupancy(context.Background(), admin)
			if tt.wantStatus == 0 {
				if err != nil || report == nil {
					t.Fatalf("ReconcileOccupancy() = %v, %v", report, err)
				}
			} else if statusOf(err) != tt.wantStatus {
				t.Fatalf("status = %d, want %d (%v)", statusOf(err), tt.wantStatus, err)
			}

			if got := len(audit.actions) == 1; got != tt.wantAudit {
				t.Errorf("audited = %v, want %v", audit.actions, tt.wantAudit)
			}
		})
	}
}
