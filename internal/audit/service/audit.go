package service

import (
	"context"
	"sync"

	"unistay/internal/audit/repository"
	"unistay/pkg/auth"
	apperrors "unistay/pkg/errors"
	"unistay/pkg/logger"
	"unistay/pkg/model"
)

// Recorder appends audit entries. Recording never fails the caller.
type Recorder interface {
	Record(ctx context.Context, entry model.AuditLog)
}

type AuditService interface {
	Recorder
	List(ctx context.Context, filter model.AuditFilter, limit int, offset int64) ([]*model.AuditLog, int64, error)
}

type auditService struct {
	repo repository.AuditLogRepository
	log  *logger.Logger
}

func NewAuditService(repo repository.AuditLogRepository, log *logger.Logger) AuditService {
	return &auditService{
		repo: repo,
		log:  log,
	}
}

// Entry builds an audit entry for the caller in ctx.
func Entry(ctx context.Context, action, resourceType, resourceID string, details map[string]any) model.AuditLog {
	entry := model.AuditLog{
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		RequestID:    logger.RequestID(ctx),
		Details:      details,
	}

	if p := auth.FromContext(ctx); p != nil {
		entry.ActorID = p.UserID
		entry.ActorRole = p.Role
		entry.IP = p.IP
		entry.UserAgent = p.UserAgent
	} else {
		entry.ActorRole = model.RoleAnonymous
	}

	return entry
}

func (s *auditService) Record(ctx context.Context, entry model.AuditLog) {
	// Detached so a cancelled request still leaves its trail.
	ctx = context.WithoutCancel(ctx)

	if err := s.repo.Insert(ctx, &entry); err != nil {
		s.log.WithContext(ctx).Warn("Failed to record audit log",
			"action", entry.Action,
			"resource_type", entry.ResourceType,
			"resource_id", entry.ResourceID,
			"error", err,
		)
	}
}

func (s *auditService) List(ctx context.Context, filter model.AuditFilter, limit int, offset int64) ([]*model.AuditLog, int64, error) {
	var count int64
	var entries []*model.AuditLog
	var errCount, errFind error
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		count, errCount = s.repo.Count(ctx, filter)
	}()

	go func() {
		defer wg.Done()
		entries, errFind = s.repo.Find(ctx, filter, limit, offset)
	}()

	wg.Wait()
	if errCount != nil {
		s.log.Error("Failed to count audit logs", "error", errCount)
		return nil, 0, apperrors.Internal("Failed to count audit logs", errCount)
	}
	if errFind != nil {
		s.log.Error("Failed to list audit logs", "error", errFind)
		return nil, 0, apperrors.Internal("Failed to retrieve audit logs", errFind)
	}

	return entries, count, nil
}

// Nop discards entries. Used where no audit trail is wired.
type Nop struct{}

func (Nop) Record(context.Context, model.AuditLog) {}

