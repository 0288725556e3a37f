package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	notificationerrors "unistay/internal/notifications/errors"
	"unistay/internal/notifications/repository"
	"unistay/pkg/auth"
	apperrors "unistay/pkg/errors"
	"unistay/pkg/logger"
	"unistay/pkg/model"
)

type NotificationService interface {
	// Deliver fans a booking event out to the parties that did not cause it.
	// Redelivered events are absorbed by the per-recipient uniqueness on event id.
	Deliver(ctx context.Context, event *model.BookingEvent) (int, error)
	List(ctx context.Context, caller *auth.Principal, unreadOnly bool, limit int, offset int64) ([]*model.Notification, int64, error)
	MarkRead(ctx context.Context, caller *auth.Principal, id string) error
}

type notificationService struct {
	repo repository.NotificationRepository
	log  *logger.Logger
	now  func() time.Time
}

func NewNotificationService(repo repository.NotificationRepository, log *logger.Logger) NotificationService {
	return &notificationService{
		repo: repo,
		log:  log,
		now:  func() time.Time { return time.Now().UTC() },
	}
}

type template struct {
	title string
	body  string
}

var templates = map[string]template{
	"create":    {"New booking request", "A student requested booking %s."},
	"mock-pay":  {"Booking paid", "Booking %s was paid in test mode."},
	"accept":    {"Booking accepted", "Booking %s was accepted by the owner."},
	"reject":    {"Booking rejected", "Booking %s was rejected by the owner."},
	"cancel":    {"Booking cancelled", "Booking %s was cancelled."},
	"pay":       {"Payment received", "Payment for booking %s was confirmed."},
	"checkin":   {"Checked in", "Booking %s is now checked in."},
	"complete":  {"Stay completed", "Booking %s is complete."},
	"force-set": {"Booking updated by support", "Support changed the status of booking %s."},
	"delete":    {"Booking removed", "Booking %s was removed by support."},
}

func (s *notificationService) Deliver(ctx context.Context, event *model.BookingEvent) (int, error) {
	tmpl, ok := templates[event.Action]
	if !ok {
		s.log.Debug("No notification template for action", "action", event.Action, "event_id", event.EventID)
		return 0, nil
	}

	delivered := 0
	for _, userID := range Recipients(event) {
		notification := &model.Notification{
			UserID:    userID,
			Kind:      "booking." + event.Action,
			Title:     tmpl.title,
			Body:      fmt.Sprintf(tmpl.body, event.BookingID),
			BookingID: event.BookingID,
			EventID:   event.EventID,
			CreatedAt: s.now(),
		}
		if event.Refund > 0 && userID == event.StudentID {
			notification.Body += fmt.Sprintf(" Refund: %.2f.", event.Refund)
		}

		if err := s.repo.Create(ctx, notification); err != nil {
			if errors.Is(err, notificationerrors.ErrDuplicate) {
				s.log.Debug("Notification already delivered", "event_id", event.EventID, "user_id", userID)
				continue
			}
			return delivered, fmt.Errorf("failed to deliver notification to %s: %w", userID, err)
		}
		delivered++
	}
	return delivered, nil
}

// Recipients returns the booking parties other than the actor.
func Recipients(event *model.BookingEvent) []string {
	recipients := make([]string, 0, 2)
	for _, id := range []string{event.StudentID, event.OwnerID} {
		if id == "" || id == event.ActorID || slices.Contains(recipients, id) {
			continue
		}
		recipients = append(recipients, id)
	}
	return recipients
}

func (s *notificationService) List(ctx context.Context, caller *auth.Principal, unreadOnly bool, limit int, offset int64) ([]*model.Notification, int64, error) {
	if caller == nil {
		return nil, 0, apperrors.Unauthorized("authentication required")
	}

	var (
		notifications []*model.Notification
		total         int64
		errFind       error
		errCount      error
		wg            sync.WaitGroup
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		notifications, errFind = s.repo.FindForUser(ctx, caller.UserID, unreadOnly, limit, offset)
	}()
	go func() {
		defer wg.Done()
		total, errCount = s.repo.CountForUser(ctx, caller.UserID, unreadOnly)
	}()
	wg.Wait()

	if errCount != nil {
		s.log.Error("Failed to count notifications", "user_id", caller.UserID, "error", errCount)
		return nil, 0, apperrors.Internal("Failed to count notifications", errCount)
	}
	if errFind != nil {
		s.log.Error("Failed to find notifications", "user_id", caller.UserID, "error", errFind)
		return nil, 0, apperrors.Internal("Failed to retrieve notifications", errFind)
	}
	return notifications, total, nil
}

func (s *notificationService) MarkRead(ctx context.Context, caller *auth.Principal, id string) error {
	if caller == nil {
		return apperrors.Unauthorized("authentication required")
	}

	err := s.repo.MarkRead(ctx, id, caller.UserID)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, notificationerrors.ErrInvalidID):
		return apperrors.InvalidInput("invalid notification ID")
	case errors.Is(err, notificationerrors.ErrNotFound):
		return apperrors.NotFoundWithID("Notification", id)
	default:
		s.log.Error("Failed to mark notification read", "id", id, "error", err)
		return apperrors.Internal("Failed to update notification", err)
	}
}
