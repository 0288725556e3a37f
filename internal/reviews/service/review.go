package service

import (
	"context"
	"errors"
	"sync"
	"time"

	auditservice "unistay/internal/audit/service"
	bookingserrors "unistay/internal/bookings/errors"
	propertieserrors "unistay/internal/properties/errors"
	reviewserrors "unistay/internal/reviews/errors"
	"unistay/internal/reviews/repository"
	"unistay/internal/reviews/validator"
	"unistay/pkg/auth"
	mongotx "unistay/pkg/db/mongo"
	apperrors "unistay/pkg/errors"
	"unistay/pkg/logger"
	"unistay/pkg/model"
	"unistay/pkg/sanitizer"
	"unistay/pkg/validation"
)

type ReviewService interface {
	Create(ctx context.Context, caller *auth.Principal, input *model.ReviewCreate) (*model.Review, error)
	ListForProperty(ctx context.Context, propertyID string, limit int, offset int64) (*model.PropertyReviews, error)
	Respond(ctx context.Context, caller *auth.Principal, id string, response *model.ReviewResponse) (*model.Review, error)
	Moderate(ctx context.Context, caller *auth.Principal, id string, moderation *model.ReviewModeration) (*model.Review, error)
	Delete(ctx context.Context, caller *auth.Principal, id string) error
	ListAll(ctx context.Context, status model.ReviewStatus, limit int, offset int64) ([]*model.Review, int64, error)
}

type BookingFinder interface {
	FindByID(ctx context.Context, id string) (*model.Booking, error)
}

type PropertyFinder interface {
	FindByID(ctx context.Context, id string) (*model.Property, error)
}

type reviewService struct {
	repo       repository.ReviewRepository
	bookings   BookingFinder
	properties PropertyFinder
	validator  *validator.ReviewValidator
	audit      auditservice.Recorder
	log        *logger.Logger
	now        func() time.Time
}

func NewReviewService(
	repo repository.ReviewRepository,
	bookings BookingFinder,
	properties PropertyFinder,
	validator *validator.ReviewValidator,
	audit auditservice.Recorder,
	log *logger.Logger,
) ReviewService {
	return &reviewService{
		repo:       repo,
		bookings:   bookings,
		properties: properties,
		validator:  validator,
		audit:      audit,
		log:        log,
		now:        mongotx.Now,
	}
}

// Create records a review for a stay the caller has checked in to. Each
// booking can be reviewed once.
func (s *reviewService) Create(ctx context.Context, caller *auth.Principal, input *model.ReviewCreate) (*model.Review, error) {
	if caller == nil {
		return nil, apperrors.Unauthorized("Sign in required")
	}

	input.Comment = sanitizer.SanitizeText(input.Comment)
	if err := s.validator.Validate(input); err != nil {
		return nil, validation.ToAppError("Review validation failed", err)
	}

	booking, err := s.bookings.FindByID(ctx, input.BookingID)
	if err != nil {
		if errors.Is(err, bookingserrors.ErrNotFound) || errors.Is(err, bookingserrors.ErrInvalidID) {
			return nil, apperrors.NotFoundWithID("Booking", input.BookingID)
		}
		s.log.Error("Failed to load booking for review", "booking_id", input.BookingID, "error", err)
		return nil, apperrors.Internal("Failed to retrieve booking", err)
	}
	if booking.StudentID != caller.UserID {
		return nil, apperrors.Forbidden("You can only review your own bookings")
	}
	if booking.Status != model.BookingCheckedIn && booking.Status != model.BookingCompleted {
		return nil, apperrors.Conflict("You can review a stay once you have checked in")
	}

	review := &model.Review{
		BookingID:  booking.ID,
		PropertyID: booking.PropertyID,
		StudentID:  caller.UserID,
		Rating:     input.Rating,
		Comment:    input.Comment,
		Status:     model.ReviewPublished,
	}
	if err := s.repo.Create(ctx, review); err != nil {
		if errors.Is(err, reviewserrors.ErrDuplicate) {
			return nil, apperrors.Conflict("This booking has already been reviewed")
		}
		s.log.Error("Failed to create review", "booking_id", booking.ID, "error", err)
		return nil, apperrors.Internal("Failed to create review", err)
	}

	s.audit.Record(ctx, auditservice.Entry(ctx, "review.create", "review", review.ID, map[string]any{
		"booking_id": review.BookingID,
		"rating":     review.Rating,
	}))
	s.log.Info("Review created", "id", review.ID, "property_id", review.PropertyID, "rating", review.Rating)
	return review, nil
}

// ListForProperty returns a page of published reviews with the rating
// summary over all published reviews of the property.
func (s *reviewService) ListForProperty(ctx context.Context, propertyID string, limit int, offset int64) (*model.PropertyReviews, error) {
	if _, err := mongotx.ObjectID(propertyID); err != nil {
		return nil, apperrors.InvalidInput("Invalid property ID format")
	}

	filter := model.ReviewFilter{PropertyID: propertyID, Status: model.ReviewPublished}

	var summary model.RatingSummary
	var reviews []*model.Review
	var errSummary, errFind error
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		summary, errSummary = s.repo.Summary(ctx, propertyID)
	}()

	go func() {
		defer wg.Done()
		reviews, errFind = s.repo.Find(ctx, filter, limit, offset)
	}()

	wg.Wait()
	if errSummary != nil {
		s.log.WithContext(ctx).Error("Failed to summarise ratings", "property_id", propertyID, "error", errSummary)
		return nil, apperrors.Internal("Failed to summarise ratings", errSummary)
	}
	if errFind != nil {
		s.log.WithContext(ctx).Error("Failed to list reviews", "property_id", propertyID, "error", errFind)
		return nil, apperrors.Internal("Failed to retrieve reviews", errFind)
	}

	return &model.PropertyReviews{Reviews: reviews, Summary: summary}, nil
}

func (s *reviewService) Respond(ctx context.Context, caller *auth.Principal, id string, response *model.ReviewResponse) (*model.Review, error) {
	if caller == nil {
		return nil, apperrors.Unauthorized("Sign in required")
	}

	response.Text = sanitizer.SanitizeText(response.Text)
	if err := s.validator.ValidateResponse(response); err != nil {
		return nil, validation.ToAppError("Response validation failed", err)
	}

	review, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}

	property, err := s.properties.FindByID(ctx, review.PropertyID)
	if err != nil {
		if errors.Is(err, propertieserrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("Property", review.PropertyID)
		}
		return nil, apperrors.Internal("Failed to retrieve property", err)
	}
	if property.OwnerID != caller.UserID {
		return nil, apperrors.Forbidden("Only the listing owner can respond to this review")
	}

	ownerResponse := &model.OwnerResponse{Text: response.Text, RespondedAt: s.now()}
	if err := s.repo.SetResponse(ctx, id, ownerResponse); err != nil {
		return nil, s.translate(err, id, "respond to")
	}
	review.OwnerResponse = ownerResponse

	s.audit.Record(ctx, auditservice.Entry(ctx, "review.respond", "review", id, nil))
	s.log.Info("Owner responded to review", "id", id, "owner_id", caller.UserID)
	return review, nil
}

func (s *reviewService) Moderate(ctx context.Context, caller *auth.Principal, id string, moderation *model.ReviewModeration) (*model.Review, error) {
	if !caller.IsAdmin() {
		return nil, apperrors.Forbidden("Admin access required")
	}
	if err := s.validator.ValidateModeration(moderation); err != nil {
		return nil, validation.ToAppError("Moderation validation failed", err)
	}

	review, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.repo.SetStatus(ctx, id, moderation.Status); err != nil {
		return nil, s.translate(err, id, "moderate")
	}
	previous := review.Status
	review.Status = moderation.Status

	s.audit.Record(ctx, auditservice.Entry(ctx, "review.moderate", "review", id, map[string]any{
		"from": previous,
		"to":   moderation.Status,
	}))
	s.log.Info("Review moderated", "id", id, "status", moderation.Status, "admin_id", caller.UserID)
	return review, nil
}

func (s *reviewService) Delete(ctx context.Context, caller *auth.Principal, id string) error {
	if caller == nil {
		return apperrors.Unauthorized("Sign in required")
	}

	review, err := s.find(ctx, id)
	if err != nil {
		return err
	}
	if review.StudentID != caller.UserID && !caller.IsAdmin() {
		return apperrors.Forbidden("You can only delete your own reviews")
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return s.translate(err, id, "delete")
	}

	s.audit.Record(ctx, auditservice.Entry(ctx, "review.delete", "review", id, map[string]any{"booking_id": review.BookingID}))
	s.log.Info("Review deleted", "id", id, "by", caller.UserID)
	return nil
}

func (s *reviewService) ListAll(ctx context.Context, status model.ReviewStatus, limit int, offset int64) ([]*model.Review, int64, error) {
	filter := model.ReviewFilter{Status: status}

	var total int64
	var reviews []*model.Review
	var errCount, errFind error
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		total, errCount = s.repo.Count(ctx, filter)
	}()

	go func() {
		defer wg.Done()
		reviews, errFind = s.repo.Find(ctx, filter, limit, offset)
	}()

	wg.Wait()
	if errCount != nil {
		return nil, 0, apperrors.Internal("Failed to count reviews", errCount)
	}
	if errFind != nil {
		return nil, 0, apperrors.Internal("Failed to retrieve reviews", errFind)
	}

	return reviews, total, nil
}

func (s *reviewService) find(ctx context.Context, id string) (*model.Review, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Review ID cannot be empty")
	}

	review, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, s.translate(err, id, "retrieve")
	}
	return review, nil
}

func (s *reviewService) translate(err error, id, op string) error {
	switch {
	case errors.Is(err, reviewserrors.ErrNotFound):
		return apperrors.NotFoundWithID("Review", id)
	case errors.Is(err, reviewserrors.ErrInvalidID):
		return apperrors.InvalidInput("Invalid review ID format")
	}
	s.log.Error("Review repository failure", "id", id, "operation", op, "error", err)
	return apperrors.Internal("Failed to "+op+" review", err)
}
