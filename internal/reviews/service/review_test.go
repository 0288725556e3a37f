package service

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"testing"
	"time"

	bookingserrors "unistay/internal/bookings/errors"
	propertieserrors "unistay/internal/properties/errors"
	reviewserrors "unistay/internal/reviews/errors"
	"unistay/internal/reviews/validator"
	"unistay/pkg/auth"
	apperrors "unistay/pkg/errors"
	"unistay/pkg/logger"
	"unistay/pkg/model"
)

const (
	propertyID = "64b7f0c2a1b2c3d4e5f60718"
	bookingID  = "64b7f0c2a1b2c3d4e5f60719"
)

type fakeReviewRepo struct {
	mu      sync.Mutex
	reviews map[string]*model.Review
	nextID  int
}

func (r *fakeReviewRepo) Create(_ context.Context, review *model.Review) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.reviews {
		if existing.BookingID == review.BookingID {
			return reviewserrors.ErrDuplicate
		}
	}
	r.nextID++
	review.ID = fmt.Sprintf("%024x", r.nextID)
	cp := *review
	r.reviews[review.ID] = &cp
	return nil
}

func (r *fakeReviewRepo) FindByID(_ context.Context, id string) (*model.Review, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	review, ok := r.reviews[id]
	if !ok {
		return nil, reviewserrors.ErrNotFound
	}
	cp := *review
	return &cp, nil
}

func (r *fakeReviewRepo) Find(_ context.Context, f model.ReviewFilter, _ int, _ int64) ([]*model.Review, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []*model.Review{}
	for _, review := range r.reviews {
		if (f.PropertyID == "" || review.PropertyID == f.PropertyID) && (f.Status == "" || review.Status == f.Status) {
			cp := *review
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *fakeReviewRepo) Count(ctx context.Context, f model.ReviewFilter) (int64, error) {
	reviews, _ := r.Find(ctx, f, 0, 0)
	return int64(len(reviews)), nil
}

func (r *fakeReviewRepo) Summary(ctx context.Context, propertyID string) (model.RatingSummary, error) {
	reviews, _ := r.Find(ctx, model.ReviewFilter{PropertyID: propertyID, Status: model.ReviewPublished}, 0, 0)
	if len(reviews) == 0 {
		return model.RatingSummary{}, nil
	}
	sum := 0
	for _, review := range reviews {
		sum += review.Rating
	}
	return model.RatingSummary{Average: float64(sum) / float64(len(reviews)), Count: int64(len(reviews))}, nil
}

func (r *fakeReviewRepo) SetResponse(_ context.Context, id string, response *model.OwnerResponse) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	review, ok := r.reviews[id]
	if !ok {
		return reviewserrors.ErrNotFound
	}
	review.OwnerResponse = response
	return nil
}

func (r *fakeReviewRepo) SetStatus(_ context.Context, id string, status model.ReviewStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	review, ok := r.reviews[id]
	if !ok {
		return reviewserrors.ErrNotFound
	}
	review.Status = status
	return nil
}

func (r *fakeReviewRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.reviews[id]; !ok {
		return reviewserrors.ErrNotFound
	}
	delete(r.reviews, id)
	return nil
}

type stubBookings map[string]*model.Booking

func (s stubBookings) FindByID(_ context.Context, id string) (*model.Booking, error) {
	b, ok := s[id]
	if !ok {
		return nil, bookingserrors.ErrNotFound
	}
	cp := *b
	return &cp, nil
}

type stubProperties map[string]*model.Property

func (s stubProperties) FindByID(_ context.Context, id string) (*model.Property, error) {
	p, ok := s[id]
	if !ok {
		return nil, propertieserrors.ErrNotFound
	}
	return p, nil
}

var (
	student = &auth.Principal{UserID: "student-1", Role: model.RoleStudent}
	owner   = &auth.Principal{UserID: "owner-1", Role: model.RoleOwner}
	admin   = &auth.Principal{UserID: "admin-1", Role: model.RoleAdmin}
)

func newService(status model.BookingStatus) (ReviewService, *fakeReviewRepo) {
	repo := &fakeReviewRepo{reviews: map[string]*model.Review{}}
	bookings := stubBookings{bookingID: {ID: bookingID, StudentID: "student-1", PropertyID: propertyID, OwnerID: "owner-1", Status: status}}
	properties := stubProperties{propertyID: {ID: propertyID, OwnerID: "owner-1"}}

	svc := NewReviewService(repo, bookings, properties, validator.NewReviewValidator(logger.Discard()), nopAudit{}, logger.Discard()).(*reviewService)
	svc.now = func() time.Time { return time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC) }
	return svc, repo
}

type nopAudit struct{}

func (nopAudit) Record(context.Context, model.AuditLog) {}

func wantStatus(t *testing.T, err error, status int) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error with status %d, got nil", status)
	}
	if got := apperrors.AsAppError(err).StatusCode(); got != status {
		t.Fatalf("status = %d, want %d (%v)", got, status, err)
	}
}

func input(rating int) *model.ReviewCreate {
	return &model.ReviewCreate{BookingID: bookingID, Rating: rating, Comment: "Lovely <i>place</i>"}
}

func TestCreate(t *testing.T) {
	svc, _ := newService(model.BookingCheckedIn)
	ctx := context.Background()

	review, err := svc.Create(ctx, student, input(5))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if review.PropertyID != propertyID || review.Status != model.ReviewPublished {
		t.Errorf("review = %+v", review)
	}
	if review.Comment != "Lovely place" {
		t.Errorf("comment = %q, want sanitized", review.Comment)
	}

	_, err = svc.Create(ctx, student, input(4))
	wantStatus(t, err, http.StatusConflict)
}

func TestCreate_Rejections(t *testing.T) {
	tests := []struct {
		name   string
		status model.BookingStatus
		caller *auth.Principal
		input  *model.ReviewCreate
		want   int
	}{
		{name: "anonymous", status: model.BookingCompleted, input: input(5), want: http.StatusUnauthorized},
		{name: "not checked in", status: model.BookingPaid, caller: student, input: input(5), want: http.StatusConflict},
		{name: "cancelled", status: model.BookingCancelled, caller: student, input: input(5), want: http.StatusConflict},
		{name: "someone else's booking", status: model.BookingCompleted, caller: &auth.Principal{UserID: "student-2", Role: model.RoleStudent}, input: input(5), want: http.StatusForbidden},
		{name: "unknown booking", status: model.BookingCompleted, caller: student, input: &model.ReviewCreate{BookingID: propertyID, Rating: 5, Comment: "Great stay"}, want: http.StatusNotFound},
		{name: "invalid rating", status: model.BookingCompleted, caller: student, input: input(9), want: http.StatusUnprocessableEntity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _ := newService(tt.status)
			_, err := svc.Create(context.Background(), tt.caller, tt.input)
			wantStatus(t, err, tt.want)
		})
	}
}

func TestListForProperty_SummaryExcludesHidden(t *testing.T) {
	svc, repo := newService(model.BookingCompleted)
	ctx := context.Background()

	repo.reviews["a"] = &model.Review{ID: "a", PropertyID: propertyID, Rating: 5, Status: model.ReviewPublished}
	repo.reviews["b"] = &model.Review{ID: "b", PropertyID: propertyID, Rating: 4, Status: model.ReviewPublished}
	repo.reviews["c"] = &model.Review{ID: "c", PropertyID: propertyID, Rating: 1, Status: model.ReviewHidden}

	got, err := svc.ListForProperty(ctx, propertyID, 20, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got.Reviews) != 2 {
		t.Errorf("reviews = %d, want 2", len(got.Reviews))
	}
	if got.Summary.Count != 2 || got.Summary.Average != 4.5 {
		t.Errorf("summary = %+v", got.Summary)
	}

	_, err = svc.ListForProperty(ctx, "nope", 20, 0)
	wantStatus(t, err, http.StatusBadRequest)
}

func TestRespond_OwnerOnly(t *testing.T) {
	svc, _ := newService(model.BookingCompleted)
	ctx := context.Background()

	review, err := svc.Create(ctx, student, input(3))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err = svc.Respond(ctx, student, review.ID, &model.ReviewResponse{Text: "thanks"})
	wantStatus(t, err, http.StatusForbidden)

	other := &auth.Principal{UserID: "owner-2", Role: model.RoleOwner}
	_, err = svc.Respond(ctx, other, review.ID, &model.ReviewResponse{Text: "thanks"})
	wantStatus(t, err, http.StatusForbidden)

	responded, err := svc.Respond(ctx, owner, review.ID, &model.ReviewResponse{Text: "Thanks for staying"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if responded.OwnerResponse == nil || responded.OwnerResponse.Text != "Thanks for staying" {
		t.Errorf("response = %+v", responded.OwnerResponse)
	}
}

func TestModerateAndDelete(t *testing.T) {
	svc, repo := newService(model.BookingCompleted)
	ctx := context.Background()

	review, _ := svc.Create(ctx, student, input(2))

	_, err := svc.Moderate(ctx, owner, review.ID, &model.ReviewModeration{Status: model.ReviewHidden})
	wantStatus(t, err, http.StatusForbidden)

	moderated, err := svc.Moderate(ctx, admin, review.ID, &model.ReviewModeration{Status: model.ReviewFlagged})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if moderated.Status != model.ReviewFlagged {
		t.Errorf("status = %s", moderated.Status)
	}

	flagged, total, err := svc.ListAll(ctx, model.ReviewFlagged, 20, 0)
	if err != nil || total != 1 || len(flagged) != 1 {
		t.Errorf("ListAll = %v, %d, %v", flagged, total, err)
	}

	wantStatus(t, svc.Delete(ctx, &auth.Principal{UserID: "student-2", Role: model.RoleStudent}, review.ID), http.StatusForbidden)
	if err := svc.Delete(ctx, student, review.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(repo.reviews) != 0 {
		t.Error("expected review deleted")
	}
	wantStatus(t, svc.Delete(ctx, admin, review.ID), http.StatusNotFound)
}
