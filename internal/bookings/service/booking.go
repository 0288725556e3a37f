package service

import (
	"context"
	"errors"
	"math"
	"net/http"
	"sync"
	"time"

	auditservice "unistay/internal/audit/service"
	bookingserrors "unistay/internal/bookings/errors"
	"unistay/internal/bookings/lifecycle"
	"unistay/internal/bookings/repository"
	"unistay/internal/bookings/validator"
	"unistay/internal/events"
	"unistay/internal/payments/gateway"
	propertieserrors "unistay/internal/properties/errors"
	"unistay/pkg/auth"
	"unistay/pkg/breaker"
	"unistay/pkg/config"
	mongotx "unistay/pkg/db/mongo"
	apperrors "unistay/pkg/errors"
	"unistay/pkg/metrics"
	"unistay/pkg/model"
	"unistay/pkg/sanitizer"
	"unistay/pkg/validation"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/mongo"
)

// SystemActor is recorded as the actor of transitions driven by the payment
// webhook rather than a signed-in user.
const SystemActor = "system:payment-webhook"

type BookingService interface {
	Create(ctx context.Context, caller *auth.Principal, input *model.BookingCreate) (*model.Booking, error)
	Accept(ctx context.Context, caller *auth.Principal, id string) (*model.Booking, error)
	Reject(ctx context.Context, caller *auth.Principal, id string, input *model.BookingReason) (*model.Booking, error)
	Cancel(ctx context.Context, caller *auth.Principal, id string, input *model.BookingReason) (*model.Booking, error)
	CheckIn(ctx context.Context, caller *auth.Principal, id string) (*model.Booking, error)
	Complete(ctx context.Context, caller *auth.Principal, id string) (*model.Booking, error)
	CreatePaymentOrder(ctx context.Context, caller *auth.Principal, id string) (*model.PaymentOrder, error)
	VerifyPayment(ctx context.Context, caller *auth.Principal, id string, input *model.PaymentVerification) (*model.Booking, error)
	ConfirmPayment(ctx context.Context, orderID, paymentID string) (*model.Booking, error)
	Get(ctx context.Context, caller *auth.Principal, id string) (*model.Booking, error)
	ListForStudent(ctx context.Context, caller *auth.Principal, status model.BookingStatus, limit int, offset int64) ([]*model.Booking, int64, error)
	ListForOwner(ctx context.Context, caller *auth.Principal, filter model.BookingFilter, limit int, offset int64) ([]*model.Booking, int64, error)
	ListAll(ctx context.Context, filter model.BookingFilter, limit int, offset int64) ([]*model.Booking, int64, error)
	AdminSetStatus(ctx context.Context, caller *auth.Principal, id string, input *model.AdminBookingUpdate) (*model.Booking, error)
	AdminDelete(ctx context.Context, caller *auth.Principal, id string) error
}

// PropertyStore is the part of the property repository bookings depend on.
type PropertyStore interface {
	FindByID(ctx context.Context, id string) (*model.Property, error)
	AdjustOccupancy(ctx context.Context, id string, delta int) error
}

type Dependencies struct {
	Repo       repository.BookingRepository
	Locks      repository.BookingLockRepository
	Properties PropertyStore
	Validator  *validator.BookingValidator
	Machine    *lifecycle.Machine
	Gateway    gateway.Gateway
	Verifier   *gateway.Verifier
	Publisher  events.Publisher
	Audit      auditservice.Recorder
	Config     *config.Config
	Clock      func() time.Time
}

type bookingService struct {
	repo       repository.BookingRepository
	locks      repository.BookingLockRepository
	properties PropertyStore
	validator  *validator.BookingValidator
	machine    *lifecycle.Machine
	gateway    gateway.Gateway
	verifier   *gateway.Verifier
	publisher  events.Publisher
	audit      auditservice.Recorder
	cfg        *config.Config
	now        func() time.Time
}

func NewBookingService(deps Dependencies) BookingService {
	s := &bookingService{
		repo:       deps.Repo,
		locks:      deps.Locks,
		properties: deps.Properties,
		validator:  deps.Validator,
		machine:    deps.Machine,
		gateway:    deps.Gateway,
		verifier:   deps.Verifier,
		publisher:  deps.Publisher,
		audit:      deps.Audit,
		cfg:        deps.Config,
		now:        deps.Clock,
	}
	if s.machine == nil {
		s.machine = lifecycle.NewMachine()
	}
	if s.publisher == nil {
		s.publisher = events.Nop{}
	}
	if s.audit == nil {
		s.audit = auditservice.Nop{}
	}
	if s.now == nil {
		s.now = mongotx.Now
	}
	return s
}

func (s *bookingService) Create(ctx context.Context, caller *auth.Principal, input *model.BookingCreate) (*model.Booking, error) {
	if caller == nil {
		return nil, apperrors.Unauthorized("Sign in to book a room")
	}
	if caller.Blacklisted {
		return nil, apperrors.Forbidden("Your account is not allowed to make bookings")
	}
	if input.MockPaid && s.cfg.IsProduction() {
		return nil, apperrors.Forbidden("Mock payments are disabled in production")
	}

	now := s.now()
	input.Notes = sanitizer.SanitizeText(input.Notes)
	if err := s.validator.Validate(input, now); err != nil {
		s.cfg.Log.Warn("Booking validation failed", "student_id", caller.UserID, "error", err)
		return nil, validation.ToAppError("Booking validation failed", err)
	}

	property, err := s.properties.FindByID(ctx, input.PropertyID)
	if err != nil {
		return nil, s.translatePropertyError(err, input.PropertyID)
	}
	if property.Status != model.PropertyApproved {
		return nil, apperrors.InvalidInput("Property is not accepting bookings")
	}
	if property.OwnerID == caller.UserID {
		return nil, apperrors.Forbidden("You cannot book your own property")
	}
	if !property.RoomTypes.Has(input.RoomType) {
		return nil, apperrors.InvalidInput("Property has no " + string(input.RoomType) + " rooms")
	}

	t := s.machine.Initial(input.MockPaid)
	booking := &model.Booking{
		StudentID:      caller.UserID,
		PropertyID:     property.ID,
		OwnerID:        property.OwnerID,
		RoomType:       input.RoomType,
		CheckInDate:    input.CheckInDate.UTC(),
		DurationMonths: input.DurationMonths,
		Status:         t.To,
		PaymentStatus:  model.PaymentUnpaid,
		TotalAmount:    TotalAmount(property, input.DurationMonths),
		Notes:          input.Notes,
		CreatedAt:      now,
	}
	if input.MockPaid {
		booking.PaymentStatus = model.PaymentPaid
		booking.AmountPaid = booking.TotalAmount
		booking.PaidAt = &now
	}

	lockID := repository.LockID(caller.UserID, property.ID)
	holder, err := s.locks.Acquire(ctx, lockID, s.cfg.BookingLockTTL)
	if err != nil {
		if errors.Is(err, bookingserrors.ErrLockHeld) {
			return nil, apperrors.Conflict("A booking for this property is already being processed. Please try again.")
		}
		s.cfg.Log.Error("Failed to acquire booking lock", "lock_id", lockID, "error", err)
		return nil, apperrors.Internal("Failed to acquire booking lock", err)
	}
	defer func() {
		if err := s.locks.Release(context.WithoutCancel(ctx), lockID, holder); err != nil {
			s.cfg.Log.Warn("Failed to release booking lock", "lock_id", lockID, "error", err)
		}
	}()

	err = s.repo.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		if _, err := s.repo.FindActive(sessCtx, booking.StudentID, booking.PropertyID); err == nil {
			return apperrors.Conflict("You already have an active booking for this property")
		} else if !errors.Is(err, bookingserrors.ErrNotFound) {
			return apperrors.Internal("Failed to check existing bookings", err)
		}

		if err := s.properties.AdjustOccupancy(sessCtx, booking.PropertyID, int(t.Occupancy)); err != nil {
			return s.translateOccupancyError(err, booking.PropertyID)
		}

		if err := s.repo.Create(sessCtx, booking); err != nil {
			if errors.Is(err, bookingserrors.ErrDuplicateActive) {
				return apperrors.Conflict("You already have an active booking for this property")
			}
			return apperrors.Internal("Failed to create booking", err)
		}
		return nil
	})
	s.observe(t, err)
	if err != nil {
		s.cfg.Log.Warn("Failed to create booking", "student_id", caller.UserID, "property_id", property.ID, "error", err)
		return nil, err
	}

	s.afterTransition(ctx, caller.UserID, booking, t, 0)
	s.cfg.Log.Info("Booking created",
		"id", booking.ID,
		"student_id", booking.StudentID,
		"property_id", booking.PropertyID,
		"status", booking.Status,
		"total_amount", booking.TotalAmount,
	)
	return booking, nil
}

func (s *bookingService) Accept(ctx context.Context, caller *auth.Principal, id string) (*model.Booking, error) {
	return s.transition(ctx, caller, id, lifecycle.ActionAccept, func(b *model.Booking, _ lifecycle.Transition, now time.Time) {
		b.AcceptedAt = &now
	})
}

func (s *bookingService) Reject(ctx context.Context, caller *auth.Principal, id string, input *model.BookingReason) (*model.Booking, error) {
	reason, err := s.reason(input)
	if err != nil {
		return nil, err
	}
	return s.transition(ctx, caller, id, lifecycle.ActionReject, func(b *model.Booking, t lifecycle.Transition, now time.Time) {
		b.RejectionReason = reason
		b.RejectedAt = &now
		applyRefund(b, lifecycle.RefundFor(t, b, now))
	})
}

func (s *bookingService) Cancel(ctx context.Context, caller *auth.Principal, id string, input *model.BookingReason) (*model.Booking, error) {
	reason, err := s.reason(input)
	if err != nil {
		return nil, err
	}
	return s.transition(ctx, caller, id, lifecycle.ActionCancel, func(b *model.Booking, t lifecycle.Transition, now time.Time) {
		b.CancellationReason = reason
		b.CancelledAt = &now
		applyRefund(b, lifecycle.RefundFor(t, b, now))
	})
}

func (s *bookingService) CheckIn(ctx context.Context, caller *auth.Principal, id string) (*model.Booking, error) {
	return s.transition(ctx, caller, id, lifecycle.ActionCheckIn, func(b *model.Booking, _ lifecycle.Transition, now time.Time) {
		b.CheckedInAt = &now
	})
}

func (s *bookingService) Complete(ctx context.Context, caller *auth.Principal, id string) (*model.Booking, error) {
	return s.transition(ctx, caller, id, lifecycle.ActionComplete, func(b *model.Booking, _ lifecycle.Transition, now time.Time) {
		b.CompletedAt = &now
	})
}

func (s *bookingService) CreatePaymentOrder(ctx context.Context, caller *auth.Principal, id string) (*model.PaymentOrder, error) {
	booking, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authorize(caller, booking, lifecycle.ActorStudent); err != nil {
		return nil, err
	}
	if _, err := s.machine.Next(booking.Status, lifecycle.ActionPay, lifecycle.ActorStudent); err != nil {
		return nil, s.translateTransitionError(err)
	}

	order, err := s.gateway.CreateOrder(ctx, booking.ID, booking.TotalAmount, s.cfg.PaymentCurrency)
	if err != nil {
		s.cfg.Log.Error("Failed to create payment order", "id", id, "error", err)
		if breaker.Rejected(err) {
			return nil, apperrors.Unavailable("Payment gateway")
		}
		return nil, apperrors.Wrap(err, apperrors.CodeUnavailable, "Payment gateway request failed", http.StatusBadGateway)
	}

	if err := s.repo.SetPaymentOrder(ctx, booking.ID, order.OrderID, booking.Status); err != nil {
		return nil, s.translate(err, id, "store payment order for")
	}

	s.audit.Record(ctx, auditservice.Entry(ctx, "booking.payment_order", "booking", booking.ID, map[string]any{
		"order_id": order.OrderID,
		"amount":   order.Amount,
		"mock":     order.Mock,
	}))
	s.cfg.Log.Info("Payment order created", "id", booking.ID, "order_id", order.OrderID, "mock", order.Mock)
	return order, nil
}

func (s *bookingService) VerifyPayment(ctx context.Context, caller *auth.Principal, id string, input *model.PaymentVerification) (*model.Booking, error) {
	if err := s.validator.ValidatePayment(input); err != nil {
		return nil, validation.ToAppError("Payment verification failed", err)
	}

	booking, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authorize(caller, booking, lifecycle.ActorStudent); err != nil {
		return nil, err
	}
	if booking.PaymentStatus == model.PaymentPaid {
		return booking, nil
	}

	if booking.PaymentOrderID != "" && booking.PaymentOrderID != input.OrderID {
		return nil, apperrors.InvalidInput("Payment order does not belong to this booking")
	}
	if booking.PaymentOrderID == "" && s.verifier.Enforced() {
		return nil, apperrors.InvalidInput("Create a payment order before verifying payment")
	}
	if !s.verifier.Verify(input.OrderID, input.PaymentID, input.Signature) {
		s.cfg.Log.Warn("Payment signature mismatch", "id", id, "order_id", input.OrderID)
		return nil, apperrors.InvalidInput("Invalid payment signature")
	}

	return s.pay(ctx, caller.UserID, booking, input.OrderID, input.PaymentID)
}

// ConfirmPayment applies a gateway webhook. Redelivery of an already applied
// payment is a no-op.
func (s *bookingService) ConfirmPayment(ctx context.Context, orderID, paymentID string) (*model.Booking, error) {
	booking, err := s.repo.FindByPaymentOrderID(ctx, orderID)
	if err != nil {
		if errors.Is(err, bookingserrors.ErrNotFound) {
			return nil, apperrors.NotFound("Booking for payment order")
		}
		return nil, apperrors.Internal("Failed to retrieve booking", err)
	}
	if booking.PaymentStatus == model.PaymentPaid {
		return booking, nil
	}

	return s.pay(ctx, SystemActor, booking, orderID, paymentID)
}

func (s *bookingService) pay(ctx context.Context, actorID string, booking *model.Booking, orderID, paymentID string) (*model.Booking, error) {
	t, err := s.machine.Next(booking.Status, lifecycle.ActionPay, lifecycle.ActorStudent)
	if err != nil {
		return nil, s.translateTransitionError(err)
	}

	updated, err := s.apply(ctx, actorID, booking, t, func(b *model.Booking, _ lifecycle.Transition, now time.Time) {
		b.PaymentStatus = model.PaymentPaid
		b.AmountPaid = b.TotalAmount
		b.PaymentOrderID = orderID
		b.PaymentID = paymentID
		b.PaidAt = &now
	})
	if err != nil && apperrors.HasCode(err, apperrors.CodeConflict) {
		// A concurrent verification may have won the race.
		if current, findErr := s.find(ctx, booking.ID); findErr == nil && current.PaymentStatus == model.PaymentPaid {
			return current, nil
		}
	}
	return updated, err
}

func (s *bookingService) Get(ctx context.Context, caller *auth.Principal, id string) (*model.Booking, error) {
	booking, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if caller == nil || !(caller.IsAdmin() || booking.StudentID == caller.UserID || booking.OwnerID == caller.UserID) {
		return nil, apperrors.Forbidden("You do not have access to this booking")
	}
	return booking, nil
}

func (s *bookingService) ListForStudent(ctx context.Context, caller *auth.Principal, status model.BookingStatus, limit int, offset int64) ([]*model.Booking, int64, error) {
	if caller == nil {
		return nil, 0, apperrors.Unauthorized("Sign in to view bookings")
	}
	return s.list(ctx, model.BookingFilter{StudentID: caller.UserID, Status: status}, limit, offset)
}

func (s *bookingService) ListForOwner(ctx context.Context, caller *auth.Principal, filter model.BookingFilter, limit int, offset int64) ([]*model.Booking, int64, error) {
	if caller == nil {
		return nil, 0, apperrors.Unauthorized("Sign in to view bookings")
	}
	filter.OwnerID = caller.UserID
	filter.StudentID = ""
	return s.list(ctx, filter, limit, offset)
}

func (s *bookingService) ListAll(ctx context.Context, filter model.BookingFilter, limit int, offset int64) ([]*model.Booking, int64, error) {
	return s.list(ctx, filter, limit, offset)
}

func (s *bookingService) list(ctx context.Context, filter model.BookingFilter, limit int, offset int64) ([]*model.Booking, int64, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, 0, apperrors.InvalidInput("invalid status parameter: " + string(filter.Status))
	}

	var count int64
	var bookings []*model.Booking
	var errCount, errFind error
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		count, errCount = s.repo.Count(ctx, filter)
	}()

	go func() {
		defer wg.Done()
		bookings, errFind = s.repo.Find(ctx, filter, limit, offset)
	}()

	wg.Wait()
	if errCount != nil {
		s.cfg.Log.Error("Failed to count bookings", "error", errCount)
		return nil, 0, apperrors.Internal("Failed to count bookings", errCount)
	}
	if errFind != nil {
		s.cfg.Log.Error("Failed to list bookings", "error", errFind)
		return nil, 0, apperrors.Internal("Failed to retrieve bookings", errFind)
	}

	return bookings, count, nil
}

func (s *bookingService) AdminSetStatus(ctx context.Context, caller *auth.Principal, id string, input *model.AdminBookingUpdate) (*model.Booking, error) {
	if !caller.IsAdmin() {
		return nil, apperrors.Forbidden("Only admins can override booking status")
	}
	if err := s.validator.ValidateAdminUpdate(input); err != nil {
		return nil, validation.ToAppError("Invalid status override", err)
	}

	booking, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}

	t, err := s.machine.Force(booking.Status, input.Status)
	if err != nil {
		return nil, s.translateTransitionError(err)
	}
	if !t.Changed() {
		return booking, nil
	}

	reason := sanitizer.SanitizeLine(input.Reason)
	return s.apply(ctx, caller.UserID, booking, t, func(b *model.Booking, _ lifecycle.Transition, now time.Time) {
		stamp(b, t.To, now)
		switch t.To {
		case model.BookingRejected:
			b.RejectionReason = reason
		case model.BookingCancelled:
			b.CancellationReason = reason
		}
	})
}

func (s *bookingService) AdminDelete(ctx context.Context, caller *auth.Principal, id string) error {
	if !caller.IsAdmin() {
		return apperrors.Forbidden("Only admins can delete bookings")
	}

	booking, err := s.find(ctx, id)
	if err != nil {
		return err
	}

	t := s.machine.Remove(booking.Status)
	err = s.repo.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		if err := s.repo.Delete(sessCtx, booking.ID); err != nil {
			return s.translate(err, id, "delete")
		}
		return s.adjustOccupancy(sessCtx, booking, t)
	})
	s.observe(t, err)
	if err != nil {
		s.cfg.Log.Error("Failed to delete booking", "id", id, "error", err)
		return err
	}

	s.afterTransition(ctx, caller.UserID, booking, t, 0)
	s.cfg.Log.Info("Booking deleted", "id", id, "status", booking.Status)
	return nil
}

// transition loads the booking, checks the caller is the party the action
// belongs to, and applies the action if the lifecycle allows it.
func (s *bookingService) transition(
	ctx context.Context,
	caller *auth.Principal,
	id string,
	action lifecycle.Action,
	mutate func(b *model.Booking, t lifecycle.Transition, now time.Time),
) (*model.Booking, error) {
	booking, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}

	actor := actorFor(action)
	if err := authorize(caller, booking, actor); err != nil {
		return nil, err
	}

	t, err := s.machine.Next(booking.Status, action, actor)
	if err != nil {
		s.observe(lifecycle.Transition{Action: action, From: booking.Status}, err)
		return nil, s.translateTransitionError(err)
	}

	return s.apply(ctx, caller.UserID, booking, t, mutate)
}

// apply writes the transition and its occupancy effect in one transaction.
// The status write is conditional on t.From.
func (s *bookingService) apply(
	ctx context.Context,
	actorID string,
	booking *model.Booking,
	t lifecycle.Transition,
	mutate func(b *model.Booking, t lifecycle.Transition, now time.Time),
) (*model.Booking, error) {
	now := s.now()
	updated := *booking
	updated.Status = t.To
	if mutate != nil {
		mutate(&updated, t, now)
	}

	err := s.repo.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		if err := s.repo.UpdateStatus(sessCtx, &updated, t.From); err != nil {
			return s.translate(err, booking.ID, string(t.Action))
		}
		return s.adjustOccupancy(sessCtx, &updated, t)
	})
	s.observe(t, err)
	if err != nil {
		s.cfg.Log.Warn("Booking transition failed",
			"id", booking.ID,
			"action", t.Action,
			"from", t.From,
			"to", t.To,
			"error", err,
		)
		return nil, err
	}

	s.afterTransition(ctx, actorID, &updated, t, updated.RefundAmount-booking.RefundAmount)
	s.cfg.Log.Info("Booking transitioned",
		"id", updated.ID,
		"action", t.Action,
		"from", t.From,
		"to", t.To,
		"refund", updated.RefundAmount,
	)
	return &updated, nil
}

func (s *bookingService) adjustOccupancy(ctx context.Context, booking *model.Booking, t lifecycle.Transition) error {
	if t.Occupancy == lifecycle.OccupancyNone {
		return nil
	}

	err := s.properties.AdjustOccupancy(ctx, booking.PropertyID, int(t.Occupancy))
	if errors.Is(err, propertieserrors.ErrNoOccupancy) {
		// Counter already drifted to zero; the reconciler repairs it.
		s.cfg.Log.Warn("Occupancy already zero on release", "property_id", booking.PropertyID, "booking_id", booking.ID)
		return nil
	}
	if err != nil {
		return s.translateOccupancyError(err, booking.PropertyID)
	}
	return nil
}

func (s *bookingService) afterTransition(ctx context.Context, actorID string, booking *model.Booking, t lifecycle.Transition, refund float64) {
	if refund > 0 {
		metrics.BookingRefundAmountTotal.Add(refund)
	}

	event := model.BookingEvent{
		EventID:    uuid.NewString(),
		Action:     string(t.Action),
		BookingID:  booking.ID,
		PropertyID: booking.PropertyID,
		StudentID:  booking.StudentID,
		OwnerID:    booking.OwnerID,
		ActorID:    actorID,
		From:       t.From,
		To:         t.To,
		Refund:     refund,
		OccurredAt: s.now(),
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.cfg.Log.Warn("Failed to publish booking event", "id", booking.ID, "action", t.Action, "error", err)
	}

	details := map[string]any{"from": t.From, "to": t.To}
	if refund > 0 {
		details["refund"] = refund
	}
	entry := auditservice.Entry(ctx, "booking."+string(t.Action), "booking", booking.ID, details)
	if entry.ActorID == "" {
		entry.ActorID = actorID
	}
	s.audit.Record(ctx, entry)
}

func (s *bookingService) observe(t lifecycle.Transition, err error) {
	metrics.BookingTransitionsTotal.WithLabelValues(string(t.Action), string(t.From), string(t.To), metrics.Outcome(err)).Inc()
}

func (s *bookingService) find(ctx context.Context, id string) (*model.Booking, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Booking ID cannot be empty")
	}
	booking, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, s.translate(err, id, "retrieve")
	}
	return booking, nil
}

func (s *bookingService) reason(input *model.BookingReason) (string, error) {
	if input == nil {
		return "", nil
	}
	input.Reason = sanitizer.SanitizeLine(input.Reason)
	if err := s.validator.ValidateReason(input); err != nil {
		return "", validation.ToAppError("Invalid reason", err)
	}
	return input.Reason, nil
}

func (s *bookingService) translate(err error, id, verb string) error {
	if apperrors.IsAppError(err) {
		return err
	}
	switch {
	case errors.Is(err, bookingserrors.ErrNotFound):
		return apperrors.NotFoundWithID("Booking", id)
	case errors.Is(err, bookingserrors.ErrInvalidID):
		return apperrors.InvalidInput("Invalid booking ID format")
	case errors.Is(err, bookingserrors.ErrConflict):
		return apperrors.Conflict("Booking was modified by another request. Reload and try again.")
	case errors.Is(err, bookingserrors.ErrDuplicateActive):
		return apperrors.Conflict("Student already has an active booking for this property")
	}
	s.cfg.Log.Error("Booking repository error", "id", id, "operation", verb, "error", err)
	return apperrors.Internal("Failed to "+verb+" booking", err)
}

func (s *bookingService) translatePropertyError(err error, id string) error {
	switch {
	case errors.Is(err, propertieserrors.ErrNotFound):
		return apperrors.NotFoundWithID("Property", id)
	case errors.Is(err, propertieserrors.ErrInvalidID):
		return apperrors.InvalidInput("Invalid property ID format")
	}
	s.cfg.Log.Error("Failed to load property", "property_id", id, "error", err)
	return apperrors.Internal("Failed to retrieve property", err)
}

func (s *bookingService) translateOccupancyError(err error, propertyID string) error {
	switch {
	case errors.Is(err, propertieserrors.ErrNoCapacity):
		return apperrors.Conflict("Property is fully booked")
	case errors.Is(err, propertieserrors.ErrNotFound):
		return apperrors.NotFoundWithID("Property", propertyID)
	}
	return apperrors.Internal("Failed to update property occupancy", err)
}

func (s *bookingService) translateTransitionError(err error) error {
	var invalid *lifecycle.InvalidTransitionError
	if errors.As(err, &invalid) {
		return apperrors.InvalidTransition(string(invalid.Action), string(invalid.Current), invalid.AllowedStrings())
	}
	var forbidden *lifecycle.ForbiddenActorError
	if errors.As(err, &forbidden) {
		return apperrors.Forbidden(forbidden.Error())
	}
	return apperrors.Internal("Unknown booking action", err)
}

func actorFor(action lifecycle.Action) lifecycle.Actor {
	switch action {
	case lifecycle.ActionAccept, lifecycle.ActionReject, lifecycle.ActionCheckIn, lifecycle.ActionComplete:
		return lifecycle.ActorOwner
	}
	return lifecycle.ActorStudent
}

func authorize(caller *auth.Principal, b *model.Booking, actor lifecycle.Actor) error {
	if caller == nil {
		return apperrors.Unauthorized("Authentication required")
	}
	switch actor {
	case lifecycle.ActorOwner:
		if b.OwnerID != caller.UserID {
			return apperrors.Forbidden("Only the property owner can do this")
		}
	case lifecycle.ActorStudent:
		if b.StudentID != caller.UserID {
			return apperrors.Forbidden("Only the student who made the booking can do this")
		}
	}
	return nil
}

func applyRefund(b *model.Booking, refund float64) {
	if refund <= 0 {
		return
	}
	b.RefundAmount = refund
	b.PaymentStatus = model.PaymentRefunded
}

// stamp sets the timestamp belonging to status when it is not already set.
func stamp(b *model.Booking, status model.BookingStatus, now time.Time) {
	var field **time.Time
	switch status {
	case model.BookingConfirmed:
		field = &b.AcceptedAt
	case model.BookingRejected:
		field = &b.RejectedAt
	case model.BookingCancelled:
		field = &b.CancelledAt
	case model.BookingPaid:
		field = &b.PaidAt
	case model.BookingCheckedIn:
		field = &b.CheckedInAt
	case model.BookingCompleted:
		field = &b.CompletedAt
	default:
		return
	}
	if *field == nil {
		*field = &now
	}
}

// TotalAmount is rent for the stay plus the deposit, rounded to cents.
func TotalAmount(p *model.Property, months int) float64 {
	return math.Round((p.PricePerMonth*float64(months)+p.Deposit)*100) / 100
}
