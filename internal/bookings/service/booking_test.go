package service

import (
	"context"
	"net/http"
	"testing"
	"time"

	"unistay/internal/bookings/lifecycle"
	"unistay/internal/bookings/validator"
	"unistay/internal/payments/gateway"
	"unistay/pkg/auth"
	"unistay/pkg/config"
	apperrors "unistay/pkg/errors"
	"unistay/pkg/logger"
	"unistay/pkg/model"

	gobreaker "github.com/sony/gobreaker/v2"
)

const (
	propertyID = "64b7f0c2a1b2c3d4e5f60718"
	ownerID    = "owner-1"
	studentID  = "student-1"
)

var (
	now     = time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	student = &auth.Principal{UserID: studentID, Role: model.RoleStudent}
	owner   = &auth.Principal{UserID: ownerID, Role: model.RoleOwner}
	admin   = &auth.Principal{UserID: "admin-1", Role: model.RoleAdmin}
)

type harness struct {
	svc        BookingService
	repo       *fakeBookingRepo
	locks      *fakeLocks
	properties *fakeProperties
	publisher  *recordingPublisher
	audit      *recordingAudit
	gateway    *stubGateway
}

func newHarness(t *testing.T, env string, totalRooms int) *harness {
	t.Helper()

	h := &harness{
		repo:  newFakeBookingRepo(),
		locks: newFakeLocks(),
		properties: &fakeProperties{properties: map[string]*model.Property{
			propertyID: {
				ID:            propertyID,
				OwnerID:       ownerID,
				PricePerMonth: 500,
				Deposit:       250.5,
				RoomTypes:     model.RoomTypes{Single: totalRooms},
				TotalRooms:    totalRooms,
				Status:        model.PropertyApproved,
			},
		}},
		publisher: &recordingPublisher{},
		audit:     &recordingAudit{},
		gateway:   &stubGateway{order: &model.PaymentOrder{OrderID: "order_1"}},
	}

	cfg := &config.Config{
		AppEnv:          env,
		PaymentCurrency: "INR",
		BookingLockTTL:  time.Second,
		Log:             logger.Discard(),
	}

	h.svc = NewBookingService(Dependencies{
		Repo:       h.repo,
		Locks:      h.locks,
		Properties: h.properties,
		Validator:  validator.NewBookingValidator(cfg.Log),
		Machine:    lifecycle.NewMachine(),
		Gateway:    h.gateway,
		Verifier:   gateway.NewVerifier("secret", env == config.EnvProduction),
		Publisher:  h.publisher,
		Audit:      h.audit,
		Config:     cfg,
		Clock:      func() time.Time { return now },
	})
	return h
}

func createInput() *model.BookingCreate {
	return &model.BookingCreate{
		PropertyID:     propertyID,
		RoomType:       model.RoomSingle,
		CheckInDate:    now.Add(30 * 24 * time.Hour),
		DurationMonths: 6,
	}
}

func (h *harness) create(t *testing.T) *model.Booking {
	t.Helper()
	b, err := h.svc.Create(context.Background(), student, createInput())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	return b
}

func wantStatus(t *testing.T, err error, status int) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected HTTP %d error, got nil", status)
	}
	if got := apperrors.AsAppError(err).StatusCode(); got != status {
		t.Fatalf("expected HTTP %d, got %d (%v)", status, got, err)
	}
}

func TestCreate(t *testing.T) {
	h := newHarness(t, "test", 2)

	b := h.create(t)

	if b.Status != model.BookingPending || b.PaymentStatus != model.PaymentUnpaid {
		t.Errorf("unexpected status %s/%s", b.Status, b.PaymentStatus)
	}
	if b.TotalAmount != 3250.5 {
		t.Errorf("expected total 3250.5, got %v", b.TotalAmount)
	}
	if b.OwnerID != ownerID {
		t.Errorf("expected owner copied from property, got %q", b.OwnerID)
	}
	if got := h.properties.occupied(propertyID); got != 1 {
		t.Errorf("expected occupancy 1, got %d", got)
	}
	if len(h.locks.held) != 0 {
		t.Error("lock must be released")
	}
	if acts := h.publisher.actions(); len(acts) != 1 || acts[0] != string(lifecycle.ActionCreate) {
		t.Errorf("unexpected events %v", acts)
	}
	if len(h.audit.entries) != 1 || h.audit.entries[0].Action != "booking.create" {
		t.Errorf("unexpected audit %v", h.audit.entries)
	}
}

func TestCreate_Rejections(t *testing.T) {
	tests := []struct {
		name   string
		setup  func(h *harness)
		caller *auth.Principal
		input  func() *model.BookingCreate
		status int
	}{
		{
			name:   "anonymous",
			caller: nil,
			status: http.StatusUnauthorized,
		},
		{
			name:   "blacklisted",
			caller: &auth.Principal{UserID: studentID, Role: model.RoleStudent, Blacklisted: true},
			status: http.StatusForbidden,
		},
		{
			name:   "own property",
			caller: &auth.Principal{UserID: ownerID, Role: model.RoleOwner},
			status: http.StatusForbidden,
		},
		{
			name:   "property not approved",
			setup:  func(h *harness) { h.properties.properties[propertyID].Status = model.PropertyPending },
			status: http.StatusBadRequest,
		},
		{
			name:   "unknown property",
			input:  func() *model.BookingCreate { in := createInput(); in.PropertyID = "64b7f0c2a1b2c3d4e5f60799"; return in },
			status: http.StatusNotFound,
		},
		{
			name:   "room type not offered",
			input:  func() *model.BookingCreate { in := createInput(); in.RoomType = model.RoomDouble; return in },
			status: http.StatusBadRequest,
		},
		{
			name:   "check-in in the past",
			input:  func() *model.BookingCreate { in := createInput(); in.CheckInDate = now.Add(-48 * time.Hour); return in },
			status: http.StatusUnprocessableEntity,
		},
		{
			name:   "property full",
			setup:  func(h *harness) { h.properties.properties[propertyID].LiveStats.OccupiedRooms = 2 },
			status: http.StatusConflict,
		},
		{
			name:   "lock held",
			setup:  func(h *harness) { h.locks.held["booking_lock_"+studentID+"_"+propertyID] = "another-request" },
			status: http.StatusConflict,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, "test", 2)
			if tt.setup != nil {
				tt.setup(h)
			}
			caller := tt.caller
			if caller == nil && tt.name != "anonymous" {
				caller = student
			}
			input := createInput()
			if tt.input != nil {
				input = tt.input()
			}

			_, err := h.svc.Create(context.Background(), caller, input)
			wantStatus(t, err, tt.status)
		})
	}
}

func TestCreate_NoDoubleBooking(t *testing.T) {
	h := newHarness(t, "test", 5)
	h.create(t)

	_, err := h.svc.Create(context.Background(), student, createInput())
	wantStatus(t, err, http.StatusConflict)

	if got := h.properties.occupied(propertyID); got != 1 {
		t.Errorf("expected occupancy 1 after refused duplicate, got %d", got)
	}
}

func TestCreate_MockPaid(t *testing.T) {
	h := newHarness(t, "test", 2)
	input := createInput()
	input.MockPaid = true

	b, err := h.svc.Create(context.Background(), student, input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if b.Status != model.BookingPaid || b.PaymentStatus != model.PaymentPaid || b.AmountPaid != b.TotalAmount {
		t.Errorf("unexpected mock-paid booking %+v", b)
	}

	prod := newHarness(t, config.EnvProduction, 2)
	_, err = prod.svc.Create(context.Background(), student, input)
	wantStatus(t, err, http.StatusForbidden)
}

func TestLifecycle_HappyPath(t *testing.T) {
	h := newHarness(t, "test", 1)
	ctx := context.Background()
	b := h.create(t)

	b, err := h.svc.Accept(ctx, owner, b.ID)
	if err != nil || b.Status != model.BookingConfirmed || b.AcceptedAt == nil {
		t.Fatalf("accept: %v %+v", err, b)
	}

	order, err := h.svc.CreatePaymentOrder(ctx, student, b.ID)
	if err != nil {
		t.Fatalf("payment order: %v", err)
	}
	if order.Amount != b.TotalAmount || order.Currency != "INR" {
		t.Errorf("unexpected order %+v", order)
	}

	b, err = h.svc.VerifyPayment(ctx, student, b.ID, &model.PaymentVerification{OrderID: order.OrderID, PaymentID: "pay_1"})
	if err != nil || b.Status != model.BookingPaid || b.AmountPaid != b.TotalAmount {
		t.Fatalf("verify: %v %+v", err, b)
	}

	b, err = h.svc.CheckIn(ctx, owner, b.ID)
	if err != nil || b.Status != model.BookingCheckedIn {
		t.Fatalf("checkin: %v %+v", err, b)
	}
	if got := h.properties.occupied(propertyID); got != 1 {
		t.Errorf("expected occupancy 1 while checked in, got %d", got)
	}

	b, err = h.svc.Complete(ctx, owner, b.ID)
	if err != nil || b.Status != model.BookingCompleted {
		t.Fatalf("complete: %v %+v", err, b)
	}
	if got := h.properties.occupied(propertyID); got != 0 {
		t.Errorf("expected occupancy released, got %d", got)
	}

	want := []string{"create", "accept", "pay", "checkin", "complete"}
	got := h.publisher.actions()
	if len(got) != len(want) {
		t.Fatalf("expected events %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("event %d = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestTransitions_InvalidAndForbidden(t *testing.T) {
	h := newHarness(t, "test", 2)
	ctx := context.Background()
	b := h.create(t)

	_, err := h.svc.Accept(ctx, student, b.ID)
	wantStatus(t, err, http.StatusForbidden)

	_, err = h.svc.Complete(ctx, owner, b.ID)
	wantStatus(t, err, http.StatusBadRequest)
	appErr := apperrors.AsAppError(err)
	if appErr.Code != apperrors.CodeInvalidTransition || appErr.Details["current_status"] != "pending" {
		t.Errorf("unexpected error %+v", appErr)
	}

	_, err = h.svc.Cancel(ctx, &auth.Principal{UserID: "someone-else", Role: model.RoleStudent}, b.ID, nil)
	wantStatus(t, err, http.StatusForbidden)

	_, err = h.svc.Accept(ctx, owner, "not-an-id")
	wantStatus(t, err, http.StatusBadRequest)

	_, err = h.svc.Accept(ctx, owner, "64b7f0c2a1b2c3d4e5f60799")
	wantStatus(t, err, http.StatusNotFound)
}

func TestReject_ReleasesRoomAndRefundsPaid(t *testing.T) {
	h := newHarness(t, "test", 2)
	ctx := context.Background()
	b := h.create(t)

	b, err := h.svc.Reject(ctx, owner, b.ID, &model.BookingReason{Reason: "  full for  that term "})
	if err != nil {
		t.Fatalf("reject: %v", err)
	}
	if b.Status != model.BookingRejected || b.RejectionReason != "full for that term" {
		t.Errorf("unexpected booking %+v", b)
	}
	if b.RefundAmount != 0 || b.PaymentStatus != model.PaymentUnpaid {
		t.Errorf("unpaid booking must not be refunded: %+v", b)
	}
	if got := h.properties.occupied(propertyID); got != 0 {
		t.Errorf("expected occupancy 0, got %d", got)
	}
}

func TestCancel_RefundTiers(t *testing.T) {
	tests := []struct {
		name        string
		daysOut     float64
		wantRefund  float64
		wantPayment model.PaymentStatus
	}{
		{"more than a week", 10, 1000, model.PaymentRefunded},
		{"exactly seven days", 7, 500, model.PaymentRefunded},
		{"exactly three days", 3, 500, model.PaymentRefunded},
		{"under three days", 2.5, 0, model.PaymentPaid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, "test", 2)
			h.properties.properties[propertyID].LiveStats.OccupiedRooms = 1
			h.repo.put(&model.Booking{
				ID:            "64b7f0c2a1b2c3d4e5f600aa",
				StudentID:     studentID,
				OwnerID:       ownerID,
				PropertyID:    propertyID,
				Status:        model.BookingPaid,
				PaymentStatus: model.PaymentPaid,
				TotalAmount:   1000,
				AmountPaid:    1000,
				CheckInDate:   now.Add(time.Duration(tt.daysOut * float64(24*time.Hour))),
			})

			b, err := h.svc.Cancel(context.Background(), student, "64b7f0c2a1b2c3d4e5f600aa", &model.BookingReason{Reason: "plans changed"})
			if err != nil {
				t.Fatalf("cancel: %v", err)
			}
			if b.Status != model.BookingCancelled || b.CancelledAt == nil {
				t.Errorf("unexpected booking %+v", b)
			}
			if b.RefundAmount != tt.wantRefund || b.PaymentStatus != tt.wantPayment {
				t.Errorf("refund = %v/%s, want %v/%s", b.RefundAmount, b.PaymentStatus, tt.wantRefund, tt.wantPayment)
			}
			if got := h.properties.occupied(propertyID); got != 0 {
				t.Errorf("expected occupancy 0, got %d", got)
			}
		})
	}
}

func TestTransition_LostUpdateIsConflict(t *testing.T) {
	h := newHarness(t, "test", 2)
	b := h.create(t)

	h.repo.beforeUpdate = func(stored *model.Booking) {
		stored.Status = model.BookingCancelled
	}

	_, err := h.svc.Accept(context.Background(), owner, b.ID)
	wantStatus(t, err, http.StatusConflict)
}

func TestVerifyPayment_Idempotent(t *testing.T) {
	h := newHarness(t, "test", 2)
	ctx := context.Background()
	b := h.create(t)
	if _, err := h.svc.Accept(ctx, owner, b.ID); err != nil {
		t.Fatal(err)
	}

	input := &model.PaymentVerification{OrderID: "order_x", PaymentID: "pay_x"}
	first, err := h.svc.VerifyPayment(ctx, student, b.ID, input)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	writes := h.repo.writes

	second, err := h.svc.VerifyPayment(ctx, student, b.ID, input)
	if err != nil {
		t.Fatalf("second verify: %v", err)
	}
	if h.repo.writes != writes {
		t.Error("second verification must not write")
	}
	if second.Status != model.BookingPaid || second.PaymentID != first.PaymentID {
		t.Errorf("unexpected stored booking %+v", second)
	}
}

func TestVerifyPayment_SignatureEnforcedInProduction(t *testing.T) {
	h := newHarness(t, config.EnvProduction, 2)
	ctx := context.Background()
	h.properties.properties[propertyID].LiveStats.OccupiedRooms = 1
	h.repo.put(&model.Booking{
		ID:             "64b7f0c2a1b2c3d4e5f600bb",
		StudentID:      studentID,
		OwnerID:        ownerID,
		PropertyID:     propertyID,
		Status:         model.BookingConfirmed,
		PaymentStatus:  model.PaymentUnpaid,
		TotalAmount:    100,
		PaymentOrderID: "order_9",
	})

	_, err := h.svc.VerifyPayment(ctx, student, "64b7f0c2a1b2c3d4e5f600bb", &model.PaymentVerification{OrderID: "order_9", PaymentID: "pay_9", Signature: "bad"})
	wantStatus(t, err, http.StatusBadRequest)

	_, err = h.svc.VerifyPayment(ctx, student, "64b7f0c2a1b2c3d4e5f600bb", &model.PaymentVerification{OrderID: "order_other", PaymentID: "pay_9"})
	wantStatus(t, err, http.StatusBadRequest)

	b, err := h.svc.VerifyPayment(ctx, student, "64b7f0c2a1b2c3d4e5f600bb", &model.PaymentVerification{
		OrderID:   "order_9",
		PaymentID: "pay_9",
		Signature: gateway.Sign("secret", "order_9", "pay_9"),
	})
	if err != nil || b.Status != model.BookingPaid {
		t.Fatalf("expected paid, got %v %+v", err, b)
	}
}

func TestConfirmPayment_FromWebhook(t *testing.T) {
	h := newHarness(t, "test", 2)
	ctx := context.Background()
	b := h.create(t)
	if _, err := h.svc.Accept(ctx, owner, b.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := h.svc.CreatePaymentOrder(ctx, student, b.ID); err != nil {
		t.Fatal(err)
	}

	paid, err := h.svc.ConfirmPayment(ctx, "order_1", "pay_1")
	if err != nil || paid.Status != model.BookingPaid {
		t.Fatalf("confirm: %v %+v", err, paid)
	}
	again, err := h.svc.ConfirmPayment(ctx, "order_1", "pay_1")
	if err != nil || again.Status != model.BookingPaid {
		t.Fatalf("redelivery must succeed: %v", err)
	}

	last := h.audit.entries[len(h.audit.entries)-1]
	if last.Action != "booking.pay" || last.ActorID != SystemActor {
		t.Errorf("unexpected audit entry %+v", last)
	}

	_, err = h.svc.ConfirmPayment(ctx, "order_unknown", "pay_1")
	wantStatus(t, err, http.StatusNotFound)
}

func TestCreatePaymentOrder_GatewayUnavailable(t *testing.T) {
	h := newHarness(t, "test", 2)
	ctx := context.Background()
	b := h.create(t)

	_, err := h.svc.CreatePaymentOrder(ctx, student, b.ID)
	wantStatus(t, err, http.StatusBadRequest)
	if h.gateway.calls != 0 {
		t.Error("gateway must not be called for a pending booking")
	}

	if _, err := h.svc.Accept(ctx, owner, b.ID); err != nil {
		t.Fatal(err)
	}
	h.gateway.err = gobreaker.ErrOpenState
	_, err = h.svc.CreatePaymentOrder(ctx, student, b.ID)
	wantStatus(t, err, http.StatusServiceUnavailable)
}

func TestAdminSetStatus_RecomputesOccupancy(t *testing.T) {
	h := newHarness(t, "test", 1)
	ctx := context.Background()
	b := h.create(t)

	_, err := h.svc.AdminSetStatus(ctx, owner, b.ID, &model.AdminBookingUpdate{Status: model.BookingCompleted})
	wantStatus(t, err, http.StatusForbidden)

	b, err = h.svc.AdminSetStatus(ctx, admin, b.ID, &model.AdminBookingUpdate{Status: model.BookingCancelled, Reason: "duplicate"})
	if err != nil {
		t.Fatalf("force cancel: %v", err)
	}
	if b.CancellationReason != "duplicate" || b.CancelledAt == nil {
		t.Errorf("unexpected booking %+v", b)
	}
	if got := h.properties.occupied(propertyID); got != 0 {
		t.Errorf("expected occupancy 0, got %d", got)
	}

	b, err = h.svc.AdminSetStatus(ctx, admin, b.ID, &model.AdminBookingUpdate{Status: model.BookingPaid})
	if err != nil || b.Status != model.BookingPaid {
		t.Fatalf("force paid: %v", err)
	}
	if got := h.properties.occupied(propertyID); got != 1 {
		t.Errorf("expected occupancy 1, got %d", got)
	}

	writes := h.repo.writes
	if _, err := h.svc.AdminSetStatus(ctx, admin, b.ID, &model.AdminBookingUpdate{Status: model.BookingPaid}); err != nil {
		t.Fatal(err)
	}
	if h.repo.writes != writes {
		t.Error("forcing the current status must not write")
	}
}

func TestAdminSetStatus_ReactivatingDuplicateConflicts(t *testing.T) {
	h := newHarness(t, "test", 2)
	ctx := context.Background()

	first := h.create(t)
	if _, err := h.svc.Cancel(ctx, student, first.ID, nil); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	h.create(t)

	_, err := h.svc.AdminSetStatus(ctx, admin, first.ID, &model.AdminBookingUpdate{Status: model.BookingPending})
	wantStatus(t, err, http.StatusConflict)

	if got := h.repo.get(first.ID).Status; got != model.BookingCancelled {
		t.Errorf("expected first booking to stay cancelled, got %s", got)
	}
	if got := h.properties.occupied(propertyID); got != 1 {
		t.Errorf("expected occupancy 1, got %d", got)
	}
}

func TestAdminDelete_ReleasesActiveRoom(t *testing.T) {
	h := newHarness(t, "test", 1)
	ctx := context.Background()
	b := h.create(t)

	if err := h.svc.AdminDelete(ctx, admin, b.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if got := h.properties.occupied(propertyID); got != 0 {
		t.Errorf("expected occupancy 0, got %d", got)
	}
	_, err := h.svc.Get(ctx, admin, b.ID)
	wantStatus(t, err, http.StatusNotFound)
}

func TestGet_AccessControl(t *testing.T) {
	h := newHarness(t, "test", 1)
	b := h.create(t)

	for _, caller := range []*auth.Principal{student, owner, admin} {
		if _, err := h.svc.Get(context.Background(), caller, b.ID); err != nil {
			t.Errorf("%s: unexpected error %v", caller.UserID, err)
		}
	}
	_, err := h.svc.Get(context.Background(), &auth.Principal{UserID: "stranger", Role: model.RoleStudent}, b.ID)
	wantStatus(t, err, http.StatusForbidden)
}

func TestListForOwner_ScopesToCaller(t *testing.T) {
	h := newHarness(t, "test", 2)
	h.create(t)

	bookings, total, err := h.svc.ListForOwner(context.Background(), owner, model.BookingFilter{OwnerID: "someone-else"}, 20, 0)
	if err != nil {
		t.Fatal(err)
	}
	if total != 1 || len(bookings) != 1 {
		t.Errorf("expected the owner's booking, got %d/%d", len(bookings), total)
	}

	_, _, err = h.svc.ListForStudent(context.Background(), student, "bogus", 20, 0)
	wantStatus(t, err, http.StatusBadRequest)
}

func TestTotalAmount(t *testing.T) {
	got := TotalAmount(&model.Property{PricePerMonth: 333.33, Deposit: 100}, 3)
	if got != 1099.99 {
		t.Errorf("got %v", got)
	}
}
