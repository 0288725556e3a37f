package model

import (
	"time"
)

type BookingStatus string

const (
	BookingPending   BookingStatus = "pending"
	BookingConfirmed BookingStatus = "confirmed"
	BookingPaid      BookingStatus = "paid"
	BookingCheckedIn BookingStatus = "checked-in"
	BookingCompleted BookingStatus = "completed"
	BookingRejected  BookingStatus = "rejected"
	BookingCancelled BookingStatus = "cancelled"
)

// BookingStatuses lists every status in lifecycle order.
var BookingStatuses = []BookingStatus{
	BookingPending,
	BookingConfirmed,
	BookingPaid,
	BookingCheckedIn,
	BookingCompleted,
	BookingRejected,
	BookingCancelled,
}

// IsActive reports whether a booking in this status holds a room.
func (s BookingStatus) IsActive() bool {
	switch s {
	case BookingPending, BookingConfirmed, BookingPaid, BookingCheckedIn:
		return true
	}
	return false
}

func (s BookingStatus) Valid() bool {
	for _, status := range BookingStatuses {
		if s == status {
			return true
		}
	}
	return false
}

// ActiveBookingStatuses is the set counted towards property occupancy.
func ActiveBookingStatuses() []BookingStatus {
	return []BookingStatus{BookingPending, BookingConfirmed, BookingPaid, BookingCheckedIn}
}

type PaymentStatus string

const (
	PaymentUnpaid   PaymentStatus = "unpaid"
	PaymentPaid     PaymentStatus = "paid"
	PaymentRefunded PaymentStatus = "refunded"
)

type Booking struct {
	ID                 string        `json:"id,omitempty" bson:"_id,omitempty"`
	StudentID          string        `json:"student_id" bson:"student_id"`
	PropertyID         string        `json:"property_id" bson:"property_id"`
	OwnerID            string        `json:"owner_id" bson:"owner_id"`
	RoomType           RoomType      `json:"room_type" bson:"room_type"`
	CheckInDate        time.Time     `json:"check_in_date" bson:"check_in_date"`
	DurationMonths     int           `json:"duration_months" bson:"duration_months"`
	Status             BookingStatus `json:"status" bson:"status"`
	PaymentStatus      PaymentStatus `json:"payment_status" bson:"payment_status"`
	TotalAmount        float64       `json:"total_amount" bson:"total_amount"`
	AmountPaid         float64       `json:"amount_paid" bson:"amount_paid"`
	RefundAmount       float64       `json:"refund_amount" bson:"refund_amount"`
	PaymentOrderID     string        `json:"payment_order_id,omitempty" bson:"payment_order_id,omitempty"`
	PaymentID          string        `json:"payment_id,omitempty" bson:"payment_id,omitempty"`
	Notes              string        `json:"notes,omitempty" bson:"notes,omitempty"`
	RejectionReason    string        `json:"rejection_reason,omitempty" bson:"rejection_reason,omitempty"`
	CancellationReason string        `json:"cancellation_reason,omitempty" bson:"cancellation_reason,omitempty"`
	AcceptedAt         *time.Time    `json:"accepted_at,omitempty" bson:"accepted_at,omitempty"`
	RejectedAt         *time.Time    `json:"rejected_at,omitempty" bson:"rejected_at,omitempty"`
	CancelledAt        *time.Time    `json:"cancelled_at,omitempty" bson:"cancelled_at,omitempty"`
	PaidAt             *time.Time    `json:"paid_at,omitempty" bson:"paid_at,omitempty"`
	CheckedInAt        *time.Time    `json:"checked_in_at,omitempty" bson:"checked_in_at,omitempty"`
	CompletedAt        *time.Time    `json:"completed_at,omitempty" bson:"completed_at,omitempty"`
	CreatedAt          time.Time     `json:"created_at" bson:"created_at"`
	UpdatedAt          time.Time     `json:"updated_at" bson:"updated_at"`
}

type BookingCreate struct {
	PropertyID     string    `json:"property_id" validate:"required,mongodb"`
	RoomType       RoomType  `json:"room_type" validate:"required,oneof=single double shared"`
	CheckInDate    time.Time `json:"check_in_date" validate:"required"`
	DurationMonths int       `json:"duration_months" validate:"required,min=1,max=24"`
	Notes          string    `json:"notes,omitempty" validate:"omitempty,max=1000"`
	// MockPaid lands the booking directly in paid. Refused in production.
	MockPaid bool `json:"mock_paid,omitempty"`
}

type BookingReason struct {
	Reason string `json:"reason,omitempty" validate:"omitempty,max=500"`
}

type PaymentVerification struct {
	OrderID   string `json:"order_id" validate:"required,max=100"`
	PaymentID string `json:"payment_id" validate:"required,max=100"`
	Signature string `json:"signature" validate:"omitempty,max=256"`
}

type PaymentOrder struct {
	OrderID   string  `json:"order_id"`
	Amount    float64 `json:"amount"`
	Currency  string  `json:"currency"`
	BookingID string  `json:"booking_id"`
	KeyID     string  `json:"key_id,omitempty"`
	Mock      bool    `json:"mock,omitempty"`
}

type AdminBookingUpdate struct {
	Status BookingStatus `json:"status" validate:"required,oneof=pending confirmed paid checked-in completed rejected cancelled"`
	Reason string        `json:"reason,omitempty" validate:"omitempty,max=500"`
}

type BookingFilter struct {
	StudentID  string
	OwnerID    string
	PropertyID string
	Status     BookingStatus
}
