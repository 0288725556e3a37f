package model

import "time"

type Notification struct {
	ID        string    `json:"id,omitempty" bson:"_id,omitempty"`
	UserID    string    `json:"user_id" bson:"user_id"`
	Kind      string    `json:"kind" bson:"kind"`
	Title     string    `json:"title" bson:"title"`
	Body      string    `json:"body" bson:"body"`
	BookingID string    `json:"booking_id,omitempty" bson:"booking_id,omitempty"`
	EventID   string    `json:"event_id" bson:"event_id"`
	Read      bool      `json:"read" bson:"read"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
}

// BookingEvent is published on every booking transition.
type BookingEvent struct {
	EventID    string        `json:"event_id"`
	Action     string        `json:"action"`
	BookingID  string        `json:"booking_id"`
	PropertyID string        `json:"property_id"`
	StudentID  string        `json:"student_id"`
	OwnerID    string        `json:"owner_id"`
	ActorID    string        `json:"actor_id"`
	From       BookingStatus `json:"from,omitempty"`
	To         BookingStatus `json:"to"`
	Refund     float64       `json:"refund,omitempty"`
	OccurredAt time.Time     `json:"occurred_at"`
}

type DashboardStats struct {
	UsersByRole        map[string]int64 `json:"users_by_role"`
	BookingsByStatus   map[string]int64 `json:"bookings_by_status"`
	PropertiesByStatus map[string]int64 `json:"properties_by_status"`
	PendingPromotions  int64            `json:"pending_promotions"`
	FlaggedReviews     int64            `json:"flagged_reviews"`
}
