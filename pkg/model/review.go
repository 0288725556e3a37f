package model

import "time"

type ReviewStatus string

const (
	ReviewPublished ReviewStatus = "published"
	ReviewFlagged   ReviewStatus = "flagged"
	ReviewHidden    ReviewStatus = "hidden"
)

type OwnerResponse struct {
	Text        string    `json:"text" bson:"text"`
	RespondedAt time.Time `json:"responded_at" bson:"responded_at"`
}

type Review struct {
	ID            string         `json:"id,omitempty" bson:"_id,omitempty"`
	BookingID     string         `json:"booking_id" bson:"booking_id"`
	PropertyID    string         `json:"property_id" bson:"property_id"`
	StudentID     string         `json:"student_id" bson:"student_id"`
	Rating        int            `json:"rating" bson:"rating"`
	Comment       string         `json:"comment" bson:"comment"`
	OwnerResponse *OwnerResponse `json:"owner_response,omitempty" bson:"owner_response,omitempty"`
	Status        ReviewStatus   `json:"status" bson:"status"`
	CreatedAt     time.Time      `json:"created_at" bson:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at" bson:"updated_at"`
}

type ReviewCreate struct {
	BookingID string `json:"booking_id" validate:"required,mongodb"`
	Rating    int    `json:"rating" validate:"required,min=1,max=5"`
	Comment   string `json:"comment" validate:"required,min=3,max=2000"`
}

type ReviewResponse struct {
	Text string `json:"text" validate:"required,min=1,max=2000"`
}

type RatingSummary struct {
	Average float64 `json:"average" bson:"average"`
	Count   int64   `json:"count" bson:"count"`
}

type PropertyReviews struct {
	Reviews []*Review     `json:"reviews"`
	Summary RatingSummary `json:"summary"`
}

type ReviewModeration struct {
	Status ReviewStatus `json:"status" validate:"required,oneof=published flagged hidden"`
}

type ReviewFilter struct {
	PropertyID string
	StudentID  string
	Status     ReviewStatus
}
