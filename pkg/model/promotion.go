package model

import "time"

type PromotionStatus string

const (
	PromotionPending  PromotionStatus = "pending"
	PromotionApproved PromotionStatus = "approved"
	PromotionRejected PromotionStatus = "rejected"
)

type OwnerPromotionRequest struct {
	ID           string          `json:"id,omitempty" bson:"_id,omitempty"`
	UserID       string          `json:"user_id" bson:"user_id"`
	BusinessName string          `json:"business_name" bson:"business_name"`
	Phone        string          `json:"phone" bson:"phone"`
	Message      string          `json:"message,omitempty" bson:"message,omitempty"`
	Status       PromotionStatus `json:"status" bson:"status"`
	ReviewedBy   string          `json:"reviewed_by,omitempty" bson:"reviewed_by,omitempty"`
	ReviewNote   string          `json:"review_note,omitempty" bson:"review_note,omitempty"`
	CreatedAt    time.Time       `json:"created_at" bson:"created_at"`
	ReviewedAt   *time.Time      `json:"reviewed_at,omitempty" bson:"reviewed_at,omitempty"`
}

type PromotionCreate struct {
	BusinessName string `json:"business_name" validate:"required,min=2,max=150"`
	Phone        string `json:"phone" validate:"required,max=20"`
	Message      string `json:"message,omitempty" validate:"omitempty,max=1000"`
}

type PromotionReview struct {
	Note string `json:"note,omitempty" validate:"omitempty,max=500"`
}
