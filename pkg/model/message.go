package model

import "time"

type Conversation struct {
	ID            string           `json:"id" bson:"_id"`
	PropertyID    string           `json:"property_id" bson:"property_id"`
	OwnerID       string           `json:"owner_id" bson:"owner_id"`
	StudentID     string           `json:"student_id" bson:"student_id"`
	LastMessage   string           `json:"last_message" bson:"last_message"`
	LastMessageAt time.Time        `json:"last_message_at" bson:"last_message_at"`
	Unread        map[string]int64 `json:"unread" bson:"unread"`
	CreatedAt     time.Time        `json:"created_at" bson:"created_at"`
}

// HasParticipant reports whether userID is the owner or the student of the thread.
func (c *Conversation) HasParticipant(userID string) bool {
	return userID != "" && (c.OwnerID == userID || c.StudentID == userID)
}

type Message struct {
	ID          string     `json:"id,omitempty" bson:"_id,omitempty"`
	ThreadID    string     `json:"thread_id" bson:"thread_id"`
	SenderID    string     `json:"sender_id" bson:"sender_id"`
	RecipientID string     `json:"recipient_id" bson:"recipient_id"`
	Body        string     `json:"body" bson:"body"`
	CreatedAt   time.Time  `json:"created_at" bson:"created_at"`
	ReadAt      *time.Time `json:"read_at,omitempty" bson:"read_at,omitempty"`
}

type MessageCreate struct {
	PropertyID  string `json:"property_id,omitempty" validate:"omitempty,mongodb"`
	ThreadID    string `json:"thread_id,omitempty" validate:"omitempty,max=100"`
	RecipientID string `json:"recipient_id,omitempty" validate:"omitempty,mongodb"`
	Body        string `json:"body" validate:"required,min=1,max=2000"`
}
