package model

import "time"

// BookingLock serialises booking creation for one student and property.
// Holder is a per-acquire token; only the holder may release the lock.
type BookingLock struct {
	ID        string    `bson:"_id,omitempty" json:"id"`
	Holder    string    `bson:"holder" json:"holder"`
	ExpiresAt time.Time `bson:"expires_at" json:"expires_at"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}
