package repository

import (
	"context"
	"fmt"
	"time"

	bookingserrors "unistay/internal/bookings/errors"
	"unistay/pkg/config"
	mongotx "unistay/pkg/db/mongo"
	"unistay/pkg/model"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const LockCollectionName = "booking_locks"

// BookingLockRepository hands out short advisory locks. Acquire returns a
// holder token that Release must present.
type BookingLockRepository interface {
	Acquire(ctx context.Context, lockID string, ttl time.Duration) (string, error)
	Release(ctx context.Context, lockID, holder string) error
}

type mongoBookingLockRepository struct {
	cfg   *config.Config
	locks *mongo.Collection
}

func NewBookingLockRepository(cfg *config.Config) BookingLockRepository {
	return &mongoBookingLockRepository{
		cfg:   cfg,
		locks: cfg.Client.Mongo.Database(cfg.MongoDatabaseName).Collection(LockCollectionName),
	}
}

// Acquire upserts the lock only when it is absent or already expired. A live
// lock makes the upsert collide on _id, which is reported as ErrLockHeld.
// Taking over expired locks here covers the gap before the TTL monitor runs.
func (r *mongoBookingLockRepository) Acquire(ctx context.Context, lockID string, ttl time.Duration) (string, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	now := mongotx.Now()
	holder := uuid.NewString()
	_, err := r.locks.UpdateOne(ctx,
		bson.M{"_id": lockID, "expires_at": bson.M{"$lte": now}},
		bson.M{"$set": model.BookingLock{Holder: holder, ExpiresAt: now.Add(ttl), CreatedAt: now}},
		options.Update().SetUpsert(true),
	)
	if mongo.IsDuplicateKeyError(err) {
		return "", bookingserrors.ErrLockHeld
	}
	if err != nil {
		return "", fmt.Errorf("acquire booking lock %s: %w", lockID, err)
	}
	return holder, nil
}

// Release is a no-op when the lock expired and someone else now holds it.
func (r *mongoBookingLockRepository) Release(ctx context.Context, lockID, holder string) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	if _, err := r.locks.DeleteOne(ctx, bson.M{"_id": lockID, "holder": holder}); err != nil {
		return fmt.Errorf("release booking lock %s: %w", lockID, err)
	}
	return nil
}

// LockID names the lock serialising bookings of one student for one property.
func LockID(studentID, propertyID string) string {
	return "booking_lock_" + studentID + "_" + propertyID
}
