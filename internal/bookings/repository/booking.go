package repository

import (
	"context"
	"errors"
	"fmt"

	bookingserrors "unistay/internal/bookings/errors"
	"unistay/pkg/config"
	mongotx "unistay/pkg/db/mongo"
	"unistay/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	CollectionName = "bookings"
)

type mongoBookingRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
	txManager  mongotx.TransactionManager
}

type BookingRepository interface {
	Create(ctx context.Context, booking *model.Booking) error
	FindByID(ctx context.Context, id string) (*model.Booking, error)
	FindByPaymentOrderID(ctx context.Context, orderID string) (*model.Booking, error)
	FindActive(ctx context.Context, studentID, propertyID string) (*model.Booking, error)
	Find(ctx context.Context, filter model.BookingFilter, limit int, offset int64) ([]*model.Booking, error)
	Count(ctx context.Context, filter model.BookingFilter) (int64, error)
	UpdateStatus(ctx context.Context, booking *model.Booking, expected model.BookingStatus) error
	SetPaymentOrder(ctx context.Context, id string, orderID string, expected model.BookingStatus) error
	Delete(ctx context.Context, id string) error
	ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error
}

func NewMongoBookingRepository(cfg *config.Config) BookingRepository {
	return &mongoBookingRepository{
		cfg:        cfg,
		collection: cfg.Client.Mongo.Database(cfg.MongoDatabaseName).Collection(CollectionName),
		txManager:  mongotx.NewTransactionManager(cfg.Client.Mongo),
	}
}

func (r *mongoBookingRepository) Create(ctx context.Context, booking *model.Booking) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	now := mongotx.Now()
	if booking.CreatedAt.IsZero() {
		booking.CreatedAt = now
	}
	booking.UpdatedAt = now

	result, err := r.collection.InsertOne(ctx, booking)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return bookingserrors.ErrDuplicateActive
		}
		return fmt.Errorf("failed to create booking: %w", err)
	}

	booking.ID = mongotx.InsertedHex(result)
	return nil
}

func (r *mongoBookingRepository) FindByID(ctx context.Context, id string) (*model.Booking, error) {
	objectID, err := mongotx.ObjectID(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", bookingserrors.ErrInvalidID, id)
	}
	return r.findOne(ctx, bson.M{"_id": objectID})
}

func (r *mongoBookingRepository) FindByPaymentOrderID(ctx context.Context, orderID string) (*model.Booking, error) {
	return r.findOne(ctx, bson.M{"payment_order_id": orderID})
}

// FindActive returns the student's booking for the property that still
// holds a room, or ErrNotFound.
func (r *mongoBookingRepository) FindActive(ctx context.Context, studentID, propertyID string) (*model.Booking, error) {
	return r.findOne(ctx, bson.M{
		"student_id":  studentID,
		"property_id": propertyID,
		"status":      bson.M{"$in": model.ActiveBookingStatuses()},
	})
}

func (r *mongoBookingRepository) findOne(ctx context.Context, filter bson.M) (*model.Booking, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	var booking model.Booking
	err := r.collection.FindOne(ctx, filter).Decode(&booking)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, bookingserrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find booking: %w", err)
	}

	return &booking, nil
}

func (r *mongoBookingRepository) Find(ctx context.Context, filter model.BookingFilter, limit int, offset int64) ([]*model.Booking, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(int64(limit)).
		SetSkip(offset)

	cursor, err := r.collection.Find(ctx, Filter(filter), opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find bookings: %w", err)
	}
	defer cursor.Close(ctx)

	bookings := []*model.Booking{}
	if err = cursor.All(ctx, &bookings); err != nil {
		return nil, fmt.Errorf("failed to decode bookings: %w", err)
	}

	return bookings, nil
}

func (r *mongoBookingRepository) Count(ctx context.Context, filter model.BookingFilter) (int64, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	count, err := r.collection.CountDocuments(ctx, Filter(filter))
	if err != nil {
		return 0, fmt.Errorf("failed to count bookings: %w", err)
	}

	return count, nil
}

// UpdateStatus writes the lifecycle fields of booking only if the stored
// status is still expected. A miss on an existing booking is ErrConflict.
// Reactivating a booking while the student holds another active one for the
// same property trips the unique index and yields ErrDuplicateActive.
func (r *mongoBookingRepository) UpdateStatus(ctx context.Context, booking *model.Booking, expected model.BookingStatus) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := mongotx.ObjectID(booking.ID)
	if err != nil {
		return fmt.Errorf("%w: %s", bookingserrors.ErrInvalidID, booking.ID)
	}

	booking.UpdatedAt = mongotx.Now()
	result, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": objectID, "status": expected},
		bson.M{"$set": StatusFields(booking)},
	)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return bookingserrors.ErrDuplicateActive
		}
		return fmt.Errorf("failed to update booking status: %w", err)
	}
	if result.MatchedCount == 0 {
		return r.missOrConflict(ctx, objectID)
	}

	return nil
}

func (r *mongoBookingRepository) SetPaymentOrder(ctx context.Context, id string, orderID string, expected model.BookingStatus) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := mongotx.ObjectID(id)
	if err != nil {
		return fmt.Errorf("%w: %s", bookingserrors.ErrInvalidID, id)
	}

	result, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": objectID, "status": expected},
		bson.M{"$set": bson.M{"payment_order_id": orderID, "updated_at": mongotx.Now()}},
	)
	if err != nil {
		return fmt.Errorf("failed to store payment order: %w", err)
	}
	if result.MatchedCount == 0 {
		return r.missOrConflict(ctx, objectID)
	}

	return nil
}

func (r *mongoBookingRepository) missOrConflict(ctx context.Context, objectID any) error {
	n, err := r.collection.CountDocuments(ctx, bson.M{"_id": objectID})
	if err != nil {
		return fmt.Errorf("failed to check booking existence: %w", err)
	}
	if n == 0 {
		return bookingserrors.ErrNotFound
	}
	return bookingserrors.ErrConflict
}

func (r *mongoBookingRepository) Delete(ctx context.Context, id string) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := mongotx.ObjectID(id)
	if err != nil {
		return fmt.Errorf("%w: %s", bookingserrors.ErrInvalidID, id)
	}

	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": objectID})
	if err != nil {
		return fmt.Errorf("failed to delete booking: %w", err)
	}

	if result.DeletedCount == 0 {
		return bookingserrors.ErrNotFound
	}

	return nil
}

func (r *mongoBookingRepository) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return r.txManager.ExecuteTransaction(ctx, fn)
}

func Filter(f model.BookingFilter) bson.M {
	filter := bson.M{}
	if f.StudentID != "" {
		filter["student_id"] = f.StudentID
	}
	if f.OwnerID != "" {
		filter["owner_id"] = f.OwnerID
	}
	if f.PropertyID != "" {
		filter["property_id"] = f.PropertyID
	}
	if f.Status != "" {
		filter["status"] = f.Status
	}
	return filter
}

// StatusFields is the $set document for a lifecycle write.
func StatusFields(b *model.Booking) bson.M {
	return bson.M{
		"status":              b.Status,
		"payment_status":      b.PaymentStatus,
		"amount_paid":         b.AmountPaid,
		"refund_amount":       b.RefundAmount,
		"payment_order_id":    b.PaymentOrderID,
		"payment_id":          b.PaymentID,
		"rejection_reason":    b.RejectionReason,
		"cancellation_reason": b.CancellationReason,
		"accepted_at":         b.AcceptedAt,
		"rejected_at":         b.RejectedAt,
		"cancelled_at":        b.CancelledAt,
		"paid_at":             b.PaidAt,
		"checked_in_at":       b.CheckedInAt,
		"completed_at":        b.CompletedAt,
		"updated_at":          b.UpdatedAt,
	}
}
