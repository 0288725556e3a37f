package repository

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	propertieserrors "unistay/internal/properties/errors"
	"unistay/pkg/config"
	mongotx "unistay/pkg/db/mongo"
	"unistay/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	CollectionName = "properties"
)

type PropertyRepository interface {
	Create(ctx context.Context, property *model.Property) error
	FindByID(ctx context.Context, id string) (*model.Property, error)
	Update(ctx context.Context, property *model.Property) error
	SetStatus(ctx context.Context, id string, status model.PropertyStatus, note string) error
	Search(ctx context.Context, query model.PropertySearch, limit int, offset int64) ([]*model.Property, error)
	CountSearch(ctx context.Context, query model.PropertySearch) (int64, error)
	FindByOwner(ctx context.Context, ownerID string, limit int, offset int64) ([]*model.Property, error)
	CountByOwner(ctx context.Context, ownerID string) (int64, error)
	FindAll(ctx context.Context, status model.PropertyStatus, limit int, offset int64) ([]*model.Property, error)
	Count(ctx context.Context, status model.PropertyStatus) (int64, error)
	IncrementViews(ctx context.Context, id string) error
	AdjustOccupancy(ctx context.Context, id string, delta int) error
	SetOccupancy(ctx context.Context, id string, occupied int) error
}

type mongoPropertyRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoPropertyRepository(cfg *config.Config) PropertyRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoPropertyRepository{
		cfg:        cfg,
		collection: db.Collection(CollectionName),
	}
}

func (r *mongoPropertyRepository) Create(ctx context.Context, property *model.Property) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	now := mongotx.Now()
	property.CreatedAt = now
	property.UpdatedAt = now

	result, err := r.collection.InsertOne(ctx, property)
	if err != nil {
		return fmt.Errorf("failed to create property: %w", err)
	}

	property.ID = mongotx.InsertedHex(result)
	return nil
}

func (r *mongoPropertyRepository) FindByID(ctx context.Context, id string) (*model.Property, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	objectID, err := mongotx.ObjectID(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", propertieserrors.ErrInvalidID, id)
	}

	var property model.Property
	err = r.collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&property)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, propertieserrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find property: %w", err)
	}

	return &property, nil
}

// Update writes the editable listing fields. The write only applies while
// current occupancy still fits in the new room count.
func (r *mongoPropertyRepository) Update(ctx context.Context, property *model.Property) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := mongotx.ObjectID(property.ID)
	if err != nil {
		return fmt.Errorf("%w: %s", propertieserrors.ErrInvalidID, property.ID)
	}

	property.UpdatedAt = mongotx.Now()
	filter := bson.M{
		"_id":                       objectID,
		"live_stats.occupied_rooms": bson.M{"$lte": property.TotalRooms},
	}
	update := bson.M{
		"$set": bson.M{
			"title":           property.Title,
			"description":     property.Description,
			"address":         property.Address,
			"university":      property.University,
			"price_per_month": property.PricePerMonth,
			"deposit":         property.Deposit,
			"amenities":       property.Amenities,
			"images":          property.Images,
			"room_types":      property.RoomTypes,
			"total_rooms":     property.TotalRooms,
			"status":          property.Status,
			"updated_at":      property.UpdatedAt,
		},
	}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to update property: %w", err)
	}
	if result.MatchedCount == 0 {
		return r.missOrGuard(ctx, objectID, propertieserrors.ErrBelowOccupancy)
	}

	return nil
}

func (r *mongoPropertyRepository) SetStatus(ctx context.Context, id string, status model.PropertyStatus, note string) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := mongotx.ObjectID(id)
	if err != nil {
		return fmt.Errorf("%w: %s", propertieserrors.ErrInvalidID, id)
	}

	update := bson.M{
		"$set": bson.M{
			"status":          status,
			"moderation_note": note,
			"updated_at":      mongotx.Now(),
		},
	}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": objectID}, update)
	if err != nil {
		return fmt.Errorf("failed to set property status: %w", err)
	}
	if result.MatchedCount == 0 {
		return propertieserrors.ErrNotFound
	}

	return nil
}

func (r *mongoPropertyRepository) Search(ctx context.Context, query model.PropertySearch, limit int, offset int64) ([]*model.Property, error) {
	return r.find(ctx, SearchFilter(query), limit, offset)
}

func (r *mongoPropertyRepository) CountSearch(ctx context.Context, query model.PropertySearch) (int64, error) {
	return r.count(ctx, SearchFilter(query))
}

func (r *mongoPropertyRepository) FindByOwner(ctx context.Context, ownerID string, limit int, offset int64) ([]*model.Property, error) {
	return r.find(ctx, bson.M{"owner_id": ownerID}, limit, offset)
}

func (r *mongoPropertyRepository) CountByOwner(ctx context.Context, ownerID string) (int64, error) {
	return r.count(ctx, bson.M{"owner_id": ownerID})
}

func (r *mongoPropertyRepository) FindAll(ctx context.Context, status model.PropertyStatus, limit int, offset int64) ([]*model.Property, error) {
	return r.find(ctx, statusFilter(status), limit, offset)
}

func (r *mongoPropertyRepository) Count(ctx context.Context, status model.PropertyStatus) (int64, error) {
	return r.count(ctx, statusFilter(status))
}

func (r *mongoPropertyRepository) IncrementViews(ctx context.Context, id string) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := mongotx.ObjectID(id)
	if err != nil {
		return fmt.Errorf("%w: %s", propertieserrors.ErrInvalidID, id)
	}

	_, err = r.collection.UpdateOne(ctx, bson.M{"_id": objectID}, bson.M{"$inc": bson.M{"live_stats.views": 1}})
	if err != nil {
		return fmt.Errorf("failed to increment views: %w", err)
	}
	return nil
}

// AdjustOccupancy moves occupied_rooms by +1 or -1. Increments only apply
// below total_rooms and decrements only above zero; a blocked write returns
// ErrNoCapacity or ErrNoOccupancy.
func (r *mongoPropertyRepository) AdjustOccupancy(ctx context.Context, id string, delta int) error {
	if delta == 0 {
		return nil
	}

	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := mongotx.ObjectID(id)
	if err != nil {
		return fmt.Errorf("%w: %s", propertieserrors.ErrInvalidID, id)
	}

	filter, guardErr := OccupancyFilter(delta)
	filter["_id"] = objectID
	update := bson.M{
		"$inc": bson.M{"live_stats.occupied_rooms": delta},
		"$set": bson.M{"updated_at": mongotx.Now()},
	}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to adjust occupancy: %w", err)
	}
	if result.MatchedCount == 0 {
		return r.missOrGuard(ctx, objectID, guardErr)
	}

	return nil
}

func (r *mongoPropertyRepository) SetOccupancy(ctx context.Context, id string, occupied int) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := mongotx.ObjectID(id)
	if err != nil {
		return fmt.Errorf("%w: %s", propertieserrors.ErrInvalidID, id)
	}

	_, err = r.collection.UpdateOne(ctx, bson.M{"_id": objectID}, bson.M{
		"$set": bson.M{"live_stats.occupied_rooms": occupied, "updated_at": mongotx.Now()},
	})
	if err != nil {
		return fmt.Errorf("failed to set occupancy: %w", err)
	}
	return nil
}

func (r *mongoPropertyRepository) find(ctx context.Context, filter bson.M, limit int, offset int64) ([]*model.Property, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(int64(limit)).
		SetSkip(offset)

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find properties: %w", err)
	}
	defer cursor.Close(ctx)

	properties := []*model.Property{}
	if err = cursor.All(ctx, &properties); err != nil {
		return nil, fmt.Errorf("failed to decode properties: %w", err)
	}

	return properties, nil
}

func (r *mongoPropertyRepository) count(ctx context.Context, filter bson.M) (int64, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	count, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("failed to count properties: %w", err)
	}
	return count, nil
}

// missOrGuard tells a missing document apart from a failed guard condition.
func (r *mongoPropertyRepository) missOrGuard(ctx context.Context, objectID any, guardErr error) error {
	n, err := r.collection.CountDocuments(ctx, bson.M{"_id": objectID}, options.Count().SetLimit(1))
	if err != nil {
		return fmt.Errorf("failed to check property: %w", err)
	}
	if n == 0 {
		return propertieserrors.ErrNotFound
	}
	return guardErr
}

func statusFilter(status model.PropertyStatus) bson.M {
	if status == "" {
		return bson.M{}
	}
	return bson.M{"status": status}
}

// SearchFilter builds the public catalogue filter. Only approved listings are visible.
func SearchFilter(q model.PropertySearch) bson.M {
	filter := bson.M{"status": model.PropertyApproved}

	if q.City != "" {
		filter["address.city"] = bson.M{"$regex": "^" + regexp.QuoteMeta(q.City) + "$", "$options": "i"}
	}
	if q.University != "" {
		filter["university"] = bson.M{"$regex": regexp.QuoteMeta(q.University), "$options": "i"}
	}

	price := bson.M{}
	if q.MinPrice != nil {
		price["$gte"] = *q.MinPrice
	}
	if q.MaxPrice != nil {
		price["$lte"] = *q.MaxPrice
	}
	if len(price) > 0 {
		filter["price_per_month"] = price
	}

	if q.RoomType != "" {
		filter["room_types."+string(q.RoomType)] = bson.M{"$gt": 0}
	}
	if q.AvailableOnly {
		filter["$expr"] = bson.M{"$lt": bson.A{"$live_stats.occupied_rooms", "$total_rooms"}}
	}

	return filter
}

// OccupancyFilter returns the guard condition for an occupancy change of
// delta and the error reported when the guard blocks the write.
func OccupancyFilter(delta int) (bson.M, error) {
	if delta > 0 {
		return bson.M{"$expr": bson.M{"$lt": bson.A{"$live_stats.occupied_rooms", "$total_rooms"}}}, propertieserrors.ErrNoCapacity
	}
	return bson.M{"live_stats.occupied_rooms": bson.M{"$gt": 0}}, propertieserrors.ErrNoOccupancy
}

