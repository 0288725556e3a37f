package repository

import (
	"context"
	"fmt"

	bookingsrepo "unistay/internal/bookings/repository"
	propertiesrepo "unistay/internal/properties/repository"
	"unistay/pkg/config"
	mongotx "unistay/pkg/db/mongo"
	"unistay/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// OccupancyRepository reads both sides of the occupancy invariant: the counter
// stored on each property and the number of active bookings behind it.
type OccupancyRepository interface {
	ActiveCounts(ctx context.Context) (map[string]int, error)
	StoredCounts(ctx context.Context) (map[string]int, error)
	// Recount reads one property's counter and its active bookings. Inside a
	// transaction both reads come from the same snapshot.
	Recount(ctx context.Context, propertyID string) (stored int, active int, err error)
	ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error
}

type mongoOccupancyRepository struct {
	cfg        *config.Config
	bookings   *mongo.Collection
	properties *mongo.Collection
	txManager  mongotx.TransactionManager
}

func NewMongoOccupancyRepository(cfg *config.Config) OccupancyRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoOccupancyRepository{
		cfg:        cfg,
		bookings:   db.Collection(bookingsrepo.CollectionName),
		properties: db.Collection(propertiesrepo.CollectionName),
		txManager:  mongotx.NewTransactionManager(cfg.Client.Mongo),
	}
}

func (r *mongoOccupancyRepository) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return r.txManager.ExecuteTransaction(ctx, fn)
}

func (r *mongoOccupancyRepository) Recount(ctx context.Context, propertyID string) (int, int, error) {
	objectID, err := mongotx.ObjectID(propertyID)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid property id: %s", propertyID)
	}

	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	var row struct {
		LiveStats model.LiveStats `bson:"live_stats"`
	}
	opts := options.FindOne().SetProjection(bson.M{"live_stats.occupied_rooms": 1})
	if err := r.properties.FindOne(ctx, bson.M{"_id": objectID}, opts).Decode(&row); err != nil {
		return 0, 0, fmt.Errorf("failed to read property occupancy: %w", err)
	}

	active, err := r.bookings.CountDocuments(ctx, bson.M{
		"property_id": propertyID,
		"status":      bson.M{"$in": model.ActiveBookingStatuses()},
	})
	if err != nil {
		return 0, 0, fmt.Errorf("failed to count active bookings: %w", err)
	}
	return row.LiveStats.OccupiedRooms, int(active), nil
}

func (r *mongoOccupancyRepository) ActiveCounts(ctx context.Context) (map[string]int, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	cursor, err := r.bookings.Aggregate(ctx, ActivePipeline())
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate active bookings: %w", err)
	}
	defer cursor.Close(ctx)

	var rows []struct {
		PropertyID string `bson:"_id"`
		Count      int    `bson:"count"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("failed to decode active booking counts: %w", err)
	}

	counts := make(map[string]int, len(rows))
	for _, row := range rows {
		counts[row.PropertyID] = row.Count
	}
	return counts, nil
}

func (r *mongoOccupancyRepository) StoredCounts(ctx context.Context) (map[string]int, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().SetProjection(bson.M{"_id": 1, "live_stats.occupied_rooms": 1})
	cursor, err := r.properties.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to read property occupancy: %w", err)
	}
	defer cursor.Close(ctx)

	counts := map[string]int{}
	for cursor.Next(ctx) {
		var row struct {
			ID        primitive.ObjectID `bson:"_id"`
			LiveStats model.LiveStats    `bson:"live_stats"`
		}
		if err := cursor.Decode(&row); err != nil {
			return nil, fmt.Errorf("failed to decode property occupancy: %w", err)
		}
		counts[row.ID.Hex()] = row.LiveStats.OccupiedRooms
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate properties: %w", err)
	}
	return counts, nil
}

// ActivePipeline groups bookings that hold a room by property.
func ActivePipeline() mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"status": bson.M{"$in": model.ActiveBookingStatuses()}}}},
		{{Key: "$group", Value: bson.M{"_id": "$property_id", "count": bson.M{"$sum": 1}}}},
	}
}
