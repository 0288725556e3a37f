package repository

import (
	"context"
	"fmt"

	bookingsrepo "unistay/internal/bookings/repository"
	propertiesrepo "unistay/internal/properties/repository"
	reviewsrepo "unistay/internal/reviews/repository"
	usersrepo "unistay/internal/users/repository"
	"unistay/pkg/config"
	mongotx "unistay/pkg/db/mongo"
	"unistay/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

type StatsRepository interface {
	UsersByRole(ctx context.Context) (map[string]int64, error)
	BookingsByStatus(ctx context.Context) (map[string]int64, error)
	PropertiesByStatus(ctx context.Context) (map[string]int64, error)
	PendingPromotions(ctx context.Context) (int64, error)
	FlaggedReviews(ctx context.Context) (int64, error)
}

type mongoStatsRepository struct {
	cfg *config.Config
	db  *mongo.Database
}

func NewMongoStatsRepository(cfg *config.Config) StatsRepository {
	return &mongoStatsRepository{
		cfg: cfg,
		db:  cfg.Client.Mongo.Database(cfg.MongoDatabaseName),
	}
}

func (r *mongoStatsRepository) UsersByRole(ctx context.Context) (map[string]int64, error) {
	return r.groupCount(ctx, usersrepo.CollectionName, "role")
}

func (r *mongoStatsRepository) BookingsByStatus(ctx context.Context) (map[string]int64, error) {
	return r.groupCount(ctx, bookingsrepo.CollectionName, "status")
}

func (r *mongoStatsRepository) PropertiesByStatus(ctx context.Context) (map[string]int64, error) {
	return r.groupCount(ctx, propertiesrepo.CollectionName, "status")
}

func (r *mongoStatsRepository) PendingPromotions(ctx context.Context) (int64, error) {
	return r.count(ctx, usersrepo.PromotionCollectionName, bson.M{"status": model.PromotionPending})
}

func (r *mongoStatsRepository) FlaggedReviews(ctx context.Context) (int64, error) {
	return r.count(ctx, reviewsrepo.CollectionName, bson.M{"status": model.ReviewFlagged})
}

func (r *mongoStatsRepository) groupCount(ctx context.Context, collection, field string) (map[string]int64, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	cursor, err := r.db.Collection(collection).Aggregate(ctx, GroupCountPipeline(field))
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate %s by %s: %w", collection, field, err)
	}
	defer cursor.Close(ctx)

	var rows []struct {
		Key   string `bson:"_id"`
		Count int64  `bson:"count"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("failed to decode %s counts: %w", collection, err)
	}

	counts := make(map[string]int64, len(rows))
	for _, row := range rows {
		counts[row.Key] = row.Count
	}
	return counts, nil
}

func (r *mongoStatsRepository) count(ctx context.Context, collection string, filter bson.M) (int64, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	count, err := r.db.Collection(collection).CountDocuments(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", collection, err)
	}
	return count, nil
}

func GroupCountPipeline(field string) mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$group", Value: bson.M{"_id": "$" + field, "count": bson.M{"$sum": 1}}}},
	}
}
