package repository

import (
	"context"
	"errors"
	"fmt"

	reviewserrors "unistay/internal/reviews/errors"
	"unistay/pkg/config"
	mongotx "unistay/pkg/db/mongo"
	"unistay/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const CollectionName = "reviews"

type ReviewRepository interface {
	Create(ctx context.Context, review *model.Review) error
	FindByID(ctx context.Context, id string) (*model.Review, error)
	Find(ctx context.Context, filter model.ReviewFilter, limit int, offset int64) ([]*model.Review, error)
	Count(ctx context.Context, filter model.ReviewFilter) (int64, error)
	Summary(ctx context.Context, propertyID string) (model.RatingSummary, error)
	SetResponse(ctx context.Context, id string, response *model.OwnerResponse) error
	SetStatus(ctx context.Context, id string, status model.ReviewStatus) error
	Delete(ctx context.Context, id string) error
}

type mongoReviewRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoReviewRepository(cfg *config.Config) ReviewRepository {
	return &mongoReviewRepository{
		cfg:        cfg,
		collection: cfg.Client.Mongo.Database(cfg.MongoDatabaseName).Collection(CollectionName),
	}
}

func (r *mongoReviewRepository) Create(ctx context.Context, review *model.Review) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	now := mongotx.Now()
	review.CreatedAt = now
	review.UpdatedAt = now

	result, err := r.collection.InsertOne(ctx, review)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return reviewserrors.ErrDuplicate
		}
		return fmt.Errorf("failed to create review: %w", err)
	}

	review.ID = mongotx.InsertedHex(result)
	return nil
}

func (r *mongoReviewRepository) FindByID(ctx context.Context, id string) (*model.Review, error) {
	objectID, err := mongotx.ObjectID(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", reviewserrors.ErrInvalidID, id)
	}

	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	var review model.Review
	if err := r.collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&review); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, reviewserrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find review: %w", err)
	}
	return &review, nil
}

func (r *mongoReviewRepository) Find(ctx context.Context, filter model.ReviewFilter, limit int, offset int64) ([]*model.Review, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(int64(limit)).
		SetSkip(offset)

	cursor, err := r.collection.Find(ctx, Filter(filter), opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find reviews: %w", err)
	}
	defer cursor.Close(ctx)

	reviews := []*model.Review{}
	if err := cursor.All(ctx, &reviews); err != nil {
		return nil, fmt.Errorf("failed to decode reviews: %w", err)
	}
	return reviews, nil
}

func (r *mongoReviewRepository) Count(ctx context.Context, filter model.ReviewFilter) (int64, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	count, err := r.collection.CountDocuments(ctx, Filter(filter))
	if err != nil {
		return 0, fmt.Errorf("failed to count reviews: %w", err)
	}
	return count, nil
}

// Summary averages the published ratings of a property.
func (r *mongoReviewRepository) Summary(ctx context.Context, propertyID string) (model.RatingSummary, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	cursor, err := r.collection.Aggregate(ctx, SummaryPipeline(propertyID))
	if err != nil {
		return model.RatingSummary{}, fmt.Errorf("failed to aggregate ratings: %w", err)
	}
	defer cursor.Close(ctx)

	var results []model.RatingSummary
	if err := cursor.All(ctx, &results); err != nil {
		return model.RatingSummary{}, fmt.Errorf("failed to decode rating summary: %w", err)
	}
	if len(results) == 0 {
		return model.RatingSummary{}, nil
	}
	return results[0], nil
}

func (r *mongoReviewRepository) SetResponse(ctx context.Context, id string, response *model.OwnerResponse) error {
	return r.set(ctx, id, bson.M{"owner_response": response})
}

func (r *mongoReviewRepository) SetStatus(ctx context.Context, id string, status model.ReviewStatus) error {
	return r.set(ctx, id, bson.M{"status": status})
}

func (r *mongoReviewRepository) set(ctx context.Context, id string, fields bson.M) error {
	objectID, err := mongotx.ObjectID(id)
	if err != nil {
		return fmt.Errorf("%w: %s", reviewserrors.ErrInvalidID, id)
	}

	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	fields["updated_at"] = mongotx.Now()
	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": objectID}, bson.M{"$set": fields})
	if err != nil {
		return fmt.Errorf("failed to update review: %w", err)
	}
	if result.MatchedCount == 0 {
		return reviewserrors.ErrNotFound
	}
	return nil
}

func (r *mongoReviewRepository) Delete(ctx context.Context, id string) error {
	objectID, err := mongotx.ObjectID(id)
	if err != nil {
		return fmt.Errorf("%w: %s", reviewserrors.ErrInvalidID, id)
	}

	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": objectID})
	if err != nil {
		return fmt.Errorf("failed to delete review: %w", err)
	}
	if result.DeletedCount == 0 {
		return reviewserrors.ErrNotFound
	}
	return nil
}

func Filter(f model.ReviewFilter) bson.M {
	filter := bson.M{}
	if f.PropertyID != "" {
		filter["property_id"] = f.PropertyID
	}
	if f.StudentID != "" {
		filter["student_id"] = f.StudentID
	}
	if f.Status != "" {
		filter["status"] = f.Status
	}
	return filter
}

func SummaryPipeline(propertyID string) mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"property_id": propertyID, "status": model.ReviewPublished}}},
		{{Key: "$group", Value: bson.M{
			"_id":     nil,
			"average": bson.M{"$avg": "$rating"},
			"count":   bson.M{"$sum": 1},
		}}},
		{{Key: "$project", Value: bson.M{
			"_id":     0,
			"average": bson.M{"$round": bson.A{"$average", 2}},
			"count":   1,
		}}},
	}
}
