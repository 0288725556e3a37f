package repository

import (
	"context"
	"errors"
	"fmt"

	userserrors "unistay/internal/users/errors"
	"unistay/pkg/config"
	mongotx "unistay/pkg/db/mongo"
	"unistay/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const PromotionCollectionName = "ownerpromotionrequests"

type PromotionRepository interface {
	Create(ctx context.Context, req *model.OwnerPromotionRequest) error
	FindByID(ctx context.Context, id string) (*model.OwnerPromotionRequest, error)
	FindLatestByUser(ctx context.Context, userID string) (*model.OwnerPromotionRequest, error)
	Find(ctx context.Context, status model.PromotionStatus, limit int, offset int64) ([]*model.OwnerPromotionRequest, error)
	Count(ctx context.Context, status model.PromotionStatus) (int64, error)
	Review(ctx context.Context, req *model.OwnerPromotionRequest) error
	ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error
}

type mongoPromotionRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
	txManager  mongotx.TransactionManager
}

func NewMongoPromotionRepository(cfg *config.Config) PromotionRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoPromotionRepository{
		cfg:        cfg,
		collection: db.Collection(PromotionCollectionName),
		txManager:  mongotx.NewTransactionManager(cfg.Client.Mongo),
	}
}

// Create relies on the partial unique index over pending requests per user.
func (r *mongoPromotionRepository) Create(ctx context.Context, req *model.OwnerPromotionRequest) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	req.CreatedAt = mongotx.Now()
	result, err := r.collection.InsertOne(ctx, req)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return userserrors.ErrPendingPromotion
		}
		return fmt.Errorf("failed to create promotion request: %w", err)
	}

	req.ID = mongotx.InsertedHex(result)
	return nil
}

func (r *mongoPromotionRepository) FindByID(ctx context.Context, id string) (*model.OwnerPromotionRequest, error) {
	objectID, err := mongotx.ObjectID(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", userserrors.ErrInvalidID, id)
	}
	return r.findOne(ctx, bson.M{"_id": objectID}, nil)
}

func (r *mongoPromotionRepository) FindLatestByUser(ctx context.Context, userID string) (*model.OwnerPromotionRequest, error) {
	return r.findOne(ctx, bson.M{"user_id": userID}, options.FindOne().SetSort(bson.D{{Key: "created_at", Value: -1}}))
}

func (r *mongoPromotionRepository) findOne(ctx context.Context, filter bson.M, opts *options.FindOneOptions) (*model.OwnerPromotionRequest, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	if opts == nil {
		opts = options.FindOne()
	}

	var req model.OwnerPromotionRequest
	if err := r.collection.FindOne(ctx, filter, opts).Decode(&req); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, userserrors.ErrPromotionNotFound
		}
		return nil, fmt.Errorf("failed to find promotion request: %w", err)
	}
	return &req, nil
}

func (r *mongoPromotionRepository) Find(ctx context.Context, status model.PromotionStatus, limit int, offset int64) ([]*model.OwnerPromotionRequest, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: 1}}).
		SetLimit(int64(limit)).
		SetSkip(offset)

	cursor, err := r.collection.Find(ctx, statusFilter(status), opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find promotion requests: %w", err)
	}
	defer cursor.Close(ctx)

	requests := []*model.OwnerPromotionRequest{}
	if err := cursor.All(ctx, &requests); err != nil {
		return nil, fmt.Errorf("failed to decode promotion requests: %w", err)
	}
	return requests, nil
}

func (r *mongoPromotionRepository) Count(ctx context.Context, status model.PromotionStatus) (int64, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	count, err := r.collection.CountDocuments(ctx, statusFilter(status))
	if err != nil {
		return 0, fmt.Errorf("failed to count promotion requests: %w", err)
	}
	return count, nil
}

// Review records the decision only while the request is still pending.
func (r *mongoPromotionRepository) Review(ctx context.Context, req *model.OwnerPromotionRequest) error {
	objectID, err := mongotx.ObjectID(req.ID)
	if err != nil {
		return fmt.Errorf("%w: %s", userserrors.ErrInvalidID, req.ID)
	}

	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	result, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": objectID, "status": model.PromotionPending},
		bson.M{"$set": bson.M{
			"status":      req.Status,
			"reviewed_by": req.ReviewedBy,
			"review_note": req.ReviewNote,
			"reviewed_at": req.ReviewedAt,
		}},
	)
	if err != nil {
		return fmt.Errorf("failed to review promotion request: %w", err)
	}
	if result.MatchedCount == 0 {
		return userserrors.ErrPromotionReviewed
	}
	return nil
}

func (r *mongoPromotionRepository) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return r.txManager.ExecuteTransaction(ctx, fn)
}

func statusFilter(status model.PromotionStatus) bson.M {
	if status == "" {
		return bson.M{}
	}
	return bson.M{"status": status}
}
