package repository

import (
	"context"
	"fmt"

	"unistay/pkg/config"
	mongotx "unistay/pkg/db/mongo"
	"unistay/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	CollectionName = "auditlogs"
)

type AuditLogRepository interface {
	Insert(ctx context.Context, entry *model.AuditLog) error
	Find(ctx context.Context, filter model.AuditFilter, limit int, offset int64) ([]*model.AuditLog, error)
	Count(ctx context.Context, filter model.AuditFilter) (int64, error)
}

type mongoAuditLogRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoAuditLogRepository(cfg *config.Config) AuditLogRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoAuditLogRepository{
		cfg:        cfg,
		collection: db.Collection(CollectionName),
	}
}

func (r *mongoAuditLogRepository) Insert(ctx context.Context, entry *model.AuditLog) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = mongotx.Now()
	}

	result, err := r.collection.InsertOne(ctx, entry)
	if err != nil {
		return fmt.Errorf("failed to insert audit log: %w", err)
	}

	entry.ID = mongotx.InsertedHex(result)
	return nil
}

func (r *mongoAuditLogRepository) Find(ctx context.Context, filter model.AuditFilter, limit int, offset int64) ([]*model.AuditLog, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(int64(limit)).
		SetSkip(offset)

	cursor, err := r.collection.Find(ctx, Filter(filter), opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find audit logs: %w", err)
	}
	defer cursor.Close(ctx)

	entries := []*model.AuditLog{}
	if err = cursor.All(ctx, &entries); err != nil {
		return nil, fmt.Errorf("failed to decode audit logs: %w", err)
	}

	return entries, nil
}

func (r *mongoAuditLogRepository) Count(ctx context.Context, filter model.AuditFilter) (int64, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	count, err := r.collection.CountDocuments(ctx, Filter(filter))
	if err != nil {
		return 0, fmt.Errorf("failed to count audit logs: %w", err)
	}
	return count, nil
}

func Filter(f model.AuditFilter) bson.M {
	filter := bson.M{}
	if f.ActorID != "" {
		filter["actor_id"] = f.ActorID
	}
	if f.Action != "" {
		filter["action"] = f.Action
	}
	if f.ResourceType != "" {
		filter["resource_type"] = f.ResourceType
	}
	if f.Since != nil {
		filter["created_at"] = bson.M{"$gte": *f.Since}
	}
	return filter
}
