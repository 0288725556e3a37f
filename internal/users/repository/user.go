package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	userserrors "unistay/internal/users/errors"
	"unistay/pkg/config"
	mongotx "unistay/pkg/db/mongo"
	"unistay/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	CollectionName = "users"
)

type UserRepository interface {
	UpsertOnSignIn(ctx context.Context, email, name string) (*model.User, error)
	FindByID(ctx context.Context, id string) (*model.User, error)
	Find(ctx context.Context, filter model.UserFilter, limit int, offset int64) ([]*model.User, error)
	Count(ctx context.Context, filter model.UserFilter) (int64, error)
	Update(ctx context.Context, id string, fields bson.M) (*model.User, error)
}

type mongoUserRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoUserRepository(cfg *config.Config) UserRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoUserRepository{
		cfg:        cfg,
		collection: db.Collection(CollectionName),
	}
}

// UpsertOnSignIn returns the user for email, creating a student account on
// first sign-in. The unique index on email makes concurrent first requests
// converge on one document.
func (r *mongoUserRepository) UpsertOnSignIn(ctx context.Context, email, name string) (*model.User, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	now := mongotx.Now()
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var user model.User
	err := r.collection.FindOneAndUpdate(ctx, bson.M{"email": email}, SignInUpdate(name, now), opts).Decode(&user)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			// Lost the insert race; the winner's document is there now.
			return r.findOne(ctx, bson.M{"email": email})
		}
		return nil, fmt.Errorf("failed to upsert user: %w", err)
	}

	return &user, nil
}

func (r *mongoUserRepository) FindByID(ctx context.Context, id string) (*model.User, error) {
	objectID, err := mongotx.ObjectID(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", userserrors.ErrInvalidID, id)
	}

	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	return r.findOne(ctx, bson.M{"_id": objectID})
}

func (r *mongoUserRepository) findOne(ctx context.Context, filter bson.M) (*model.User, error) {
	var user model.User
	if err := r.collection.FindOne(ctx, filter).Decode(&user); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, userserrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return &user, nil
}

func (r *mongoUserRepository) Find(ctx context.Context, filter model.UserFilter, limit int, offset int64) ([]*model.User, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(int64(limit)).
		SetSkip(offset)

	cursor, err := r.collection.Find(ctx, Filter(filter), opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find users: %w", err)
	}
	defer cursor.Close(ctx)

	users := []*model.User{}
	if err := cursor.All(ctx, &users); err != nil {
		return nil, fmt.Errorf("failed to decode users: %w", err)
	}
	return users, nil
}

func (r *mongoUserRepository) Count(ctx context.Context, filter model.UserFilter) (int64, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	count, err := r.collection.CountDocuments(ctx, Filter(filter))
	if err != nil {
		return 0, fmt.Errorf("failed to count users: %w", err)
	}
	return count, nil
}

// Update sets fields on the user and returns the updated document.
func (r *mongoUserRepository) Update(ctx context.Context, id string, fields bson.M) (*model.User, error) {
	objectID, err := mongotx.ObjectID(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", userserrors.ErrInvalidID, id)
	}

	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	set := bson.M{"updated_at": mongotx.Now()}
	for k, v := range fields {
		set[k] = v
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var user model.User
	err = r.collection.FindOneAndUpdate(ctx, bson.M{"_id": objectID}, bson.M{"$set": set}, opts).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, userserrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to update user: %w", err)
	}
	return &user, nil
}

// SignInUpdate sets defaults for a new account; email comes from the filter.
func SignInUpdate(name string, now time.Time) bson.M {
	return bson.M{
		"$setOnInsert": bson.M{
			"name":        name,
			"role":        model.RoleStudent,
			"verified":    false,
			"blacklisted": false,
			"two_factor":  bson.M{"enabled": false},
			"created_at":  now,
		},
		"$set": bson.M{
			"last_login_at": now,
			"updated_at":    now,
		},
	}
}

func Filter(f model.UserFilter) bson.M {
	filter := bson.M{}
	if f.Role != "" {
		filter["role"] = f.Role
	}
	if f.Verified != nil {
		filter["verified"] = *f.Verified
	}
	if f.Blacklisted != nil {
		filter["blacklisted"] = *f.Blacklisted
	}
	if f.Email != "" {
		filter["email"] = f.Email
	}
	return filter
}
