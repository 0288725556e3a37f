package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	messageserrors "unistay/internal/messages/errors"
	"unistay/pkg/config"
	mongotx "unistay/pkg/db/mongo"
	"unistay/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const ConversationCollectionName = "conversations"

type ConversationRepository interface {
	FindByID(ctx context.Context, threadID string) (*model.Conversation, error)
	FindForUser(ctx context.Context, userID string, limit int, offset int64) ([]*model.Conversation, error)
	CountForUser(ctx context.Context, userID string) (int64, error)
	// Touch creates the conversation if needed, records the latest message
	// and bumps the recipient's unread counter.
	Touch(ctx context.Context, conv *model.Conversation, recipientID, preview string, at time.Time) (*model.Conversation, error)
	ResetUnread(ctx context.Context, threadID, userID string) error
	ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error
}

type mongoConversationRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
	txManager  mongotx.TransactionManager
}

func NewMongoConversationRepository(cfg *config.Config) ConversationRepository {
	return &mongoConversationRepository{
		cfg:        cfg,
		collection: cfg.Client.Mongo.Database(cfg.MongoDatabaseName).Collection(ConversationCollectionName),
		txManager:  mongotx.NewTransactionManager(cfg.Client.Mongo),
	}
}

func (r *mongoConversationRepository) FindByID(ctx context.Context, threadID string) (*model.Conversation, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	var conv model.Conversation
	if err := r.collection.FindOne(ctx, bson.M{"_id": threadID}).Decode(&conv); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, messageserrors.ErrConversationNotFound
		}
		return nil, fmt.Errorf("failed to find conversation: %w", err)
	}
	return &conv, nil
}

func (r *mongoConversationRepository) FindForUser(ctx context.Context, userID string, limit int, offset int64) ([]*model.Conversation, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().
		SetSort(bson.D{{Key: "last_message_at", Value: -1}}).
		SetLimit(int64(limit)).
		SetSkip(offset)

	cursor, err := r.collection.Find(ctx, participantFilter(userID), opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find conversations: %w", err)
	}
	defer cursor.Close(ctx)

	conversations := []*model.Conversation{}
	if err := cursor.All(ctx, &conversations); err != nil {
		return nil, fmt.Errorf("failed to decode conversations: %w", err)
	}
	return conversations, nil
}

func (r *mongoConversationRepository) CountForUser(ctx context.Context, userID string) (int64, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	count, err := r.collection.CountDocuments(ctx, participantFilter(userID))
	if err != nil {
		return 0, fmt.Errorf("failed to count conversations: %w", err)
	}
	return count, nil
}

func (r *mongoConversationRepository) Touch(ctx context.Context, conv *model.Conversation, recipientID, preview string, at time.Time) (*model.Conversation, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var updated model.Conversation
	err := r.collection.FindOneAndUpdate(ctx, bson.M{"_id": conv.ID}, TouchUpdate(conv, recipientID, preview, at), opts).Decode(&updated)
	if err != nil {
		return nil, fmt.Errorf("failed to update conversation: %w", err)
	}
	return &updated, nil
}

func (r *mongoConversationRepository) ResetUnread(ctx context.Context, threadID, userID string) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	_, err := r.collection.UpdateOne(ctx, bson.M{"_id": threadID}, bson.M{"$set": bson.M{"unread." + userID: 0}})
	if err != nil {
		return fmt.Errorf("failed to reset unread counter: %w", err)
	}
	return nil
}

func (r *mongoConversationRepository) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return r.txManager.ExecuteTransaction(ctx, fn)
}

func TouchUpdate(conv *model.Conversation, recipientID, preview string, at time.Time) bson.M {
	return bson.M{
		"$setOnInsert": bson.M{
			"property_id": conv.PropertyID,
			"owner_id":    conv.OwnerID,
			"student_id":  conv.StudentID,
			"created_at":  at,
		},
		"$set": bson.M{
			"last_message":    preview,
			"last_message_at": at,
		},
		"$inc": bson.M{"unread." + recipientID: 1},
	}
}

func participantFilter(userID string) bson.M {
	return bson.M{"$or": bson.A{
		bson.M{"owner_id": userID},
		bson.M{"student_id": userID},
	}}
}
