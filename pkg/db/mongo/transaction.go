package mongo

import (
	"context"
	"errors"
	"fmt"

	apperrors "unistay/pkg/errors"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readconcern"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"
)

// codeIllegalOperation is what a standalone server answers to startTransaction.
const codeIllegalOperation = 20

// ErrTransactionsUnsupported is returned when the server is not part of a
// replica set or sharded cluster.
var ErrTransactionsUnsupported = errors.New("mongodb deployment does not support transactions")

type TransactionFunc func(ctx mongo.SessionContext) error

type TransactionManager interface {
	ExecuteTransaction(ctx context.Context, fn TransactionFunc) error
}

type mongoTransactionManager struct {
	client *mongo.Client
	opts   *options.TransactionOptions
}

// NewTransactionManager runs every transaction with snapshot reads and
// majority writes, so a booking and its property counter commit together.
func NewTransactionManager(client *mongo.Client) TransactionManager {
	return &mongoTransactionManager{
		client: client,
		opts: options.Transaction().
			SetReadConcern(readconcern.Snapshot()).
			SetWriteConcern(writeconcern.Majority()),
	}
}

// ExecuteTransaction commits fn's writes atomically. The driver retries fn on
// transient transaction errors, so fn must not have side effects outside the
// session. AppErrors returned by fn abort the transaction and pass through.
func (m *mongoTransactionManager) ExecuteTransaction(ctx context.Context, fn TransactionFunc) error {
	session, err := m.client.StartSession()
	if err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sessCtx mongo.SessionContext) (any, error) {
		return nil, fn(sessCtx)
	}, m.opts)
	if err == nil {
		return nil
	}

	if apperrors.IsAppError(err) {
		return err
	}
	if IsTransactionsUnsupported(err) {
		return fmt.Errorf("%w: %v", ErrTransactionsUnsupported, err)
	}
	return fmt.Errorf("transaction failed: %w", err)
}

func IsTransactionsUnsupported(err error) bool {
	var cmdErr mongo.CommandError
	return errors.As(err, &cmdErr) && cmdErr.Code == codeIllegalOperation
}
