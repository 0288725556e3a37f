package mongo

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

func TestWithTimeoutUsesShorterDeadline(t *testing.T) {
	parent, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	ctx, c := WithTimeout(parent, time.Hour)
	defer c()

	deadline, ok := ctx.Deadline()
	if !ok || time.Until(deadline) > 100*time.Millisecond {
		t.Errorf("expected deadline bounded by parent, got %v", deadline)
	}
}

func TestWithTimeoutAddsDeadline(t *testing.T) {
	ctx, c := WithTimeout(context.Background(), time.Second)
	defer c()
	if _, ok := ctx.Deadline(); !ok {
		t.Error("expected deadline")
	}
}

func TestObjectID(t *testing.T) {
	oid := primitive.NewObjectID()
	got, err := ObjectID(oid.Hex())
	if err != nil || got != oid {
		t.Fatalf("ObjectID() = %v, %v", got, err)
	}
	if _, err := ObjectID("nope"); !errors.Is(err, ErrInvalidObjectID) {
		t.Errorf("expected ErrInvalidObjectID, got %v", err)
	}
}

func TestInsertedHex(t *testing.T) {
	oid := primitive.NewObjectID()
	if got := InsertedHex(&mongo.InsertOneResult{InsertedID: oid}); got != oid.Hex() {
		t.Errorf("InsertedHex() = %q", got)
	}
	if got := InsertedHex(&mongo.InsertOneResult{InsertedID: "lock-1"}); got != "lock-1" {
		t.Errorf("InsertedHex() = %q", got)
	}
	if got := InsertedHex(nil); got != "" {
		t.Errorf("InsertedHex(nil) = %q", got)
	}
}

func TestIsTransactionsUnsupported(t *testing.T) {
	standalone := mongo.CommandError{Code: 20, Message: "Transaction numbers are only allowed on a replica set member or mongos"}
	if !IsTransactionsUnsupported(fmt.Errorf("commit: %w", standalone)) {
		t.Error("expected IllegalOperation to be detected")
	}
	if IsTransactionsUnsupported(mongo.CommandError{Code: 11000}) {
		t.Error("duplicate key is not a transaction support error")
	}
	if IsTransactionsUnsupported(errors.New("boom")) {
		t.Error("plain errors are not transaction support errors")
	}
}
