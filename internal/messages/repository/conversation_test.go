package repository

import (
	"testing"
	"time"

	"unistay/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
)

func TestTouchUpdate(t *testing.T) {
	at := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	conv := &model.Conversation{ID: "p-o-s", PropertyID: "p", OwnerID: "o", StudentID: "s"}

	update := TouchUpdate(conv, "o", "hello", at)

	inc, ok := update["$inc"].(bson.M)
	if !ok || inc["unread.o"] != 1 {
		t.Errorf("$inc = %v, want recipient counter bumped", update["$inc"])
	}
	set := update["$set"].(bson.M)
	if set["last_message"] != "hello" || set["last_message_at"] != at {
		t.Errorf("$set = %v", set)
	}
	onInsert := update["$setOnInsert"].(bson.M)
	if onInsert["student_id"] != "s" || onInsert["owner_id"] != "o" {
		t.Errorf("$setOnInsert = %v", onInsert)
	}
}

func TestParticipantFilter(t *testing.T) {
	or, ok := participantFilter("u1")["$or"].(bson.A)
	if !ok || len(or) != 2 {
		t.Fatalf("filter = %v", participantFilter("u1"))
	}
}
