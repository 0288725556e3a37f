package service

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	messageserrors "unistay/internal/messages/errors"
	"unistay/internal/messages/validator"
	propertieserrors "unistay/internal/properties/errors"
	"unistay/pkg/auth"
	mongotx "unistay/pkg/db/mongo"
	apperrors "unistay/pkg/errors"
	"unistay/pkg/logger"
	"unistay/pkg/model"

	"go.mongodb.org/mongo-driver/mongo"
)

const propertyID = "64b7f0c2a1b2c3d4e5f60718"

type fakeStore struct {
	mu            sync.Mutex
	messages      []*model.Message
	conversations map[string]*model.Conversation
}

func newFakeStore() *fakeStore {
	return &fakeStore{conversations: map[string]*model.Conversation{}}
}

type fakeMessages struct{ *fakeStore }

func (f fakeMessages) Create(_ context.Context, m *model.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	m.ID = fmt.Sprintf("%024x", len(f.messages)+1)
	cp := *m
	f.messages = append(f.messages, &cp)
	return nil
}

func (f fakeMessages) FindByThread(_ context.Context, threadID string, _ int, _ int64) ([]*model.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []*model.Message{}
	for _, m := range f.messages {
		if m.ThreadID == threadID {
			cp := *m
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f fakeMessages) CountByThread(ctx context.Context, threadID string) (int64, error) {
	msgs, _ := f.FindByThread(ctx, threadID, 0, 0)
	return int64(len(msgs)), nil
}

func (f fakeMessages) MarkRead(_ context.Context, threadID, recipientID string, at time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, m := range f.messages {
		if m.ThreadID == threadID && m.RecipientID == recipientID && m.ReadAt == nil {
			t := at
			m.ReadAt = &t
			n++
		}
	}
	return n, nil
}

type fakeConversations struct{ *fakeStore }

func (f fakeConversations) FindByID(_ context.Context, threadID string) (*model.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.conversations[threadID]
	if !ok {
		return nil, messageserrors.ErrConversationNotFound
	}
	return copyConversation(c), nil
}

func (f fakeConversations) FindForUser(_ context.Context, userID string, _ int, _ int64) ([]*model.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []*model.Conversation{}
	for _, c := range f.conversations {
		if c.HasParticipant(userID) {
			out = append(out, copyConversation(c))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f fakeConversations) CountForUser(ctx context.Context, userID string) (int64, error) {
	convs, _ := f.FindForUser(ctx, userID, 0, 0)
	return int64(len(convs)), nil
}

func (f fakeConversations) Touch(_ context.Context, conv *model.Conversation, recipientID, preview string, at time.Time) (*model.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.conversations[conv.ID]
	if !ok {
		c = copyConversation(conv)
		c.Unread = map[string]int64{}
		c.CreatedAt = at
		f.conversations[conv.ID] = c
	}
	c.LastMessage = preview
	c.LastMessageAt = at
	c.Unread[recipientID]++
	return copyConversation(c), nil
}

func (f fakeConversations) ResetUnread(_ context.Context, threadID, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if c, ok := f.conversations[threadID]; ok {
		c.Unread[userID] = 0
	}
	return nil
}

func (f fakeConversations) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return fn(mongo.NewSessionContext(ctx, nil))
}

func copyConversation(c *model.Conversation) *model.Conversation {
	cp := *c
	cp.Unread = make(map[string]int64, len(c.Unread))
	for k, v := range c.Unread {
		cp.Unread[k] = v
	}
	return &cp
}

type stubProperties map[string]*model.Property

func (s stubProperties) FindByID(_ context.Context, id string) (*model.Property, error) {
	p, ok := s[id]
	if !ok {
		return nil, propertieserrors.ErrNotFound
	}
	return p, nil
}

var (
	student = &auth.Principal{UserID: "student-1", Role: model.RoleStudent}
	owner   = &auth.Principal{UserID: "owner-1", Role: model.RoleOwner}
)

func newService(status model.PropertyStatus) (MessageService, *fakeStore) {
	store := newFakeStore()
	properties := stubProperties{propertyID: {ID: propertyID, OwnerID: "owner-1", Status: status}}
	svc := NewMessageService(fakeMessages{store}, fakeConversations{store}, properties, validator.NewMessageValidator(logger.Discard()), logger.Discard()).(*messageService)
	svc.now = func() time.Time { return time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC) }
	return svc, store
}

func wantStatus(t *testing.T, err error, status int) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error with status %d, got nil", status)
	}
	if got := apperrors.AsAppError(err).StatusCode(); got != status {
		t.Fatalf("status = %d, want %d (%v)", got, status, err)
	}
}

func TestThreadID_Deterministic(t *testing.T) {
	if ThreadID("p", "o", "s") != ThreadID("p", "o", "s") {
		t.Fatal("thread id must be deterministic")
	}
	if ThreadID("p", "o", "s1") == ThreadID("p", "o", "s2") {
		t.Error("different students must get different threads")
	}
}

func TestSend_ConversationFlow(t *testing.T) {
	svc, store := newService(model.PropertyApproved)
	ctx := context.Background()

	first, err := svc.Send(ctx, student, &model.MessageCreate{PropertyID: propertyID, Body: "Is the double room <b>free</b>?"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	wantThread := ThreadID(propertyID, "owner-1", "student-1")
	if first.ThreadID != wantThread || first.RecipientID != "owner-1" {
		t.Errorf("message = %+v", first)
	}
	if first.Body != "Is the double room free?" {
		t.Errorf("body = %q, want sanitized", first.Body)
	}

	if _, err := svc.Send(ctx, student, &model.MessageCreate{PropertyID: propertyID, Body: "Also, bills included?"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	conv := store.conversations[wantThread]
	if conv.Unread["owner-1"] != 2 {
		t.Errorf("owner unread = %d, want 2", conv.Unread["owner-1"])
	}
	if conv.LastMessage != "Also, bills included?" {
		t.Errorf("last message = %q", conv.LastMessage)
	}

	reply, err := svc.Send(ctx, owner, &model.MessageCreate{ThreadID: wantThread, Body: "Yes to both"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reply.RecipientID != "student-1" {
		t.Errorf("reply recipient = %s", reply.RecipientID)
	}

	messages, total, err := svc.ListMessages(ctx, owner, wantThread, 50, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 3 || len(messages) != 3 {
		t.Errorf("messages = %d, total = %d", len(messages), total)
	}
	if store.conversations[wantThread].Unread["owner-1"] != 0 {
		t.Error("owner unread counter not reset")
	}
	for _, m := range store.messages {
		if m.RecipientID == "owner-1" && m.ReadAt == nil {
			t.Error("owner's incoming message not marked read")
		}
		if m.RecipientID == "student-1" && m.ReadAt != nil {
			t.Error("student's message marked read by the owner")
		}
	}

	threads, n, err := svc.ListThreads(ctx, student, 20, 0)
	if err != nil || n != 1 || threads[0].ID != wantThread {
		t.Errorf("threads = %v, %d, %v", threads, n, err)
	}
}

func TestSend_Rejections(t *testing.T) {
	svc, _ := newService(model.PropertyApproved)
	ctx := context.Background()

	_, err := svc.Send(ctx, nil, &model.MessageCreate{PropertyID: propertyID, Body: "hi"})
	wantStatus(t, err, http.StatusUnauthorized)

	_, err = svc.Send(ctx, student, &model.MessageCreate{PropertyID: propertyID, Body: strings.Repeat("x", 2001)})
	wantStatus(t, err, http.StatusUnprocessableEntity)

	_, err = svc.Send(ctx, owner, &model.MessageCreate{PropertyID: propertyID, Body: "hello"})
	wantStatus(t, err, http.StatusBadRequest)

	_, err = svc.Send(ctx, student, &model.MessageCreate{ThreadID: "missing", Body: "hello"})
	wantStatus(t, err, http.StatusNotFound)

	thread := ThreadID(propertyID, "owner-1", "student-1")
	if _, err := svc.Send(ctx, student, &model.MessageCreate{PropertyID: propertyID, Body: "hello"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	outsider := &auth.Principal{UserID: "student-2", Role: model.RoleStudent}
	_, err = svc.Send(ctx, outsider, &model.MessageCreate{ThreadID: thread, Body: "me too"})
	wantStatus(t, err, http.StatusForbidden)

	_, _, err = svc.ListMessages(ctx, outsider, thread, 20, 0)
	wantStatus(t, err, http.StatusForbidden)
}

func TestSend_UnapprovedListingHidden(t *testing.T) {
	svc, _ := newService(model.PropertyPending)
	_, err := svc.Send(context.Background(), student, &model.MessageCreate{PropertyID: propertyID, Body: "hello"})
	wantStatus(t, err, http.StatusNotFound)
}

func TestPreview(t *testing.T) {
	long := strings.Repeat("é", previewRunes+10)
	got := preview(long)
	if len([]rune(got)) != previewRunes+1 {
		t.Errorf("preview runes = %d", len([]rune(got)))
	}
	if preview("short") != "short" {
		t.Error("short bodies are kept whole")
	}
}
