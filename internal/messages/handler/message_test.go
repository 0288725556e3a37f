package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"unistay/pkg/auth"
	apperrors "unistay/pkg/errors"
	"unistay/pkg/logger"
	"unistay/pkg/model"

	"github.com/julienschmidt/httprouter"
)

type mockMessageService struct {
	SendFunc         func(ctx context.Context, caller *auth.Principal, input *model.MessageCreate) (*model.Message, error)
	ListMessagesFunc func(ctx context.Context, caller *auth.Principal, threadID string, limit int, offset int64) ([]*model.Message, int64, error)
}

func (m *mockMessageService) Send(ctx context.Context, caller *auth.Principal, input *model.MessageCreate) (*model.Message, error) {
	return m.SendFunc(ctx, caller, input)
}

func (m *mockMessageService) ListThreads(context.Context, *auth.Principal, int, int64) ([]*model.Conversation, int64, error) {
	return []*model.Conversation{}, 0, nil
}

func (m *mockMessageService) ListMessages(ctx context.Context, caller *auth.Principal, threadID string, limit int, offset int64) ([]*model.Message, int64, error) {
	return m.ListMessagesFunc(ctx, caller, threadID, limit, offset)
}

func serve(svc *mockMessageService, req *http.Request) *httptest.ResponseRecorder {
	router := httprouter.New()
	NewMessageHandler(svc, logger.Discard()).RegisterRoutes(router)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestSend(t *testing.T) {
	svc := &mockMessageService{
		SendFunc: func(_ context.Context, _ *auth.Principal, input *model.MessageCreate) (*model.Message, error) {
			return &model.Message{ID: "m1", ThreadID: "t1", Body: input.Body}, nil
		},
	}
	rec := serve(svc, httptest.NewRequest(http.MethodPost, "/api/messages", strings.NewReader(`{"thread_id":"t1","body":"hi"}`)))
	if rec.Code != http.StatusCreated {
		t.Errorf("status = %d, body = %s", rec.Code, rec.Body)
	}
}

func TestListMessages_PassesThreadID(t *testing.T) {
	const thread = "64b7f0c2a1b2c3d4e5f60718-owner-student"
	svc := &mockMessageService{
		ListMessagesFunc: func(_ context.Context, _ *auth.Principal, threadID string, limit int, _ int64) ([]*model.Message, int64, error) {
			if threadID != thread {
				t.Errorf("thread = %s", threadID)
			}
			return []*model.Message{}, 0, nil
		},
	}
	rec := serve(svc, httptest.NewRequest(http.MethodGet, "/api/messages/threads/"+thread, nil))
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, body = %s", rec.Code, rec.Body)
	}
}

func TestListMessages_NotParticipant(t *testing.T) {
	svc := &mockMessageService{
		ListMessagesFunc: func(context.Context, *auth.Principal, string, int, int64) ([]*model.Message, int64, error) {
			return nil, 0, apperrors.Forbidden("You are not part of this conversation")
		},
	}
	rec := serve(svc, httptest.NewRequest(http.MethodGet, "/api/messages/threads/t1", nil))
	if rec.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", rec.Code)
	}
}
