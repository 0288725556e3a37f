package service

import (
	"context"
	"errors"
	"sync"
	"time"
	"unicode/utf8"

	messageserrors "unistay/internal/messages/errors"
	"unistay/internal/messages/repository"
	"unistay/internal/messages/validator"
	propertieserrors "unistay/internal/properties/errors"
	"unistay/pkg/auth"
	mongotx "unistay/pkg/db/mongo"
	apperrors "unistay/pkg/errors"
	"unistay/pkg/logger"
	"unistay/pkg/model"
	"unistay/pkg/sanitizer"
	"unistay/pkg/validation"

	"go.mongodb.org/mongo-driver/mongo"
)

const previewRunes = 120

type MessageService interface {
	Send(ctx context.Context, caller *auth.Principal, input *model.MessageCreate) (*model.Message, error)
	ListThreads(ctx context.Context, caller *auth.Principal, limit int, offset int64) ([]*model.Conversation, int64, error)
	ListMessages(ctx context.Context, caller *auth.Principal, threadID string, limit int, offset int64) ([]*model.Message, int64, error)
}

type PropertyFinder interface {
	FindByID(ctx context.Context, id string) (*model.Property, error)
}

type messageService struct {
	messages      repository.MessageRepository
	conversations repository.ConversationRepository
	properties    PropertyFinder
	validator     *validator.MessageValidator
	log           *logger.Logger
	now           func() time.Time
}

func NewMessageService(
	messages repository.MessageRepository,
	conversations repository.ConversationRepository,
	properties PropertyFinder,
	validator *validator.MessageValidator,
	log *logger.Logger,
) MessageService {
	return &messageService{
		messages:      messages,
		conversations: conversations,
		properties:    properties,
		validator:     validator,
		log:           log,
		now:           mongotx.Now,
	}
}

// ThreadID identifies the conversation between one student and the owner of
// one property.
func ThreadID(propertyID, ownerID, studentID string) string {
	return propertyID + "-" + ownerID + "-" + studentID
}

// Send appends a message. A student starts or continues a thread by property;
// either party may reply by thread id.
func (s *messageService) Send(ctx context.Context, caller *auth.Principal, input *model.MessageCreate) (*model.Message, error) {
	if caller == nil {
		return nil, apperrors.Unauthorized("Sign in required")
	}

	input.Body = sanitizer.SanitizeText(input.Body)
	if err := s.validator.Validate(input); err != nil {
		return nil, validation.ToAppError("Message validation failed", err)
	}

	conv, err := s.resolveThread(ctx, caller, input)
	if err != nil {
		return nil, err
	}

	recipientID := conv.OwnerID
	if caller.UserID == conv.OwnerID {
		recipientID = conv.StudentID
	}
	if recipientID == caller.UserID {
		return nil, apperrors.InvalidInput("You cannot message yourself")
	}

	message := &model.Message{
		ThreadID:    conv.ID,
		SenderID:    caller.UserID,
		RecipientID: recipientID,
		Body:        input.Body,
		CreatedAt:   s.now(),
	}

	err = s.conversations.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		if err := s.messages.Create(sessCtx, message); err != nil {
			return err
		}
		_, err := s.conversations.Touch(sessCtx, conv, recipientID, preview(message.Body), message.CreatedAt)
		return err
	})
	if err != nil {
		s.log.Error("Failed to send message", "thread_id", conv.ID, "sender_id", caller.UserID, "error", err)
		return nil, apperrors.Internal("Failed to send message", err)
	}

	s.log.Info("Message sent", "id", message.ID, "thread_id", conv.ID, "sender_id", caller.UserID)
	return message, nil
}

func (s *messageService) resolveThread(ctx context.Context, caller *auth.Principal, input *model.MessageCreate) (*model.Conversation, error) {
	if input.ThreadID != "" {
		conv, err := s.conversation(ctx, input.ThreadID)
		if err != nil {
			return nil, err
		}
		if !conv.HasParticipant(caller.UserID) {
			return nil, apperrors.Forbidden("You are not part of this conversation")
		}
		return conv, nil
	}

	property, err := s.properties.FindByID(ctx, input.PropertyID)
	if err != nil {
		if errors.Is(err, propertieserrors.ErrNotFound) || errors.Is(err, propertieserrors.ErrInvalidID) {
			return nil, apperrors.NotFoundWithID("Property", input.PropertyID)
		}
		return nil, apperrors.Internal("Failed to retrieve property", err)
	}

	studentID := caller.UserID
	if caller.UserID == property.OwnerID {
		if input.RecipientID == "" {
			return nil, apperrors.InvalidInput("recipient_id is required when messaging about your own listing")
		}
		studentID = input.RecipientID
	} else if property.Status != model.PropertyApproved {
		return nil, apperrors.NotFoundWithID("Property", input.PropertyID)
	}

	return &model.Conversation{
		ID:         ThreadID(property.ID, property.OwnerID, studentID),
		PropertyID: property.ID,
		OwnerID:    property.OwnerID,
		StudentID:  studentID,
	}, nil
}

func (s *messageService) ListThreads(ctx context.Context, caller *auth.Principal, limit int, offset int64) ([]*model.Conversation, int64, error) {
	if caller == nil {
		return nil, 0, apperrors.Unauthorized("Sign in required")
	}

	var total int64
	var conversations []*model.Conversation
	var errCount, errFind error
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		total, errCount = s.conversations.CountForUser(ctx, caller.UserID)
	}()

	go func() {
		defer wg.Done()
		conversations, errFind = s.conversations.FindForUser(ctx, caller.UserID, limit, offset)
	}()

	wg.Wait()
	if errCount != nil {
		return nil, 0, apperrors.Internal("Failed to count conversations", errCount)
	}
	if errFind != nil {
		return nil, 0, apperrors.Internal("Failed to retrieve conversations", errFind)
	}

	return conversations, total, nil
}

// ListMessages returns a page of the thread and marks the caller's incoming
// messages as read.
func (s *messageService) ListMessages(ctx context.Context, caller *auth.Principal, threadID string, limit int, offset int64) ([]*model.Message, int64, error) {
	if caller == nil {
		return nil, 0, apperrors.Unauthorized("Sign in required")
	}

	conv, err := s.conversation(ctx, threadID)
	if err != nil {
		return nil, 0, err
	}
	if !conv.HasParticipant(caller.UserID) {
		return nil, 0, apperrors.Forbidden("You are not part of this conversation")
	}

	var total int64
	var messages []*model.Message
	var errCount, errFind error
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		total, errCount = s.messages.CountByThread(ctx, threadID)
	}()

	go func() {
		defer wg.Done()
		messages, errFind = s.messages.FindByThread(ctx, threadID, limit, offset)
	}()

	wg.Wait()
	if errCount != nil {
		return nil, 0, apperrors.Internal("Failed to count messages", errCount)
	}
	if errFind != nil {
		return nil, 0, apperrors.Internal("Failed to retrieve messages", errFind)
	}

	if conv.Unread[caller.UserID] > 0 {
		s.markRead(ctx, caller.UserID, threadID)
	}

	return messages, total, nil
}

func (s *messageService) markRead(ctx context.Context, userID, threadID string) {
	now := s.now()
	marked, err := s.messages.MarkRead(ctx, threadID, userID, now)
	if err != nil {
		s.log.Warn("Failed to mark messages read", "thread_id", threadID, "user_id", userID, "error", err)
		return
	}
	if err := s.conversations.ResetUnread(ctx, threadID, userID); err != nil {
		s.log.Warn("Failed to reset unread counter", "thread_id", threadID, "user_id", userID, "error", err)
		return
	}
	s.log.Debug("Messages marked read", "thread_id", threadID, "user_id", userID, "count", marked)
}

func (s *messageService) conversation(ctx context.Context, threadID string) (*model.Conversation, error) {
	conv, err := s.conversations.FindByID(ctx, threadID)
	if err != nil {
		if errors.Is(err, messageserrors.ErrConversationNotFound) {
			return nil, apperrors.NotFoundWithID("Conversation", threadID)
		}
		return nil, apperrors.Internal("Failed to retrieve conversation", err)
	}
	return conv, nil
}

func preview(body string) string {
	if utf8.RuneCountInString(body) <= previewRunes {
		return body
	}
	runes := []rune(body)
	return string(runes[:previewRunes]) + "…"
}
